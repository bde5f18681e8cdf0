package main

import (
	"github.com/joho/godotenv"

	"spotifum/shared/go/config"
)

// loadConfig reads optional .env files before the environment is parsed. Variables already set
// in the environment win.
func loadConfig() (*config.Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config/local.env")
	return config.Load()
}
