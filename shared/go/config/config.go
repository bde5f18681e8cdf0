package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers understood by the application.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	// Storage backend selection
	Storage StorageConfig

	// Database configuration
	Database DatabaseConfig

	// Security configuration
	Security SecurityConfig

	// Logging configuration
	Logging LoggingConfig

	// Playback configuration
	Playback PlaybackConfig

	// Search cache configuration
	Search SearchConfig

	// Startup seeding
	Bootstrap BootstrapConfig
}

// StorageConfig selects the repository implementation.
type StorageConfig struct {
	Driver string // memory, postgres
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL      string // Full PostgreSQL URL
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// SecurityConfig holds security-related settings
type SecurityConfig struct {
	JWTSecret  string
	SessionTTL time.Duration
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// PlaybackConfig holds the random source settings. A zero seed means time-based.
type PlaybackConfig struct {
	Seed int64
}

// SearchConfig sizes the catalog search cache.
type SearchConfig struct {
	CacheSize int
	CacheTTL  time.Duration
}

// BootstrapConfig controls data created at startup.
type BootstrapConfig struct {
	SeedDemo      bool
	AdminUsername string
	AdminPassword string
	ImportFile    string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Storage.Driver = strings.ToLower(getEnvOrDefault("STORAGE_DRIVER", DriverMemory))

	// Load database configuration
	if err := cfg.loadDatabase(); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}

	// Load security configuration
	if err := cfg.loadSecurity(); err != nil {
		return nil, fmt.Errorf("load security config: %w", err)
	}

	// Load logging configuration
	cfg.loadLogging()

	if err := cfg.loadPlayback(); err != nil {
		return nil, fmt.Errorf("load playback config: %w", err)
	}

	if err := cfg.loadSearch(); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}

	if err := cfg.loadBootstrap(); err != nil {
		return nil, fmt.Errorf("load bootstrap config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings. Tools that never start the application, such
// as the migration runner, use it to skip unrelated validation.
func LoadDatabase() (DatabaseConfig, error) {
	cfg := &Config{}
	if err := cfg.loadDatabase(); err != nil {
		return DatabaseConfig{}, fmt.Errorf("load database config: %w", err)
	}
	if cfg.Database.URL == "" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
	}
	return cfg.Database, nil
}

func (c *Config) loadDatabase() error {
	// Try to load DATABASE_URL first
	c.Database.URL = os.Getenv("DATABASE_URL")

	// If not present, construct from individual parameters
	if c.Database.URL == "" {
		c.Database.Host = getEnvOrDefault("DB_HOST", "localhost")
		c.Database.User = os.Getenv("DB_USER")
		c.Database.Password = os.Getenv("DB_PASSWORD")
		c.Database.Name = os.Getenv("DB_NAME")
		c.Database.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

		port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
		if err != nil {
			return fmt.Errorf("invalid DB_PORT: %w", err)
		}
		c.Database.Port = port

		// Construct URL if all components are present
		if c.Database.Host != "" && c.Database.User != "" && c.Database.Name != "" {
			c.Database.URL = fmt.Sprintf(
				"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
				c.Database.User,
				c.Database.Password,
				c.Database.Host,
				c.Database.Port,
				c.Database.Name,
				c.Database.SSLMode,
			)
		}
	}

	return nil
}

func (c *Config) loadSecurity() error {
	c.Security.JWTSecret = os.Getenv("JWT_SECRET")

	ttl, err := time.ParseDuration(getEnvOrDefault("SESSION_TTL", "24h"))
	if err != nil {
		return fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	c.Security.SessionTTL = ttl
	return nil
}

func (c *Config) loadLogging() {
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", "text")
}

func (c *Config) loadPlayback() error {
	seed, err := strconv.ParseInt(getEnvOrDefault("RANDOM_SEED", "0"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid RANDOM_SEED: %w", err)
	}
	c.Playback.Seed = seed
	return nil
}

func (c *Config) loadSearch() error {
	size, err := strconv.Atoi(getEnvOrDefault("SEARCH_CACHE_SIZE", "256"))
	if err != nil {
		return fmt.Errorf("invalid SEARCH_CACHE_SIZE: %w", err)
	}
	ttl, err := time.ParseDuration(getEnvOrDefault("SEARCH_CACHE_TTL", "5m"))
	if err != nil {
		return fmt.Errorf("invalid SEARCH_CACHE_TTL: %w", err)
	}
	c.Search.CacheSize = size
	c.Search.CacheTTL = ttl
	return nil
}

func (c *Config) loadBootstrap() error {
	seed, err := strconv.ParseBool(getEnvOrDefault("SEED_DEMO", "true"))
	if err != nil {
		return fmt.Errorf("invalid SEED_DEMO: %w", err)
	}
	c.Bootstrap.SeedDemo = seed
	c.Bootstrap.AdminUsername = getEnvOrDefault("ADMIN_USERNAME", "admin")
	c.Bootstrap.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	c.Bootstrap.ImportFile = os.Getenv("CATALOG_IMPORT_FILE")
	return nil
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var errors []string

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" {
			errors = append(errors, "DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME) for the postgres driver")
		}
	default:
		errors = append(errors, "STORAGE_DRIVER must be one of: memory, postgres")
	}

	// Validate security configuration
	if c.Security.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	}
	if len(c.Security.JWTSecret) < 16 {
		errors = append(errors, "JWT_SECRET must be at least 16 characters")
	}
	if c.Security.SessionTTL <= 0 {
		errors = append(errors, "SESSION_TTL must be positive")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errors = append(errors, "LOG_FORMAT must be one of: json, text")
	}

	if c.Search.CacheSize < 1 {
		errors = append(errors, "SEARCH_CACHE_SIZE must be at least 1")
	}

	if c.Bootstrap.AdminPassword != "" && c.Bootstrap.AdminUsername == "" {
		errors = append(errors, "ADMIN_USERNAME is required when ADMIN_PASSWORD is set")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(os.Getenv("ENV"))
	return env == "" || env == "development"
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
