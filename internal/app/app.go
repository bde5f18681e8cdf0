// Package app wires the services together over a single repository.
package app

import (
	"math/rand/v2"
	"time"

	"spotifum/internal/app/catalog"
	"spotifum/internal/app/library"
	"spotifum/internal/app/listening"
	"spotifum/internal/app/playback"
	"spotifum/internal/app/playlists"
	"spotifum/internal/app/search"
	"spotifum/internal/app/stats"
	"spotifum/internal/app/users"
	"spotifum/internal/importer"
	"spotifum/internal/store"
	"spotifum/shared/go/auth"
)

// Options tunes the wiring. Zero values pick sensible defaults.
type Options struct {
	TokenSecret string
	SessionTTL  time.Duration
	CacheSize   int
	CacheTTL    time.Duration
	Seed        int64
	Now         func() time.Time
}

// App holds every service of the application.
type App struct {
	Store     store.Repository
	Catalog   catalog.Service
	Library   library.Service
	Listening listening.Service
	Playlists playlists.Service
	Playback  playback.Service
	Users     users.Service
	Search    search.Service
	Stats     stats.Service
	Importer  *importer.Importer
	Rand      *rand.Rand
}

// New builds the service graph on top of repo.
func New(repo store.Repository, opts Options) *App {
	seed := uint64(opts.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed>>1|1))

	// Base services
	librarySvc := library.New(repo)
	catalogSvc := catalog.New(repo, librarySvc, catalog.Options{CacheSize: opts.CacheSize, CacheTTL: opts.CacheTTL})
	listeningSvc := listening.New(repo, catalogSvc, opts.Now)
	tokens := auth.NewTokenManager(opts.TokenSecret, opts.SessionTTL)

	// Derived services
	playlistSvc := playlists.New(repo, librarySvc)
	playbackSvc := playback.New(repo, playlistSvc, listeningSvc, rng)

	return &App{
		Store:     repo,
		Catalog:   catalogSvc,
		Library:   librarySvc,
		Listening: listeningSvc,
		Playlists: playlistSvc,
		Playback:  playbackSvc,
		Users:     users.New(repo, librarySvc, tokens),
		Search:    search.New(catalogSvc, playlistSvc),
		Stats:     stats.New(repo),
		Importer:  importer.New(catalogSvc),
		Rand:      rng,
	}
}
