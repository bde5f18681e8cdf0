// Package catalog manages albums and their tracks: creation, removal with cascading purges,
// explicit/multimedia variant replacement and searches.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"spotifum/internal/store"
	"spotifum/shared/go/models"
)

// Store captures the persistence needs for catalog workflows.
type Store interface {
	CreateAlbum(ctx context.Context, album *models.Album) error
	AlbumByID(ctx context.Context, id int64) (*models.Album, error)
	AlbumByTitle(ctx context.Context, title string) (*models.Album, error)
	ListAlbums(ctx context.Context, filter store.AlbumFilter) ([]*models.Album, error)
	DeleteAlbum(ctx context.Context, id int64) error
	CreateMusic(ctx context.Context, music *models.Music) error
	MusicByID(ctx context.Context, id int64) (*models.Music, error)
	ListMusics(ctx context.Context, filter store.MusicFilter) ([]*models.Music, error)
	MusicsByAlbum(ctx context.Context, albumID int64) ([]*models.Music, error)
	CountMusics(ctx context.Context) (int, error)
	ReplaceMusic(ctx context.Context, originalID int64, replacement *models.Music) error
	DeleteMusic(ctx context.Context, id int64) error
	IncrementPlayCount(ctx context.Context, musicID int64) error
}

// Purger strips catalog entries from every user's library and playlists.
type Purger interface {
	Purge(ctx context.Context, musicID int64) error
	PurgeAlbum(ctx context.Context, albumID int64) error
}

// AlbumInput carries the fields of a new album.
type AlbumInput struct {
	Title  string
	Artist string
	Label  string
	Year   int
}

// MusicInput carries the fields of a new track.
type MusicInput struct {
	Title           string
	Artist          string
	Genre           string
	Label           string
	DurationSeconds int
	Lyrics          []string
	Explicit        bool
	Multimedia      bool
}

// Service coordinates catalog operations.
type Service interface {
	CreateAlbum(ctx context.Context, in AlbumInput) (*models.Album, error)
	AddMusic(ctx context.Context, albumID int64, in MusicInput) (*models.Music, error)
	RemoveAlbum(ctx context.Context, albumID int64) error
	RemoveMusic(ctx context.Context, musicID int64) error
	ReplaceVariant(ctx context.Context, musicID int64, mutate func(*models.Music)) (*models.Music, error)
	SetExplicit(ctx context.Context, musicID int64, explicit bool) (*models.Music, error)
	SetMultimedia(ctx context.Context, musicID int64, multimedia bool) (*models.Music, error)
	IncrementPlayCount(ctx context.Context, musicID int64) error

	Album(ctx context.Context, id int64) (*models.Album, error)
	AlbumByTitle(ctx context.Context, title string) (*models.Album, error)
	Albums(ctx context.Context) ([]*models.Album, error)
	Music(ctx context.Context, id int64) (*models.Music, error)
	Tracks(ctx context.Context, albumID int64) ([]*models.Music, error)
	CountMusics(ctx context.Context) (int, error)
	Artists(ctx context.Context) ([]string, error)

	SearchMusicsByTitle(ctx context.Context, query string) ([]*models.Music, error)
	SearchMusicsByArtist(ctx context.Context, query string) ([]*models.Music, error)
	SearchAlbumsByTitle(ctx context.Context, query string) ([]*models.Album, error)
	SearchAlbumsByArtist(ctx context.Context, query string) ([]*models.Album, error)
	MusicsByGenre(ctx context.Context, genre string, maxDuration int) ([]*models.Music, error)
}

// Options tunes the search cache.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

type service struct {
	store  Store
	purger Purger

	musicCache *expirable.LRU[string, []*models.Music]
	albumCache *expirable.LRU[string, []*models.Album]
}

// New constructs a Service backed by the provided Store. Removals purge references through
// purger before the catalog rows are deleted.
func New(store Store, purger Purger, opts Options) Service {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &service{
		store:      store,
		purger:     purger,
		musicCache: expirable.NewLRU[string, []*models.Music](opts.CacheSize, nil, opts.CacheTTL),
		albumCache: expirable.NewLRU[string, []*models.Album](opts.CacheSize, nil, opts.CacheTTL),
	}
}

func (s *service) invalidate() {
	s.musicCache.Purge()
	s.albumCache.Purge()
}

func (s *service) CreateAlbum(ctx context.Context, in AlbumInput) (*models.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	album := &models.Album{
		Title:  strings.TrimSpace(in.Title),
		Artist: strings.TrimSpace(in.Artist),
		Label:  strings.TrimSpace(in.Label),
		Year:   in.Year,
	}
	if album.Title == "" || album.Artist == "" {
		return nil, fmt.Errorf("%w: album title and artist are required", store.ErrInvalidParams)
	}
	if album.Year <= 0 {
		return nil, fmt.Errorf("%w: album year must be positive", store.ErrInvalidParams)
	}

	if err := s.store.CreateAlbum(ctx, album); err != nil {
		return nil, fmt.Errorf("create album %q: %w", album.Title, err)
	}
	s.invalidate()

	log.Info().Int64("album_id", album.ID).Str("title", album.Title).Msg("album created")
	return album, nil
}

func (s *service) AddMusic(ctx context.Context, albumID int64, in MusicInput) (*models.Music, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	music := &models.Music{
		AlbumID:         albumID,
		Title:           strings.TrimSpace(in.Title),
		Artist:          strings.TrimSpace(in.Artist),
		Genre:           strings.TrimSpace(in.Genre),
		Label:           strings.TrimSpace(in.Label),
		DurationSeconds: in.DurationSeconds,
		Lyrics:          slices.Clone(in.Lyrics),
		Explicit:        in.Explicit,
		Multimedia:      in.Multimedia,
	}
	if music.Title == "" || music.Artist == "" {
		return nil, fmt.Errorf("%w: music title and artist are required", store.ErrInvalidParams)
	}
	if music.DurationSeconds < 0 {
		return nil, fmt.Errorf("%w: duration cannot be negative", store.ErrInvalidParams)
	}

	if err := s.store.CreateMusic(ctx, music); err != nil {
		return nil, fmt.Errorf("add music %q: %w", music.Title, err)
	}
	s.invalidate()

	log.Info().Int64("music_id", music.ID).Int64("album_id", albumID).Str("title", music.Title).Msg("music added")
	return music, nil
}

func (s *service) RemoveAlbum(ctx context.Context, albumID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tracks, err := s.store.MusicsByAlbum(ctx, albumID)
	if err != nil {
		return fmt.Errorf("remove album: %w", err)
	}
	for _, track := range tracks {
		if err := s.purger.Purge(ctx, track.ID); err != nil {
			return fmt.Errorf("purge music %d: %w", track.ID, err)
		}
	}
	if err := s.purger.PurgeAlbum(ctx, albumID); err != nil {
		return fmt.Errorf("purge album %d: %w", albumID, err)
	}
	if err := s.store.DeleteAlbum(ctx, albumID); err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	s.invalidate()

	log.Info().Int64("album_id", albumID).Int("tracks", len(tracks)).Msg("album removed")
	return nil
}

func (s *service) RemoveMusic(ctx context.Context, musicID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := s.store.MusicByID(ctx, musicID); err != nil {
		return fmt.Errorf("remove music: %w", err)
	}
	if err := s.purger.Purge(ctx, musicID); err != nil {
		return fmt.Errorf("purge music %d: %w", musicID, err)
	}
	if err := s.store.DeleteMusic(ctx, musicID); err != nil {
		return fmt.Errorf("delete music: %w", err)
	}
	s.invalidate()

	log.Info().Int64("music_id", musicID).Msg("music removed")
	return nil
}

// IncrementPlayCount bumps the track's play counter. Cached search results carry play counts,
// so they are dropped.
func (s *service) IncrementPlayCount(ctx context.Context, musicID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.IncrementPlayCount(ctx, musicID); err != nil {
		return fmt.Errorf("increment play count: %w", err)
	}
	s.invalidate()
	return nil
}

func (s *service) ReplaceVariant(ctx context.Context, musicID int64, mutate func(*models.Music)) (*models.Music, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	original, err := s.store.MusicByID(ctx, musicID)
	if err != nil {
		return nil, fmt.Errorf("replace variant: %w", err)
	}

	replacement := original.Clone()
	replacement.ID = 0
	if mutate != nil {
		mutate(replacement)
	}

	if err := s.purger.Purge(ctx, musicID); err != nil {
		return nil, fmt.Errorf("purge music %d: %w", musicID, err)
	}
	if err := s.store.ReplaceMusic(ctx, musicID, replacement); err != nil {
		return nil, fmt.Errorf("replace music %d: %w", musicID, err)
	}
	s.invalidate()

	log.Info().
		Int64("old_music_id", musicID).
		Int64("music_id", replacement.ID).
		Bool("explicit", replacement.Explicit).
		Bool("multimedia", replacement.Multimedia).
		Msg("music variant replaced")
	return replacement, nil
}

func (s *service) SetExplicit(ctx context.Context, musicID int64, explicit bool) (*models.Music, error) {
	music, err := s.Music(ctx, musicID)
	if err != nil {
		return nil, err
	}
	if music.Explicit == explicit {
		return music, nil
	}
	return s.ReplaceVariant(ctx, musicID, func(m *models.Music) { m.Explicit = explicit })
}

func (s *service) SetMultimedia(ctx context.Context, musicID int64, multimedia bool) (*models.Music, error) {
	music, err := s.Music(ctx, musicID)
	if err != nil {
		return nil, err
	}
	if music.Multimedia == multimedia {
		return music, nil
	}
	return s.ReplaceVariant(ctx, musicID, func(m *models.Music) { m.Multimedia = multimedia })
}

func (s *service) Album(ctx context.Context, id int64) (*models.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.AlbumByID(ctx, id)
}

func (s *service) AlbumByTitle(ctx context.Context, title string) (*models.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.AlbumByTitle(ctx, title)
}

func (s *service) Albums(ctx context.Context) ([]*models.Album, error) {
	return s.searchAlbums(ctx, "all:", store.AlbumFilter{})
}

func (s *service) Music(ctx context.Context, id int64) (*models.Music, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.MusicByID(ctx, id)
}

func (s *service) Tracks(ctx context.Context, albumID int64) ([]*models.Music, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.MusicsByAlbum(ctx, albumID)
}

func (s *service) CountMusics(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.store.CountMusics(ctx)
}

func (s *service) Artists(ctx context.Context) ([]string, error) {
	musics, err := s.searchMusics(ctx, "all:", store.MusicFilter{})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var artists []string
	for _, m := range musics {
		key := strings.ToLower(m.Artist)
		if !seen[key] {
			seen[key] = true
			artists = append(artists, m.Artist)
		}
	}
	slices.SortFunc(artists, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return artists, nil
}

func (s *service) SearchMusicsByTitle(ctx context.Context, query string) ([]*models.Music, error) {
	return s.searchMusics(ctx, "title:"+normalize(query), store.MusicFilter{Title: query})
}

func (s *service) SearchMusicsByArtist(ctx context.Context, query string) ([]*models.Music, error) {
	return s.searchMusics(ctx, "artist:"+normalize(query), store.MusicFilter{Artist: query})
}

func (s *service) MusicsByGenre(ctx context.Context, genre string, maxDuration int) ([]*models.Music, error) {
	if strings.TrimSpace(genre) == "" {
		return nil, fmt.Errorf("%w: genre is required", store.ErrInvalidParams)
	}
	key := fmt.Sprintf("genre:%s:%d", normalize(genre), maxDuration)
	return s.searchMusics(ctx, key, store.MusicFilter{Genre: genre, MaxDuration: maxDuration})
}

func (s *service) SearchAlbumsByTitle(ctx context.Context, query string) ([]*models.Album, error) {
	return s.searchAlbums(ctx, "title:"+normalize(query), store.AlbumFilter{Title: query})
}

func (s *service) SearchAlbumsByArtist(ctx context.Context, query string) ([]*models.Album, error) {
	return s.searchAlbums(ctx, "artist:"+normalize(query), store.AlbumFilter{Artist: query})
}

func normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func (s *service) searchMusics(ctx context.Context, key string, filter store.MusicFilter) ([]*models.Music, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cached, ok := s.musicCache.Get(key); ok {
		return cloneMusics(cached), nil
	}

	musics, err := s.store.ListMusics(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search musics: %w", err)
	}
	s.musicCache.Add(key, cloneMusics(musics))
	return musics, nil
}

func (s *service) searchAlbums(ctx context.Context, key string, filter store.AlbumFilter) ([]*models.Album, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cached, ok := s.albumCache.Get(key); ok {
		return cloneAlbums(cached), nil
	}

	albums, err := s.store.ListAlbums(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("search albums: %w", err)
	}
	s.albumCache.Add(key, cloneAlbums(albums))
	return albums, nil
}

func cloneMusics(in []*models.Music) []*models.Music {
	out := make([]*models.Music, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}

func cloneAlbums(in []*models.Album) []*models.Album {
	out := make([]*models.Album, len(in))
	for i, a := range in {
		clone := *a
		out[i] = &clone
	}
	return out
}
