// Package stats computes usage statistics over the catalog, the accounts and the listening
// history.
package stats

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spotifum/internal/store"
	"spotifum/shared/go/models"
)

// ErrNoData signals that a statistic has nothing to rank.
var ErrNoData = errors.New("no data for statistic")

// Store captures the read-only queries the statistics need.
type Store interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	ListAlbums(ctx context.Context, filter store.AlbumFilter) ([]*models.Album, error)
	ListMusics(ctx context.Context, filter store.MusicFilter) ([]*models.Music, error)
	ListPlaylists(ctx context.Context, filter store.PlaylistFilter) ([]*models.Playlist, error)
	CountPlaysSince(ctx context.Context, userID int64, since time.Time) (int, error)
}

// Totals counts the main entities.
type Totals struct {
	Users           int
	Albums          int
	Musics          int
	PublicPlaylists int
	Artists         int
}

// Ranked pairs a winner with the figure it won on.
type Ranked[T any] struct {
	Value T
	Count int
}

// Service exposes the statistics.
type Service interface {
	Totals(ctx context.Context) (Totals, error)
	MostPlayedMusic(ctx context.Context) (*models.Music, error)
	MostListenedArtist(ctx context.Context) (Ranked[string], error)
	TopListenerSince(ctx context.Context, since time.Time) (Ranked[*models.User], error)
	TopPointsUser(ctx context.Context) (*models.User, error)
	MostPlayedGenre(ctx context.Context) (Ranked[string], error)
	MostPlaylistsUser(ctx context.Context) (Ranked[*models.User], error)
}

type service struct {
	store Store
}

// New constructs a Service.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Totals(ctx context.Context) (Totals, error) {
	if err := ctx.Err(); err != nil {
		return Totals{}, err
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return Totals{}, fmt.Errorf("list users: %w", err)
	}
	albums, err := s.store.ListAlbums(ctx, store.AlbumFilter{})
	if err != nil {
		return Totals{}, fmt.Errorf("list albums: %w", err)
	}
	musics, err := s.store.ListMusics(ctx, store.MusicFilter{})
	if err != nil {
		return Totals{}, fmt.Errorf("list musics: %w", err)
	}
	public, err := s.store.ListPlaylists(ctx, store.PlaylistFilter{PublicOnly: true})
	if err != nil {
		return Totals{}, fmt.Errorf("list playlists: %w", err)
	}

	artists := make(map[string]struct{})
	for _, m := range musics {
		artists[m.Artist] = struct{}{}
	}
	return Totals{
		Users:           len(users),
		Albums:          len(albums),
		Musics:          len(musics),
		PublicPlaylists: len(public),
		Artists:         len(artists),
	}, nil
}

func (s *service) MostPlayedMusic(ctx context.Context) (*models.Music, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	musics, err := s.store.ListMusics(ctx, store.MusicFilter{})
	if err != nil {
		return nil, fmt.Errorf("list musics: %w", err)
	}

	var best *models.Music
	for _, m := range musics {
		if best == nil || m.PlayCount > best.PlayCount || (m.PlayCount == best.PlayCount && m.ID < best.ID) {
			best = m
		}
	}
	if best == nil {
		return nil, ErrNoData
	}
	return best, nil
}

func (s *service) MostListenedArtist(ctx context.Context) (Ranked[string], error) {
	return s.topByMusicField(ctx, func(m *models.Music) string { return m.Artist })
}

func (s *service) MostPlayedGenre(ctx context.Context) (Ranked[string], error) {
	return s.topByMusicField(ctx, func(m *models.Music) string { return strings.ToLower(m.Genre) })
}

// topByMusicField sums play counts per key; ties go to the alphabetically first key.
func (s *service) topByMusicField(ctx context.Context, key func(*models.Music) string) (Ranked[string], error) {
	if err := ctx.Err(); err != nil {
		return Ranked[string]{}, err
	}
	musics, err := s.store.ListMusics(ctx, store.MusicFilter{})
	if err != nil {
		return Ranked[string]{}, fmt.Errorf("list musics: %w", err)
	}

	totals := make(map[string]int)
	for _, m := range musics {
		if k := key(m); k != "" {
			totals[k] += m.PlayCount
		}
	}
	if len(totals) == 0 {
		return Ranked[string]{}, ErrNoData
	}

	var best Ranked[string]
	first := true
	for k, n := range totals {
		if first || n > best.Count || (n == best.Count && k < best.Value) {
			best = Ranked[string]{Value: k, Count: n}
			first = false
		}
	}
	return best, nil
}

func (s *service) TopListenerSince(ctx context.Context, since time.Time) (Ranked[*models.User], error) {
	if err := ctx.Err(); err != nil {
		return Ranked[*models.User]{}, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return Ranked[*models.User]{}, fmt.Errorf("list users: %w", err)
	}

	var best Ranked[*models.User]
	for _, u := range users {
		n, err := s.store.CountPlaysSince(ctx, u.ID, since)
		if err != nil {
			return Ranked[*models.User]{}, fmt.Errorf("count plays of user %d: %w", u.ID, err)
		}
		if best.Value == nil || n > best.Count {
			best = Ranked[*models.User]{Value: u, Count: n}
		}
	}
	if best.Value == nil {
		return best, ErrNoData
	}
	return best, nil
}

func (s *service) TopPointsUser(ctx context.Context) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var best *models.User
	for _, u := range users {
		if best == nil || u.Points > best.Points {
			best = u
		}
	}
	if best == nil {
		return nil, ErrNoData
	}
	return best, nil
}

func (s *service) MostPlaylistsUser(ctx context.Context) (Ranked[*models.User], error) {
	if err := ctx.Err(); err != nil {
		return Ranked[*models.User]{}, err
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return Ranked[*models.User]{}, fmt.Errorf("list users: %w", err)
	}
	playlists, err := s.store.ListPlaylists(ctx, store.PlaylistFilter{})
	if err != nil {
		return Ranked[*models.User]{}, fmt.Errorf("list playlists: %w", err)
	}

	created := make(map[int64]int)
	for _, p := range playlists {
		created[p.CreatorID]++
	}

	var best Ranked[*models.User]
	for _, u := range users {
		if n := created[u.ID]; best.Value == nil || n > best.Count {
			best = Ranked[*models.User]{Value: u, Count: n}
		}
	}
	if best.Value == nil {
		return best, ErrNoData
	}
	return best, nil
}
