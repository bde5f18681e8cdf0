// Package library manages what users save: tracks, albums and playlist references, plus the
// purges that keep every library consistent when the catalog changes.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"spotifum/internal/plan"
	"spotifum/internal/store"
	"spotifum/shared/go/models"
)

// Store captures the persistence needs for library workflows.
type Store interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	MusicByID(ctx context.Context, id int64) (*models.Music, error)
	AlbumByID(ctx context.Context, id int64) (*models.Album, error)
	PlaylistByID(ctx context.Context, id int64) (*models.Playlist, error)
	UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error
	DeletePlaylist(ctx context.Context, id int64) error

	Library(ctx context.Context, userID int64) (*models.Library, error)
	AddLibraryMusic(ctx context.Context, userID, musicID int64) error
	RemoveLibraryMusic(ctx context.Context, userID, musicID int64) error
	AddLibraryAlbum(ctx context.Context, userID, albumID int64) error
	RemoveLibraryAlbum(ctx context.Context, userID, albumID int64) error
	AddLibraryPlaylist(ctx context.Context, userID, playlistID int64) error
	RemoveLibraryPlaylist(ctx context.Context, userID, playlistID int64) error
	LibrariesWithMusic(ctx context.Context, musicID int64) ([]int64, error)
	LibrariesWithAlbum(ctx context.Context, albumID int64) ([]int64, error)
	LibrariesWithPlaylist(ctx context.Context, playlistID int64) ([]int64, error)
}

// Service coordinates library operations.
type Service interface {
	Get(ctx context.Context, userID int64) (*models.Library, error)
	Musics(ctx context.Context, userID int64) ([]*models.Music, error)
	Albums(ctx context.Context, userID int64) ([]*models.Album, error)
	Playlists(ctx context.Context, userID int64) ([]*models.Playlist, error)
	PlaylistByName(ctx context.Context, userID int64, name string) (*models.Playlist, error)

	AddMusic(ctx context.Context, userID, musicID int64) error
	AddAlbum(ctx context.Context, userID, albumID int64) error
	AddPlaylist(ctx context.Context, userID, playlistID int64) error
	RemoveMusic(ctx context.Context, userID, musicID int64) error
	RemoveAlbum(ctx context.Context, userID, albumID int64) error
	RemovePlaylist(ctx context.Context, userID int64, name string) error

	Purge(ctx context.Context, musicID int64) error
	PurgeAlbum(ctx context.Context, albumID int64) error
	DeletePlaylist(ctx context.Context, playlistID int64) error
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

// requirePlan loads the user and checks the capability against their tier.
func (s *service) requirePlan(ctx context.Context, userID int64, c plan.Capability) (*models.User, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	kind, err := plan.ParseKind(user.Plan)
	if err != nil {
		return nil, err
	}
	if err := kind.Require(c); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *service) Get(ctx context.Context, userID int64) (*models.Library, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.Library(ctx, userID)
}

// Musics resolves the saved tracks the user's content preferences allow.
func (s *service) Musics(ctx context.Context, userID int64) ([]*models.Music, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list library musics: %w", err)
	}
	lib, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	musics := make([]*models.Music, 0, len(lib.MusicIDs))
	for _, id := range lib.MusicIDs {
		m, err := s.store.MusicByID(ctx, id)
		if errors.Is(err, store.ErrMusicNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		musics = append(musics, m)
	}
	return models.VisibleTo(user, musics), nil
}

func (s *service) Albums(ctx context.Context, userID int64) ([]*models.Album, error) {
	lib, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	albums := make([]*models.Album, 0, len(lib.AlbumIDs))
	for _, id := range lib.AlbumIDs {
		a, err := s.store.AlbumByID(ctx, id)
		if errors.Is(err, store.ErrAlbumNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	return albums, nil
}

func (s *service) Playlists(ctx context.Context, userID int64) ([]*models.Playlist, error) {
	lib, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	playlists := make([]*models.Playlist, 0, len(lib.PlaylistIDs))
	for _, id := range lib.PlaylistIDs {
		p, err := s.store.PlaylistByID(ctx, id)
		if errors.Is(err, store.ErrPlaylistNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	return playlists, nil
}

func (s *service) PlaylistByName(ctx context.Context, userID int64, name string) (*models.Playlist, error) {
	playlists, err := s.Playlists(ctx, userID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	for _, p := range playlists {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, store.ErrPlaylistNotFound
}

func (s *service) AddMusic(ctx context.Context, userID, musicID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.requirePlan(ctx, userID, plan.SaveAlbum); err != nil {
		return err
	}
	if err := s.store.AddLibraryMusic(ctx, userID, musicID); err != nil {
		return fmt.Errorf("save music %d: %w", musicID, err)
	}
	return nil
}

func (s *service) AddAlbum(ctx context.Context, userID, albumID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.requirePlan(ctx, userID, plan.SaveAlbum); err != nil {
		return err
	}
	if err := s.store.AddLibraryAlbum(ctx, userID, albumID); err != nil {
		return fmt.Errorf("save album %d: %w", albumID, err)
	}
	return nil
}

func (s *service) AddPlaylist(ctx context.Context, userID, playlistID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.requirePlan(ctx, userID, plan.SavePlaylist); err != nil {
		return err
	}

	p, err := s.store.PlaylistByID(ctx, playlistID)
	if err != nil {
		return err
	}
	if !p.IsPublic && p.CreatorID != userID {
		return store.ErrPlaylistNotFound
	}

	if _, err := s.PlaylistByName(ctx, userID, p.Name); err == nil {
		return store.ErrPlaylistAlreadySaved
	} else if !errors.Is(err, store.ErrPlaylistNotFound) {
		return err
	}

	if err := s.store.AddLibraryPlaylist(ctx, userID, playlistID); err != nil {
		return fmt.Errorf("save playlist %d: %w", playlistID, err)
	}
	return nil
}

func (s *service) RemoveMusic(ctx context.Context, userID, musicID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.RemoveLibraryMusic(ctx, userID, musicID)
}

func (s *service) RemoveAlbum(ctx context.Context, userID, albumID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.store.RemoveLibraryAlbum(ctx, userID, albumID)
}

// RemovePlaylist deletes the named playlist everywhere when the user created it or is an
// administrator; otherwise only the user's saved reference is dropped.
func (s *service) RemovePlaylist(ctx context.Context, userID int64, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := s.PlaylistByName(ctx, userID, name)
	if err != nil {
		return err
	}
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}

	if p.CreatorID == userID || user.IsAdmin {
		return s.DeletePlaylist(ctx, p.ID)
	}
	return s.store.RemoveLibraryPlaylist(ctx, userID, p.ID)
}

func (s *service) DeletePlaylist(ctx context.Context, playlistID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	holders, err := s.store.LibrariesWithPlaylist(ctx, playlistID)
	if err != nil {
		return err
	}
	for _, userID := range holders {
		if err := s.store.RemoveLibraryPlaylist(ctx, userID, playlistID); err != nil {
			return fmt.Errorf("unsave playlist for user %d: %w", userID, err)
		}
	}
	if err := s.store.DeletePlaylist(ctx, playlistID); err != nil {
		return fmt.Errorf("delete playlist %d: %w", playlistID, err)
	}

	log.Info().Int64("playlist_id", playlistID).Int("libraries", len(holders)).Msg("playlist removed")
	return nil
}

// Purge strips the music from every user's saved tracks and from every playlist held in any
// library. Running it twice is harmless.
func (s *service) Purge(ctx context.Context, musicID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	holders, err := s.store.LibrariesWithMusic(ctx, musicID)
	if err != nil {
		return err
	}
	for _, userID := range holders {
		if err := s.store.RemoveLibraryMusic(ctx, userID, musicID); err != nil {
			return fmt.Errorf("unsave music for user %d: %w", userID, err)
		}
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return err
	}
	seen := make(map[int64]bool)
	edited := 0
	for _, u := range users {
		lib, err := s.store.Library(ctx, u.ID)
		if err != nil {
			return err
		}
		for _, playlistID := range lib.PlaylistIDs {
			if seen[playlistID] {
				continue
			}
			seen[playlistID] = true

			p, err := s.store.PlaylistByID(ctx, playlistID)
			if errors.Is(err, store.ErrPlaylistNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if !p.Contains(musicID) {
				continue
			}
			p.MusicIDs = removeID(p.MusicIDs, musicID)
			if err := s.store.UpdatePlaylist(ctx, p); err != nil {
				return fmt.Errorf("update playlist %d: %w", p.ID, err)
			}
			edited++
		}
	}

	log.Debug().Int64("music_id", musicID).Int("libraries", len(holders)).Int("playlists", edited).Msg("music purged")
	return nil
}

func (s *service) PurgeAlbum(ctx context.Context, albumID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	holders, err := s.store.LibrariesWithAlbum(ctx, albumID)
	if err != nil {
		return err
	}
	for _, userID := range holders {
		if err := s.store.RemoveLibraryAlbum(ctx, userID, albumID); err != nil {
			return fmt.Errorf("unsave album for user %d: %w", userID, err)
		}
	}
	return nil
}

func removeID(ids []int64, id int64) []int64 {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
