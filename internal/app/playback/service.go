package playback

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"spotifum/internal/app/playlists"
	"spotifum/internal/plan"
	"spotifum/internal/store"
	"spotifum/shared/go/models"
)

// DefaultRandomSize is the number of tracks queued by PlayRandom when no size is given.
const DefaultRandomSize = 10

// Store captures the persistence needs for playback.
type Store interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
	PlaylistByID(ctx context.Context, id int64) (*models.Playlist, error)
	MusicByID(ctx context.Context, id int64) (*models.Music, error)
	MusicsByAlbum(ctx context.Context, albumID int64) ([]*models.Music, error)
}

// Generator builds ephemeral random playlists.
type Generator interface {
	Random(ctx context.Context, userID int64, name string, maxCount int, rng playlists.Rand) (*models.Playlist, error)
}

// Service exposes the listen entry points.
type Service interface {
	PlayPlaylist(ctx context.Context, userID, playlistID int64, term Terminal) (Result, error)
	PlayPlaylistValue(ctx context.Context, userID int64, playlist *models.Playlist, term Terminal) (Result, error)
	PlayRandom(ctx context.Context, userID int64, maxCount int, term Terminal) (Result, error)
	PlayAlbum(ctx context.Context, userID, albumID int64, term Terminal) (Result, error)
	PlayMusic(ctx context.Context, userID, musicID int64, term Terminal) (Result, error)
}

type service struct {
	store     Store
	generator Generator
	recorder  Recorder
	rng       Rand
}

// New constructs a Service. rng drives both random playlists and the random command.
func New(store Store, generator Generator, recorder Recorder, rng Rand) Service {
	return &service{store: store, generator: generator, recorder: recorder, rng: rng}
}

func (s *service) user(ctx context.Context, userID int64) (*models.User, plan.Kind, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	kind, err := plan.ParseKind(user.Plan)
	if err != nil {
		return nil, "", err
	}
	return user, kind, nil
}

func (s *service) PlayPlaylist(ctx context.Context, userID, playlistID int64, term Terminal) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	p, err := s.store.PlaylistByID(ctx, playlistID)
	if err != nil {
		return Result{}, err
	}
	return s.PlayPlaylistValue(ctx, userID, p, term)
}

// PlayPlaylistValue plays an already loaded playlist. Anything but a random playlist needs
// the ListenCustomPlaylist capability.
func (s *service) PlayPlaylistValue(ctx context.Context, userID int64, p *models.Playlist, term Terminal) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	user, kind, err := s.user(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if p.ID != 0 && !p.IsPublic && p.CreatorID != userID && !user.IsAdmin {
		return Result{}, store.ErrPlaylistNotFound
	}
	if p.Kind != models.PlaylistRandom {
		if err := kind.Require(plan.ListenCustomPlaylist); err != nil {
			return Result{}, fmt.Errorf("%w (try a random playlist instead)", err)
		}
	}

	tracks := make([]*models.Music, 0, len(p.MusicIDs))
	for _, id := range p.MusicIDs {
		m, err := s.store.MusicByID(ctx, id)
		if errors.Is(err, store.ErrMusicNotFound) {
			continue
		}
		if err != nil {
			return Result{}, err
		}
		tracks = append(tracks, m)
	}
	return s.run(ctx, user, tracks, term, "playlist", p.ID)
}

func (s *service) PlayRandom(ctx context.Context, userID int64, maxCount int, term Terminal) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if maxCount <= 0 {
		maxCount = DefaultRandomSize
	}
	p, err := s.generator.Random(ctx, userID, "", maxCount, s.rng)
	if err != nil {
		return Result{}, err
	}
	return s.PlayPlaylistValue(ctx, userID, p, term)
}

func (s *service) PlayAlbum(ctx context.Context, userID, albumID int64, term Terminal) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	user, _, err := s.user(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	tracks, err := s.store.MusicsByAlbum(ctx, albumID)
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, user, tracks, term, "album", albumID)
}

func (s *service) PlayMusic(ctx context.Context, userID, musicID int64, term Terminal) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	user, kind, err := s.user(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if err := kind.Require(plan.ListenSingleMusic); err != nil {
		return Result{}, err
	}
	m, err := s.store.MusicByID(ctx, musicID)
	if err != nil {
		return Result{}, err
	}
	return s.run(ctx, user, []*models.Music{m}, term, "music", musicID)
}

func (s *service) run(ctx context.Context, user *models.User, tracks []*models.Music, term Terminal, source string, sourceID int64) (Result, error) {
	session, err := NewSession(user, tracks, s.recorder, term, s.rng)
	if err != nil {
		return Result{}, err
	}
	result, err := session.Run(ctx)
	if err != nil {
		return result, err
	}

	log.Info().
		Int64("user_id", user.ID).
		Str("source", source).
		Int64("source_id", sourceID).
		Int("played", result.Played).
		Int("hidden", result.Hidden).
		Int("skipped", result.Skipped).
		Int("points", result.Points).
		Str("reason", string(result.Reason)).
		Msg("playback finished")
	return result, nil
}
