// Package listening registers plays: point awards, play counters and listening history.
package listening

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"spotifum/internal/plan"
	"spotifum/shared/go/models"
)

// Store captures the persistence needs for play registration.
type Store interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
	MusicByID(ctx context.Context, id int64) (*models.Music, error)
	AddPoints(ctx context.Context, userID int64, delta int) (int, error)
	RecordPlay(ctx context.Context, record *models.ListeningRecord) error
	HasEverPlayed(ctx context.Context, userID, musicID int64) (bool, error)
	CountPlaysByUser(ctx context.Context, userID int64) (int, error)
	ClearHistory(ctx context.Context, userID int64) error
}

// Counter keeps per-track play counters. The catalog service satisfies it so its caches follow
// the counts.
type Counter interface {
	IncrementPlayCount(ctx context.Context, musicID int64) error
}

// Service coordinates play registration and history queries.
type Service interface {
	RecordPlay(ctx context.Context, userID, musicID int64) (int, error)
	HasListened(ctx context.Context, userID, musicID int64) (bool, error)
	CountPlays(ctx context.Context, userID int64) (int, error)
	ClearHistory(ctx context.Context, userID int64) error
}

type service struct {
	store   Store
	counter Counter
	now     func() time.Time
}

// New constructs a Service. A nil clock defaults to time.Now in UTC.
func New(store Store, counter Counter, now func() time.Time) Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{store: store, counter: counter, now: now}
}

// RecordPlay marks the track as played by the user and returns the points awarded. The award
// is computed from the balance and history as they were before this play.
func (s *service) RecordPlay(ctx context.Context, userID, musicID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("record play: %w", err)
	}
	kind, err := plan.ParseKind(user.Plan)
	if err != nil {
		return 0, fmt.Errorf("record play: %w", err)
	}

	if _, err := s.store.MusicByID(ctx, musicID); err != nil {
		return 0, fmt.Errorf("record play: %w", err)
	}

	played, err := s.store.HasEverPlayed(ctx, userID, musicID)
	if err != nil {
		return 0, fmt.Errorf("lookup history: %w", err)
	}
	award := kind.Award(user.Points, !played)

	if award > 0 {
		if _, err := s.store.AddPoints(ctx, userID, award); err != nil {
			return 0, fmt.Errorf("award points: %w", err)
		}
	}
	if err := s.counter.IncrementPlayCount(ctx, musicID); err != nil {
		return 0, err
	}
	if err := s.store.RecordPlay(ctx, &models.ListeningRecord{
		ID:         uuid.New(),
		UserID:     userID,
		MusicID:    musicID,
		ListenedAt: s.now(),
	}); err != nil {
		return 0, fmt.Errorf("append history: %w", err)
	}

	log.Debug().
		Int64("user_id", userID).
		Int64("music_id", musicID).
		Str("plan", kind.String()).
		Int("points", award).
		Msg("play recorded")
	return award, nil
}

func (s *service) HasListened(ctx context.Context, userID, musicID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return s.store.HasEverPlayed(ctx, userID, musicID)
}

func (s *service) CountPlays(ctx context.Context, userID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.store.CountPlaysByUser(ctx, userID)
}

func (s *service) ClearHistory(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.store.ClearHistory(ctx, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	log.Info().Int64("user_id", userID).Msg("listening history cleared")
	return nil
}
