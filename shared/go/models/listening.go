package models

import (
	"time"

	"github.com/google/uuid"
)

// ListeningRecord is one entry of a user's listening history.
type ListeningRecord struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	MusicID    int64     `json:"music_id" db:"music_id"`
	ListenedAt time.Time `json:"listened_at" db:"listened_at"`
}
