// Package store persists the catalog, users, libraries, playlists and listening history.
// Two implementations are provided: Memory for local sessions and tests, and Store backed by
// Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"spotifum/shared/go/models"
)

var (
	// ErrNameAlreadyUsed signals a title or name collision within its uniqueness scope.
	ErrNameAlreadyUsed = errors.New("name already used")
	// ErrAlbumNotFound signals a missing album record.
	ErrAlbumNotFound = errors.New("album not found")
	// ErrMusicNotFound signals a missing music record.
	ErrMusicNotFound = errors.New("music not found")
	// ErrPlaylistNotFound signals a missing playlist record.
	ErrPlaylistNotFound = errors.New("playlist not found")
	// ErrUserNotFound signals a missing user record.
	ErrUserNotFound = errors.New("user not found")
	// ErrMusicAlreadySaved indicates the music is already part of the collection.
	ErrMusicAlreadySaved = errors.New("music already saved")
	// ErrAlbumAlreadySaved indicates the album is already in the library.
	ErrAlbumAlreadySaved = errors.New("album already saved")
	// ErrPlaylistAlreadySaved indicates the playlist is already in the library.
	ErrPlaylistAlreadySaved = errors.New("playlist already saved")
	// ErrInvalidParams indicates validation failure for user-supplied data.
	ErrInvalidParams = errors.New("invalid parameters")
	// ErrUserExists signals the username is already taken.
	ErrUserExists = fmt.Errorf("%w: username already used", ErrInvalidParams)
	// ErrEmailExists signals the email is already registered.
	ErrEmailExists = fmt.Errorf("%w: email already used", ErrInvalidParams)
	// ErrInvalidLogin indicates a login failure or an invalid session.
	ErrInvalidLogin = errors.New("invalid username or password")
)

// AlbumFilter constrains the results returned by ListAlbums. Text fields match
// case-insensitive substrings.
type AlbumFilter struct {
	Title  string
	Artist string
}

// MusicFilter constrains the results returned by ListMusics. Title and Artist match
// case-insensitive substrings, Genre matches case-insensitively in full, and MaxDuration is
// an inclusive ceiling in seconds when positive.
type MusicFilter struct {
	AlbumID     int64
	Title       string
	Artist      string
	Genre       string
	MaxDuration int
}

// PlaylistFilter constrains the results returned by ListPlaylists.
type PlaylistFilter struct {
	CreatorID     int64
	PublicOnly    bool
	Name          string
	ContainsMusic int64
}

// CatalogStore persists albums and their tracks. Listing results are in album-then-track order.
type CatalogStore interface {
	CreateAlbum(ctx context.Context, album *models.Album) error
	AlbumByID(ctx context.Context, id int64) (*models.Album, error)
	AlbumByTitle(ctx context.Context, title string) (*models.Album, error)
	ListAlbums(ctx context.Context, filter AlbumFilter) ([]*models.Album, error)
	DeleteAlbum(ctx context.Context, id int64) error

	CreateMusic(ctx context.Context, music *models.Music) error
	MusicByID(ctx context.Context, id int64) (*models.Music, error)
	ListMusics(ctx context.Context, filter MusicFilter) ([]*models.Music, error)
	MusicsByAlbum(ctx context.Context, albumID int64) ([]*models.Music, error)
	CountMusics(ctx context.Context) (int, error)
	IncrementPlayCount(ctx context.Context, musicID int64) error
	ReplaceMusic(ctx context.Context, originalID int64, replacement *models.Music) error
	DeleteMusic(ctx context.Context, id int64) error
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id int64) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	AddPoints(ctx context.Context, userID int64, delta int) (int, error)
	DeleteUser(ctx context.Context, id int64) error
}

// LibraryStore persists the per-user saved items.
type LibraryStore interface {
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

// PlaylistStore persists playlists.
type PlaylistStore interface {
	CreatePlaylist(ctx context.Context, playlist *models.Playlist) error
	PlaylistByID(ctx context.Context, id int64) (*models.Playlist, error)
	ListPlaylists(ctx context.Context, filter PlaylistFilter) ([]*models.Playlist, error)
	UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error
	DeletePlaylist(ctx context.Context, id int64) error
}

// HistoryStore persists listening records.
type HistoryStore interface {
	RecordPlay(ctx context.Context, record *models.ListeningRecord) error
	CountPlaysByUser(ctx context.Context, userID int64) (int, error)
	CountPlaysSince(ctx context.Context, userID int64, since time.Time) (int, error)
	HasEverPlayed(ctx context.Context, userID, musicID int64) (bool, error)
	DistinctPlayedTracks(ctx context.Context, userID int64) ([]int64, error)
	CountPlaysOfTrack(ctx context.Context, userID, musicID int64) (int, error)
	ClearHistory(ctx context.Context, userID int64) error
}

// Repository is the full persistence surface.
type Repository interface {
	CatalogStore
	UserStore
	LibraryStore
	PlaylistStore
	HistoryStore
}

var (
	_ Repository = (*Memory)(nil)
	_ Repository = (*Store)(nil)
)

// Store provides persistence backed by Postgres.
type Store struct {
	db *sql.DB
}

// New sets up a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// withTx runs fn inside a transaction, rolling back unless fn succeeds and the commit does.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// constraintName extracts the violated constraint from a driver error, if any.
func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint
	}
	return ""
}
