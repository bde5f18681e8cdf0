package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"spotifum/shared/go/models"
)

const userColumns = `id, username, password_hash, name, email, address, birth_date, points, is_admin, wants_explicit, wants_multimedia, plan, created_at`

// CreateUser registers a new account. The library is implicit in the library_* tables.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, name, email, address, birth_date, points, is_admin, wants_explicit, wants_multimedia, plan)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`, user.Username, user.PasswordHash, user.Name, user.Email, user.Address, nullTime(user),
		user.Points, user.IsAdmin, user.WantsExplicit, user.WantsMultimedia, user.Plan).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(constraintName(err), "email") {
				return ErrEmailExists
			}
			return ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func nullTime(user *models.User) sql.NullTime {
	return sql.NullTime{Time: user.BirthDate, Valid: !user.BirthDate.IsZero()}
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u     models.User
		birth sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.Email, &u.Address, &birth,
		&u.Points, &u.IsAdmin, &u.WantsExplicit, &u.WantsMultimedia, &u.Plan, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if birth.Valid {
		u.BirthDate = birth.Time
	}
	return &u, nil
}

// UserByID returns a single account.
func (s *Store) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
}

// UserByUsername returns the account with the exact username.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1
	`, username))
}

// UserByEmail returns the account registered with the email, ignoring case.
func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email))
}

// ListUsers returns every account ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpdateUser replaces the mutable profile fields of an account. An empty password hash
// keeps the stored one.
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	if user.Points < 0 {
		return ErrInvalidParams
	}

	var hash any
	if len(user.PasswordHash) > 0 {
		hash = user.PasswordHash
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET name = $2, email = $3, address = $4, birth_date = $5, points = $6, is_admin = $7,
			wants_explicit = $8, wants_multimedia = $9, plan = $10,
			password_hash = COALESCE($11, password_hash)
		WHERE id = $1
	`, user.ID, user.Name, user.Email, user.Address, nullTime(user), user.Points, user.IsAdmin,
		user.WantsExplicit, user.WantsMultimedia, user.Plan, hash)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return requireAffected(res, ErrUserNotFound)
}

// AddPoints adjusts the balance atomically and returns the new total.
func (s *Store) AddPoints(ctx context.Context, userID int64, delta int) (int, error) {
	var points int
	err := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET points = GREATEST(points + $2, 0)
		WHERE id = $1
		RETURNING points
	`, userID, delta).Scan(&points)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("add points: %w", err)
	}
	return points, nil
}

// DeleteUser removes the account. Library rows, created playlists and history cascade.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM users
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res, ErrUserNotFound)
}

// Library returns the user's saved items in the order they were saved.
func (s *Store) Library(ctx context.Context, userID int64) (*models.Library, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)
	`, userID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	lib := &models.Library{UserID: userID}
	var err error
	if lib.MusicIDs, err = s.idList(ctx, `
		SELECT music_id FROM library_musics WHERE user_id = $1 ORDER BY seq ASC
	`, userID); err != nil {
		return nil, fmt.Errorf("select library musics: %w", err)
	}
	if lib.AlbumIDs, err = s.idList(ctx, `
		SELECT album_id FROM library_albums WHERE user_id = $1 ORDER BY seq ASC
	`, userID); err != nil {
		return nil, fmt.Errorf("select library albums: %w", err)
	}
	if lib.PlaylistIDs, err = s.idList(ctx, `
		SELECT playlist_id FROM library_playlists WHERE user_id = $1 ORDER BY seq ASC
	`, userID); err != nil {
		return nil, fmt.Errorf("select library playlists: %w", err)
	}
	return lib, nil
}

func (s *Store) idList(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// addLibraryEntry inserts a link row and maps constraint failures onto domain errors.
func (s *Store) addLibraryEntry(ctx context.Context, query string, userID, itemID int64, alreadySaved, itemNotFound error) error {
	if _, err := s.db.ExecContext(ctx, query, userID, itemID); err != nil {
		switch {
		case isUniqueViolation(err):
			return alreadySaved
		case isForeignKeyViolation(err):
			if strings.Contains(constraintName(err), "user_id") {
				return ErrUserNotFound
			}
			return itemNotFound
		}
		return fmt.Errorf("insert library entry: %w", err)
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	return false
}

// AddLibraryMusic saves a track.
func (s *Store) AddLibraryMusic(ctx context.Context, userID, musicID int64) error {
	return s.addLibraryEntry(ctx, `
		INSERT INTO library_musics (user_id, music_id)
		VALUES ($1, $2)
	`, userID, musicID, ErrMusicAlreadySaved, ErrMusicNotFound)
}

// RemoveLibraryMusic unsaves a track.
func (s *Store) RemoveLibraryMusic(ctx context.Context, userID, musicID int64) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM library_musics
		WHERE user_id = $1 AND music_id = $2
	`, userID, musicID); err != nil {
		return fmt.Errorf("delete library music: %w", err)
	}
	return nil
}

// AddLibraryAlbum saves an album.
func (s *Store) AddLibraryAlbum(ctx context.Context, userID, albumID int64) error {
	return s.addLibraryEntry(ctx, `
		INSERT INTO library_albums (user_id, album_id)
		VALUES ($1, $2)
	`, userID, albumID, ErrAlbumAlreadySaved, ErrAlbumNotFound)
}

// RemoveLibraryAlbum unsaves an album.
func (s *Store) RemoveLibraryAlbum(ctx context.Context, userID, albumID int64) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM library_albums
		WHERE user_id = $1 AND album_id = $2
	`, userID, albumID); err != nil {
		return fmt.Errorf("delete library album: %w", err)
	}
	return nil
}

// AddLibraryPlaylist saves a playlist reference.
func (s *Store) AddLibraryPlaylist(ctx context.Context, userID, playlistID int64) error {
	return s.addLibraryEntry(ctx, `
		INSERT INTO library_playlists (user_id, playlist_id)
		VALUES ($1, $2)
	`, userID, playlistID, ErrPlaylistAlreadySaved, ErrPlaylistNotFound)
}

// RemoveLibraryPlaylist drops a playlist reference.
func (s *Store) RemoveLibraryPlaylist(ctx context.Context, userID, playlistID int64) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM library_playlists
		WHERE user_id = $1 AND playlist_id = $2
	`, userID, playlistID); err != nil {
		return fmt.Errorf("delete library playlist: %w", err)
	}
	return nil
}

// LibrariesWithMusic returns the IDs of users who saved the track.
func (s *Store) LibrariesWithMusic(ctx context.Context, musicID int64) ([]int64, error) {
	ids, err := s.idList(ctx, `
		SELECT user_id FROM library_musics WHERE music_id = $1 ORDER BY user_id ASC
	`, musicID)
	if err != nil {
		return nil, fmt.Errorf("select libraries with music: %w", err)
	}
	return ids, nil
}

// LibrariesWithAlbum returns the IDs of users who saved the album.
func (s *Store) LibrariesWithAlbum(ctx context.Context, albumID int64) ([]int64, error) {
	ids, err := s.idList(ctx, `
		SELECT user_id FROM library_albums WHERE album_id = $1 ORDER BY user_id ASC
	`, albumID)
	if err != nil {
		return nil, fmt.Errorf("select libraries with album: %w", err)
	}
	return ids, nil
}

// LibrariesWithPlaylist returns the IDs of users whose library references the playlist.
func (s *Store) LibrariesWithPlaylist(ctx context.Context, playlistID int64) ([]int64, error) {
	ids, err := s.idList(ctx, `
		SELECT user_id FROM library_playlists WHERE playlist_id = $1 ORDER BY user_id ASC
	`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("select libraries with playlist: %w", err)
	}
	return ids, nil
}
