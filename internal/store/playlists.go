package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"spotifum/shared/go/models"
)

const playlistSelect = `
	SELECT p.id, p.name, p.kind, p.creator_id, p.is_public, p.created_at,
		COALESCE(array_agg(pm.music_id ORDER BY pm.position) FILTER (WHERE pm.music_id IS NOT NULL), '{}')
	FROM playlists p
	LEFT JOIN playlist_musics pm ON pm.playlist_id = p.id
`

// CreatePlaylist stores a new playlist with its tracks.
func (s *Store) CreatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO playlists (name, kind, creator_id, is_public)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at
		`, playlist.Name, string(playlist.Kind), playlist.CreatorID, playlist.IsPublic).Scan(&playlist.ID, &playlist.CreatedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrUserNotFound
			}
			return fmt.Errorf("insert playlist: %w", err)
		}
		return insertPlaylistMusics(ctx, tx, playlist)
	})
}

func insertPlaylistMusics(ctx context.Context, tx *sql.Tx, playlist *models.Playlist) error {
	for i, musicID := range playlist.MusicIDs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO playlist_musics (playlist_id, music_id, position)
			VALUES ($1, $2, $3)
		`, playlist.ID, musicID, i); err != nil {
			if isForeignKeyViolation(err) {
				return ErrMusicNotFound
			}
			return fmt.Errorf("insert playlist music: %w", err)
		}
	}
	return nil
}

func scanPlaylist(row rowScanner) (*models.Playlist, error) {
	var (
		p    models.Playlist
		kind string
		ids  []int64
	)
	if err := row.Scan(&p.ID, &p.Name, &kind, &p.CreatorID, &p.IsPublic, &p.CreatedAt, pq.Array(&ids)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlaylistNotFound
		}
		return nil, fmt.Errorf("scan playlist: %w", err)
	}
	p.Kind = models.PlaylistKind(kind)
	p.MusicIDs = ids
	return &p, nil
}

// PlaylistByID returns a single playlist with its tracks.
func (s *Store) PlaylistByID(ctx context.Context, id int64) (*models.Playlist, error) {
	row := s.db.QueryRowContext(ctx, playlistSelect+`
		WHERE p.id = $1
		GROUP BY p.id
	`, id)
	return scanPlaylist(row)
}

// ListPlaylists returns playlists matching the filter ordered by ID.
func (s *Store) ListPlaylists(ctx context.Context, filter PlaylistFilter) ([]*models.Playlist, error) {
	query := playlistSelect

	var (
		clauses []string
		args    []any
	)

	if filter.CreatorID != 0 {
		args = append(args, filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("p.creator_id = $%d", len(args)))
	}
	if filter.PublicOnly {
		clauses = append(clauses, "p.is_public")
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		args = append(args, "%"+name+"%")
		clauses = append(clauses, fmt.Sprintf("p.name ILIKE $%d", len(args)))
	}
	if filter.ContainsMusic != 0 {
		args = append(args, filter.ContainsMusic)
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM playlist_musics x WHERE x.playlist_id = p.id AND x.music_id = $%d)", len(args)))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " GROUP BY p.id ORDER BY p.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.Playlist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}
	return playlists, nil
}

// UpdatePlaylist replaces the name, visibility and track list of a playlist.
func (s *Store) UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE playlists
			SET name = $2, is_public = $3
			WHERE id = $1
		`, playlist.ID, playlist.Name, playlist.IsPublic)
		if err != nil {
			return fmt.Errorf("update playlist: %w", err)
		}
		if err := requireAffected(res, ErrPlaylistNotFound); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM playlist_musics
			WHERE playlist_id = $1
		`, playlist.ID); err != nil {
			return fmt.Errorf("clear playlist musics: %w", err)
		}
		return insertPlaylistMusics(ctx, tx, playlist)
	})
}

// DeletePlaylist removes the playlist. Library references cascade.
func (s *Store) DeletePlaylist(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM playlists
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete playlist: %w", err)
	}
	return requireAffected(res, ErrPlaylistNotFound)
}

// RecordPlay appends a listening record.
func (s *Store) RecordPlay(ctx context.Context, record *models.ListeningRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.ListenedAt.IsZero() {
		record.ListenedAt = time.Now().UTC()
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO listening_records (id, user_id, music_id, listened_at)
		VALUES ($1, $2, $3, $4)
	`, record.ID, record.UserID, record.MusicID, record.ListenedAt); err != nil {
		if isForeignKeyViolation(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("insert listening record: %w", err)
	}
	return nil
}

func (s *Store) count(ctx context.Context, what, query string, args ...any) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", what, err)
	}
	return n, nil
}

// CountPlaysByUser returns the size of the user's history.
func (s *Store) CountPlaysByUser(ctx context.Context, userID int64) (int, error) {
	return s.count(ctx, "plays", `
		SELECT COUNT(*) FROM listening_records WHERE user_id = $1
	`, userID)
}

// CountPlaysSince returns the number of plays at or after since.
func (s *Store) CountPlaysSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	return s.count(ctx, "plays", `
		SELECT COUNT(*) FROM listening_records WHERE user_id = $1 AND listened_at >= $2
	`, userID, since)
}

// CountPlaysOfTrack returns how many times the user played the track.
func (s *Store) CountPlaysOfTrack(ctx context.Context, userID, musicID int64) (int, error) {
	return s.count(ctx, "track plays", `
		SELECT COUNT(*) FROM listening_records WHERE user_id = $1 AND music_id = $2
	`, userID, musicID)
}

// HasEverPlayed reports whether the user's history contains the track.
func (s *Store) HasEverPlayed(ctx context.Context, userID, musicID int64) (bool, error) {
	var played bool
	if err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM listening_records WHERE user_id = $1 AND music_id = $2)
	`, userID, musicID).Scan(&played); err != nil {
		return false, fmt.Errorf("lookup listening record: %w", err)
	}
	return played, nil
}

// DistinctPlayedTracks returns the tracks the user played, ordered by first listen.
func (s *Store) DistinctPlayedTracks(ctx context.Context, userID int64) ([]int64, error) {
	ids, err := s.idList(ctx, `
		SELECT music_id
		FROM listening_records
		WHERE user_id = $1
		GROUP BY music_id
		ORDER BY MIN(listened_at) ASC, music_id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("select played tracks: %w", err)
	}
	return ids, nil
}

// ClearHistory deletes every listening record of the user.
func (s *Store) ClearHistory(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM listening_records
		WHERE user_id = $1
	`, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
