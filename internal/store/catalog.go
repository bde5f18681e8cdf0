package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"spotifum/shared/go/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

const musicColumns = `id, album_id, position, title, artist, genre, label, duration_seconds, lyrics, play_count, explicit, multimedia`

// CreateAlbum inserts a new album.
func (s *Store) CreateAlbum(ctx context.Context, album *models.Album) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO albums (title, artist, label, release_year)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, album.Title, album.Artist, album.Label, album.Year).Scan(&album.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNameAlreadyUsed
		}
		return fmt.Errorf("insert album: %w", err)
	}
	return nil
}

// AlbumByID returns a single album by its identifier.
func (s *Store) AlbumByID(ctx context.Context, id int64) (*models.Album, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, artist, label, release_year
		FROM albums
		WHERE id = $1
	`, id)
	return scanAlbum(row)
}

// AlbumByTitle returns the album with the given title, ignoring case.
func (s *Store) AlbumByTitle(ctx context.Context, title string) (*models.Album, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, artist, label, release_year
		FROM albums
		WHERE LOWER(title) = LOWER($1)
	`, strings.TrimSpace(title))
	return scanAlbum(row)
}

func scanAlbum(row rowScanner) (*models.Album, error) {
	var album models.Album
	if err := row.Scan(&album.ID, &album.Title, &album.Artist, &album.Label, &album.Year); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlbumNotFound
		}
		return nil, fmt.Errorf("scan album: %w", err)
	}
	return &album, nil
}

// ListAlbums returns albums matching the provided filter.
func (s *Store) ListAlbums(ctx context.Context, filter AlbumFilter) ([]*models.Album, error) {
	query := `
		SELECT id, title, artist, label, release_year
		FROM albums
	`

	var (
		clauses []string
		args    []any
	)

	if title := strings.TrimSpace(filter.Title); title != "" {
		args = append(args, "%"+title+"%")
		clauses = append(clauses, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if artist := strings.TrimSpace(filter.Artist); artist != "" {
		args = append(args, "%"+artist+"%")
		clauses = append(clauses, fmt.Sprintf("artist ILIKE $%d", len(args)))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select albums: %w", err)
	}
	defer rows.Close()

	var albums []*models.Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return albums, nil
}

// DeleteAlbum removes the album. Tracks and library references go with it through
// ON DELETE CASCADE.
func (s *Store) DeleteAlbum(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM albums
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete album: %w", err)
	}
	return requireAffected(res, ErrAlbumNotFound)
}

// CreateMusic appends a track to the end of its album.
func (s *Store) CreateMusic(ctx context.Context, music *models.Music) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM albums WHERE id = $1)
		`, music.AlbumID).Scan(&exists); err != nil {
			return fmt.Errorf("lookup album: %w", err)
		}
		if !exists {
			return ErrAlbumNotFound
		}

		var last int
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(position), 0)
			FROM musics
			WHERE album_id = $1
		`, music.AlbumID).Scan(&last); err != nil {
			return fmt.Errorf("lookup track position: %w", err)
		}
		music.Position = last + 1

		return insertMusic(ctx, tx, music)
	})
}

func insertMusic(ctx context.Context, tx *sql.Tx, music *models.Music) error {
	lyrics := music.Lyrics
	if lyrics == nil {
		lyrics = []string{}
	}
	err := tx.QueryRowContext(ctx, `
		INSERT INTO musics (album_id, position, title, artist, genre, label, duration_seconds, lyrics, play_count, explicit, multimedia)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, music.AlbumID, music.Position, music.Title, music.Artist, music.Genre, music.Label,
		music.DurationSeconds, pq.Array(lyrics), music.PlayCount, music.Explicit, music.Multimedia).Scan(&music.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrNameAlreadyUsed
		}
		return fmt.Errorf("insert music: %w", err)
	}
	return nil
}

func scanMusic(row rowScanner) (*models.Music, error) {
	var m models.Music
	var lyrics []string
	err := row.Scan(&m.ID, &m.AlbumID, &m.Position, &m.Title, &m.Artist, &m.Genre, &m.Label,
		&m.DurationSeconds, pq.Array(&lyrics), &m.PlayCount, &m.Explicit, &m.Multimedia)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMusicNotFound
		}
		return nil, fmt.Errorf("scan music: %w", err)
	}
	m.Lyrics = lyrics
	return &m, nil
}

// MusicByID returns a single track.
func (s *Store) MusicByID(ctx context.Context, id int64) (*models.Music, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+musicColumns+`
		FROM musics
		WHERE id = $1
	`, id)
	return scanMusic(row)
}

// ListMusics returns tracks matching the filter in album-then-track order.
func (s *Store) ListMusics(ctx context.Context, filter MusicFilter) ([]*models.Music, error) {
	query := `
		SELECT ` + musicColumns + `
		FROM musics
	`

	var (
		clauses []string
		args    []any
	)

	if filter.AlbumID != 0 {
		args = append(args, filter.AlbumID)
		clauses = append(clauses, fmt.Sprintf("album_id = $%d", len(args)))
	}
	if title := strings.TrimSpace(filter.Title); title != "" {
		args = append(args, "%"+title+"%")
		clauses = append(clauses, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if artist := strings.TrimSpace(filter.Artist); artist != "" {
		args = append(args, "%"+artist+"%")
		clauses = append(clauses, fmt.Sprintf("artist ILIKE $%d", len(args)))
	}
	if genre := strings.TrimSpace(filter.Genre); genre != "" {
		args = append(args, genre)
		clauses = append(clauses, fmt.Sprintf("LOWER(genre) = LOWER($%d)", len(args)))
	}
	if filter.MaxDuration > 0 {
		args = append(args, filter.MaxDuration)
		clauses = append(clauses, fmt.Sprintf("duration_seconds <= $%d", len(args)))
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY album_id ASC, position ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select musics: %w", err)
	}
	defer rows.Close()

	var musics []*models.Music
	for rows.Next() {
		music, err := scanMusic(rows)
		if err != nil {
			return nil, err
		}
		musics = append(musics, music)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate musics: %w", err)
	}
	return musics, nil
}

// MusicsByAlbum returns the album's tracks in order.
func (s *Store) MusicsByAlbum(ctx context.Context, albumID int64) ([]*models.Music, error) {
	if _, err := s.AlbumByID(ctx, albumID); err != nil {
		return nil, err
	}
	return s.ListMusics(ctx, MusicFilter{AlbumID: albumID})
}

// CountMusics returns the number of tracks in the catalog.
func (s *Store) CountMusics(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM musics`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count musics: %w", err)
	}
	return n, nil
}

// IncrementPlayCount bumps the track's play counter.
func (s *Store) IncrementPlayCount(ctx context.Context, musicID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE musics
		SET play_count = play_count + 1
		WHERE id = $1
	`, musicID)
	if err != nil {
		return fmt.Errorf("increment play count: %w", err)
	}
	return requireAffected(res, ErrMusicNotFound)
}

// ReplaceMusic swaps the original track for the replacement at the same album position.
func (s *Store) ReplaceMusic(ctx context.Context, originalID int64, replacement *models.Music) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			SELECT album_id, position
			FROM musics
			WHERE id = $1
			FOR UPDATE
		`, originalID).Scan(&replacement.AlbumID, &replacement.Position)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrMusicNotFound
			}
			return fmt.Errorf("lookup music: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			DELETE FROM musics
			WHERE id = $1
		`, originalID); err != nil {
			return fmt.Errorf("delete music: %w", err)
		}

		return insertMusic(ctx, tx, replacement)
	})
}

// DeleteMusic removes the track. Library and playlist references cascade.
func (s *Store) DeleteMusic(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM musics
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete music: %w", err)
	}
	return requireAffected(res, ErrMusicNotFound)
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
