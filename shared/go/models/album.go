package models

// Album groups tracks under a globally unique title. Tracks reference the album through
// Music.AlbumID and are ordered by Music.Position.
type Album struct {
	ID     int64  `json:"id" db:"id"`
	Title  string `json:"title" db:"title"`
	Artist string `json:"artist" db:"artist"`
	Label  string `json:"label" db:"label"`
	Year   int    `json:"year" db:"release_year"`
}
