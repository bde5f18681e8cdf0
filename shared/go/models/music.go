package models

// Music is a single track owned by exactly one album.
type Music struct {
	ID              int64    `json:"id" db:"id"`
	AlbumID         int64    `json:"album_id" db:"album_id"`
	Position        int      `json:"position" db:"position"`
	Title           string   `json:"title" db:"title"`
	Artist          string   `json:"artist" db:"artist"`
	Genre           string   `json:"genre" db:"genre"`
	Label           string   `json:"label" db:"label"`
	DurationSeconds int      `json:"duration_seconds" db:"duration_seconds"`
	Lyrics          []string `json:"lyrics" db:"lyrics"`
	PlayCount       int      `json:"play_count" db:"play_count"`
	Explicit        bool     `json:"explicit" db:"explicit"`
	Multimedia      bool     `json:"multimedia" db:"multimedia"`
}

// Clone returns a deep copy of the music.
func (m *Music) Clone() *Music {
	if m == nil {
		return nil
	}
	clone := *m
	clone.Lyrics = append([]string(nil), m.Lyrics...)
	return &clone
}

// HiddenFor reports whether the user's content preferences exclude this track.
func (m *Music) HiddenFor(u *User) bool {
	if u == nil {
		return false
	}
	return (m.Explicit && !u.WantsExplicit) || (m.Multimedia && !u.WantsMultimedia)
}

// VisibleTo keeps the musics the user's content preferences allow, preserving order.
func VisibleTo(u *User, musics []*Music) []*Music {
	visible := make([]*Music, 0, len(musics))
	for _, m := range musics {
		if !m.HiddenFor(u) {
			visible = append(visible, m)
		}
	}
	return visible
}
