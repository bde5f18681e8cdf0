package models

import "slices"

// Library is the set of catalog items a user has saved. Entries are identifiers so that
// playlists stay shared between the libraries referencing them.
type Library struct {
	UserID      int64   `json:"user_id"`
	MusicIDs    []int64 `json:"music_ids"`
	AlbumIDs    []int64 `json:"album_ids"`
	PlaylistIDs []int64 `json:"playlist_ids"`
}

// Clone returns a deep copy of the library.
func (l *Library) Clone() *Library {
	if l == nil {
		return nil
	}
	return &Library{
		UserID:      l.UserID,
		MusicIDs:    slices.Clone(l.MusicIDs),
		AlbumIDs:    slices.Clone(l.AlbumIDs),
		PlaylistIDs: slices.Clone(l.PlaylistIDs),
	}
}

// HasMusic reports whether the music is saved.
func (l *Library) HasMusic(id int64) bool { return slices.Contains(l.MusicIDs, id) }

// HasAlbum reports whether the album is saved.
func (l *Library) HasAlbum(id int64) bool { return slices.Contains(l.AlbumIDs, id) }

// HasPlaylist reports whether the playlist is saved.
func (l *Library) HasPlaylist(id int64) bool { return slices.Contains(l.PlaylistIDs, id) }
