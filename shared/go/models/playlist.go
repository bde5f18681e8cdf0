package models

import (
	"slices"
	"time"
)

// PlaylistKind distinguishes user-curated playlists from generated ones.
type PlaylistKind string

const (
	PlaylistCustom     PlaylistKind = "custom"
	PlaylistRandom     PlaylistKind = "random"
	PlaylistGenre      PlaylistKind = "genre"
	PlaylistFavourites PlaylistKind = "favourites"
)

// FavouritesListName is the reserved name of the generated favourites playlist.
const FavouritesListName = "Favourites List"

// Playlist is an ordered list of music identifiers.
type Playlist struct {
	ID        int64        `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Kind      PlaylistKind `json:"kind" db:"kind"`
	CreatorID int64        `json:"creator_id" db:"creator_id"`
	IsPublic  bool         `json:"is_public" db:"is_public"`
	MusicIDs  []int64      `json:"music_ids"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// Clone returns a deep copy of the playlist.
func (p *Playlist) Clone() *Playlist {
	if p == nil {
		return nil
	}
	clone := *p
	clone.MusicIDs = slices.Clone(p.MusicIDs)
	return &clone
}

// Contains reports whether the playlist references the music.
func (p *Playlist) Contains(musicID int64) bool {
	return slices.Contains(p.MusicIDs, musicID)
}
