// Package search answers catalog lookups by category.
package search

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"spotifum/internal/store"
	"spotifum/shared/go/models"
)

// ErrUnknownCategory signals a search category other than music, album, artist or playlist.
var ErrUnknownCategory = errors.New("unknown search category")

// Category selects what a search looks at.
type Category string

const (
	CategoryMusic    Category = "music"
	CategoryAlbum    Category = "album"
	CategoryArtist   Category = "artist"
	CategoryPlaylist Category = "playlist"
)

// ParseCategory accepts the singular or plural category name in any case.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "s"))
	switch c {
	case CategoryMusic, CategoryAlbum, CategoryArtist, CategoryPlaylist:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, raw)
}

// Catalog is the slice of the catalog service used by searches.
type Catalog interface {
	SearchMusicsByTitle(ctx context.Context, query string) ([]*models.Music, error)
	SearchAlbumsByTitle(ctx context.Context, query string) ([]*models.Album, error)
	Artists(ctx context.Context) ([]string, error)
}

// Playlists is the slice of the playlist service used by searches.
type Playlists interface {
	SearchPublic(ctx context.Context, query string) ([]*models.Playlist, error)
}

// Results captures the matches of one search. Only the bucket for the searched category is
// filled.
type Results struct {
	Category  Category
	Musics    []*models.Music
	Albums    []*models.Album
	Artists   []string
	Playlists []*models.Playlist
}

// Len returns the number of matches.
func (r Results) Len() int {
	return len(r.Musics) + len(r.Albums) + len(r.Artists) + len(r.Playlists)
}

// Section groups related search results for display.
type Section struct {
	Name  string
	Items []Item
}

// Item is a single display entry.
type Item struct {
	ID       string
	Title    string
	Subtitle string
}

// Sections flattens the results into display sections.
func (r Results) Sections() []Section {
	var sections []Section
	if len(r.Musics) > 0 {
		items := make([]Item, 0, len(r.Musics))
		for _, m := range r.Musics {
			items = append(items, Item{ID: strconv.FormatInt(m.ID, 10), Title: m.Title, Subtitle: m.Artist + " · " + m.Genre})
		}
		sections = append(sections, Section{Name: "Musics", Items: items})
	}
	if len(r.Albums) > 0 {
		items := make([]Item, 0, len(r.Albums))
		for _, a := range r.Albums {
			items = append(items, Item{ID: strconv.FormatInt(a.ID, 10), Title: a.Title, Subtitle: fmt.Sprintf("%s (%d)", a.Artist, a.Year)})
		}
		sections = append(sections, Section{Name: "Albums", Items: items})
	}
	if len(r.Artists) > 0 {
		items := make([]Item, 0, len(r.Artists))
		for _, name := range r.Artists {
			items = append(items, Item{ID: name, Title: name})
		}
		sections = append(sections, Section{Name: "Artists", Items: items})
	}
	if len(r.Playlists) > 0 {
		items := make([]Item, 0, len(r.Playlists))
		for _, p := range r.Playlists {
			items = append(items, Item{ID: strconv.FormatInt(p.ID, 10), Title: p.Name, Subtitle: fmt.Sprintf("%d musics", len(p.MusicIDs))})
		}
		sections = append(sections, Section{Name: "Playlists", Items: items})
	}
	return sections
}

// Service runs category searches.
type Service interface {
	Search(ctx context.Context, viewer *models.User, category, query string, limit int) (Results, error)
}

type service struct {
	catalog   Catalog
	playlists Playlists
}

// New constructs a Service.
func New(catalog Catalog, playlists Playlists) Service {
	return &service{catalog: catalog, playlists: playlists}
}

// Search looks for query in the category. Tracks hidden by the viewer's preferences are left
// out and a positive limit caps the number of matches.
func (s *service) Search(ctx context.Context, viewer *models.User, category, query string, limit int) (Results, error) {
	if err := ctx.Err(); err != nil {
		return Results{}, err
	}
	c, err := ParseCategory(category)
	if err != nil {
		return Results{}, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return Results{}, fmt.Errorf("%w: search query is required", store.ErrInvalidParams)
	}

	res := Results{Category: c}
	switch c {
	case CategoryMusic:
		musics, err := s.catalog.SearchMusicsByTitle(ctx, query)
		if err != nil {
			return Results{}, err
		}
		for _, m := range musics {
			if !m.HiddenFor(viewer) {
				res.Musics = append(res.Musics, m)
			}
		}
		res.Musics = capped(res.Musics, limit)
	case CategoryAlbum:
		albums, err := s.catalog.SearchAlbumsByTitle(ctx, query)
		if err != nil {
			return Results{}, err
		}
		res.Albums = capped(albums, limit)
	case CategoryArtist:
		artists, err := s.catalog.Artists(ctx)
		if err != nil {
			return Results{}, err
		}
		needle := strings.ToLower(query)
		for _, name := range artists {
			if strings.Contains(strings.ToLower(name), needle) {
				res.Artists = append(res.Artists, name)
			}
		}
		res.Artists = capped(res.Artists, limit)
	case CategoryPlaylist:
		playlists, err := s.playlists.SearchPublic(ctx, query)
		if err != nil {
			return Results{}, err
		}
		res.Playlists = capped(playlists, limit)
	}
	return res, nil
}

func capped[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
