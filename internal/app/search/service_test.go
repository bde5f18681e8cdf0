package search

import (
	"context"
	"errors"
	"testing"

	"spotifum/internal/store"
	"spotifum/shared/go/models"
)

type stubCatalog struct {
	musics  []*models.Music
	albums  []*models.Album
	artists []string
}

func (s stubCatalog) SearchMusicsByTitle(context.Context, string) ([]*models.Music, error) {
	return s.musics, nil
}

func (s stubCatalog) SearchAlbumsByTitle(context.Context, string) ([]*models.Album, error) {
	return s.albums, nil
}

func (s stubCatalog) Artists(context.Context) ([]string, error) {
	return s.artists, nil
}

type stubPlaylists struct {
	playlists []*models.Playlist
	queries   []string
}

func (s *stubPlaylists) SearchPublic(_ context.Context, query string) ([]*models.Playlist, error) {
	s.queries = append(s.queries, query)
	return s.playlists, nil
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		raw  string
		want Category
		err  error
	}{
		{raw: "music", want: CategoryMusic},
		{raw: "Musics", want: CategoryMusic},
		{raw: " ALBUM ", want: CategoryAlbum},
		{raw: "artists", want: CategoryArtist},
		{raw: "playlist", want: CategoryPlaylist},
		{raw: "podcast", err: ErrUnknownCategory},
		{raw: "", err: ErrUnknownCategory},
	}
	for _, tc := range tests {
		got, err := ParseCategory(tc.raw)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("ParseCategory(%q): expected %v, got %v", tc.raw, tc.err, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseCategory(%q) = %q, %v", tc.raw, got, err)
		}
	}
}

func TestSearchFiltersHiddenMusic(t *testing.T) {
	catalog := stubCatalog{musics: []*models.Music{
		{ID: 1, Title: "Clean"},
		{ID: 2, Title: "Dirty", Explicit: true},
		{ID: 3, Title: "Video", Multimedia: true},
	}}
	svc := New(catalog, &stubPlaylists{})
	ctx := context.Background()

	viewer := &models.User{WantsMultimedia: true}
	res, err := svc.Search(ctx, viewer, "music", "a", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res.Musics) != 2 || res.Musics[0].ID != 1 || res.Musics[1].ID != 3 {
		t.Fatalf("unexpected musics: %#v", res.Musics)
	}

	all, _ := svc.Search(ctx, nil, "music", "a", 2)
	if all.Len() != 2 {
		t.Fatalf("expected limit to cap results, got %d", all.Len())
	}
}

func TestSearchCategories(t *testing.T) {
	catalog := stubCatalog{
		albums:  []*models.Album{{ID: 1, Title: "Abbey Road", Artist: "The Beatles", Year: 1969}},
		artists: []string{"The Beatles", "Beach House", "Miles Davis"},
	}
	playlists := &stubPlaylists{playlists: []*models.Playlist{{ID: 4, Name: "Road Trip", MusicIDs: []int64{1, 2}}}}
	svc := New(catalog, playlists)
	ctx := context.Background()

	artists, err := svc.Search(ctx, nil, "artist", "BEA", 0)
	if err != nil {
		t.Fatalf("Search artists: %v", err)
	}
	if len(artists.Artists) != 2 {
		t.Fatalf("expected two artists, got %v", artists.Artists)
	}

	pl, err := svc.Search(ctx, nil, "playlists", " road ", 0)
	if err != nil {
		t.Fatalf("Search playlists: %v", err)
	}
	if len(playlists.queries) != 1 || playlists.queries[0] != "road" {
		t.Fatalf("expected trimmed query, got %v", playlists.queries)
	}
	sections := pl.Sections()
	if len(sections) != 1 || sections[0].Name != "Playlists" || sections[0].Items[0].Subtitle != "2 musics" {
		t.Fatalf("unexpected sections: %#v", sections)
	}

	albums, _ := svc.Search(ctx, nil, "album", "abbey", 0)
	if got := albums.Sections()[0].Items[0].Subtitle; got != "The Beatles (1969)" {
		t.Fatalf("unexpected album subtitle %q", got)
	}

	if _, err := svc.Search(ctx, nil, "genre", "rock", 0); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
	if _, err := svc.Search(ctx, nil, "music", "  ", 0); !errors.Is(err, store.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
}
