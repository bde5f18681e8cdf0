package app

import (
	"context"
	"errors"
	"testing"

	"spotifum/internal/app/catalog"
	"spotifum/internal/app/playback"
	"spotifum/internal/app/users"
	"spotifum/internal/plan"
	"spotifum/internal/store"
)

func newTestApp() *App {
	return New(store.NewMemory(), Options{TokenSecret: "integration-secret-123", Seed: 42})
}

func TestUpgradeUnlocksPlaylists(t *testing.T) {
	a := newTestApp()
	ctx := context.Background()

	u, err := a.Users.Signup(ctx, users.SignupInput{Username: "ana", Password: "pw", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := a.Playlists.Create(ctx, u.ID, "Mine", false); !errors.Is(err, plan.ErrNoPermissions) {
		t.Fatalf("expected ErrNoPermissions before upgrade, got %v", err)
	}
	if _, err := a.Users.ChangePlan(ctx, u.ID, "plus"); err != nil {
		t.Fatalf("ChangePlan: %v", err)
	}
	p, err := a.Playlists.Create(ctx, u.ID, "Mine", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	saved, err := a.Library.Playlists(ctx, u.ID)
	if err != nil {
		t.Fatalf("Playlists: %v", err)
	}
	if len(saved) != 1 || saved[0].ID != p.ID {
		t.Fatalf("expected the playlist once in the library, got %d entries", len(saved))
	}
}

func TestRemoveAlbumCascades(t *testing.T) {
	a := newTestApp()
	ctx := context.Background()

	album, err := a.Catalog.CreateAlbum(ctx, catalog.AlbumInput{Title: "Abbey Road", Artist: "The Beatles", Year: 1969})
	if err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	m, err := a.Catalog.AddMusic(ctx, album.ID, catalog.MusicInput{Title: "Something", Artist: "The Beatles", Genre: "Rock", DurationSeconds: 182})
	if err != nil {
		t.Fatalf("AddMusic: %v", err)
	}

	u, _ := a.Users.Signup(ctx, users.SignupInput{Username: "bea", Password: "pw", Email: "bea@example.com"})
	if _, err := a.Users.ChangePlan(ctx, u.ID, "premium"); err != nil {
		t.Fatalf("ChangePlan: %v", err)
	}
	if err := a.Library.AddMusic(ctx, u.ID, m.ID); err != nil {
		t.Fatalf("Library.AddMusic: %v", err)
	}
	if err := a.Library.AddAlbum(ctx, u.ID, album.ID); err != nil {
		t.Fatalf("Library.AddAlbum: %v", err)
	}
	p, err := a.Playlists.Create(ctx, u.ID, "Beatles", true)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := a.Playlists.AddMusic(ctx, u.ID, p.ID, m.ID); err != nil {
		t.Fatalf("Playlists.AddMusic: %v", err)
	}

	if err := a.Catalog.RemoveAlbum(ctx, album.ID); err != nil {
		t.Fatalf("RemoveAlbum: %v", err)
	}

	lib, _ := a.Library.Get(ctx, u.ID)
	if lib.HasMusic(m.ID) || lib.HasAlbum(album.ID) {
		t.Fatalf("library still references the removed album: %+v", lib)
	}
	left, _ := a.Playlists.Get(ctx, p.ID)
	if left.Contains(m.ID) {
		t.Fatalf("playlist still references the removed music")
	}
	found, _ := a.Catalog.SearchMusicsByTitle(ctx, "something")
	if len(found) != 0 {
		t.Fatalf("search still returns the removed music")
	}
}

func TestPremiumPointsThroughPlayback(t *testing.T) {
	a := newTestApp()
	ctx := context.Background()

	album, _ := a.Catalog.CreateAlbum(ctx, catalog.AlbumInput{Title: "Kid A", Artist: "Radiohead", Year: 2000})
	for _, title := range []string{"Everything In Its Right Place", "Idioteque"} {
		if _, err := a.Catalog.AddMusic(ctx, album.ID, catalog.MusicInput{Title: title, Artist: "Radiohead", Genre: "Electronic"}); err != nil {
			t.Fatalf("AddMusic: %v", err)
		}
	}
	u, _ := a.Users.Signup(ctx, users.SignupInput{Username: "caio", Password: "pw", Email: "caio@example.com"})
	if _, err := a.Users.ChangePlan(ctx, u.ID, "premium"); err != nil {
		t.Fatalf("ChangePlan: %v", err)
	}

	first, err := a.Playback.PlayAlbum(ctx, u.ID, album.ID, silentTerminal{})
	if err != nil {
		t.Fatalf("PlayAlbum: %v", err)
	}
	// 100 -> +2 -> 102 -> +2 -> 104
	if first.Played != 2 || first.Points != 4 {
		t.Fatalf("unexpected first run: %+v", first)
	}
	second, _ := a.Playback.PlayAlbum(ctx, u.ID, album.ID, silentTerminal{})
	if second.Points != 0 {
		t.Fatalf("replays should not award premium points, got %d", second.Points)
	}
}

type silentTerminal struct {
	playback.NopObserver
}

func (silentTerminal) NextCommand(context.Context, string) (playback.Command, error) {
	return playback.CommandNone, nil
}
