package library

import (
	"context"
	"errors"
	"strings"
	"testing"

	"spotifum/internal/plan"
	"spotifum/internal/store"
	"spotifum/shared/go/models"
)

type fixture struct {
	mem    *store.Memory
	svc    Service
	album  *models.Album
	musics []*models.Music
	free   *models.User
	plus   *models.User
	prem   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	album := &models.Album{Title: "Kind of Blue", Artist: "Miles Davis", Year: 1959}
	if err := mem.CreateAlbum(ctx, album); err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	var musics []*models.Music
	for _, title := range []string{"So What", "Freddie Freeloader", "Blue in Green"} {
		m := &models.Music{AlbumID: album.ID, Title: title, Artist: "Miles Davis", Genre: "Jazz", DurationSeconds: 500}
		if err := mem.CreateMusic(ctx, m); err != nil {
			t.Fatalf("CreateMusic: %v", err)
		}
		musics = append(musics, m)
	}

	newUser := func(name string, kind plan.Kind) *models.User {
		u := &models.User{Username: name, Email: name + "@example.com", Plan: kind.String()}
		if err := mem.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		return u
	}

	return &fixture{
		mem:    mem,
		svc:    New(mem),
		album:  album,
		musics: musics,
		free:   newUser("fred", plan.Free),
		plus:   newUser("paula", plan.Plus),
		prem:   newUser("pedro", plan.Premium),
	}
}

func (f *fixture) playlist(t *testing.T, creator *models.User, name string, public bool, musicIDs ...int64) *models.Playlist {
	t.Helper()
	ctx := context.Background()
	p := &models.Playlist{Name: name, Kind: models.PlaylistCustom, CreatorID: creator.ID, IsPublic: public, MusicIDs: musicIDs}
	if err := f.mem.CreatePlaylist(ctx, p); err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}
	if err := f.mem.AddLibraryPlaylist(ctx, creator.ID, p.ID); err != nil {
		t.Fatalf("AddLibraryPlaylist: %v", err)
	}
	return p
}

func TestAddMusicPlanGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.AddMusic(ctx, f.free.ID, f.musics[0].ID); !errors.Is(err, plan.ErrNoPermissions) {
		t.Fatalf("expected ErrNoPermissions, got %v", err)
	}
	if err := f.svc.AddMusic(ctx, f.plus.ID, f.musics[0].ID); err != nil {
		t.Fatalf("AddMusic: %v", err)
	}
	if err := f.svc.AddMusic(ctx, f.plus.ID, f.musics[0].ID); !errors.Is(err, store.ErrMusicAlreadySaved) {
		t.Fatalf("expected ErrMusicAlreadySaved, got %v", err)
	}
	if err := f.svc.AddMusic(ctx, f.plus.ID, 999); !errors.Is(err, store.ErrMusicNotFound) {
		t.Fatalf("expected ErrMusicNotFound, got %v", err)
	}

	musics, err := f.svc.Musics(ctx, f.plus.ID)
	if err != nil {
		t.Fatalf("Musics: %v", err)
	}
	if len(musics) != 1 || musics[0].Title != "So What" {
		t.Fatalf("unexpected saved musics: %#v", musics)
	}
}

func TestMusicsHonourContentPreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	explicit := &models.Music{AlbumID: f.album.ID, Title: "Flamenco Sketches", Artist: "Miles Davis", Genre: "Jazz", DurationSeconds: 560, Explicit: true}
	video := &models.Music{AlbumID: f.album.ID, Title: "All Blues", Artist: "Miles Davis", Genre: "Jazz", DurationSeconds: 690, Multimedia: true}
	for _, m := range []*models.Music{explicit, video} {
		if err := f.mem.CreateMusic(ctx, m); err != nil {
			t.Fatalf("CreateMusic: %v", err)
		}
	}
	for _, id := range []int64{f.musics[0].ID, explicit.ID, video.ID} {
		if err := f.svc.AddMusic(ctx, f.plus.ID, id); err != nil {
			t.Fatalf("AddMusic(%d): %v", id, err)
		}
	}

	tests := []struct {
		name       string
		explicit   bool
		multimedia bool
		want       []string
	}{
		{name: "defaults", want: []string{"So What"}},
		{name: "explicit allowed", explicit: true, want: []string{"So What", "Flamenco Sketches"}},
		{name: "everything allowed", explicit: true, multimedia: true, want: []string{"So What", "Flamenco Sketches", "All Blues"}},
	}

	for _, tc := range tests {
		f.plus.WantsExplicit = tc.explicit
		f.plus.WantsMultimedia = tc.multimedia
		if err := f.mem.UpdateUser(ctx, f.plus); err != nil {
			t.Fatalf("UpdateUser: %v", err)
		}
		musics, err := f.svc.Musics(ctx, f.plus.ID)
		if err != nil {
			t.Fatalf("%s: Musics: %v", tc.name, err)
		}
		var got []string
		for _, m := range musics {
			got = append(got, m.Title)
		}
		if strings.Join(got, ",") != strings.Join(tc.want, ",") {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestAddAlbum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.AddAlbum(ctx, f.free.ID, f.album.ID); !errors.Is(err, plan.ErrNoPermissions) {
		t.Fatalf("expected ErrNoPermissions, got %v", err)
	}
	if err := f.svc.AddAlbum(ctx, f.prem.ID, f.album.ID); err != nil {
		t.Fatalf("AddAlbum: %v", err)
	}
	if err := f.svc.AddAlbum(ctx, f.prem.ID, f.album.ID); !errors.Is(err, store.ErrAlbumAlreadySaved) {
		t.Fatalf("expected ErrAlbumAlreadySaved, got %v", err)
	}
}

func TestAddPlaylist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	public := f.playlist(t, f.prem, "Late Night", true, f.musics[0].ID)
	private := f.playlist(t, f.prem, "Secret", false)

	tests := []struct {
		name   string
		userID int64
		id     int64
		want   error
	}{
		{name: "free plan", userID: f.free.ID, id: public.ID, want: plan.ErrNoPermissions},
		{name: "private playlist", userID: f.plus.ID, id: private.ID, want: store.ErrPlaylistNotFound},
		{name: "public playlist", userID: f.plus.ID, id: public.ID, want: nil},
		{name: "already saved", userID: f.plus.ID, id: public.ID, want: store.ErrPlaylistAlreadySaved},
		{name: "own playlist", userID: f.prem.ID, id: public.ID, want: store.ErrPlaylistAlreadySaved},
	}

	for _, tc := range tests {
		err := f.svc.AddPlaylist(ctx, tc.userID, tc.id)
		if tc.want == nil && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestAddPlaylistNameCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.playlist(t, f.plus, "Road Trip", false)
	other := f.playlist(t, f.prem, "Road Trip", true)

	if err := f.svc.AddPlaylist(ctx, f.plus.ID, other.ID); !errors.Is(err, store.ErrPlaylistAlreadySaved) {
		t.Fatalf("expected ErrPlaylistAlreadySaved, got %v", err)
	}
}

func TestPurgeRemovesMusicEverywhere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := f.musics[1].ID

	for _, u := range []*models.User{f.plus, f.prem} {
		if err := f.svc.AddMusic(ctx, u.ID, target); err != nil {
			t.Fatalf("AddMusic: %v", err)
		}
	}
	shared := f.playlist(t, f.prem, "Shared", true, f.musics[0].ID, target, f.musics[2].ID)
	if err := f.svc.AddPlaylist(ctx, f.plus.ID, shared.ID); err != nil {
		t.Fatalf("AddPlaylist: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := f.svc.Purge(ctx, target); err != nil {
			t.Fatalf("Purge run %d: %v", i+1, err)
		}
	}

	for _, u := range []*models.User{f.plus, f.prem} {
		lib, _ := f.svc.Get(ctx, u.ID)
		if lib.HasMusic(target) {
			t.Fatalf("user %d still has purged music", u.ID)
		}
	}
	p, _ := f.mem.PlaylistByID(ctx, shared.ID)
	if p.Contains(target) || len(p.MusicIDs) != 2 {
		t.Fatalf("playlist still contains purged music: %v", p.MusicIDs)
	}
}

func TestPurgeAlbum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.AddAlbum(ctx, f.plus.ID, f.album.ID); err != nil {
		t.Fatalf("AddAlbum: %v", err)
	}
	if err := f.svc.PurgeAlbum(ctx, f.album.ID); err != nil {
		t.Fatalf("PurgeAlbum: %v", err)
	}
	lib, _ := f.svc.Get(ctx, f.plus.ID)
	if lib.HasAlbum(f.album.ID) {
		t.Fatalf("album still saved after purge")
	}
}

func TestRemovePlaylist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shared := f.playlist(t, f.prem, "Shared", true)
	if err := f.svc.AddPlaylist(ctx, f.plus.ID, shared.ID); err != nil {
		t.Fatalf("AddPlaylist: %v", err)
	}

	// A follower only drops their own reference.
	if err := f.svc.RemovePlaylist(ctx, f.plus.ID, "Shared"); err != nil {
		t.Fatalf("RemovePlaylist follower: %v", err)
	}
	if _, err := f.mem.PlaylistByID(ctx, shared.ID); err != nil {
		t.Fatalf("playlist should survive a follower removal, got %v", err)
	}

	if err := f.svc.AddPlaylist(ctx, f.plus.ID, shared.ID); err != nil {
		t.Fatalf("AddPlaylist again: %v", err)
	}
	if err := f.svc.RemovePlaylist(ctx, f.prem.ID, "Shared"); err != nil {
		t.Fatalf("RemovePlaylist creator: %v", err)
	}
	if _, err := f.mem.PlaylistByID(ctx, shared.ID); !errors.Is(err, store.ErrPlaylistNotFound) {
		t.Fatalf("expected playlist to be deleted, got %v", err)
	}
	lib, _ := f.svc.Get(ctx, f.plus.ID)
	if lib.HasPlaylist(shared.ID) {
		t.Fatalf("follower library still references deleted playlist")
	}

	if err := f.svc.RemovePlaylist(ctx, f.prem.ID, "Shared"); !errors.Is(err, store.ErrPlaylistNotFound) {
		t.Fatalf("expected ErrPlaylistNotFound, got %v", err)
	}
}
