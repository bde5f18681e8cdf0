package playlists

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"spotifum/internal/app/library"
	"spotifum/internal/plan"
	"spotifum/internal/store"
	"spotifum/shared/go/models"
)

type fixture struct {
	mem    *store.Memory
	lib    library.Service
	svc    Service
	musics map[string]*models.Music
	free   *models.User
	plus   *models.User
	prem   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	catalog := []struct {
		album  string
		tracks []models.Music
	}{
		{album: "Highway", tracks: []models.Music{
			{Title: "r1", Genre: "Rock", DurationSeconds: 200},
			{Title: "r2", Genre: "Rock", DurationSeconds: 400},
			{Title: "p1", Genre: "Pop", DurationSeconds: 150},
		}},
		{album: "Mixed Bag", tracks: []models.Music{
			{Title: "r3", Genre: "rock", DurationSeconds: 100},
			{Title: "j1", Genre: "Jazz", DurationSeconds: 300},
		}},
		{album: "Silence"},
	}

	musics := make(map[string]*models.Music)
	for i, entry := range catalog {
		album := &models.Album{Title: entry.album, Artist: "Various", Year: 2000 + i}
		if err := mem.CreateAlbum(ctx, album); err != nil {
			t.Fatalf("CreateAlbum: %v", err)
		}
		for _, tr := range entry.tracks {
			m := tr
			m.AlbumID = album.ID
			m.Artist = "Various"
			if err := mem.CreateMusic(ctx, &m); err != nil {
				t.Fatalf("CreateMusic: %v", err)
			}
			musics[m.Title] = &m
		}
	}

	newUser := func(name string, kind plan.Kind) *models.User {
		u := &models.User{Username: name, Email: name + "@example.com", Plan: kind.String()}
		if err := mem.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		return u
	}

	lib := library.New(mem)
	return &fixture{
		mem:    mem,
		lib:    lib,
		svc:    New(mem, lib),
		musics: musics,
		free:   newUser("fred", plan.Free),
		plus:   newUser("paula", plan.Plus),
		prem:   newUser("pedro", plan.Premium),
	}
}

func (f *fixture) countNamed(t *testing.T, userID int64, name string) int {
	t.Helper()
	playlists, err := f.lib.Playlists(context.Background(), userID)
	if err != nil {
		t.Fatalf("Playlists: %v", err)
	}
	n := 0
	for _, p := range playlists {
		if p.Name == name {
			n++
		}
	}
	return n
}

func TestCreateRequiresPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, f.free.ID, "Mine", false); !errors.Is(err, plan.ErrNoPermissions) {
		t.Fatalf("expected ErrNoPermissions, got %v", err)
	}

	f.free.Plan = plan.Plus.String()
	if err := f.mem.UpdateUser(ctx, f.free); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	p, err := f.svc.Create(ctx, f.free.ID, " Mine ", false)
	if err != nil {
		t.Fatalf("Create after upgrade: %v", err)
	}
	if p.Name != "Mine" || p.Kind != models.PlaylistCustom {
		t.Fatalf("unexpected playlist: %#v", p)
	}
	if n := f.countNamed(t, f.free.ID, "Mine"); n != 1 {
		t.Fatalf("expected playlist once in library, found %d", n)
	}

	if _, err := f.svc.Create(ctx, f.free.ID, "Mine", true); !errors.Is(err, store.ErrNameAlreadyUsed) {
		t.Fatalf("expected ErrNameAlreadyUsed, got %v", err)
	}
	if _, err := f.svc.Create(ctx, f.free.ID, "   ", true); !errors.Is(err, store.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
}

func TestEditPlaylist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, f.plus.ID, "Drive", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	r1 := f.musics["r1"].ID

	if err := f.svc.AddMusic(ctx, f.prem.ID, p.ID, r1); !errors.Is(err, plan.ErrNoPermissions) {
		t.Fatalf("expected ErrNoPermissions for non-creator, got %v", err)
	}
	if err := f.svc.AddMusic(ctx, f.plus.ID, p.ID, r1); err != nil {
		t.Fatalf("AddMusic: %v", err)
	}
	if err := f.svc.AddMusic(ctx, f.plus.ID, p.ID, r1); !errors.Is(err, store.ErrMusicAlreadySaved) {
		t.Fatalf("expected ErrMusicAlreadySaved, got %v", err)
	}
	if err := f.svc.AddMusic(ctx, f.plus.ID, p.ID, 999); !errors.Is(err, store.ErrMusicNotFound) {
		t.Fatalf("expected ErrMusicNotFound, got %v", err)
	}

	if err := f.svc.SetVisibility(ctx, f.plus.ID, p.ID, true); err != nil {
		t.Fatalf("SetVisibility: %v", err)
	}
	found, err := f.svc.SearchPublic(ctx, "dri")
	if err != nil {
		t.Fatalf("SearchPublic: %v", err)
	}
	if len(found) != 1 || found[0].ID != p.ID {
		t.Fatalf("expected public playlist in search, got %#v", found)
	}

	if err := f.svc.RemoveMusic(ctx, f.plus.ID, p.ID, r1); err != nil {
		t.Fatalf("RemoveMusic: %v", err)
	}
	tracks, _ := f.svc.Tracks(ctx, f.plus.ID, p.ID)
	if len(tracks) != 0 {
		t.Fatalf("expected empty playlist, got %d tracks", len(tracks))
	}
}

func TestTracksRespectViewer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	explicit := &models.Music{AlbumID: f.musics["r1"].AlbumID, Title: "x1", Artist: "Various", Genre: "Rock", DurationSeconds: 180, Explicit: true}
	if err := f.mem.CreateMusic(ctx, explicit); err != nil {
		t.Fatalf("CreateMusic: %v", err)
	}
	admin := &models.User{Username: "root", Email: "root@example.com", Plan: plan.Premium.String(), IsAdmin: true}
	if err := f.mem.CreateUser(ctx, admin); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	f.prem.WantsExplicit = true
	if err := f.mem.UpdateUser(ctx, f.prem); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}

	p, err := f.svc.Create(ctx, f.prem.ID, "Loud", false)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for _, id := range []int64{f.musics["r1"].ID, explicit.ID} {
		if err := f.svc.AddMusic(ctx, f.prem.ID, p.ID, id); err != nil {
			t.Fatalf("AddMusic: %v", err)
		}
	}

	tests := []struct {
		name   string
		viewer int64
		public bool
		want   int
		err    error
	}{
		{name: "creator sees everything", viewer: f.prem.ID, want: 2},
		{name: "admin reads private list", viewer: admin.ID, want: 1},
		{name: "stranger cannot read private list", viewer: f.plus.ID, err: store.ErrPlaylistNotFound},
		{name: "stranger reads public list without explicit", viewer: f.plus.ID, public: true, want: 1},
		{name: "unknown viewer", viewer: 999, public: true, err: store.ErrUserNotFound},
	}

	for _, tc := range tests {
		if err := f.svc.SetVisibility(ctx, f.prem.ID, p.ID, tc.public); err != nil {
			t.Fatalf("SetVisibility: %v", err)
		}
		tracks, err := f.svc.Tracks(ctx, tc.viewer, p.ID)
		if tc.err != nil {
			if !errors.Is(err, tc.err) {
				t.Fatalf("%s: expected %v, got %v", tc.name, tc.err, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: Tracks: %v", tc.name, err)
		}
		if len(tracks) != tc.want {
			t.Fatalf("%s: expected %d tracks, got %d", tc.name, tc.want, len(tracks))
		}
		if tracks[0].ID != f.musics["r1"].ID {
			t.Fatalf("%s: expected r1 first, got %q", tc.name, tracks[0].Title)
		}
	}
}

func TestRandomDistinctTracks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(7, 11))

	for _, n := range []int{1, 3, 5, 50} {
		p, err := f.svc.Random(ctx, f.free.ID, "", n, rng)
		if err != nil {
			t.Fatalf("Random(%d): %v", n, err)
		}
		want := min(n, len(f.musics))
		if len(p.MusicIDs) != want {
			t.Fatalf("Random(%d): expected %d tracks, got %d", n, want, len(p.MusicIDs))
		}
		sorted := slices.Clone(p.MusicIDs)
		slices.Sort(sorted)
		if len(slices.Compact(sorted)) != want {
			t.Fatalf("Random(%d): duplicate tracks in %v", n, p.MusicIDs)
		}
		if p.ID != 0 || p.Name != DefaultRandomName || p.Kind != models.PlaylistRandom {
			t.Fatalf("unexpected random playlist header: %#v", p)
		}
	}

	if _, err := f.svc.Random(ctx, f.free.ID, "x", 0, rng); !errors.Is(err, store.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
	if _, err := New(store.NewMemory(), f.lib).Random(ctx, f.free.ID, "x", 3, rng); !errors.Is(err, ErrTooFewMusics) {
		t.Fatalf("expected ErrTooFewMusics on empty catalog, got %v", err)
	}
}

func TestGenreList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.GenreList(ctx, f.plus.ID, "Rock", "rock", 600, 5); !errors.Is(err, plan.ErrNoPermissions) {
		t.Fatalf("expected ErrNoPermissions, got %v", err)
	}

	p, err := f.svc.GenreList(ctx, f.prem.ID, "Short Rock", "ROCK", 250, 5)
	if err != nil {
		t.Fatalf("GenreList: %v", err)
	}
	want := []int64{f.musics["r1"].ID, f.musics["r3"].ID}
	if !slices.Equal(p.MusicIDs, want) {
		t.Fatalf("expected %v, got %v", want, p.MusicIDs)
	}
	if n := f.countNamed(t, f.prem.ID, "Short Rock"); n != 1 {
		t.Fatalf("expected genre list in library once, found %d", n)
	}

	capped, err := f.svc.GenreList(ctx, f.prem.ID, "One Rock", "rock", 600, 1)
	if err != nil {
		t.Fatalf("GenreList capped: %v", err)
	}
	if !slices.Equal(capped.MusicIDs, []int64{f.musics["r1"].ID}) {
		t.Fatalf("expected first match only, got %v", capped.MusicIDs)
	}

	if _, err := f.svc.GenreList(ctx, f.prem.ID, "Short Rock", "rock", 600, 5); !errors.Is(err, store.ErrNameAlreadyUsed) {
		t.Fatalf("expected ErrNameAlreadyUsed, got %v", err)
	}
	if _, err := f.svc.GenreList(ctx, f.prem.ID, "Metal", "metal", 600, 5); !errors.Is(err, ErrTooFewMusics) {
		t.Fatalf("expected ErrTooFewMusics, got %v", err)
	}
	if n := f.countNamed(t, f.prem.ID, "Metal"); n != 0 {
		t.Fatalf("failed genre list should not be saved")
	}

	for _, ceiling := range []int{0, -1} {
		if _, err := f.svc.GenreList(ctx, f.prem.ID, "Any Rock", "rock", ceiling, 5); !errors.Is(err, store.ErrInvalidParams) {
			t.Fatalf("ceiling %d: expected ErrInvalidParams, got %v", ceiling, err)
		}
	}
	if n := f.countNamed(t, f.prem.ID, "Any Rock"); n != 0 {
		t.Fatalf("genre list without a ceiling should not be saved")
	}
}

func TestFavourites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.musics["r1"].ID, f.musics["j1"].ID, f.musics["p1"].ID

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	play := func(ids ...int64) {
		for _, id := range ids {
			at = at.Add(time.Minute)
			if err := f.mem.RecordPlay(ctx, &models.ListeningRecord{UserID: f.prem.ID, MusicID: id, ListenedAt: at}); err != nil {
				t.Fatalf("RecordPlay: %v", err)
			}
		}
	}

	play(a, c, b, b, a, c, b, a, c)
	if _, err := f.svc.Favourites(ctx, f.prem.ID, 2); !errors.Is(err, ErrTooFewMusics) {
		t.Fatalf("expected ErrTooFewMusics with 9 events, got %v", err)
	}
	play(b)

	if _, err := f.svc.Favourites(ctx, f.plus.ID, 2); !errors.Is(err, plan.ErrNoPermissions) {
		t.Fatalf("expected ErrNoPermissions, got %v", err)
	}

	p, err := f.svc.Favourites(ctx, f.prem.ID, 2)
	if err != nil {
		t.Fatalf("Favourites: %v", err)
	}
	if !slices.Equal(p.MusicIDs, []int64{b, a}) {
		t.Fatalf("expected [b a], got %v", p.MusicIDs)
	}

	again, err := f.svc.Favourites(ctx, f.prem.ID, 3)
	if err != nil {
		t.Fatalf("Favourites regenerate: %v", err)
	}
	if !slices.Equal(again.MusicIDs, []int64{b, a, c}) {
		t.Fatalf("expected [b a c], got %v", again.MusicIDs)
	}
	if n := f.countNamed(t, f.prem.ID, models.FavouritesListName); n != 1 {
		t.Fatalf("expected a single favourites list, found %d", n)
	}
	if _, err := f.mem.PlaylistByID(ctx, p.ID); !errors.Is(err, store.ErrPlaylistNotFound) {
		t.Fatalf("previous favourites list should be deleted, got %v", err)
	}

	boom := errors.New("disk full")
	broken := New(failingCreates{Memory: f.mem, err: boom}, f.lib)
	if _, err := broken.Favourites(ctx, f.prem.ID, 1); !errors.Is(err, boom) {
		t.Fatalf("expected create failure, got %v", err)
	}
	kept, err := f.lib.PlaylistByName(ctx, f.prem.ID, models.FavouritesListName)
	if err != nil {
		t.Fatalf("favourites list lost after failed regeneration: %v", err)
	}
	if kept.ID != again.ID || !slices.Equal(kept.MusicIDs, again.MusicIDs) {
		t.Fatalf("expected list %d to survive, got %#v", again.ID, kept)
	}
}

type failingCreates struct {
	*store.Memory
	err error
}

func (s failingCreates) CreatePlaylist(context.Context, *models.Playlist) error {
	return s.err
}
