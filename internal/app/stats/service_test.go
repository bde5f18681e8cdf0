package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"spotifum/internal/store"
	"spotifum/shared/go/models"
)

func seed(t *testing.T) (*store.Memory, []*models.User, []*models.Music) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	var users []*models.User
	for i, name := range []string{"ana", "bea", "caio"} {
		u := &models.User{Username: name, Email: name + "@example.com", Plan: "FREE", Points: []int{30, 80, 80}[i]}
		if err := mem.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		users = append(users, u)
	}

	album := &models.Album{Title: "Mix", Artist: "Various", Year: 2020}
	if err := mem.CreateAlbum(ctx, album); err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	tracks := []struct {
		title, artist, genre string
		plays                int
	}{
		{"a", "Zeca", "Samba", 4},
		{"b", "Alceu", "Forro", 6},
		{"c", "Zeca", "samba", 3},
		{"d", "Bia", "Pop", 6},
	}
	var musics []*models.Music
	for _, tr := range tracks {
		m := &models.Music{AlbumID: album.ID, Title: tr.title, Artist: tr.artist, Genre: tr.genre}
		if err := mem.CreateMusic(ctx, m); err != nil {
			t.Fatalf("CreateMusic: %v", err)
		}
		for i := 0; i < tr.plays; i++ {
			if err := mem.IncrementPlayCount(ctx, m.ID); err != nil {
				t.Fatalf("IncrementPlayCount: %v", err)
			}
		}
		musics = append(musics, m)
	}

	for _, p := range []*models.Playlist{
		{Name: "p1", CreatorID: users[1].ID, IsPublic: true},
		{Name: "p2", CreatorID: users[1].ID},
		{Name: "p3", CreatorID: users[2].ID, IsPublic: true},
	} {
		if err := mem.CreatePlaylist(ctx, p); err != nil {
			t.Fatalf("CreatePlaylist: %v", err)
		}
	}
	return mem, users, musics
}

func TestTotals(t *testing.T) {
	mem, _, _ := seed(t)
	got, err := New(mem).Totals(context.Background())
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	want := Totals{Users: 3, Albums: 1, Musics: 4, PublicPlaylists: 2, Artists: 3}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestRankings(t *testing.T) {
	mem, users, musics := seed(t)
	svc := New(mem)
	ctx := context.Background()

	top, err := svc.MostPlayedMusic(ctx)
	if err != nil {
		t.Fatalf("MostPlayedMusic: %v", err)
	}
	if top.ID != musics[1].ID {
		t.Fatalf("expected tie to go to the lowest id, got %q", top.Title)
	}

	artist, _ := svc.MostListenedArtist(ctx)
	if artist.Value != "Zeca" || artist.Count != 7 {
		t.Fatalf("unexpected artist: %+v", artist)
	}
	genre, _ := svc.MostPlayedGenre(ctx)
	if genre.Value != "samba" || genre.Count != 7 {
		t.Fatalf("unexpected genre: %+v", genre)
	}

	rich, _ := svc.TopPointsUser(ctx)
	if rich.ID != users[1].ID {
		t.Fatalf("expected tie on points to go to the lowest id, got %d", rich.ID)
	}
	creator, _ := svc.MostPlaylistsUser(ctx)
	if creator.Value.ID != users[1].ID || creator.Count != 2 {
		t.Fatalf("unexpected playlist creator: %d with %d", creator.Value.ID, creator.Count)
	}
}

func TestTopListenerSince(t *testing.T) {
	mem, users, musics := seed(t)
	ctx := context.Background()
	cutoff := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	plays := []struct {
		user int
		at   time.Time
	}{
		{0, cutoff.Add(-time.Hour)},
		{0, cutoff.Add(-2 * time.Hour)},
		{0, cutoff.Add(-3 * time.Hour)},
		{2, cutoff},
		{2, cutoff.Add(time.Hour)},
		{1, cutoff.Add(time.Minute)},
	}
	for _, p := range plays {
		if err := mem.RecordPlay(ctx, &models.ListeningRecord{UserID: users[p.user].ID, MusicID: musics[0].ID, ListenedAt: p.at}); err != nil {
			t.Fatalf("RecordPlay: %v", err)
		}
	}

	got, err := New(mem).TopListenerSince(ctx, cutoff)
	if err != nil {
		t.Fatalf("TopListenerSince: %v", err)
	}
	if got.Value.ID != users[2].ID || got.Count != 2 {
		t.Fatalf("unexpected listener: %d with %d", got.Value.ID, got.Count)
	}
}

func TestEmptyStatistics(t *testing.T) {
	svc := New(store.NewMemory())
	ctx := context.Background()

	if _, err := svc.MostPlayedMusic(ctx); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if _, err := svc.MostListenedArtist(ctx); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if _, err := svc.TopPointsUser(ctx); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
