package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/tidwall/gjson"

	"spotifum/internal/app/catalog"
	"spotifum/internal/store"
)

type noopPurger struct{}

func (noopPurger) Purge(context.Context, int64) error      { return nil }
func (noopPurger) PurgeAlbum(context.Context, int64) error { return nil }

const document = `{
  "albums": [
    {
      "title": "Clube da Esquina",
      "artist": "Milton Nascimento",
      "label": "EMI",
      "year": 1972,
      "musics": [
        {"title": "Tudo Que Você Podia Ser", "genre": "MPB", "duration": "2:58",
         "lyrics": ["Com sol e chuva", "você sonhava"]},
        {"title": "Cais", "genre": "MPB", "duration": 225, "lyrics": "Para quem quer se soltar\ninvento o cais"},
        {"title": "Cais", "genre": "MPB", "duration": 225}
      ]
    },
    {
      "title": "Racional",
      "artist": "Tim Maia",
      "year": 1975,
      "musics": [
        {"title": "Que Beleza", "artist": "Tim Maia & Racional", "genre": "Soul", "explicit": true}
      ]
    }
  ]
}`

func newImporter() (*Importer, catalog.Service) {
	svc := catalog.New(store.NewMemory(), noopPurger{}, catalog.Options{})
	return New(svc), svc
}

func TestImport(t *testing.T) {
	im, svc := newImporter()
	ctx := context.Background()

	report, err := im.Import(ctx, []byte(document))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if report != (Report{Albums: 2, Musics: 3, Skipped: 1}) {
		t.Fatalf("unexpected report: %+v", report)
	}

	album, err := svc.AlbumByTitle(ctx, "Clube da Esquina")
	if err != nil {
		t.Fatalf("AlbumByTitle: %v", err)
	}
	tracks, _ := svc.Tracks(ctx, album.ID)
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].DurationSeconds != 178 || tracks[0].Artist != "Milton Nascimento" {
		t.Fatalf("unexpected first track: %#v", tracks[0])
	}
	if !slices.Equal(tracks[1].Lyrics, []string{"Para quem quer se soltar", "invento o cais"}) {
		t.Fatalf("unexpected lyrics: %q", tracks[1].Lyrics)
	}

	again, err := im.Import(ctx, []byte(document))
	if err != nil {
		t.Fatalf("re-Import: %v", err)
	}
	if again.Albums != 0 || again.Musics != 0 || again.Skipped != 4 {
		t.Fatalf("re-import should only skip, got %+v", again)
	}
}

func TestImportRejectsMalformed(t *testing.T) {
	im, _ := newImporter()
	ctx := context.Background()

	for _, doc := range []string{`{"albums": [`, `{"records": []}`} {
		if _, err := im.Import(ctx, []byte(doc)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Import(%q): expected ErrMalformed, got %v", doc, err)
		}
	}

	bad := `{"albums":[{"title":"X","artist":"Y","year":2000,"musics":[{"title":"Z","duration":"1:75"}]}]}`
	if _, err := im.Import(ctx, []byte(bad)); !errors.Is(err, store.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams for bad duration, got %v", err)
	}
}

func TestImportFile(t *testing.T) {
	im, _ := newImporter()
	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := os.WriteFile(path, []byte(document), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	report, err := im.ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if report.Musics != 3 {
		t.Fatalf("expected 3 musics, got %d", report.Musics)
	}
}

func TestParseDuration(t *testing.T) {
	tests := map[string]int{
		`180`:    180,
		`"3:05"`: 185,
		`"42"`:   42,
		`"x:10"`: -1,
		`null`:   0,
		`true`:   -1,
	}
	for raw, want := range tests {
		if got := parseDuration(gjson.Parse(raw)); got != want {
			t.Fatalf("parseDuration(%s) = %d, want %d", raw, got, want)
		}
	}
}
