// Package importer loads a catalog of albums and tracks from a JSON document.
//
// The document is an object with an "albums" array. Every album carries title, artist, label,
// year and a "musics" array whose entries carry title, artist, genre, label, duration (seconds,
// or a "m:ss" string), lyrics (an array of lines or one newline separated string), explicit
// and multimedia. A track without an artist inherits the album's.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"spotifum/internal/app/catalog"
	"spotifum/internal/store"
	"spotifum/shared/go/models"
)

// ErrMalformed signals a document that is not valid JSON or lacks the albums array.
var ErrMalformed = errors.New("malformed catalog document")

// Catalog is the slice of the catalog service the importer writes through.
type Catalog interface {
	CreateAlbum(ctx context.Context, in catalog.AlbumInput) (*models.Album, error)
	AlbumByTitle(ctx context.Context, title string) (*models.Album, error)
	AddMusic(ctx context.Context, albumID int64, in catalog.MusicInput) (*models.Music, error)
}

// Report counts what an import changed.
type Report struct {
	Albums  int
	Musics  int
	Skipped int
}

// Importer writes parsed documents into the catalog.
type Importer struct {
	catalog Catalog
}

// New returns an Importer.
func New(c Catalog) *Importer {
	return &Importer{catalog: c}
}

// ImportFile reads and imports the document at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("read catalog file: %w", err)
	}
	return im.Import(ctx, data)
}

// Import adds every album and track of the document. Albums already in the catalog are
// extended and tracks whose title is taken are skipped.
func (im *Importer) Import(ctx context.Context, data []byte) (Report, error) {
	if !gjson.ValidBytes(data) {
		return Report{}, ErrMalformed
	}
	albums := gjson.GetBytes(data, "albums")
	if !albums.IsArray() {
		return Report{}, fmt.Errorf("%w: albums array is missing", ErrMalformed)
	}

	var (
		report Report
		err    error
	)
	albums.ForEach(func(_, item gjson.Result) bool {
		if err = ctx.Err(); err != nil {
			return false
		}
		err = im.importAlbum(ctx, item, &report)
		return err == nil
	})
	if err != nil {
		return report, err
	}

	log.Info().
		Int("albums", report.Albums).
		Int("musics", report.Musics).
		Int("skipped", report.Skipped).
		Msg("catalog imported")
	return report, nil
}

func (im *Importer) importAlbum(ctx context.Context, item gjson.Result, report *Report) error {
	in := catalog.AlbumInput{
		Title:  item.Get("title").String(),
		Artist: item.Get("artist").String(),
		Label:  item.Get("label").String(),
		Year:   int(item.Get("year").Int()),
	}

	album, err := im.catalog.CreateAlbum(ctx, in)
	switch {
	case err == nil:
		report.Albums++
	case errors.Is(err, store.ErrNameAlreadyUsed):
		album, err = im.catalog.AlbumByTitle(ctx, in.Title)
		if err != nil {
			return fmt.Errorf("load album %q: %w", in.Title, err)
		}
	default:
		return fmt.Errorf("album %q: %w", in.Title, err)
	}

	var trackErr error
	item.Get("musics").ForEach(func(_, track gjson.Result) bool {
		music := parseMusic(track, album.Artist)
		_, err := im.catalog.AddMusic(ctx, album.ID, music)
		switch {
		case err == nil:
			report.Musics++
		case errors.Is(err, store.ErrNameAlreadyUsed):
			report.Skipped++
		default:
			trackErr = fmt.Errorf("music %q of album %q: %w", music.Title, album.Title, err)
			return false
		}
		return true
	})
	return trackErr
}

func parseMusic(track gjson.Result, albumArtist string) catalog.MusicInput {
	artist := track.Get("artist").String()
	if artist == "" {
		artist = albumArtist
	}

	var lyrics []string
	switch raw := track.Get("lyrics"); {
	case raw.IsArray():
		raw.ForEach(func(_, line gjson.Result) bool {
			lyrics = append(lyrics, line.String())
			return true
		})
	case raw.Type == gjson.String && raw.String() != "":
		lyrics = strings.Split(strings.ReplaceAll(raw.String(), "\r\n", "\n"), "\n")
	}

	return catalog.MusicInput{
		Title:           track.Get("title").String(),
		Artist:          artist,
		Genre:           track.Get("genre").String(),
		Label:           track.Get("label").String(),
		DurationSeconds: parseDuration(track.Get("duration")),
		Lyrics:          lyrics,
		Explicit:        track.Get("explicit").Bool(),
		Multimedia:      track.Get("multimedia").Bool(),
	}
}

// parseDuration accepts whole seconds or "m:ss". Anything unparsable yields -1 so the catalog
// rejects the track as invalid.
func parseDuration(v gjson.Result) int {
	switch v.Type {
	case gjson.Null:
		return 0
	case gjson.Number:
		return int(v.Int())
	case gjson.String:
		minutes, seconds, found := strings.Cut(v.String(), ":")
		if !found {
			n, err := strconv.Atoi(strings.TrimSpace(minutes))
			if err != nil {
				return -1
			}
			return n
		}
		m, err1 := strconv.Atoi(strings.TrimSpace(minutes))
		s, err2 := strconv.Atoi(strings.TrimSpace(seconds))
		if err1 != nil || err2 != nil || s >= 60 {
			return -1
		}
		return m*60 + s
	default:
		return -1
	}
}
