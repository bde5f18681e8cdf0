package playlists

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"spotifum/internal/plan"
	"spotifum/internal/store"
	"spotifum/shared/go/models"
)

// Random samples up to maxCount distinct tracks by drawing an album uniformly and then a track
// uniformly inside it. The result is not stored.
func (s *service) Random(ctx context.Context, userID int64, name string, maxCount int, rng Rand) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		return nil, fmt.Errorf("%w: playlist size must be positive", store.ErrInvalidParams)
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}

	albums, err := s.store.ListAlbums(ctx, store.AlbumFilter{})
	if err != nil {
		return nil, fmt.Errorf("list albums: %w", err)
	}
	tracks := make([][]*models.Music, len(albums))
	total := 0
	for i, a := range albums {
		musics, err := s.store.MusicsByAlbum(ctx, a.ID)
		if err != nil {
			return nil, fmt.Errorf("list tracks of album %d: %w", a.ID, err)
		}
		tracks[i] = musics
		total += len(musics)
	}
	if total == 0 {
		return nil, ErrTooFewMusics
	}

	want := min(maxCount, total)
	picked := make(map[int64]bool, want)
	ids := make([]int64, 0, want)
	for len(ids) < want {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		album := tracks[rng.IntN(len(tracks))]
		if len(album) == 0 {
			continue
		}
		m := album[rng.IntN(len(album))]
		if picked[m.ID] {
			continue
		}
		picked[m.ID] = true
		ids = append(ids, m.ID)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultRandomName
	}
	return &models.Playlist{
		Name:      name,
		Kind:      models.PlaylistRandom,
		CreatorID: userID,
		MusicIDs:  ids,
	}, nil
}

// GenreList stores a playlist of up to numMusics tracks of the genre lasting at most
// maxDurationSeconds, taken in album-then-track order.
func (s *service) GenreList(ctx context.Context, userID int64, name, genre string, maxDurationSeconds, numMusics int) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.requirePlan(ctx, userID, plan.CreateGenreList); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	genre = strings.TrimSpace(genre)
	if name == "" || genre == "" || numMusics <= 0 {
		return nil, fmt.Errorf("%w: name, genre and a positive size are required", store.ErrInvalidParams)
	}
	if maxDurationSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration ceiling must be positive", store.ErrInvalidParams)
	}
	if err := s.ensureNameFree(ctx, userID, name); err != nil {
		return nil, err
	}

	total, err := s.store.CountMusics(ctx)
	if err != nil {
		return nil, fmt.Errorf("count musics: %w", err)
	}
	if total == 0 {
		return nil, ErrTooFewMusics
	}

	matches, err := s.store.ListMusics(ctx, store.MusicFilter{Genre: genre, MaxDuration: maxDurationSeconds})
	if err != nil {
		return nil, fmt.Errorf("list musics: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no %s tracks under %ds", ErrTooFewMusics, genre, maxDurationSeconds)
	}
	if len(matches) > numMusics {
		matches = matches[:numMusics]
	}

	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	p := &models.Playlist{
		Name:      name,
		Kind:      models.PlaylistGenre,
		CreatorID: userID,
		MusicIDs:  ids,
	}
	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Favourites rebuilds the user's favourites list from their most played tracks. Ties keep the
// order of first listen.
func (s *service) Favourites(ctx context.Context, userID int64, numMusics int) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.requirePlan(ctx, userID, plan.GenerateFavourites); err != nil {
		return nil, err
	}
	if numMusics <= 0 {
		return nil, fmt.Errorf("%w: playlist size must be positive", store.ErrInvalidParams)
	}

	events, err := s.store.CountPlaysByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count plays: %w", err)
	}
	if events < MinFavouritesHistory {
		return nil, fmt.Errorf("%w: %d of %d listens recorded", ErrTooFewMusics, events, MinFavouritesHistory)
	}

	played, err := s.store.DistinctPlayedTracks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list played tracks: %w", err)
	}

	type ranked struct {
		id    int64
		plays int
	}
	candidates := make([]ranked, 0, len(played))
	for _, id := range played {
		if _, err := s.store.MusicByID(ctx, id); errors.Is(err, store.ErrMusicNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}
		n, err := s.store.CountPlaysOfTrack(ctx, userID, id)
		if err != nil {
			return nil, fmt.Errorf("count plays of %d: %w", id, err)
		}
		candidates = append(candidates, ranked{id: id, plays: n})
	}
	if len(candidates) == 0 {
		return nil, ErrTooFewMusics
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].plays > candidates[j].plays })
	if len(candidates) > numMusics {
		candidates = candidates[:numMusics]
	}

	saved, err := s.library.Playlists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load library playlists: %w", err)
	}

	ids := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.id)
	}
	p := &models.Playlist{
		Name:      models.FavouritesListName,
		Kind:      models.PlaylistFavourites,
		CreatorID: userID,
		MusicIDs:  ids,
	}
	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}

	// The previous list goes only once its replacement is stored.
	for _, old := range saved {
		if old.Name != models.FavouritesListName {
			continue
		}
		if err := s.retire(ctx, userID, old); err != nil {
			return nil, fmt.Errorf("replace favourites list %d: %w", old.ID, err)
		}
	}
	log.Debug().Int64("user_id", userID).Int("events", events).Msg("favourites list generated")
	return p, nil
}

// retire drops a superseded playlist from the user's library, deleting it outright when the
// user created it.
func (s *service) retire(ctx context.Context, userID int64, p *models.Playlist) error {
	if p.CreatorID == userID {
		return s.library.DeletePlaylist(ctx, p.ID)
	}
	return s.store.RemoveLibraryPlaylist(ctx, userID, p.ID)
}
