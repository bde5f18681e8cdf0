// Package playlists manages user-curated playlists and the generated ones: random picks,
// genre lists and the favourites list.
package playlists

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog/log"

	"spotifum/internal/plan"
	"spotifum/internal/store"
	"spotifum/shared/go/models"
)

// ErrTooFewMusics signals that the catalog or the user's history cannot feed a generator.
var ErrTooFewMusics = errors.New("too few musics")

// MinFavouritesHistory is the number of listening events needed before a favourites list can
// be generated.
const MinFavouritesHistory = 10

// DefaultRandomName names random playlists generated without an explicit name.
const DefaultRandomName = "Random Playlist"

// Store captures the persistence needs for playlist workflows.
type Store interface {
	UserByID(ctx context.Context, id int64) (*models.User, error)
	ListAlbums(ctx context.Context, filter store.AlbumFilter) ([]*models.Album, error)
	MusicByID(ctx context.Context, id int64) (*models.Music, error)
	MusicsByAlbum(ctx context.Context, albumID int64) ([]*models.Music, error)
	ListMusics(ctx context.Context, filter store.MusicFilter) ([]*models.Music, error)
	CountMusics(ctx context.Context) (int, error)

	CreatePlaylist(ctx context.Context, playlist *models.Playlist) error
	PlaylistByID(ctx context.Context, id int64) (*models.Playlist, error)
	ListPlaylists(ctx context.Context, filter store.PlaylistFilter) ([]*models.Playlist, error)
	UpdatePlaylist(ctx context.Context, playlist *models.Playlist) error
	AddLibraryPlaylist(ctx context.Context, userID, playlistID int64) error
	RemoveLibraryPlaylist(ctx context.Context, userID, playlistID int64) error

	CountPlaysByUser(ctx context.Context, userID int64) (int, error)
	DistinctPlayedTracks(ctx context.Context, userID int64) ([]int64, error)
	CountPlaysOfTrack(ctx context.Context, userID, musicID int64) (int, error)
}

// Library is the slice of the library service the playlist workflows depend on.
type Library interface {
	Playlists(ctx context.Context, userID int64) ([]*models.Playlist, error)
	PlaylistByName(ctx context.Context, userID int64, name string) (*models.Playlist, error)
	DeletePlaylist(ctx context.Context, playlistID int64) error
}

// Rand is the random source used by the random generator. *rand.Rand from math/rand/v2
// satisfies it.
type Rand interface {
	IntN(n int) int
}

// Service coordinates playlist operations.
type Service interface {
	Create(ctx context.Context, userID int64, name string, public bool) (*models.Playlist, error)
	AddMusic(ctx context.Context, userID, playlistID, musicID int64) error
	RemoveMusic(ctx context.Context, userID, playlistID, musicID int64) error
	SetVisibility(ctx context.Context, userID, playlistID int64, public bool) error

	Get(ctx context.Context, id int64) (*models.Playlist, error)
	Tracks(ctx context.Context, viewerID, id int64) ([]*models.Music, error)
	ByCreator(ctx context.Context, userID int64) ([]*models.Playlist, error)
	Public(ctx context.Context) ([]*models.Playlist, error)
	SearchPublic(ctx context.Context, query string) ([]*models.Playlist, error)

	Random(ctx context.Context, userID int64, name string, maxCount int, rng Rand) (*models.Playlist, error)
	GenreList(ctx context.Context, userID int64, name, genre string, maxDurationSeconds, numMusics int) (*models.Playlist, error)
	Favourites(ctx context.Context, userID int64, numMusics int) (*models.Playlist, error)
}

type service struct {
	store   Store
	library Library
}

// New constructs a Service.
func New(store Store, library Library) Service {
	return &service{store: store, library: library}
}

func (s *service) requirePlan(ctx context.Context, userID int64, c plan.Capability) (*models.User, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	kind, err := plan.ParseKind(user.Plan)
	if err != nil {
		return nil, err
	}
	if err := kind.Require(c); err != nil {
		return nil, err
	}
	return user, nil
}

// ensureNameFree returns ErrNameAlreadyUsed when the user's library already holds a playlist
// with the name.
func (s *service) ensureNameFree(ctx context.Context, userID int64, name string) error {
	_, err := s.library.PlaylistByName(ctx, userID, name)
	switch {
	case err == nil:
		return fmt.Errorf("%w: playlist %q", store.ErrNameAlreadyUsed, name)
	case errors.Is(err, store.ErrPlaylistNotFound):
		return nil
	default:
		return err
	}
}

// persist stores the playlist and adds it to its creator's library.
func (s *service) persist(ctx context.Context, p *models.Playlist) error {
	if err := s.store.CreatePlaylist(ctx, p); err != nil {
		return fmt.Errorf("create playlist: %w", err)
	}
	if err := s.store.AddLibraryPlaylist(ctx, p.CreatorID, p.ID); err != nil {
		return fmt.Errorf("save playlist %d: %w", p.ID, err)
	}
	log.Info().
		Int64("playlist_id", p.ID).
		Int64("user_id", p.CreatorID).
		Str("kind", string(p.Kind)).
		Int("musics", len(p.MusicIDs)).
		Msg("playlist created")
	return nil
}

func (s *service) Create(ctx context.Context, userID int64, name string, public bool) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.requirePlan(ctx, userID, plan.CreatePlaylist); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", store.ErrInvalidParams)
	}
	if err := s.ensureNameFree(ctx, userID, name); err != nil {
		return nil, err
	}

	p := &models.Playlist{
		Name:      name,
		Kind:      models.PlaylistCustom,
		CreatorID: userID,
		IsPublic:  public,
		MusicIDs:  []int64{},
	}
	if err := s.persist(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// editable loads the playlist and checks that the user may change it.
func (s *service) editable(ctx context.Context, userID, playlistID int64) (*models.Playlist, error) {
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.store.PlaylistByID(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if p.CreatorID != userID && !user.IsAdmin {
		return nil, fmt.Errorf("%w: only the creator can edit playlist %q", plan.ErrNoPermissions, p.Name)
	}
	return p, nil
}

func (s *service) AddMusic(ctx context.Context, userID, playlistID, musicID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.editable(ctx, userID, playlistID)
	if err != nil {
		return err
	}
	if _, err := s.store.MusicByID(ctx, musicID); err != nil {
		return err
	}
	if p.Contains(musicID) {
		return store.ErrMusicAlreadySaved
	}

	p.MusicIDs = append(p.MusicIDs, musicID)
	if err := s.store.UpdatePlaylist(ctx, p); err != nil {
		return fmt.Errorf("update playlist %d: %w", p.ID, err)
	}
	return nil
}

func (s *service) RemoveMusic(ctx context.Context, userID, playlistID, musicID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.editable(ctx, userID, playlistID)
	if err != nil {
		return err
	}
	if !p.Contains(musicID) {
		return store.ErrMusicNotFound
	}

	p.MusicIDs = slices.DeleteFunc(p.MusicIDs, func(id int64) bool { return id == musicID })
	if err := s.store.UpdatePlaylist(ctx, p); err != nil {
		return fmt.Errorf("update playlist %d: %w", p.ID, err)
	}
	return nil
}

func (s *service) SetVisibility(ctx context.Context, userID, playlistID int64, public bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.editable(ctx, userID, playlistID)
	if err != nil {
		return err
	}
	if p.IsPublic == public {
		return nil
	}
	p.IsPublic = public
	return s.store.UpdatePlaylist(ctx, p)
}

func (s *service) Get(ctx context.Context, id int64) (*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.PlaylistByID(ctx, id)
}

// Tracks resolves the playlist's musics in order for the viewer, skipping any that left the
// catalog or that the viewer's content preferences hide. Private playlists read as missing to
// anyone but their creator and administrators.
func (s *service) Tracks(ctx context.Context, viewerID, id int64) ([]*models.Music, error) {
	viewer, err := s.store.UserByID(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list playlist tracks: %w", err)
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsPublic && p.CreatorID != viewerID && !viewer.IsAdmin {
		return nil, fmt.Errorf("playlist %d: %w", id, store.ErrPlaylistNotFound)
	}
	musics, err := s.resolve(ctx, p.MusicIDs)
	if err != nil {
		return nil, err
	}
	return models.VisibleTo(viewer, musics), nil
}

func (s *service) resolve(ctx context.Context, ids []int64) ([]*models.Music, error) {
	musics := make([]*models.Music, 0, len(ids))
	for _, id := range ids {
		m, err := s.store.MusicByID(ctx, id)
		if errors.Is(err, store.ErrMusicNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		musics = append(musics, m)
	}
	return musics, nil
}

func (s *service) ByCreator(ctx context.Context, userID int64) ([]*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListPlaylists(ctx, store.PlaylistFilter{CreatorID: userID})
}

func (s *service) Public(ctx context.Context) ([]*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListPlaylists(ctx, store.PlaylistFilter{PublicOnly: true})
}

func (s *service) SearchPublic(ctx context.Context, query string) ([]*models.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", store.ErrInvalidParams)
	}
	return s.store.ListPlaylists(ctx, store.PlaylistFilter{PublicOnly: true, Name: query})
}
