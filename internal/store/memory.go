package store

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"spotifum/shared/go/models"
)

// Memory stores everything in process memory. Values are cloned on the way in and out so
// callers never alias the canonical records.
type Memory struct {
	mu sync.RWMutex

	albums    map[int64]*models.Album
	musics    map[int64]*models.Music
	users     map[int64]*models.User
	libraries map[int64]*models.Library
	playlists map[int64]*models.Playlist
	history   []models.ListeningRecord

	nextAlbumID    int64
	nextMusicID    int64
	nextUserID     int64
	nextPlaylistID int64

	now func() time.Time
}

// NewMemory returns an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		albums:         make(map[int64]*models.Album),
		musics:         make(map[int64]*models.Music),
		users:          make(map[int64]*models.User),
		libraries:      make(map[int64]*models.Library),
		playlists:      make(map[int64]*models.Playlist),
		nextAlbumID:    1,
		nextMusicID:    1,
		nextUserID:     1,
		nextPlaylistID: 1,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func cloneAlbum(a *models.Album) *models.Album {
	clone := *a
	return &clone
}

// CreateAlbum stores a new album and assigns its ID.
func (m *Memory) CreateAlbum(_ context.Context, album *models.Album) error {
	if album == nil {
		return errors.New("album is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.albums {
		if strings.EqualFold(existing.Title, album.Title) {
			return ErrNameAlreadyUsed
		}
	}

	album.ID = m.nextAlbumID
	m.nextAlbumID++
	m.albums[album.ID] = cloneAlbum(album)
	return nil
}

// AlbumByID returns a single album.
func (m *Memory) AlbumByID(_ context.Context, id int64) (*models.Album, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	album, ok := m.albums[id]
	if !ok {
		return nil, ErrAlbumNotFound
	}
	return cloneAlbum(album), nil
}

// AlbumByTitle returns the album with the given title, ignoring case.
func (m *Memory) AlbumByTitle(_ context.Context, title string) (*models.Album, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, album := range m.albums {
		if strings.EqualFold(album.Title, strings.TrimSpace(title)) {
			return cloneAlbum(album), nil
		}
	}
	return nil, ErrAlbumNotFound
}

// ListAlbums returns albums matching the filter ordered by ID.
func (m *Memory) ListAlbums(_ context.Context, filter AlbumFilter) ([]*models.Album, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := strings.TrimSpace(filter.Title)
	artist := strings.TrimSpace(filter.Artist)

	result := make([]*models.Album, 0, len(m.albums))
	for _, album := range m.albums {
		if title != "" && !containsFold(album.Title, title) {
			continue
		}
		if artist != "" && !containsFold(album.Artist, artist) {
			continue
		}
		result = append(result, cloneAlbum(album))
	}
	slices.SortFunc(result, func(a, b *models.Album) int { return cmp.Compare(a.ID, b.ID) })
	return result, nil
}

// DeleteAlbum removes the album, its tracks and every reference to them.
func (m *Memory) DeleteAlbum(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.albums[id]; !ok {
		return ErrAlbumNotFound
	}

	for musicID, music := range m.musics {
		if music.AlbumID == id {
			m.dropMusicLocked(musicID)
		}
	}
	for _, lib := range m.libraries {
		lib.AlbumIDs = slices.DeleteFunc(lib.AlbumIDs, func(v int64) bool { return v == id })
	}
	delete(m.albums, id)
	return nil
}

// CreateMusic appends a track to its album and assigns its ID.
func (m *Memory) CreateMusic(_ context.Context, music *models.Music) error {
	if music == nil {
		return errors.New("music is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.albums[music.AlbumID]; !ok {
		return ErrAlbumNotFound
	}

	last := 0
	for _, existing := range m.musics {
		if existing.AlbumID != music.AlbumID {
			continue
		}
		if strings.EqualFold(existing.Title, music.Title) {
			return ErrNameAlreadyUsed
		}
		last = max(last, existing.Position)
	}

	music.ID = m.nextMusicID
	m.nextMusicID++
	music.Position = last + 1
	m.musics[music.ID] = music.Clone()
	return nil
}

// MusicByID returns a single track.
func (m *Memory) MusicByID(_ context.Context, id int64) (*models.Music, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	music, ok := m.musics[id]
	if !ok {
		return nil, ErrMusicNotFound
	}
	return music.Clone(), nil
}

// ListMusics returns tracks matching the filter in album-then-track order.
func (m *Memory) ListMusics(_ context.Context, filter MusicFilter) ([]*models.Music, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := strings.TrimSpace(filter.Title)
	artist := strings.TrimSpace(filter.Artist)
	genre := strings.TrimSpace(filter.Genre)

	result := make([]*models.Music, 0)
	for _, music := range m.musics {
		if filter.AlbumID != 0 && music.AlbumID != filter.AlbumID {
			continue
		}
		if title != "" && !containsFold(music.Title, title) {
			continue
		}
		if artist != "" && !containsFold(music.Artist, artist) {
			continue
		}
		if genre != "" && !strings.EqualFold(music.Genre, genre) {
			continue
		}
		if filter.MaxDuration > 0 && music.DurationSeconds > filter.MaxDuration {
			continue
		}
		result = append(result, music.Clone())
	}
	sortTracks(result)
	return result, nil
}

func sortTracks(musics []*models.Music) {
	slices.SortFunc(musics, func(a, b *models.Music) int {
		if c := cmp.Compare(a.AlbumID, b.AlbumID); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
}

// MusicsByAlbum returns the album's tracks in order.
func (m *Memory) MusicsByAlbum(ctx context.Context, albumID int64) ([]*models.Music, error) {
	m.mu.RLock()
	_, ok := m.albums[albumID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrAlbumNotFound
	}
	return m.ListMusics(ctx, MusicFilter{AlbumID: albumID})
}

// CountMusics returns the number of tracks in the catalog.
func (m *Memory) CountMusics(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.musics), nil
}

// IncrementPlayCount bumps the track's play counter.
func (m *Memory) IncrementPlayCount(_ context.Context, musicID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	music, ok := m.musics[musicID]
	if !ok {
		return ErrMusicNotFound
	}
	music.PlayCount++
	return nil
}

// ReplaceMusic swaps the original track for the replacement at the same album position.
// The replacement receives a new ID and every reference to the original is dropped.
func (m *Memory) ReplaceMusic(_ context.Context, originalID int64, replacement *models.Music) error {
	if replacement == nil {
		return errors.New("replacement is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	original, ok := m.musics[originalID]
	if !ok {
		return ErrMusicNotFound
	}

	replacement.AlbumID = original.AlbumID
	replacement.Position = original.Position
	replacement.ID = m.nextMusicID
	m.nextMusicID++

	m.dropMusicLocked(originalID)
	m.musics[replacement.ID] = replacement.Clone()
	return nil
}

// DeleteMusic removes the track and every reference to it.
func (m *Memory) DeleteMusic(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.musics[id]; !ok {
		return ErrMusicNotFound
	}
	m.dropMusicLocked(id)
	return nil
}

// dropMusicLocked deletes a track and strips it from libraries and playlists.
func (m *Memory) dropMusicLocked(id int64) {
	match := func(v int64) bool { return v == id }
	for _, lib := range m.libraries {
		lib.MusicIDs = slices.DeleteFunc(lib.MusicIDs, match)
	}
	for _, p := range m.playlists {
		p.MusicIDs = slices.DeleteFunc(p.MusicIDs, match)
	}
	delete(m.musics, id)
}

// CreateUser stores a new account with an empty library.
func (m *Memory) CreateUser(_ context.Context, user *models.User) error {
	if user == nil {
		return errors.New("user is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == user.Username {
			return ErrUserExists
		}
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrEmailExists
		}
	}

	user.ID = m.nextUserID
	m.nextUserID++
	if user.CreatedAt.IsZero() {
		user.CreatedAt = m.now()
	}
	m.users[user.ID] = user.Clone()
	m.libraries[user.ID] = &models.Library{UserID: user.ID}
	return nil
}

// UserByID returns a single account.
func (m *Memory) UserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user.Clone(), nil
}

// UserByUsername returns the account with the exact username.
func (m *Memory) UserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if user.Username == username {
			return user.Clone(), nil
		}
	}
	return nil, ErrUserNotFound
}

// UserByEmail returns the account registered with the email, ignoring case.
func (m *Memory) UserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return user.Clone(), nil
		}
	}
	return nil, ErrUserNotFound
}

// ListUsers returns every account ordered by ID.
func (m *Memory) ListUsers(_ context.Context) ([]*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*models.User, 0, len(m.users))
	for _, user := range m.users {
		result = append(result, user.Clone())
	}
	slices.SortFunc(result, func(a, b *models.User) int { return cmp.Compare(a.ID, b.ID) })
	return result, nil
}

// UpdateUser replaces the mutable profile fields of an account.
func (m *Memory) UpdateUser(_ context.Context, user *models.User) error {
	if user == nil {
		return errors.New("user is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	if user.Points < 0 {
		return ErrInvalidParams
	}

	updated := user.Clone()
	updated.CreatedAt = existing.CreatedAt
	if len(updated.PasswordHash) == 0 {
		updated.PasswordHash = existing.PasswordHash
	}
	m.users[user.ID] = updated
	return nil
}

// AddPoints adjusts the user's balance and returns the new total. The balance never drops
// below zero.
func (m *Memory) AddPoints(_ context.Context, userID int64, delta int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	user.Points = max(0, user.Points+delta)
	return user.Points, nil
}

// DeleteUser removes the account, its library, its history and the playlists it created.
func (m *Memory) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrUserNotFound
	}

	for playlistID, p := range m.playlists {
		if p.CreatorID == id {
			m.dropPlaylistLocked(playlistID)
		}
	}
	m.history = slices.DeleteFunc(m.history, func(r models.ListeningRecord) bool { return r.UserID == id })
	delete(m.libraries, id)
	delete(m.users, id)
	return nil
}

func (m *Memory) libraryLocked(userID int64) (*models.Library, error) {
	if _, ok := m.users[userID]; !ok {
		return nil, ErrUserNotFound
	}
	lib, ok := m.libraries[userID]
	if !ok {
		lib = &models.Library{UserID: userID}
		m.libraries[userID] = lib
	}
	return lib, nil
}

// Library returns the user's saved items.
func (m *Memory) Library(_ context.Context, userID int64) (*models.Library, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lib, err := m.libraryLocked(userID)
	if err != nil {
		return nil, err
	}
	return lib.Clone(), nil
}

// AddLibraryMusic saves a track.
func (m *Memory) AddLibraryMusic(_ context.Context, userID, musicID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lib, err := m.libraryLocked(userID)
	if err != nil {
		return err
	}
	if _, ok := m.musics[musicID]; !ok {
		return ErrMusicNotFound
	}
	if lib.HasMusic(musicID) {
		return ErrMusicAlreadySaved
	}
	lib.MusicIDs = append(lib.MusicIDs, musicID)
	return nil
}

// RemoveLibraryMusic unsaves a track. Removing an unsaved track is not an error.
func (m *Memory) RemoveLibraryMusic(_ context.Context, userID, musicID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lib, err := m.libraryLocked(userID)
	if err != nil {
		return err
	}
	lib.MusicIDs = slices.DeleteFunc(lib.MusicIDs, func(v int64) bool { return v == musicID })
	return nil
}

// AddLibraryAlbum saves an album.
func (m *Memory) AddLibraryAlbum(_ context.Context, userID, albumID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lib, err := m.libraryLocked(userID)
	if err != nil {
		return err
	}
	if _, ok := m.albums[albumID]; !ok {
		return ErrAlbumNotFound
	}
	if lib.HasAlbum(albumID) {
		return ErrAlbumAlreadySaved
	}
	lib.AlbumIDs = append(lib.AlbumIDs, albumID)
	return nil
}

// RemoveLibraryAlbum unsaves an album.
func (m *Memory) RemoveLibraryAlbum(_ context.Context, userID, albumID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lib, err := m.libraryLocked(userID)
	if err != nil {
		return err
	}
	lib.AlbumIDs = slices.DeleteFunc(lib.AlbumIDs, func(v int64) bool { return v == albumID })
	return nil
}

// AddLibraryPlaylist saves a playlist reference.
func (m *Memory) AddLibraryPlaylist(_ context.Context, userID, playlistID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lib, err := m.libraryLocked(userID)
	if err != nil {
		return err
	}
	if _, ok := m.playlists[playlistID]; !ok {
		return ErrPlaylistNotFound
	}
	if lib.HasPlaylist(playlistID) {
		return ErrPlaylistAlreadySaved
	}
	lib.PlaylistIDs = append(lib.PlaylistIDs, playlistID)
	return nil
}

// RemoveLibraryPlaylist drops a playlist reference.
func (m *Memory) RemoveLibraryPlaylist(_ context.Context, userID, playlistID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lib, err := m.libraryLocked(userID)
	if err != nil {
		return err
	}
	lib.PlaylistIDs = slices.DeleteFunc(lib.PlaylistIDs, func(v int64) bool { return v == playlistID })
	return nil
}

func (m *Memory) librariesWhere(match func(*models.Library) bool) []int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []int64
	for userID, lib := range m.libraries {
		if match(lib) {
			ids = append(ids, userID)
		}
	}
	slices.Sort(ids)
	return ids
}

// LibrariesWithMusic returns the IDs of users who saved the track.
func (m *Memory) LibrariesWithMusic(_ context.Context, musicID int64) ([]int64, error) {
	return m.librariesWhere(func(l *models.Library) bool { return l.HasMusic(musicID) }), nil
}

// LibrariesWithAlbum returns the IDs of users who saved the album.
func (m *Memory) LibrariesWithAlbum(_ context.Context, albumID int64) ([]int64, error) {
	return m.librariesWhere(func(l *models.Library) bool { return l.HasAlbum(albumID) }), nil
}

// LibrariesWithPlaylist returns the IDs of users whose library references the playlist.
func (m *Memory) LibrariesWithPlaylist(_ context.Context, playlistID int64) ([]int64, error) {
	return m.librariesWhere(func(l *models.Library) bool { return l.HasPlaylist(playlistID) }), nil
}

// CreatePlaylist stores a new playlist and assigns its ID.
func (m *Memory) CreatePlaylist(_ context.Context, playlist *models.Playlist) error {
	if playlist == nil {
		return errors.New("playlist is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[playlist.CreatorID]; !ok {
		return ErrUserNotFound
	}
	for _, id := range playlist.MusicIDs {
		if _, ok := m.musics[id]; !ok {
			return ErrMusicNotFound
		}
	}

	playlist.ID = m.nextPlaylistID
	m.nextPlaylistID++
	if playlist.CreatedAt.IsZero() {
		playlist.CreatedAt = m.now()
	}
	m.playlists[playlist.ID] = playlist.Clone()
	return nil
}

// PlaylistByID returns a single playlist.
func (m *Memory) PlaylistByID(_ context.Context, id int64) (*models.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.playlists[id]
	if !ok {
		return nil, ErrPlaylistNotFound
	}
	return p.Clone(), nil
}

// ListPlaylists returns playlists matching the filter ordered by ID.
func (m *Memory) ListPlaylists(_ context.Context, filter PlaylistFilter) ([]*models.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name := strings.TrimSpace(filter.Name)

	result := make([]*models.Playlist, 0)
	for _, p := range m.playlists {
		if filter.CreatorID != 0 && p.CreatorID != filter.CreatorID {
			continue
		}
		if filter.PublicOnly && !p.IsPublic {
			continue
		}
		if name != "" && !containsFold(p.Name, name) {
			continue
		}
		if filter.ContainsMusic != 0 && !p.Contains(filter.ContainsMusic) {
			continue
		}
		result = append(result, p.Clone())
	}
	slices.SortFunc(result, func(a, b *models.Playlist) int { return cmp.Compare(a.ID, b.ID) })
	return result, nil
}

// UpdatePlaylist replaces the name, visibility and track list of a playlist.
func (m *Memory) UpdatePlaylist(_ context.Context, playlist *models.Playlist) error {
	if playlist == nil {
		return errors.New("playlist is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.playlists[playlist.ID]
	if !ok {
		return ErrPlaylistNotFound
	}
	for _, id := range playlist.MusicIDs {
		if _, ok := m.musics[id]; !ok {
			return ErrMusicNotFound
		}
	}

	existing.Name = playlist.Name
	existing.IsPublic = playlist.IsPublic
	existing.MusicIDs = slices.Clone(playlist.MusicIDs)
	return nil
}

// DeletePlaylist removes the playlist from every library and deletes it.
func (m *Memory) DeletePlaylist(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.playlists[id]; !ok {
		return ErrPlaylistNotFound
	}
	m.dropPlaylistLocked(id)
	return nil
}

func (m *Memory) dropPlaylistLocked(id int64) {
	for _, lib := range m.libraries {
		lib.PlaylistIDs = slices.DeleteFunc(lib.PlaylistIDs, func(v int64) bool { return v == id })
	}
	delete(m.playlists, id)
}

// RecordPlay appends a listening record.
func (m *Memory) RecordPlay(_ context.Context, record *models.ListeningRecord) error {
	if record == nil {
		return errors.New("record is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[record.UserID]; !ok {
		return ErrUserNotFound
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.ListenedAt.IsZero() {
		record.ListenedAt = m.now()
	}
	m.history = append(m.history, *record)
	return nil
}

func (m *Memory) countHistory(match func(models.ListeningRecord) bool) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, r := range m.history {
		if match(r) {
			n++
		}
	}
	return n
}

// CountPlaysByUser returns the size of the user's history.
func (m *Memory) CountPlaysByUser(_ context.Context, userID int64) (int, error) {
	return m.countHistory(func(r models.ListeningRecord) bool { return r.UserID == userID }), nil
}

// CountPlaysSince returns the number of plays at or after since.
func (m *Memory) CountPlaysSince(_ context.Context, userID int64, since time.Time) (int, error) {
	return m.countHistory(func(r models.ListeningRecord) bool {
		return r.UserID == userID && !r.ListenedAt.Before(since)
	}), nil
}

// HasEverPlayed reports whether the user's history contains the track.
func (m *Memory) HasEverPlayed(_ context.Context, userID, musicID int64) (bool, error) {
	n := m.countHistory(func(r models.ListeningRecord) bool {
		return r.UserID == userID && r.MusicID == musicID
	})
	return n > 0, nil
}

// CountPlaysOfTrack returns how many times the user played the track.
func (m *Memory) CountPlaysOfTrack(_ context.Context, userID, musicID int64) (int, error) {
	return m.countHistory(func(r models.ListeningRecord) bool {
		return r.UserID == userID && r.MusicID == musicID
	}), nil
}

// DistinctPlayedTracks returns the tracks the user played, ordered by first listen.
func (m *Memory) DistinctPlayedTracks(_ context.Context, userID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]models.ListeningRecord, 0)
	for _, r := range m.history {
		if r.UserID == userID {
			records = append(records, r)
		}
	}
	slices.SortStableFunc(records, func(a, b models.ListeningRecord) int {
		return a.ListenedAt.Compare(b.ListenedAt)
	})

	seen := make(map[int64]bool)
	var ids []int64
	for _, r := range records {
		if !seen[r.MusicID] {
			seen[r.MusicID] = true
			ids = append(ids, r.MusicID)
		}
	}
	return ids, nil
}

// ClearHistory deletes every listening record of the user.
func (m *Memory) ClearHistory(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = slices.DeleteFunc(m.history, func(r models.ListeningRecord) bool { return r.UserID == userID })
	return nil
}
