package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spotifum/internal/app/catalog"
	"spotifum/internal/app/playback"
	"spotifum/internal/app/users"
	"spotifum/shared/go/models"
)

func (c *Console) commandTable() []command {
	return []command{
		{name: "help", run: c.help},
		{name: "signup", usage: "username | password | email | name", run: c.signup},
		{name: "login", usage: "username password", run: c.login},
		{name: "logout", auth: true, run: c.logoutCmd},
		{name: "whoami", auth: true, run: c.whoami},
		{name: "plan", usage: "free|plus|premium", auth: true, run: c.changePlan},
		{name: "prefs", usage: "explicit(yes|no) multimedia(yes|no)", auth: true, run: c.preferences},
		{name: "delete-account", auth: true, run: c.deleteAccount},

		{name: "albums", run: c.albums},
		{name: "tracks", usage: "album-id", run: c.tracks},
		{name: "search", usage: "music|album|artist|playlist | query", run: c.search},

		{name: "library", auth: true, run: c.library},
		{name: "save", usage: "music|album|playlist id", auth: true, run: c.save},
		{name: "unsave", usage: "music|album id", auth: true, run: c.unsave},
		{name: "remove-playlist", usage: "name", auth: true, run: c.removePlaylist},

		{name: "playlists", usage: "[public]", auth: true, run: c.playlists},
		{name: "playlist-show", usage: "playlist-id", auth: true, run: c.playlistShow},
		{name: "playlist-new", usage: "name | public|private", auth: true, run: c.playlistNew},
		{name: "playlist-add", usage: "playlist-id music-id", auth: true, run: c.playlistAdd},
		{name: "playlist-del", usage: "playlist-id music-id", auth: true, run: c.playlistDel},
		{name: "playlist-visibility", usage: "playlist-id public|private", auth: true, run: c.playlistVisibility},
		{name: "genre-list", usage: "name | genre | max-seconds | count", auth: true, run: c.genreList},
		{name: "favourites", usage: "count", auth: true, run: c.favourites},

		{name: "play", usage: "playlist|album|music id, or random [count]", auth: true, run: c.play},
		{name: "clear-history", auth: true, run: c.clearHistory},
		{name: "stats", run: c.stats},

		{name: "album-new", usage: "title | artist | label | year", admin: true, run: c.albumNew},
		{name: "music-new", usage: "album-id | title | artist | genre | label | m:ss | explicit | multimedia", admin: true, run: c.musicNew},
		{name: "explicit", usage: "music-id yes|no", admin: true, run: c.setExplicit},
		{name: "multimedia", usage: "music-id yes|no", admin: true, run: c.setMultimedia},
		{name: "album-rm", usage: "album-id", admin: true, run: c.albumRemove},
		{name: "music-rm", usage: "music-id", admin: true, run: c.musicRemove},
		{name: "user-rm", usage: "username", admin: true, run: c.userRemove},
		{name: "make-admin", usage: "username", admin: true, run: c.makeAdmin},
		{name: "import", usage: "path", admin: true, run: c.importCatalog},
	}
}

func (c *Console) help(context.Context, []string) error {
	for _, cmd := range c.commands {
		tag := ""
		if cmd.admin {
			tag = " (admin)"
		}
		c.printf("  %-20s %s%s\n", cmd.name, cmd.usage, tag)
	}
	c.printf("  %-20s\n", "quit")
	return nil
}

// Accounts

func (c *Console) signup(ctx context.Context, args []string) error {
	if err := needArgs(args, 3); err != nil {
		return err
	}
	in := users.SignupInput{Username: args[0], Password: args[1], Email: args[2]}
	if len(args) > 3 {
		in.Name = args[3]
	}
	u, err := c.app.Users.Signup(ctx, in)
	if err != nil {
		return err
	}
	c.printf("account %s created on the %s plan\n", u.Username, u.Plan)
	return nil
}

func (c *Console) login(ctx context.Context, args []string) error {
	if err := needArgs(args, 2); err != nil {
		return err
	}
	session, err := c.app.Users.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	c.token = session.Token
	c.user = session.User
	c.printf("welcome %s\n", session.User.Username)
	return nil
}

func (c *Console) logoutCmd(context.Context, []string) error {
	c.printf("goodbye %s\n", c.user.Username)
	c.logout()
	return nil
}

func (c *Console) whoami(context.Context, []string) error {
	u := c.user
	c.printf("%s (%s) plan=%s points=%d explicit=%t multimedia=%t", u.Username, u.Email, u.Plan, u.Points, u.WantsExplicit, u.WantsMultimedia)
	if u.IsAdmin {
		c.printf(" admin")
	}
	c.printf("\n")
	return nil
}

func (c *Console) changePlan(ctx context.Context, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	u, err := c.app.Users.ChangePlan(ctx, c.user.ID, args[0])
	if err != nil {
		return err
	}
	c.user = u
	c.printf("plan is now %s, %d points\n", u.Plan, u.Points)
	return nil
}

func (c *Console) preferences(ctx context.Context, args []string) error {
	if err := needArgs(args, 2); err != nil {
		return err
	}
	explicit, err := parseSwitch(args[0])
	if err != nil {
		return err
	}
	multimedia, err := parseSwitch(args[1])
	if err != nil {
		return err
	}
	if err := c.app.Users.SetPreferences(ctx, c.user.ID, explicit, multimedia); err != nil {
		return err
	}
	c.printf("preferences saved\n")
	return nil
}

func (c *Console) deleteAccount(ctx context.Context, _ []string) error {
	if err := c.app.Users.Delete(ctx, c.user.ID); err != nil {
		return err
	}
	c.printf("account %s deleted\n", c.user.Username)
	c.logout()
	return nil
}

// Catalog

func (c *Console) albums(ctx context.Context, _ []string) error {
	albums, err := c.app.Catalog.Albums(ctx)
	if err != nil {
		return err
	}
	if len(albums) == 0 {
		c.printf("the catalog is empty\n")
	}
	for _, a := range albums {
		c.printf("  [%d] %s - %s (%d)\n", a.ID, a.Title, a.Artist, a.Year)
	}
	return nil
}

func (c *Console) tracks(ctx context.Context, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	tracks, err := c.app.Catalog.Tracks(ctx, id)
	if err != nil {
		return err
	}
	c.printMusics(models.VisibleTo(c.viewer(), tracks))
	return nil
}

func (c *Console) search(ctx context.Context, args []string) error {
	if err := needArgs(args, 2); err != nil {
		return err
	}
	query := strings.Join(args[1:], " ")
	results, err := c.app.Search.Search(ctx, c.viewer(), args[0], query, 0)
	if err != nil {
		return err
	}
	if results.Len() == 0 {
		c.printf("no matches\n")
		return nil
	}
	for _, section := range results.Sections() {
		c.printf("%s\n", section.Name)
		for _, item := range section.Items {
			if item.Subtitle == "" {
				c.printf("  %s\n", item.Title)
				continue
			}
			c.printf("  [%s] %s - %s\n", item.ID, item.Title, item.Subtitle)
		}
	}
	return nil
}

// Library

func (c *Console) library(ctx context.Context, _ []string) error {
	musics, err := c.app.Library.Musics(ctx, c.user.ID)
	if err != nil {
		return err
	}
	albums, err := c.app.Library.Albums(ctx, c.user.ID)
	if err != nil {
		return err
	}
	saved, err := c.app.Library.Playlists(ctx, c.user.ID)
	if err != nil {
		return err
	}

	c.printf("Musics\n")
	c.printMusics(musics)
	c.printf("Albums\n")
	for _, a := range albums {
		c.printf("  [%d] %s - %s\n", a.ID, a.Title, a.Artist)
	}
	c.printf("Playlists\n")
	c.printPlaylists(saved)
	return nil
}

func (c *Console) save(ctx context.Context, args []string) error {
	if err := needArgs(args, 2); err != nil {
		return err
	}
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	switch strings.ToLower(args[0]) {
	case "music":
		err = c.app.Library.AddMusic(ctx, c.user.ID, id)
	case "album":
		err = c.app.Library.AddAlbum(ctx, c.user.ID, id)
	case "playlist":
		err = c.app.Library.AddPlaylist(ctx, c.user.ID, id)
	default:
		return errUsage
	}
	if err != nil {
		return err
	}
	c.printf("saved\n")
	return nil
}

func (c *Console) unsave(ctx context.Context, args []string) error {
	if err := needArgs(args, 2); err != nil {
		return err
	}
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	switch strings.ToLower(args[0]) {
	case "music":
		err = c.app.Library.RemoveMusic(ctx, c.user.ID, id)
	case "album":
		err = c.app.Library.RemoveAlbum(ctx, c.user.ID, id)
	default:
		return errUsage
	}
	if err != nil {
		return err
	}
	c.printf("removed\n")
	return nil
}

func (c *Console) removePlaylist(ctx context.Context, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	if err := c.app.Library.RemovePlaylist(ctx, c.user.ID, strings.Join(args, " ")); err != nil {
		return err
	}
	c.printf("removed\n")
	return nil
}

// Playlists

func (c *Console) playlists(ctx context.Context, args []string) error {
	var (
		list []*models.Playlist
		err  error
	)
	if len(args) > 0 && strings.EqualFold(args[0], "public") {
		list, err = c.app.Playlists.Public(ctx)
	} else {
		list, err = c.app.Playlists.ByCreator(ctx, c.user.ID)
	}
	if err != nil {
		return err
	}
	if len(list) == 0 {
		c.printf("no playlists\n")
	}
	c.printPlaylists(list)
	return nil
}

func (c *Console) playlistShow(ctx context.Context, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	tracks, err := c.app.Playlists.Tracks(ctx, c.user.ID, id)
	if err != nil {
		return err
	}
	c.printMusics(tracks)
	return nil
}

func (c *Console) playlistNew(ctx context.Context, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	public := false
	if len(args) > 1 {
		var err error
		if public, err = parseSwitch(args[1]); err != nil {
			return err
		}
	}
	p, err := c.app.Playlists.Create(ctx, c.user.ID, args[0], public)
	if err != nil {
		return err
	}
	c.printf("playlist [%d] %s created\n", p.ID, p.Name)
	return nil
}

func (c *Console) playlistAdd(ctx context.Context, args []string) error {
	playlistID, musicID, err := idPair(args)
	if err != nil {
		return err
	}
	if err := c.app.Playlists.AddMusic(ctx, c.user.ID, playlistID, musicID); err != nil {
		return err
	}
	c.printf("added\n")
	return nil
}

func (c *Console) playlistDel(ctx context.Context, args []string) error {
	playlistID, musicID, err := idPair(args)
	if err != nil {
		return err
	}
	if err := c.app.Playlists.RemoveMusic(ctx, c.user.ID, playlistID, musicID); err != nil {
		return err
	}
	c.printf("removed\n")
	return nil
}

func (c *Console) playlistVisibility(ctx context.Context, args []string) error {
	if err := needArgs(args, 2); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	public, err := parseSwitch(args[1])
	if err != nil {
		return err
	}
	if err := c.app.Playlists.SetVisibility(ctx, c.user.ID, id, public); err != nil {
		return err
	}
	c.printf("visibility updated\n")
	return nil
}

func (c *Console) genreList(ctx context.Context, args []string) error {
	if err := needArgs(args, 4); err != nil {
		return err
	}
	maxSeconds, err := parseCount(args[2])
	if err != nil {
		return err
	}
	count, err := parseCount(args[3])
	if err != nil {
		return err
	}
	p, err := c.app.Playlists.GenreList(ctx, c.user.ID, args[0], args[1], maxSeconds, count)
	if err != nil {
		return err
	}
	c.printf("playlist [%d] %s created with %d musics\n", p.ID, p.Name, len(p.MusicIDs))
	return nil
}

func (c *Console) favourites(ctx context.Context, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	count, err := parseCount(args[0])
	if err != nil {
		return err
	}
	p, err := c.app.Playlists.Favourites(ctx, c.user.ID, count)
	if err != nil {
		return err
	}
	c.printf("playlist [%d] %s created with %d musics\n", p.ID, p.Name, len(p.MusicIDs))
	return nil
}

// Playback

func (c *Console) play(ctx context.Context, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	kind := strings.ToLower(args[0])
	if kind == "random" {
		size := playback.DefaultRandomSize
		if len(args) > 1 {
			n, err := parseCount(args[1])
			if err != nil {
				return err
			}
			size = n
		}
		return c.report(c.app.Playback.PlayRandom(ctx, c.user.ID, size, c))
	}

	if err := needArgs(args, 2); err != nil {
		return err
	}
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	switch kind {
	case "playlist":
		return c.report(c.app.Playback.PlayPlaylist(ctx, c.user.ID, id, c))
	case "album":
		return c.report(c.app.Playback.PlayAlbum(ctx, c.user.ID, id, c))
	case "music":
		return c.report(c.app.Playback.PlayMusic(ctx, c.user.ID, id, c))
	}
	return errUsage
}

func (c *Console) report(res playback.Result, err error) error {
	if err != nil {
		return err
	}
	c.printf("played %d, skipped %d, hidden %d, +%d points\n", res.Played, res.Skipped, res.Hidden, res.Points)
	return nil
}

func (c *Console) clearHistory(ctx context.Context, _ []string) error {
	if err := c.app.Listening.ClearHistory(ctx, c.user.ID); err != nil {
		return err
	}
	c.printf("listening history cleared\n")
	return nil
}

func (c *Console) stats(ctx context.Context, _ []string) error {
	totals, err := c.app.Stats.Totals(ctx)
	if err != nil {
		return err
	}
	c.printf("users %d, albums %d, musics %d, artists %d, public playlists %d\n",
		totals.Users, totals.Albums, totals.Musics, totals.Artists, totals.PublicPlaylists)

	if m, err := c.app.Stats.MostPlayedMusic(ctx); err == nil {
		c.printf("most played music: %s - %s (%d plays)\n", m.Title, m.Artist, m.PlayCount)
	}
	if r, err := c.app.Stats.MostListenedArtist(ctx); err == nil {
		c.printf("most listened artist: %s (%d plays)\n", r.Value, r.Count)
	}
	if r, err := c.app.Stats.MostPlayedGenre(ctx); err == nil {
		c.printf("most played genre: %s (%d plays)\n", r.Value, r.Count)
	}
	if u, err := c.app.Stats.TopPointsUser(ctx); err == nil {
		c.printf("most points: %s (%d)\n", u.Username, u.Points)
	}
	if r, err := c.app.Stats.MostPlaylistsUser(ctx); err == nil {
		c.printf("most playlists: %s (%d)\n", r.Value.Username, r.Count)
	}
	since := time.Now().AddDate(0, -1, 0)
	if r, err := c.app.Stats.TopListenerSince(ctx, since); err == nil {
		c.printf("top listener this month: %s (%d plays)\n", r.Value.Username, r.Count)
	}
	return nil
}

// Administration

func (c *Console) albumNew(ctx context.Context, args []string) error {
	if err := needArgs(args, 4); err != nil {
		return err
	}
	year, err := parseCount(args[3])
	if err != nil {
		return err
	}
	a, err := c.app.Catalog.CreateAlbum(ctx, catalog.AlbumInput{Title: args[0], Artist: args[1], Label: args[2], Year: year})
	if err != nil {
		return err
	}
	c.printf("album [%d] %s created\n", a.ID, a.Title)
	return nil
}

func (c *Console) musicNew(ctx context.Context, args []string) error {
	if err := needArgs(args, 8); err != nil {
		return err
	}
	albumID, err := parseID(args[0])
	if err != nil {
		return err
	}
	duration, err := parseClock(args[5])
	if err != nil {
		return err
	}
	explicit, err := parseSwitch(args[6])
	if err != nil {
		return err
	}
	multimedia, err := parseSwitch(args[7])
	if err != nil {
		return err
	}

	c.printf("lyrics, one line each, finish with an empty line\n")
	var lyrics []string
	for {
		line, err := c.readLine()
		if err != nil || line == "" {
			break
		}
		lyrics = append(lyrics, line)
	}

	m, err := c.app.Catalog.AddMusic(ctx, albumID, catalog.MusicInput{
		Title:           args[1],
		Artist:          args[2],
		Genre:           args[3],
		Label:           args[4],
		DurationSeconds: duration,
		Lyrics:          lyrics,
		Explicit:        explicit,
		Multimedia:      multimedia,
	})
	if err != nil {
		return err
	}
	c.printf("music [%d] %s added\n", m.ID, m.Title)
	return nil
}

func (c *Console) setExplicit(ctx context.Context, args []string) error {
	return c.toggle(ctx, args, c.app.Catalog.SetExplicit)
}

func (c *Console) setMultimedia(ctx context.Context, args []string) error {
	return c.toggle(ctx, args, c.app.Catalog.SetMultimedia)
}

func (c *Console) toggle(ctx context.Context, args []string, set func(context.Context, int64, bool) (*models.Music, error)) error {
	if err := needArgs(args, 2); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	on, err := parseSwitch(args[1])
	if err != nil {
		return err
	}
	m, err := set(ctx, id, on)
	if err != nil {
		return err
	}
	c.printf("music [%d] %s explicit=%t multimedia=%t\n", m.ID, m.Title, m.Explicit, m.Multimedia)
	return nil
}

func (c *Console) albumRemove(ctx context.Context, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := c.app.Catalog.RemoveAlbum(ctx, id); err != nil {
		return err
	}
	c.printf("album removed\n")
	return nil
}

func (c *Console) musicRemove(ctx context.Context, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := c.app.Catalog.RemoveMusic(ctx, id); err != nil {
		return err
	}
	c.printf("music removed\n")
	return nil
}

func (c *Console) userRemove(ctx context.Context, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	u, err := c.app.Users.ByUsername(ctx, args[0])
	if err != nil {
		return err
	}
	if err := c.app.Users.Delete(ctx, u.ID); err != nil {
		return err
	}
	c.printf("user %s deleted\n", u.Username)
	return nil
}

func (c *Console) makeAdmin(ctx context.Context, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	u, err := c.app.Users.ByUsername(ctx, args[0])
	if err != nil {
		return err
	}
	if err := c.app.Users.SetAdmin(ctx, u.ID, true); err != nil {
		return err
	}
	c.printf("%s is now an administrator\n", u.Username)
	return nil
}

func (c *Console) importCatalog(ctx context.Context, args []string) error {
	if err := needArgs(args, 1); err != nil {
		return err
	}
	report, err := c.app.Importer.ImportFile(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	c.printf("imported %d albums and %d musics, %d skipped\n", report.Albums, report.Musics, report.Skipped)
	return nil
}

func (c *Console) printMusics(musics []*models.Music) {
	for _, m := range musics {
		flags := ""
		if m.Explicit {
			flags += " [E]"
		}
		if m.Multimedia {
			flags += " [MM]"
		}
		c.printf("  [%d] %s - %s (%s, %s)%s\n", m.ID, m.Title, m.Artist, m.Genre, formatDuration(m.DurationSeconds), flags)
	}
}

func (c *Console) printPlaylists(list []*models.Playlist) {
	for _, p := range list {
		visibility := "private"
		if p.IsPublic {
			visibility = "public"
		}
		c.printf("  [%d] %s (%s, %d musics)\n", p.ID, p.Name, visibility, len(p.MusicIDs))
	}
}

func idPair(args []string) (int64, int64, error) {
	if err := needArgs(args, 2); err != nil {
		return 0, 0, err
	}
	first, err := parseID(args[0])
	if err != nil {
		return 0, 0, err
	}
	second, err := parseID(args[1])
	if err != nil {
		return 0, 0, err
	}
	return first, second, nil
}

// parseClock accepts "m:ss" or whole seconds.
func parseClock(raw string) (int, error) {
	minutes, seconds, found := strings.Cut(raw, ":")
	if !found {
		return parseCount(raw)
	}
	m, err := parseCount(minutes)
	if err != nil {
		return 0, err
	}
	s, err := parseCount(seconds)
	if err != nil || s >= 60 {
		return 0, fmt.Errorf("%w: %q is not a duration", errUsage, raw)
	}
	return m*60 + s, nil
}
