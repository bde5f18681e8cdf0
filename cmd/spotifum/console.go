package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"spotifum/internal/app"
	"spotifum/internal/app/playback"
	"spotifum/internal/app/playlists"
	"spotifum/internal/app/search"
	"spotifum/internal/app/stats"
	"spotifum/internal/importer"
	"spotifum/internal/plan"
	"spotifum/internal/store"
	"spotifum/shared/go/logging"
	"spotifum/shared/go/models"
)

var (
	errUsage       = errors.New("wrong arguments")
	errLoginNeeded = errors.New("login required")
	errAdminOnly   = errors.New("administrators only")
)

// recoverableErrors are the conditions a user can fix by typing a different command.
var recoverableErrors = []error{
	errUsage,
	errLoginNeeded,
	errAdminOnly,
	store.ErrNameAlreadyUsed,
	store.ErrAlbumNotFound,
	store.ErrMusicNotFound,
	store.ErrPlaylistNotFound,
	store.ErrUserNotFound,
	store.ErrMusicAlreadySaved,
	store.ErrAlbumAlreadySaved,
	store.ErrPlaylistAlreadySaved,
	store.ErrInvalidParams,
	store.ErrInvalidLogin,
	plan.ErrNoPermissions,
	plan.ErrInvalidPlanKind,
	playlists.ErrTooFewMusics,
	search.ErrUnknownCategory,
	stats.ErrNoData,
	importer.ErrMalformed,
}

func recoverable(err error) bool {
	for _, target := range recoverableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type command struct {
	name  string
	usage string
	auth  bool
	admin bool
	run   func(ctx context.Context, args []string) error
}

// Console is the line oriented front end. It also acts as the playback terminal, so lyrics are
// printed and transport commands read from the same input.
type Console struct {
	app    *app.App
	in     *bufio.Scanner
	out    io.Writer
	logger *logging.Logger

	sessionID string
	token     string
	user      *models.User

	commands []command
	byName   map[string]command
}

// NewConsole returns a Console reading commands from in.
func NewConsole(a *app.App, in io.Reader, out io.Writer, logger *logging.Logger) *Console {
	c := &Console{
		app:       a,
		in:        bufio.NewScanner(in),
		out:       out,
		logger:    logger,
		sessionID: uuid.NewString(),
	}
	c.commands = c.commandTable()
	c.byName = make(map[string]command, len(c.commands))
	for _, cmd := range c.commands {
		c.byName[cmd.name] = cmd
	}
	return c
}

// Run reads and executes commands until quit or end of input.
func (c *Console) Run(ctx context.Context) error {
	c.printf("SpotifUM. Type help for the list of commands.\n")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.prompt()
		line, err := c.readLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read command: %w", err)
		}

		name, args := splitCommand(line)
		switch name {
		case "":
			continue
		case "quit", "exit":
			c.printf("bye\n")
			return nil
		}
		c.execute(ctx, name, args)
	}
}

func (c *Console) execute(ctx context.Context, name string, args []string) {
	cmd, ok := c.byName[name]
	if !ok {
		c.printf("unknown command %q, type help\n", name)
		return
	}

	ctx = logging.ContextWithSession(ctx, c.sessionID)
	start := time.Now()
	err := c.dispatch(ctx, cmd, args)
	if c.user != nil {
		ctx = logging.ContextWithUser(ctx, c.user.ID)
	}
	c.logger.Command(ctx, name, time.Since(start), err, recoverable(err))

	if err == nil {
		return
	}
	c.printf("error: %v\n", err)
	if errors.Is(err, errUsage) {
		c.printf("usage: %s %s\n", cmd.name, cmd.usage)
	}
}

func (c *Console) dispatch(ctx context.Context, cmd command, args []string) error {
	if cmd.auth || cmd.admin {
		if err := c.refreshUser(ctx); err != nil {
			return err
		}
	}
	if cmd.admin && !c.user.IsAdmin {
		return errAdminOnly
	}
	return cmd.run(ctx, args)
}

// refreshUser re-validates the session token so plan changes and deletions are observed.
func (c *Console) refreshUser(ctx context.Context) error {
	if c.token == "" {
		return errLoginNeeded
	}
	u, err := c.app.Users.Authenticate(ctx, c.token)
	if err != nil {
		c.logout()
		return fmt.Errorf("%w: %v", errLoginNeeded, err)
	}
	c.user = u
	return nil
}

// viewer is the account whose content preferences filter listings. Anonymous visitors get the
// defaults of a new account.
func (c *Console) viewer() *models.User {
	if c.user == nil {
		return &models.User{}
	}
	return c.user
}

func (c *Console) logout() {
	c.token = ""
	c.user = nil
}

func (c *Console) prompt() {
	if c.user != nil {
		c.printf("%s@spotifum> ", c.user.Username)
		return
	}
	c.printf("spotifum> ")
}

func (c *Console) readLine() (string, error) {
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// TrackStarted prints the track header and the transport controls.
func (c *Console) TrackStarted(current, next *models.Music) {
	c.printf("\n>> %s - %s [%s]\n", current.Title, current.Artist, formatDuration(current.DurationSeconds))
	if next != nil {
		c.printf("   next: %s - %s\n", next.Title, next.Artist)
	}
	c.printf("   [a] previous  [p] next  [r] random  [s] stop, enter keeps playing\n")
}

// NextCommand prints one lyric line and reads the command typed after it.
func (c *Console) NextCommand(ctx context.Context, lyric string) (playback.Command, error) {
	if err := ctx.Err(); err != nil {
		return playback.CommandNone, err
	}
	c.printf("   %s\n", lyric)
	line, err := c.readLine()
	if err != nil {
		return playback.CommandNone, err
	}
	return playback.ParseCommand(line), nil
}

// Restricted explains a refused command.
func (c *Console) Restricted(reason string) {
	c.printf("   ! %s\n", reason)
}

// TrackFinished reports points earned for a track.
func (c *Console) TrackFinished(m *models.Music, points int) {
	if points > 0 {
		c.printf("   +%d points for %s\n", points, m.Title)
	}
}

// Stopped reports the end of a session.
func (c *Console) Stopped(reason playback.StopReason) {
	c.printf("playback stopped: %s\n", reason)
}

// splitCommand separates the command name from its arguments. Arguments are separated by "|"
// when the line has one, by whitespace otherwise.
func splitCommand(line string) (string, []string) {
	name, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	name = strings.ToLower(name)
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return name, nil
	}
	if !strings.Contains(rest, "|") {
		return name, strings.Fields(rest)
	}
	parts := strings.Split(rest, "|")
	args := make([]string, 0, len(parts))
	for _, p := range parts {
		args = append(args, strings.TrimSpace(p))
	}
	return name, args
}

func needArgs(args []string, n int) error {
	if len(args) < n {
		return errUsage
	}
	return nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q is not an id", errUsage, raw)
	}
	return id, nil
}

func parseCount(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, raw)
	}
	return n, nil
}

func parseSwitch(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "on", "true", "public":
		return true, nil
	case "no", "n", "off", "false", "private":
		return false, nil
	}
	return false, fmt.Errorf("%w: expected yes or no, got %q", errUsage, raw)
}

func formatDuration(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
