// Package playback runs listening sessions over an ordered list of tracks and exposes the
// plan-gated entry points for playlists, albums, random picks and single tracks.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"spotifum/internal/plan"
	"spotifum/shared/go/models"
)

// Command is a transport control typed while a track plays.
type Command int

const (
	CommandNone Command = iota
	CommandPrevious
	CommandNext
	CommandRandom
	CommandQuit
)

var commandAliases = map[string]Command{
	"a":        CommandPrevious,
	"prev":     CommandPrevious,
	"previous": CommandPrevious,
	"p":        CommandNext,
	"n":        CommandNext,
	"next":     CommandNext,
	"r":        CommandRandom,
	"random":   CommandRandom,
	"s":        CommandQuit,
	"q":        CommandQuit,
	"quit":     CommandQuit,
}

// ParseCommand maps a typed line to a Command. Unknown input is CommandNone.
func ParseCommand(line string) Command {
	return commandAliases[strings.ToLower(strings.TrimSpace(line))]
}

func (c Command) String() string {
	switch c {
	case CommandPrevious:
		return "previous"
	case CommandNext:
		return "next"
	case CommandRandom:
		return "random"
	case CommandQuit:
		return "quit"
	default:
		return "none"
	}
}

// StopReason explains why a session ended.
type StopReason string

const (
	StopEndOfList StopReason = "end of list"
	StopQuit      StopReason = "quit"
)

// Commands supplies one command per lyric line. Returning io.EOF ends the session as a quit.
type Commands interface {
	NextCommand(ctx context.Context, lyric string) (Command, error)
}

// Observer is notified as the session progresses.
type Observer interface {
	TrackStarted(current, next *models.Music)
	Restricted(reason string)
	TrackFinished(music *models.Music, points int)
	Stopped(reason StopReason)
}

// Terminal is the interactive side of a session.
type Terminal interface {
	Commands
	Observer
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) TrackStarted(_, _ *models.Music)  {}
func (NopObserver) Restricted(string)                {}
func (NopObserver) TrackFinished(*models.Music, int) {}
func (NopObserver) Stopped(StopReason)               {}

// Recorder registers a fully played track and returns the points awarded.
type Recorder interface {
	RecordPlay(ctx context.Context, userID, musicID int64) (int, error)
}

// Rand picks uniformly in [0, n).
type Rand interface {
	IntN(n int) int
}

// Result summarises a finished session.
type Result struct {
	Played  int
	Hidden  int
	Skipped int
	Points  int
	Reason  StopReason
}

// Session is the playback state machine. It is either playing the track at index or stopped.
type Session struct {
	user     *models.User
	kind     plan.Kind
	tracks   []*models.Music
	index    int
	stopped  bool
	recorder Recorder
	terminal Terminal
	rng      Rand
	result   Result
}

// NewSession prepares a session positioned on the first track. An empty list starts stopped.
func NewSession(user *models.User, tracks []*models.Music, recorder Recorder, terminal Terminal, rng Rand) (*Session, error) {
	if user == nil || recorder == nil || terminal == nil || rng == nil {
		return nil, errors.New("session requires a user, a recorder, a terminal and a random source")
	}
	kind, err := plan.ParseKind(user.Plan)
	if err != nil {
		return nil, err
	}
	return &Session{
		user:     user,
		kind:     kind,
		tracks:   tracks,
		stopped:  len(tracks) == 0,
		recorder: recorder,
		terminal: terminal,
		rng:      rng,
		result:   Result{Reason: StopEndOfList},
	}, nil
}

// Index returns the position of the current track.
func (s *Session) Index() int { return s.index }

// Stopped reports whether the session reached a terminal state.
func (s *Session) Stopped() bool { return s.stopped }

// Run drives the session until the list ends or the user quits.
func (s *Session) Run(ctx context.Context) (Result, error) {
	for !s.stopped {
		if err := ctx.Err(); err != nil {
			return s.result, err
		}
		if err := s.step(ctx); err != nil {
			return s.result, err
		}
	}
	s.terminal.Stopped(s.result.Reason)
	return s.result, nil
}

func (s *Session) step(ctx context.Context) error {
	if s.index >= len(s.tracks) {
		s.stop(StopEndOfList)
		return nil
	}

	current := s.tracks[s.index]
	if current.HiddenFor(s.user) {
		s.result.Hidden++
		s.index++
		return nil
	}

	var next *models.Music
	if s.index+1 < len(s.tracks) {
		next = s.tracks[s.index+1]
	}
	s.terminal.TrackStarted(current, next)

	for _, line := range current.Lyrics {
		cmd, err := s.terminal.NextCommand(ctx, line)
		if errors.Is(err, io.EOF) {
			s.stop(StopQuit)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read command: %w", err)
		}
		if s.apply(cmd) {
			return nil
		}
	}

	points, err := s.recorder.RecordPlay(ctx, s.user.ID, current.ID)
	if err != nil {
		return fmt.Errorf("record play of %d: %w", current.ID, err)
	}
	s.result.Played++
	s.result.Points += points
	s.terminal.TrackFinished(current, points)
	s.index++
	return nil
}

// apply handles a command and reports whether it left the current track.
func (s *Session) apply(cmd Command) bool {
	switch cmd {
	case CommandPrevious:
		if !s.kind.Can(plan.SkipTracks) {
			s.terminal.Restricted(fmt.Sprintf("the %s plan cannot go back", s.kind))
			return false
		}
		if s.index == 0 {
			s.terminal.Restricted("no previous track")
			return false
		}
		s.index--
	case CommandNext:
		s.index++
	case CommandRandom:
		if len(s.tracks) <= 1 {
			return false
		}
		j := s.rng.IntN(len(s.tracks) - 1)
		if j >= s.index {
			j++
		}
		s.index = j
	case CommandQuit:
		s.stop(StopQuit)
	default:
		return false
	}
	if cmd != CommandQuit {
		s.result.Skipped++
	}
	return true
}

func (s *Session) stop(reason StopReason) {
	s.stopped = true
	s.result.Reason = reason
}
