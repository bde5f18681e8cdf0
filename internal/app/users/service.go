// Package users covers accounts: signup, login sessions, plan changes, preferences and
// account deletion.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"spotifum/internal/plan"
	"spotifum/internal/store"
	"spotifum/shared/go/auth"
	"spotifum/shared/go/models"
)

// Store describes the persistence operations required by the user service.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id int64) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
	ListPlaylists(ctx context.Context, filter store.PlaylistFilter) ([]*models.Playlist, error)
	ClearHistory(ctx context.Context, userID int64) error
}

// PlaylistRemover deletes a playlist from every library that holds it.
type PlaylistRemover interface {
	DeletePlaylist(ctx context.Context, playlistID int64) error
}

// Tokens issues and validates session tokens.
type Tokens interface {
	Issue(userID int64, username string) (string, error)
	Parse(token string) (int64, *auth.Claims, error)
}

// SignupInput carries the fields of a new account.
type SignupInput struct {
	Username        string
	Password        string
	Name            string
	Email           string
	Address         string
	BirthDate       time.Time
	WantsExplicit   bool
	WantsMultimedia bool
}

// Session is the result of a successful login.
type Session struct {
	Token string
	User  *models.User
}

// Service exposes user-related workflows.
type Service interface {
	Signup(ctx context.Context, in SignupInput) (*models.User, error)
	Login(ctx context.Context, username, password string) (*Session, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
	Get(ctx context.Context, userID int64) (*models.User, error)
	ByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	ChangePlan(ctx context.Context, userID int64, kind string) (*models.User, error)
	SetPreferences(ctx context.Context, userID int64, wantsExplicit, wantsMultimedia bool) error
	SetAdmin(ctx context.Context, userID int64, admin bool) error
	Delete(ctx context.Context, userID int64) error
}

type service struct {
	store     Store
	playlists PlaylistRemover
	tokens    Tokens
}

// New wires a Service backed by the provided Store.
func New(store Store, playlists PlaylistRemover, tokens Tokens) Service {
	return &service{store: store, playlists: playlists, tokens: tokens}
}

func (s *service) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Password == "" || in.Email == "" {
		return nil, fmt.Errorf("%w: username, password and email are required", store.ErrInvalidParams)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, fmt.Errorf("%w: malformed email", store.ErrInvalidParams)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:        in.Username,
		PasswordHash:    hash,
		Name:            strings.TrimSpace(in.Name),
		Email:           in.Email,
		Address:         strings.TrimSpace(in.Address),
		BirthDate:       in.BirthDate,
		WantsExplicit:   in.WantsExplicit,
		WantsMultimedia: in.WantsMultimedia,
		Plan:            plan.Free.String(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

func (s *service) Login(ctx context.Context, username, password string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	user, err := s.store.UserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrUserNotFound) {
		auth.BurnPasswordCheck(password)
		return nil, store.ErrInvalidLogin
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Warn().Str("username", user.Username).Msg("failed login attempt")
		return nil, store.ErrInvalidLogin
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

func (s *service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	userID, _, err := s.tokens.Parse(token)
	if err != nil {
		return nil, store.ErrInvalidLogin
	}
	user, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, store.ErrInvalidLogin
	}
	return user, err
}

func (s *service) Get(ctx context.Context, userID int64) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.UserByID(ctx, userID)
}

func (s *service) ByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.UserByUsername(ctx, strings.TrimSpace(username))
}

func (s *service) List(ctx context.Context) ([]*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx)
}

// ChangePlan switches the user's tier, crediting the upgrade bonus when entering premium.
func (s *service) ChangePlan(ctx context.Context, userID int64, raw string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind, err := plan.ParseKind(raw)
	if err != nil {
		return nil, err
	}

	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous, _ := plan.ParseKind(user.Plan)
	if previous == kind {
		return user, nil
	}

	user.Plan = kind.String()
	if kind == plan.Premium {
		user.Points += plan.UpgradeBonus
	}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}

	log.Info().
		Int64("user_id", userID).
		Str("from", string(previous)).
		Str("to", kind.String()).
		Int("points", user.Points).
		Msg("plan changed")
	return user, nil
}

func (s *service) SetPreferences(ctx context.Context, userID int64, wantsExplicit, wantsMultimedia bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	user.WantsExplicit = wantsExplicit
	user.WantsMultimedia = wantsMultimedia
	return s.store.UpdateUser(ctx, user)
}

func (s *service) SetAdmin(ctx context.Context, userID int64, admin bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	user, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	user.IsAdmin = admin
	return s.store.UpdateUser(ctx, user)
}

// Delete removes the account together with the playlists it created and its history.
func (s *service) Delete(ctx context.Context, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.store.UserByID(ctx, userID); err != nil {
		return err
	}

	created, err := s.store.ListPlaylists(ctx, store.PlaylistFilter{CreatorID: userID})
	if err != nil {
		return fmt.Errorf("list playlists: %w", err)
	}
	for _, p := range created {
		if err := s.playlists.DeletePlaylist(ctx, p.ID); err != nil {
			return fmt.Errorf("delete playlist %d: %w", p.ID, err)
		}
	}
	if err := s.store.ClearHistory(ctx, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	log.Info().Int64("user_id", userID).Int("playlists", len(created)).Msg("user deleted")
	return nil
}
