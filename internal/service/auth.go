// Package service holds the blog's business logic.
//
// Handlers translate HTTP into calls on these services and translate the
// returned apperror kinds back into pages, redirects and flashes:
//
//	Handler (HTTP) → AuthService / BlogService / ContactService → repository (DB)
//	                                                           ↘ mail.Sender (SMTP)
//
// Services take primitives and domain types, never *http.Request, and never
// set cookies. That keeps them testable with in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

// AuthService handles registration, login and GitHub sign-in.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → issue session JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger               → structured logging
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the signed-in user and the session token so the handler
// can set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SessionTTL is how long an issued token (and therefore the cookie) lives.
func (s *AuthService) SessionTTL() time.Duration {
	return s.tokens.TTL()
}

// Register creates a user and signs them in.
//
// Returns apperror.ErrDuplicateUser if the email is taken; no row is written
// in that case.
func (s *AuthService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)

	switch {
	case email == "":
		return nil, apperror.ValidationFailed("email", "email is required")
	case password == "":
		return nil, apperror.ValidationFailed("password", "password is required")
	case len(password) > maxPasswordBytes:
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", maxPasswordBytes))
	case name == "":
		return nil, apperror.ValidationFailed("name", "name is required")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: hash, Name: name}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrDuplicateUser) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: registering %s: %w", email, err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("email", user.Email),
	)
	return s.issue(user)
}

// Login verifies the credentials and signs the user in.
//
// Returns apperror.ErrUnknownUser when nobody registered with email and
// apperror.ErrBadCredentials when the password does not match.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrUnknownUser) {
			return nil, err
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			// A stored hash we cannot read is still a failed login for the user.
			s.logger.Warn("unreadable password hash",
				slog.Int64("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.BadCredentials()
	}

	s.logger.Info("user logged in", slog.Int64("userID", user.ID))
	return s.issue(user)
}

// LoginWithGitHub signs in the user whose email matches the GitHub account,
// creating the account on first sign-in. The new account gets the GitHub
// display name and an unusable random password.
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}
	if gh.Email == "" {
		return nil, apperror.ValidationFailed("email",
			"your GitHub account has no verified email, please register instead")
	}

	user, err := s.users.GetUserByEmail(ctx, gh.Email)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrUnknownUser):
		hash, err := s.passwords.HashRandom()
		if err != nil {
			return nil, fmt.Errorf("service/auth: %w", err)
		}
		user = &model.User{Email: gh.Email, PasswordHash: hash, Name: gh.DisplayName()}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("service/auth: creating GitHub user %s: %w", gh.Login, err)
		}
		s.logger.Info("user registered via GitHub",
			slog.Int64("userID", user.ID),
			slog.String("login", gh.Login),
		)
	default:
		return nil, fmt.Errorf("service/auth: looking up %s: %w", gh.Email, err)
	}

	s.logger.Info("user authenticated via GitHub", slog.Int64("userID", user.ID))
	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %d: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
