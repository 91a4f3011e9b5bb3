package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/model"
)

// newTestAuthService returns an AuthService wired with fake dependencies.
func newTestAuthService(t *testing.T, store *fakeStore) (*AuthService, *auth.TokenService) {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is the bcrypt minimum and keeps tests fast.
	ps := auth.NewPasswordServiceWithCost(bcrypt.MinCost)

	return NewAuthService(store, ts, ps, discardLogger()), ts
}

// =========================================================================
// Register
// =========================================================================

func TestRegister_CreatesUserAndIssuesToken(t *testing.T) {
	store := newFakeStore()
	svc, ts := newTestAuthService(t, store)

	result, err := svc.Register(context.Background(), " ann@x.com ", "hunter2", "Ann")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if result.User.ID == 0 {
		t.Error("User.ID should be set after insert")
	}
	if result.User.Email != "ann@x.com" {
		t.Errorf("User.Email = %q, want trimmed %q", result.User.Email, "ann@x.com")
	}
	if result.User.PasswordHash == "hunter2" {
		t.Error("password must be stored hashed")
	}

	userID, err := ts.Validate(result.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if userID != result.User.ID {
		t.Errorf("token subject = %d, want %d", userID, result.User.ID)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ann@x.com", "pw", "Ann"); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	_, err := svc.Register(ctx, "ann@x.com", "other", "Imposter")
	if !errors.Is(err, apperror.ErrDuplicateUser) {
		t.Fatalf("second Register() error = %v, want ErrDuplicateUser", err)
	}
	if len(store.users) != 1 {
		t.Errorf("users = %d, want 1", len(store.users))
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeStore())

	long := make([]byte, 73)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name                  string
		email, password, user string
		wantField             string
	}{
		{"missing email", "", "pw", "Ann", "email"},
		{"missing password", "a@x.com", "", "Ann", "password"},
		{"password too long", "a@x.com", string(long), "Ann", "password"},
		{"missing name", "a@x.com", "pw", "  ", "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.email, tt.password, tt.user)

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Register() error = %v, want validation error", err)
			}
			if appErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.wantField)
			}
		})
	}
}

// =========================================================================
// Login
// =========================================================================

func TestLogin(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "ann@x.com", "correct horse", "Ann")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"correct credentials", "ann@x.com", "correct horse", nil},
		{"wrong password", "ann@x.com", "battery staple", apperror.ErrBadCredentials},
		{"unknown email", "bob@x.com", "correct horse", apperror.ErrUnknownUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Login(ctx, tt.email, tt.password)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
				}
				if result != nil {
					t.Error("a failed login must not issue a token")
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if result.User.ID != registered.User.ID || result.Token == "" {
				t.Errorf("Login() = %+v, want user %d with a token", result.User, registered.User.ID)
			}
		})
	}
}

func TestLogin_UnreadableHashIsBadCredentials(t *testing.T) {
	store := newFakeStore()
	store.users[1] = &model.User{ID: 1, Email: "old@x.com", PasswordHash: "pbkdf2:sha256:260000$salt$hash", Name: "Old"}
	store.nextID = 1
	svc, _ := newTestAuthService(t, store)

	_, err := svc.Login(context.Background(), "old@x.com", "whatever")
	if !errors.Is(err, apperror.ErrBadCredentials) {
		t.Errorf("Login() error = %v, want ErrBadCredentials", err)
	}
}

func TestLogin_StoreFailureIsWrapped(t *testing.T) {
	store := newFakeStore()
	store.failWith = errDB
	svc, _ := newTestAuthService(t, store)

	_, err := svc.Login(context.Background(), "ann@x.com", "pw")
	if !errors.Is(err, errDB) {
		t.Errorf("Login() error = %v, want wrapped errDB", err)
	}
}

// =========================================================================
// LoginWithGitHub
// =========================================================================

func TestLoginWithGitHub_CreatesThenReuses(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	ctx := context.Background()
	gh := &auth.GitHubUser{ID: 42, Login: "octocat", Email: "octo@github.com"}

	first, err := svc.LoginWithGitHub(ctx, gh)
	if err != nil {
		t.Fatalf("first LoginWithGitHub() error = %v", err)
	}
	if first.User.Name != "octocat" {
		t.Errorf("Name = %q, want the GitHub login", first.User.Name)
	}

	second, err := svc.LoginWithGitHub(ctx, gh)
	if err != nil {
		t.Fatalf("second LoginWithGitHub() error = %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Errorf("second sign-in created user %d, want existing %d", second.User.ID, first.User.ID)
	}
	if len(store.users) != 1 {
		t.Errorf("users = %d, want 1", len(store.users))
	}

	// The random password must not be guessable as empty.
	if _, err := svc.Login(ctx, "octo@github.com", ""); !errors.Is(err, apperror.ErrBadCredentials) {
		t.Errorf("password login for a GitHub account: error = %v, want ErrBadCredentials", err)
	}
}

func TestLoginWithGitHub_LinksExistingAccountByEmail(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestAuthService(t, store)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "octo@github.com", "pw", "Octo")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	result, err := svc.LoginWithGitHub(ctx, &auth.GitHubUser{ID: 42, Login: "octocat", Email: "octo@github.com"})
	if err != nil {
		t.Fatalf("LoginWithGitHub() error = %v", err)
	}
	if result.User.ID != registered.User.ID || result.User.Name != "Octo" {
		t.Errorf("LoginWithGitHub() user = %+v, want the registered account", result.User)
	}
}

func TestLoginWithGitHub_NoEmail(t *testing.T) {
	svc, _ := newTestAuthService(t, newFakeStore())

	_, err := svc.LoginWithGitHub(context.Background(), &auth.GitHubUser{ID: 42, Login: "ghost"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("LoginWithGitHub() error = %v, want ErrValidation", err)
	}

	if _, err := svc.LoginWithGitHub(context.Background(), nil); err == nil {
		t.Error("LoginWithGitHub(nil) should fail")
	}
}
