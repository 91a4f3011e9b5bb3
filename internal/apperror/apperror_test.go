// Run with: go test ./internal/apperror/ -v
package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// TABLE-DRIVEN TESTS:
// Each case checks that errors.Is() finds the expected sentinel, including
// through an extra fmt.Errorf("%w") layer the way services wrap errors.
func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{"NotFound wraps ErrNotFound", NotFound("post", 3), ErrNotFound, true},
		{"ValidationFailed wraps ErrValidation", ValidationFailed("title", "required"), ErrValidation, true},
		{"Conflict wraps ErrConflict", Conflict("title", "taken"), ErrConflict, true},
		{"Forbidden wraps ErrForbidden", Forbidden("admins only"), ErrForbidden, true},
		{"DuplicateUser wraps ErrDuplicateUser", DuplicateUser("a@x.com"), ErrDuplicateUser, true},
		{"UnknownUser wraps ErrUnknownUser", UnknownUser("a@x.com"), ErrUnknownUser, true},
		{"BadCredentials wraps ErrBadCredentials", BadCredentials(), ErrBadCredentials, true},
		{"MailTransportFailure wraps ErrMailTransport", MailTransportFailure(errors.New("dial")), ErrMailTransport, true},
		{"wrapped twice still matches", fmt.Errorf("service: %w", NotFound("post", 1)), ErrNotFound, true},
		{"NotFound does NOT match ErrValidation", NotFound("post", 1), ErrValidation, false},
		{"UnknownUser does NOT match ErrBadCredentials", UnknownUser("a@x.com"), ErrBadCredentials, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{"NotFound message includes resource and id", NotFound("post", 42), "post not found with id 42"},
		{"ValidationFailed uses custom message", ValidationFailed("title", "title is required"), "title is required"},
		{"DuplicateUser names the email", DuplicateUser("a@x.com"), "a user with email a@x.com already exists, try logging in"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestMailTransportFailure_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := MailTransportFailure(cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestMessageOf(t *testing.T) {
	if got := MessageOf(fmt.Errorf("x: %w", BadCredentials()), "fallback"); got != "incorrect password" {
		t.Errorf("MessageOf(AppError) = %q", got)
	}
	if got := MessageOf(errors.New("boom"), "fallback"); got != "fallback" {
		t.Errorf("MessageOf(plain) = %q, want fallback", got)
	}
}

func TestFieldIsSet(t *testing.T) {
	if f := BadCredentials().Field; f != "password" {
		t.Errorf("BadCredentials().Field = %q, want %q", f, "password")
	}
	if f := Conflict("title", "taken").Field; f != "title" {
		t.Errorf("Conflict().Field = %q, want %q", f, "title")
	}
}
