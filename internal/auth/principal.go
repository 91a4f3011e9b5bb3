package auth

import (
	"context"

	"github.com/sakif/blog/internal/model"
)

// Principal is the identity associated with the current request: either a
// loaded User or anonymous (the zero value).
type Principal struct {
	User *model.User
}

// Anonymous is the principal of a request without a valid session.
var Anonymous = Principal{}

// Authenticated reports whether a user is signed in.
func (p Principal) Authenticated() bool {
	return p.User != nil
}

// ID returns the user id, or 0 for the anonymous principal.
func (p Principal) ID() int64 {
	if p.User == nil {
		return 0
	}
	return p.User.ID
}

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so nothing else can read
// or shadow the principal stored in a context.
type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the principal stored in ctx, or Anonymous.
func PrincipalFrom(ctx context.Context) Principal {
	p, ok := ctx.Value(principalKey).(Principal)
	if !ok {
		return Anonymous
	}
	return p
}
