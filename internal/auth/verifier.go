package auth

import (
	"context"
	"errors"
)

// Principal is the verified identity attached to a request. Its
// contents are taken from the identity provider's token and trusted
// unconditionally; policy checks happen on top of it.
type Principal struct {
	UID            string
	Email          string
	EmailVerified  bool
	Name           string
	Picture        string
	SignInProvider string
	Roles          []string
}

// ErrInvalidToken reports a bearer credential the verifier rejected.
var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier validates a bearer credential and returns the verified
// principal. Implementations: Firebase Admin SDK (production) and
// HS256 JWT (development and tests).
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// Identity exposes the administrative operations the backend performs
// against the identity provider. It is nil-safe to omit in local
// development, where no managed provider exists.
type Identity interface {
	DeleteUser(ctx context.Context, uid string) error
	SetRoleClaims(ctx context.Context, uid string, roles []string) error
	UIDByEmail(ctx context.Context, email string) (string, error)
	PasswordResetLink(ctx context.Context, email string) (string, error)
}
