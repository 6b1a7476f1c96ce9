package auth

import (
	"context"
	"time"
)

// SuspensionList is the moderation deny list consulted by the auth
// middleware. A suspended uid is rejected regardless of token
// validity, so moderators can lock an account out without waiting for
// its tokens to expire.
type SuspensionList interface {
	// Suspend adds uid to the list until the given time.
	Suspend(ctx context.Context, uid string, until time.Time) error
	// IsSuspended checks whether uid is currently on the list.
	IsSuspended(ctx context.Context, uid string) (bool, error)
}
