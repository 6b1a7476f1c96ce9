package auth

import (
	"errors"
	"strings"
)

var (
	// ErrDomainNotAllowed reports a verified email outside the
	// institutional domain.
	ErrDomainNotAllowed = errors.New("institutional email required")

	// ErrEmailNotVerified reports a password-provider account whose
	// email has not been verified yet.
	ErrEmailNotVerified = errors.New("verify your email to continue")
)

// Policy gates verified principals on campus membership. Token
// validity is the verifier's business; this is the product rule layer
// on top of it.
type Policy struct {
	AllowedDomain string
}

// Check returns nil when the principal may use the API.
// Federated providers (e.g. Google SSO on the campus domain) imply a
// verified email; only password sign-ins need the explicit
// email_verified flag.
func (p Policy) Check(principal *Principal) error {
	email := strings.ToLower(principal.Email)
	if !strings.HasSuffix(email, "@"+p.AllowedDomain) {
		return ErrDomainNotAllowed
	}
	if principal.SignInProvider == "password" && !principal.EmailVerified {
		return ErrEmailNotVerified
	}
	return nil
}
