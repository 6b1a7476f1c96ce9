package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyAllowsCampusAccount(t *testing.T) {
	policy := Policy{AllowedDomain: "umass.edu"}

	err := policy.Check(&Principal{
		Email:          "Ada@UMass.edu",
		SignInProvider: "google.com",
	})
	assert.NoError(t, err)
}

func TestPolicyRejectsForeignDomain(t *testing.T) {
	policy := Policy{AllowedDomain: "umass.edu"}

	err := policy.Check(&Principal{Email: "ada@gmail.com", EmailVerified: true})
	assert.ErrorIs(t, err, ErrDomainNotAllowed)
}

func TestPolicyRejectsLookalikeDomain(t *testing.T) {
	policy := Policy{AllowedDomain: "umass.edu"}

	err := policy.Check(&Principal{Email: "ada@notumass.edu.evil.com", EmailVerified: true})
	assert.ErrorIs(t, err, ErrDomainNotAllowed)
}

func TestPolicyRequiresVerifiedEmailForPasswordSignIn(t *testing.T) {
	policy := Policy{AllowedDomain: "umass.edu"}

	err := policy.Check(&Principal{
		Email:          "ada@umass.edu",
		SignInProvider: "password",
		EmailVerified:  false,
	})
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	err = policy.Check(&Principal{
		Email:          "ada@umass.edu",
		SignInProvider: "password",
		EmailVerified:  true,
	})
	assert.NoError(t, err)
}
