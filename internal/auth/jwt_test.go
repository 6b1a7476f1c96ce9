package auth

import (
	"context"
	"testing"
	"time"

	"campusnet/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func devAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Mode:          "jwt",
		JWTSecretKey:  "test-secret",
		JWTExpiry:     time.Hour,
		AllowedDomain: "umass.edu",
	}
}

func TestGenerateAndVerifyToken(t *testing.T) {
	cfg := devAuthConfig()
	principal := &Principal{
		UID:            "u1",
		Email:          "ada@umass.edu",
		EmailVerified:  true,
		Name:           "Ada",
		SignInProvider: "password",
	}

	token, err := GenerateToken(principal, cfg)
	require.NoError(t, err)

	verified, err := NewJWTVerifier(cfg.JWTSecretKey).Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", verified.UID)
	assert.Equal(t, "ada@umass.edu", verified.Email)
	assert.True(t, verified.EmailVerified)
	assert.Equal(t, "Ada", verified.Name)
	assert.Equal(t, "password", verified.SignInProvider)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	cfg := devAuthConfig()
	token, err := GenerateToken(&Principal{UID: "u1", Email: "ada@umass.edu"}, cfg)
	require.NoError(t, err)

	_, err = NewJWTVerifier("other-secret").Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	cfg := devAuthConfig()
	cfg.JWTExpiry = -time.Minute
	token, err := GenerateToken(&Principal{UID: "u1", Email: "ada@umass.edu"}, cfg)
	require.NoError(t, err)

	_, err = NewJWTVerifier(cfg.JWTSecretKey).Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewJWTVerifier("test-secret").Verify(context.Background(), "not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
