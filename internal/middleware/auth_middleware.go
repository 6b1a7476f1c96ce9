package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"campusnet/internal/auth"
)

// contextKey is a custom type for context values to avoid key collisions.
type contextKey string

// PrincipalKey is the context key the verified principal is stored under.
const PrincipalKey contextKey = "principal"

// Auth verifies the bearer credential, applies the campus access
// policy, and checks the suspension list before letting a request
// through. The verified principal is attached to the request context.
// suspensions may be nil to skip the suspension check.
func Auth(verifier auth.Verifier, policy auth.Policy, suspensions auth.SuspensionList) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				writeAuthError(w, "authorization header must be Bearer {token}", http.StatusUnauthorized)
				return
			}

			principal, err := verifier.Verify(r.Context(), headerParts[1])
			if err != nil {
				writeAuthError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			if err := policy.Check(principal); err != nil {
				writeAuthError(w, err.Error(), http.StatusForbidden)
				return
			}

			if suspensions != nil {
				suspended, err := suspensions.IsSuspended(r.Context(), principal.UID)
				if err != nil {
					// Fail closed: an unreachable suspension list must not
					// let a possibly-suspended account through.
					log.Printf("Error checking suspension list for %s: %v", principal.UID, err)
					writeAuthError(w, "account status unavailable", http.StatusForbidden)
					return
				}
				if suspended {
					writeAuthError(w, "account suspended", http.StatusForbidden)
					return
				}
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipalFromContext returns the verified principal attached by
// the Auth middleware.
func GetPrincipalFromContext(ctx context.Context) (*auth.Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(*auth.Principal)
	return principal, ok
}

// VerifyWebSocketToken authenticates a token passed as a query
// parameter, as browsers cannot set headers on WebSocket handshakes.
func VerifyWebSocketToken(ctx context.Context, verifier auth.Verifier, policy auth.Policy, token string) (*auth.Principal, error) {
	if token == "" {
		return nil, errors.New("missing token")
	}
	principal, err := verifier.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := policy.Check(principal); err != nil {
		return nil, err
	}
	return principal, nil
}

func writeAuthError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
