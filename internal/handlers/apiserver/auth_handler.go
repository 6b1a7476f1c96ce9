package apiserver

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"campusnet/internal/auth"
	"campusnet/internal/middleware"
	"campusnet/internal/services"
)

// AuthHandler covers the identity-facing endpoints: the session echo
// and the password reset entry point.
type AuthHandler struct {
	userService services.UserService
	identity    auth.Identity
}

// NewAuthHandler creates a new AuthHandler instance. identity may be
// nil in local development.
func NewAuthHandler(userService services.UserService, identity auth.Identity) *AuthHandler {
	return &AuthHandler{userService: userService, identity: identity}
}

// ErrorResponse is the JSON shape of every error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MeHandler handles GET /me. The first authenticated call creates the
// profile with defaults.
func (h *AuthHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		writeJSONError(w, "could not resolve principal from context", http.StatusUnauthorized)
		return
	}

	profile, err := h.userService.GetOrCreateProfile(r.Context(), principal)
	if err != nil {
		log.Printf("Error loading profile for %s: %v", principal.UID, err)
		writeJSONError(w, "failed to load profile", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, profile)
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPasswordHandler handles POST /auth/forgot-password. The
// response is the same whether or not the account exists, so the
// endpoint cannot be used to probe for registered emails.
func (h *AuthHandler) ForgotPasswordHandler(w http.ResponseWriter, r *http.Request) {
	var payload ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	email := strings.TrimSpace(strings.ToLower(payload.Email))
	if email == "" {
		writeJSONError(w, "email is required", http.StatusBadRequest)
		return
	}

	if h.identity != nil {
		if _, err := h.identity.PasswordResetLink(r.Context(), email); err != nil {
			// Do not leak whether the account exists.
			log.Printf("Password reset link generation for %s failed: %v", email, err)
		}
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"message": "If an account exists for that email, a reset link has been sent.",
	})
}

// writeJSONResponse is a helper to send a JSON response.
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already written; nothing left to do.
			return
		}
	}
}

// writeJSONError is a helper to send a JSON error response.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}
