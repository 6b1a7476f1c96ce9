package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"campusnet/internal/docstore"
	"campusnet/internal/middleware"
	"campusnet/internal/services"
)

// UserHandler exposes the caller's own profile document.
type UserHandler struct {
	userService services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(us services.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

// GetMeHandler handles GET /users/me.
func (h *UserHandler) GetMeHandler(w http.ResponseWriter, r *http.Request) {
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

// PatchMeHandler handles PATCH /users/me. The body is a JSON object of
// profile fields; only the allow-listed ones are applied.
func (h *UserHandler) PatchMeHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		writeJSONError(w, "could not resolve principal from context", http.StatusUnauthorized)
		return
	}

	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.userService.UpdateProfile(r.Context(), principal.UID, fields); err != nil {
		if errors.Is(err, services.ErrNoWritableFields) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Error updating profile for %s: %v", principal.UID, err)
		writeJSONError(w, "failed to update profile", http.StatusInternalServerError)
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), principal.UID)
	if err != nil {
		log.Printf("Error reading back profile for %s: %v", principal.UID, err)
		writeJSONError(w, "failed to load profile", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, profile)
}

// DeleteMeHandler handles DELETE /users/me.
func (h *UserHandler) DeleteMeHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		writeJSONError(w, "could not resolve principal from context", http.StatusUnauthorized)
		return
	}

	if err := h.userService.DeleteAccount(r.Context(), principal.UID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeJSONError(w, "profile not found", http.StatusNotFound)
			return
		}
		log.Printf("Error deleting account %s: %v", principal.UID, err)
		writeJSONError(w, "failed to delete account", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}
