package apiserver

import (
	"errors"
	"log"
	"net/http"

	"campusnet/internal/docstore"
	"campusnet/internal/middleware"
	"campusnet/internal/models"
	"campusnet/internal/services"

	"github.com/gorilla/mux"
)

// FriendHandler exposes the friend graph engine over HTTP.
type FriendHandler struct {
	friendService services.FriendService
}

// NewFriendHandler creates a new FriendHandler.
func NewFriendHandler(fs services.FriendService) *FriendHandler {
	return &FriendHandler{friendService: fs}
}

// RegisterRoutes mounts the friend endpoints on the given subrouter.
func (h *FriendHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListFriendsHandler).Methods(http.MethodGet)
	r.HandleFunc("/requests", h.ListRequestsHandler).Methods(http.MethodGet)
	r.HandleFunc("/requests/{toUid}", h.SendRequestHandler).Methods(http.MethodPost)
	r.HandleFunc("/requests/{fromUid}/accept", h.AcceptRequestHandler).Methods(http.MethodPost)
	r.HandleFunc("/requests/{fromUid}/decline", h.DeclineRequestHandler).Methods(http.MethodPost)
	r.HandleFunc("/search", h.SearchHandler).Methods(http.MethodGet)
	r.HandleFunc("/status/{otherUid}", h.StatusHandler).Methods(http.MethodGet)
	r.HandleFunc("/{friendUid}", h.UnfriendHandler).Methods(http.MethodDelete)
}

// ListFriendsHandler handles GET /friends.
func (h *FriendHandler) ListFriendsHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		writeJSONError(w, "could not resolve principal from context", http.StatusUnauthorized)
		return
	}

	friends, err := h.friendService.ListFriends(r.Context(), principal.UID)
	if err != nil {
		log.Printf("Error listing friends for %s: %v", principal.UID, err)
		writeJSONError(w, "failed to list friends", http.StatusInternalServerError)
		return
	}
	if friends == nil {
		friends = []models.FriendSummary{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"friends": friends})
}

// ListRequestsHandler handles GET /friends/requests.
func (h *FriendHandler) ListRequestsHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		writeJSONError(w, "could not resolve principal from context", http.StatusUnauthorized)
		return
	}

	requests, err := h.friendService.ListRequests(r.Context(), principal.UID)
	if err != nil {
		log.Printf("Error listing friend requests for %s: %v", principal.UID, err)
		writeJSONError(w, "failed to list friend requests", http.StatusInternalServerError)
		return
	}
	if requests == nil {
		requests = []models.FriendRequest{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"requests": requests})
}

// SendRequestHandler handles POST /friends/requests/{toUid}.
func (h *FriendHandler) SendRequestHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		writeJSONError(w, "could not resolve principal from context", http.StatusUnauthorized)
		return
	}
	toUID := mux.Vars(r)["toUid"]

	if err := h.friendService.SendRequest(r.Context(), principal.UID, toUID); err != nil {
		h.writeFriendError(w, err, "Error sending friend request from %s to %s: %v", principal.UID, toUID)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// AcceptRequestHandler handles POST /friends/requests/{fromUid}/accept.
func (h *FriendHandler) AcceptRequestHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		writeJSONError(w, "could not resolve principal from context", http.StatusUnauthorized)
		return
	}
	fromUID := mux.Vars(r)["fromUid"]

	if err := h.friendService.AcceptRequest(r.Context(), principal.UID, fromUID); err != nil {
		h.writeFriendError(w, err, "Error accepting friend request from %s by %s: %v", fromUID, principal.UID)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// DeclineRequestHandler handles POST /friends/requests/{fromUid}/decline.
func (h *FriendHandler) DeclineRequestHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		writeJSONError(w, "could not resolve principal from context", http.StatusUnauthorized)
		return
	}
	fromUID := mux.Vars(r)["fromUid"]

	if err := h.friendService.DeclineRequest(r.Context(), principal.UID, fromUID); err != nil {
		h.writeFriendError(w, err, "Error declining friend request from %s by %s: %v", fromUID, principal.UID)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// UnfriendHandler handles DELETE /friends/{friendUid}.
func (h *FriendHandler) UnfriendHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		writeJSONError(w, "could not resolve principal from context", http.StatusUnauthorized)
		return
	}
	friendUID := mux.Vars(r)["friendUid"]

	if err := h.friendService.Unfriend(r.Context(), principal.UID, friendUID); err != nil {
		h.writeFriendError(w, err, "Error unfriending %s by %s: %v", friendUID, principal.UID)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// SearchHandler handles GET /friends/search?q=.
func (h *FriendHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		writeJSONError(w, "could not resolve principal from context", http.StatusUnauthorized)
		return
	}
	query := r.URL.Query().Get("q")

	results, err := h.friendService.Search(r.Context(), principal.UID, query)
	if err != nil {
		log.Printf("Error searching users for %s: %v", principal.UID, err)
		writeJSONError(w, "failed to search users", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"results": results})
}

// StatusHandler handles GET /friends/status/{otherUid}.
func (h *FriendHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		writeJSONError(w, "could not resolve principal from context", http.StatusUnauthorized)
		return
	}
	otherUID := mux.Vars(r)["otherUid"]

	status, err := h.friendService.Status(r.Context(), principal.UID, otherUID)
	if err != nil {
		log.Printf("Error reading friend status between %s and %s: %v", principal.UID, otherUID, err)
		writeJSONError(w, "failed to read friend status", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, status)
}

// writeFriendError maps graph engine errors onto HTTP statuses.
// Transaction aborts and unknown-outcome commits surface as 409 so
// clients know the operation is safe to retry.
func (h *FriendHandler) writeFriendError(w http.ResponseWriter, err error, logFormat string, logArgs ...any) {
	switch {
	case errors.Is(err, services.ErrSelfTarget):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrRecipientNotFound), errors.Is(err, services.ErrRequestNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, docstore.ErrAborted), errors.Is(err, docstore.ErrUnknown):
		writeJSONError(w, "operation conflicted, please retry", http.StatusConflict)
	default:
		log.Printf(logFormat, append(logArgs, err)...)
		writeJSONError(w, "friend operation failed", http.StatusInternalServerError)
	}
}
