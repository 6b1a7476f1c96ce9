package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"campusnet/internal/middleware"
	"campusnet/internal/models"
	"campusnet/internal/services"
)

// EventHandler handles campus event submission.
type EventHandler struct {
	eventService services.EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(es services.EventService) *EventHandler {
	return &EventHandler{eventService: es}
}

// CreateEventHandler handles POST /events. Submitted events enter the
// moderation queue as pending_review.
func (h *EventHandler) CreateEventHandler(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.GetPrincipalFromContext(r.Context())
	if !ok {
		writeJSONError(w, "could not resolve principal from context", http.StatusUnauthorized)
		return
	}

	var event models.CampusEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(event.Title) == "" {
		writeJSONError(w, "title is required", http.StatusBadRequest)
		return
	}
	if event.Start.IsZero() {
		writeJSONError(w, "start time is required", http.StatusBadRequest)
		return
	}
	event.CreatedBy = principal.UID

	id, err := h.eventService.CreateEvent(r.Context(), &event)
	if err != nil {
		if errors.Is(err, services.ErrInvalidEventTime) {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("Error creating event for %s: %v", principal.UID, err)
		writeJSONError(w, "failed to create event", http.StatusInternalServerError)
		return
	}

	writeJSONResponse(w, http.StatusCreated, map[string]string{
		"id":      id,
		"message": "event submitted for review",
	})
}
