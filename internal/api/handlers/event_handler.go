package handlers

import (
	"net/http"

	"github.com/isdelr/voicecraft-be/internal/auth"
	"github.com/isdelr/voicecraft-be/internal/services"
	"github.com/rs/zerolog/log"
)

const defaultEventLimit = 20

// EventHandler handles HTTP requests related to activity events.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent returns the caller's recent activity.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusUnauthorized)
		return
	}

	events, err := h.service.GetRecentEvents(claims.Username, queryLimit(r, defaultEventLimit))
	if err != nil {
		log.Error().Err(err).Str("username", claims.Username).Msg("Failed to retrieve events")
		http.Error(w, "Failed to retrieve events", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
