package handlers

import (
	"net/http"

	"github.com/isdelr/voicecraft-be/internal/services"
	"github.com/rs/zerolog/log"
)

// SystemHandler serves health and about information.
type SystemHandler struct {
	service services.SystemServiceProvider
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(service services.SystemServiceProvider) *SystemHandler {
	return &SystemHandler{service: service}
}

// Health reports liveness.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// About describes the application and host.
func (h *SystemHandler) About(w http.ResponseWriter, r *http.Request) {
	about, err := h.service.About(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to gather system info")
		http.Error(w, "Failed to gather system info", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, about)
}
