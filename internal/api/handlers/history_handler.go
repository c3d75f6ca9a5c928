package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/voicecraft-be/internal/services"
	"github.com/isdelr/voicecraft-be/internal/session"
)

// HistoryHandler handles HTTP requests for the session history.
type HistoryHandler struct {
	service      services.ConversionServiceProvider
	sessions     *session.Manager
	displayLimit int
}

// NewHistoryHandler creates a new HistoryHandler. displayLimit applies when ?limit= is absent.
func NewHistoryHandler(service services.ConversionServiceProvider, sessions *session.Manager, displayLimit int) *HistoryHandler {
	return &HistoryHandler{service: service, sessions: sessions, displayLimit: displayLimit}
}

// List returns the newest history entries.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	_, sess, err := currentSession(r, h.sessions)
	if err != nil {
		writeError(w, r, err, "No active session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": sess.History(queryLimit(r, h.displayLimit)),
		"total":   sess.HistoryLen(),
	})
}

// Save copies a recent conversion into the history.
func (h *HistoryHandler) Save(w http.ResponseWriter, r *http.Request) {
	_, sess, err := currentSession(r, h.sessions)
	if err != nil {
		writeError(w, r, err, "No active session")
		return
	}

	var payload struct {
		ConversionID string `json:"conversionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ConversionID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	entry, err := h.service.SaveToHistory(sess, payload.ConversionID)
	if err != nil {
		writeError(w, r, err, "Failed to save to history")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// Clear removes every history entry.
func (h *HistoryHandler) Clear(w http.ResponseWriter, r *http.Request) {
	_, sess, err := currentSession(r, h.sessions)
	if err != nil {
		writeError(w, r, err, "No active session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": h.service.ClearHistory(sess)})
}

// Delete removes one history entry.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	_, sess, err := currentSession(r, h.sessions)
	if err != nil {
		writeError(w, r, err, "No active session")
		return
	}
	if err := h.service.DeleteHistory(sess, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to delete history entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Audio downloads a history entry's audio.
func (h *HistoryHandler) Audio(w http.ResponseWriter, r *http.Request) {
	_, sess, err := currentSession(r, h.sessions)
	if err != nil {
		writeError(w, r, err, "No active session")
		return
	}
	entry, err := sess.HistoryEntry(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "History entry not found")
		return
	}
	writeAudio(w, entry.Audio, entry.MIMEType, entry.Format, entry.Timestamp)
}
