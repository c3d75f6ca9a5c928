package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/voicecraft-be/internal/services"
	"github.com/isdelr/voicecraft-be/internal/session"
	"github.com/rs/zerolog/log"
)

// multipartOverhead leaves room for form boundaries and fields around the file.
const multipartOverhead = 64 << 10

// TTSHandler handles conversion requests.
type TTSHandler struct {
	service        services.ConversionServiceProvider
	sessions       *session.Manager
	maxUploadBytes int64
}

// NewTTSHandler creates a new TTSHandler.
func NewTTSHandler(service services.ConversionServiceProvider, sessions *session.Manager, maxUploadBytes int64) *TTSHandler {
	return &TTSHandler{service: service, sessions: sessions, maxUploadBytes: maxUploadBytes}
}

// Languages lists the supported languages.
func (h *TTSHandler) Languages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Languages())
}

// Engines lists the registered engines and their voices.
func (h *TTSHandler) Engines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Engines())
}

// Sample returns the demonstration text.
func (h *TTSHandler) Sample(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"text":          h.service.SampleText(),
		"maxTextLength": h.service.MaxTextLength(),
	})
}

// Convert synthesizes the submitted text.
func (h *TTSHandler) Convert(w http.ResponseWriter, r *http.Request) {
	_, sess, err := currentSession(r, h.sessions)
	if err != nil {
		writeError(w, r, err, "No active session")
		return
	}

	// Text is capped in runes; four bytes per rune plus room for the other fields.
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.service.MaxTextLength())*4+multipartOverhead)
	var payload services.ConvertInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, services.ErrTextTooLong, "Request body too large")
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.Convert(r.Context(), sess, payload)
	if err != nil {
		writeError(w, r, err, "Conversion failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Upload synthesizes an uploaded plain-text file sent as the multipart field "file".
func (h *TTSHandler) Upload(w http.ResponseWriter, r *http.Request) {
	_, sess, err := currentSession(r, h.sessions)
	if err != nil {
		writeError(w, r, err, "No active session")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, services.ErrUploadTooLarge, "Upload too large")
			return
		}
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	log.Info().Str("username", sess.Username).Str("filename", header.Filename).Int64("size", header.Size).Msg("Received upload")
	res, err := h.service.ConvertUpload(r.Context(), sess, services.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
		Language:    r.FormValue("language"),
		Engine:      r.FormValue("engine"),
		Speed:       r.FormValue("speed"),
		Gender:      r.FormValue("gender"),
	})
	if err != nil {
		writeError(w, r, err, "Upload conversion failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Audio downloads a recent, not necessarily saved, conversion.
func (h *TTSHandler) Audio(w http.ResponseWriter, r *http.Request) {
	_, sess, err := currentSession(r, h.sessions)
	if err != nil {
		writeError(w, r, err, "No active session")
		return
	}

	conv, err := sess.Conversion(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Conversion not found")
		return
	}
	writeAudio(w, conv.Audio, conv.MIMEType, conv.Format, conv.CreatedAt)
}
