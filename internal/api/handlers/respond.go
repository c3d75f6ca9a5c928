package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/isdelr/voicecraft-be/internal/auth"
	"github.com/isdelr/voicecraft-be/internal/services"
	"github.com/isdelr/voicecraft-be/internal/session"
	"github.com/isdelr/voicecraft-be/internal/tts"
	"github.com/rs/zerolog/log"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps err to a status code and writes its message as plain text.
// Internal failures get a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}

	event := log.Warn()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		event = event.Str("username", claims.Username)
	}
	event.Err(err).Int("status", status).Str("path", r.URL.Path).Msg(logMsg)

	http.Error(w, msg, status)
}

func statusFor(err error) int {
	var synthErr *tts.SynthesisError
	switch {
	case errors.Is(err, services.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrIncorrectPassword),
		errors.Is(err, session.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrCurrentPasswordWrong):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrEntryNotFound),
		errors.Is(err, session.ErrConversionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrUnsupportedUpload):
		return http.StatusUnsupportedMediaType
	case services.IsValidationError(err):
		return http.StatusBadRequest
	case errors.As(err, &synthErr),
		errors.Is(err, tts.ErrSynthesisFailed),
		errors.Is(err, tts.ErrRateLimited),
		errors.Is(err, tts.ErrServiceUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// currentSession resolves the session named by the request's token.
func currentSession(r *http.Request, sessions *session.Manager) (*auth.Claims, *session.Session, error) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		return nil, nil, session.ErrSessionNotFound
	}
	sess, err := sessions.Get(claims.SessionID)
	if err != nil {
		return nil, nil, err
	}
	return claims, sess, nil
}

// writeAudio sends audio as a download named after its creation time.
func writeAudio(w http.ResponseWriter, data []byte, mimeType, format string, at time.Time) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `attachment; filename="`+services.AudioFilename(at, format)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func queryLimit(r *http.Request, fallback int) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}
