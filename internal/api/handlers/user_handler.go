package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/isdelr/voicecraft-be/internal/auth"
	"github.com/isdelr/voicecraft-be/internal/services"
	"github.com/isdelr/voicecraft-be/internal/session"
	"github.com/rs/zerolog/log"
)

// UserHandler handles HTTP requests for accounts and login sessions.
type UserHandler struct {
	service      services.UserServiceProvider
	sessions     *session.Manager
	tokens       *auth.Manager
	secureCookie bool
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, sessions *session.Manager, tokens *auth.Manager, secureCookie bool) *UserHandler {
	return &UserHandler{service: service, sessions: sessions, tokens: tokens, secureCookie: secureCookie}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles new user registration.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload services.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.service.Register(r.Context(), payload)
	if err != nil {
		writeError(w, r, err, "Failed to register user")
		return
	}

	log.Info().Str("username", user.Username).Msg("User registered")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Account created! Please login.",
		"user":    user,
	})
}

// Login handles user authentication, opens a session and issues its token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.service.Authenticate(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, r, err, "Failed authentication attempt")
		return
	}

	sess := h.sessions.Create(user.Username)
	token, err := h.tokens.GenerateJWT(user.Username, sess.ID)
	if err != nil {
		h.sessions.End(sess.ID)
		log.Error().Err(err).Str("username", user.Username).Msg("Failed to generate JWT")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Expires:  time.Now().Add(h.tokens.TTL()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	log.Info().Str("username", user.Username).Str("session_id", sess.ID).Msg("User logged in")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":     token,
		"expiresAt": sess.ExpiresAt,
		"user":      user,
	})
}

// Logout ends the caller's session. Its token stops working immediately.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusUnauthorized)
		return
	}

	h.sessions.End(claims.SessionID)
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	log.Info().Str("username", claims.Username).Str("session_id", claims.SessionID).Msg("User logged out")
	w.WriteHeader(http.StatusNoContent)
}

// GetMe retrieves the currently authenticated user from the token.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	user, err := h.service.GetUser(r.Context(), claims.Username)
	if err != nil {
		writeError(w, r, err, "User from token not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateSettings changes the display name and, optionally, the password.
func (h *UserHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		http.Error(w, "Could not retrieve user from token", http.StatusUnauthorized)
		return
	}

	var payload services.SettingsInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.service.UpdateSettings(r.Context(), claims.Username, payload)
	if err != nil {
		writeError(w, r, err, "Failed to update settings")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Settings updated!",
		"user":    user,
	})
}
