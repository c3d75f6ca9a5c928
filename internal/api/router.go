package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/voicecraft-be/internal/api/handlers"
	"github.com/isdelr/voicecraft-be/internal/auth"
	"github.com/isdelr/voicecraft-be/internal/services"
	"github.com/isdelr/voicecraft-be/internal/session"
	"github.com/isdelr/voicecraft-be/internal/websocket"
)

// Dependencies holds everything the router wires into handlers.
type Dependencies struct {
	Hub            *websocket.Hub
	Sessions       *session.Manager
	Tokens         *auth.Manager
	Users          services.UserServiceProvider
	Conversions    services.ConversionServiceProvider
	Events         services.EventServiceProvider
	System         services.SystemServiceProvider
	AllowedOrigins []string
	SecureCookies  bool
	MaxUploadBytes int64
	HistoryLimit   int
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(deps.Users, deps.Sessions, deps.Tokens, deps.SecureCookies)
	ttsHandler := handlers.NewTTSHandler(deps.Conversions, deps.Sessions, deps.MaxUploadBytes)
	historyHandler := handlers.NewHistoryHandler(deps.Conversions, deps.Sessions, deps.HistoryLimit)
	eventHandler := handlers.NewEventHandler(deps.Events)
	systemHandler := handlers.NewSystemHandler(deps.System)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Users, deps.AllowedOrigins)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/healthz", systemHandler.Health)
		r.Get("/system/about", systemHandler.About)
		r.Post("/auth/register", userHandler.Register)
		r.Post("/auth/login", userHandler.Login)
		r.Get("/tts/languages", ttsHandler.Languages)
		r.Get("/tts/engines", ttsHandler.Engines)
		r.Get("/tts/sample", ttsHandler.Sample)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Tokens.JWTMiddleware())

			r.Get("/ws", wsHandler.Serve)
			r.Post("/auth/logout", userHandler.Logout)

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", userHandler.GetMe)
				r.Put("/settings", userHandler.UpdateSettings)
			})

			r.Post("/tts", ttsHandler.Convert)
			r.Post("/tts/upload", ttsHandler.Upload)
			r.Get("/tts/{id}/audio", ttsHandler.Audio)

			r.Route("/history", func(r chi.Router) {
				r.Get("/", historyHandler.List)
				r.Post("/", historyHandler.Save)
				r.Delete("/", historyHandler.Clear)
				r.Route("/{id}", func(r chi.Router) {
					r.Delete("/", historyHandler.Delete)
					r.Get("/audio", historyHandler.Audio)
				})
			})

			r.Get("/events", eventHandler.GetRecent)
		})
	})

	return r
}
