package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/voicecraft-be/internal/api"
	"github.com/isdelr/voicecraft-be/internal/auth"
	"github.com/isdelr/voicecraft-be/internal/config"
	"github.com/isdelr/voicecraft-be/internal/database"
	"github.com/isdelr/voicecraft-be/internal/logger"
	"github.com/isdelr/voicecraft-be/internal/monitoring"
	"github.com/isdelr/voicecraft-be/internal/services"
	"github.com/isdelr/voicecraft-be/internal/session"
	"github.com/isdelr/voicecraft-be/internal/store"
	"github.com/isdelr/voicecraft-be/internal/tts"
	"github.com/isdelr/voicecraft-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logger.Init(cfg.LogLevel)

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	users := newUserStore(cfg, db)

	// Speech engines
	registry := tts.NewRegistry()
	registry.Register(tts.NewCloudEngine(tts.WithCloudBaseURL(cfg.GoogleTTSURL)))
	registry.Register(tts.NewLocalEngine(cfg.EspeakPath))
	if err := registry.SetDefault(cfg.DefaultEngine); err != nil {
		log.Fatal().Err(err).Msg("Invalid default TTS engine")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	sessions := session.NewManager(cfg.SessionTTL, cfg.HistoryMaxEntries)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL, sessions)

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(users, eventService)
	conversionService := services.NewConversionService(users, registry, eventService, hub, services.ConversionOptions{
		MaxTextLength:  cfg.MaxTextLength,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Timeout:        cfg.TTSTimeout,
	})
	systemService := services.NewSystemService(func() []string {
		var names []string
		for _, e := range registry.List() {
			names = append(names, e.Name())
		}
		return names
	})

	// Set up and run the background scheduler
	scheduler, err := monitoring.NewScheduler(sessions, eventService, monitoring.Config{
		SessionSweepSchedule: cfg.SessionSweepSchedule,
		EventPruneSchedule:   cfg.EventPruneSchedule,
		EventRetention:       cfg.EventRetention,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure scheduler")
	}
	scheduler.Run()

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Hub:            hub,
		Sessions:       sessions,
		Tokens:         tokens,
		Users:          userService,
		Conversions:    conversionService,
		Events:         eventService,
		System:         systemService,
		AllowedOrigins: cfg.AllowedOrigins,
		SecureCookies:  cfg.IsProduction(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		HistoryLimit:   cfg.HistoryDisplayLimit,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Str("user_store", cfg.UserStore).Str("engine", registry.Default()).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	hub.Stop()

	log.Info().Msg("Server exiting")
}

func newUserStore(cfg *config.Config, db *sql.DB) store.UserStore {
	switch cfg.UserStore {
	case "sqlite":
		return store.NewSQLiteStore(db)
	default:
		return store.NewJSONStore(cfg.UserDataFile)
	}
}
