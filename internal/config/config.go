package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int
	AppEnv       string
	LogLevel     string
	DatabasePath string

	UserStore    string // "json" or "sqlite"
	UserDataFile string // Path of the JSON user store

	JWTSecret  string
	SessionTTL time.Duration

	MaxTextLength       int   // Runes accepted by a single conversion
	MaxUploadBytes      int64 // Upper bound on uploaded file size
	HistoryMaxEntries   int
	HistoryDisplayLimit int

	DefaultEngine string
	TTSTimeout    time.Duration
	GoogleTTSURL  string
	EspeakPath    string

	AllowedOrigins []string

	SessionSweepSchedule string
	EventPruneSchedule   string
	EventRetention       time.Duration
}

// IsProduction reports whether cookies should be issued with the Secure flag.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// Load loads configuration from environment variables or sets defaults.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := getEnvInt("PORT", 8080)
	if err != nil {
		return nil, err
	}
	maxText, err := getEnvInt("MAX_TEXT_LENGTH", 5000)
	if err != nil {
		return nil, err
	}
	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", 1<<20)
	if err != nil {
		return nil, err
	}
	historyMax, err := getEnvInt("HISTORY_MAX_ENTRIES", 100)
	if err != nil {
		return nil, err
	}
	historyDisplay, err := getEnvInt("HISTORY_DISPLAY_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	retentionDays, err := getEnvInt("EVENT_RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := getEnvDuration("SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	ttsTimeout, err := getEnvDuration("TTS_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:           port,
		AppEnv:               getEnv("APP_ENV", "development"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		DatabasePath:         getEnv("DATABASE_PATH", "./voicecraft.db"),
		UserStore:            strings.ToLower(getEnv("USER_STORE", "json")),
		UserDataFile:         getEnv("USER_DATA_FILE", "users.json"),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		SessionTTL:           sessionTTL,
		MaxTextLength:        maxText,
		MaxUploadBytes:       int64(maxUpload),
		HistoryMaxEntries:    historyMax,
		HistoryDisplayLimit:  historyDisplay,
		DefaultEngine:        getEnv("TTS_DEFAULT_ENGINE", "cloud"),
		TTSTimeout:           ttsTimeout,
		GoogleTTSURL:         getEnv("GOOGLE_TTS_URL", "https://translate.google.com/translate_tts"),
		EspeakPath:           getEnv("ESPEAK_PATH", "espeak-ng"),
		AllowedOrigins:       splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		SessionSweepSchedule: getEnv("SESSION_SWEEP_SCHEDULE", "@every 5m"),
		EventPruneSchedule:   getEnv("EVENT_PRUNE_SCHEDULE", "0 3 * * *"),
		EventRetention:       time.Duration(retentionDays) * 24 * time.Hour,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.UserStore {
	case "json", "sqlite":
	default:
		return fmt.Errorf("USER_STORE must be json or sqlite, got %q", c.UserStore)
	}
	if c.MaxTextLength <= 0 {
		return fmt.Errorf("MAX_TEXT_LENGTH must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
