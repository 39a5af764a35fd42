package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Supabase (remote storage — optional; renders stay local when unset)
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// OpenAI (used for Whisper subtitle transcription — optional; captions are
	// skipped when unset)
	OpenAIKey        string
	SubtitleLanguage string

	// Render
	ScratchDir           string
	MaxConcurrentRenders int           // Full-chapter renders allowed in flight at once
	RenderSlotTimeout    time.Duration // How long a render waits for a slot before failing
	JobRetention         time.Duration // How long completed/failed jobs stay pollable
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:               getEnv("API_PORT", "8080"),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "chapter-videos"),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		SubtitleLanguage:      getEnv("SUBTITLE_LANGUAGE", "en"),
		ScratchDir:            getEnv("SCRATCH_DIR", "/tmp/chapter-render"),
		MaxConcurrentRenders:  getEnvInt("MAX_CONCURRENT_RENDERS", 2),
		RenderSlotTimeout:     getEnvDuration("RENDER_SLOT_TIMEOUT_SECONDS", 300*time.Second),
		JobRetention:          getEnvDuration("JOB_RETENTION_SECONDS", time.Hour),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.MaxConcurrentRenders < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_RENDERS must be at least 1")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		secs, err := strconv.Atoi(value)
		if err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
