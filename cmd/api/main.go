package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chapter-render-service/internal/api"
	"chapter-render-service/internal/config"
	"chapter-render-service/internal/db"
	"chapter-render-service/internal/fetcher"
	"chapter-render-service/internal/services"
	"chapter-render-service/internal/storage"
	"chapter-render-service/internal/tracker"
	"chapter-render-service/internal/worker"
)

func main() {
	log.Println("Starting Chapter Render API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Initialize storage
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket)
	if stor.Configured() {
		log.Println("Initialized Supabase storage")
	} else {
		log.Println("WARNING: Supabase storage not configured — rendered videos stay local")
	}

	// Initialize render services
	ffmpegSvc := services.NewFFmpegService()
	whisperSvc := services.NewWhisperService(cfg.OpenAIKey, cfg.SubtitleLanguage)
	burner := services.NewBurner(ffmpegSvc)
	assets := fetcher.New()

	if cfg.OpenAIKey != "" {
		log.Printf("Whisper subtitles enabled (language: %s)", cfg.SubtitleLanguage)
	} else {
		log.Println("No OPENAI_API_KEY set — videos render without subtitles")
	}

	// Job tracker with background eviction of old terminal jobs
	jobs := tracker.New(cfg.JobRetention)
	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	go jobs.Janitor(janitorCtx, cfg.JobRetention)
	go worker.ScratchJanitor(janitorCtx, cfg.ScratchDir, time.Hour, time.Hour)

	// Render orchestrator behind a fixed-capacity admission gate
	admission := worker.NewAdmission(int64(cfg.MaxConcurrentRenders), cfg.RenderSlotTimeout)
	renderer := worker.New(database, assets, ffmpegSvc, whisperSvc, burner, stor, jobs, admission, cfg.ScratchDir)
	log.Printf("Render capacity: %d concurrent, slot timeout %s", cfg.MaxConcurrentRenders, cfg.RenderSlotTimeout)

	// Create API handler
	handler := api.NewHandler(jobs, renderer)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Stop the janitors; in-flight renders keep their own contexts
	janitorCancel()

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
