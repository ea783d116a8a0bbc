package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ai-post-manager/internal/api"
	"github.com/ai-post-manager/internal/config"
	"github.com/ai-post-manager/internal/polisher"
	"github.com/ai-post-manager/internal/service"
	"github.com/ai-post-manager/internal/store"
	"github.com/ai-post-manager/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log := logger.New(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Msg("Starting AI Post Manager server...")

	// Initialize post store
	st, closeStore, err := store.Open(context.Background(), cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open post store")
	}
	defer closeStore()
	log.Info().Str("driver", cfg.Store.Driver).Msg("Post store ready")

	// Initialize polisher and services
	p := polisher.NewCLIPolisher(cfg.Generator, log)
	services := service.NewServices(st, p, log)

	// Initialize router
	router := api.NewRouter(services, cfg, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("allowed_origin", cfg.Server.AllowedOrigin).
			Str("generator", cfg.Generator.Command+" run "+cfg.Generator.Model).
			Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
