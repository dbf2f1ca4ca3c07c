package main

import (
	"context"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"

	"prayer-times-ics/internal/config"
	"prayer-times-ics/internal/generator"
	"prayer-times-ics/internal/logger"
	"prayer-times-ics/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Setup("info", false)
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Setup(cfg.LogLevel, false)

	ctx := context.Background()

	// Server requests fall back to the Firestore archive when AWQAF is unreachable.
	g, closeFn, err := generator.FromConfig(ctx, cfg, generator.SetupOptions{ArchiveFallback: true})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize generator")
	}
	defer closeFn()

	handler := web.New(g, cfg.RunTimeout)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	log.Info().
		Str("port", cfg.Port).
		Str("cache_dir", cfg.CacheDir).
		Bool("archive", cfg.FirestoreProject != "").
		Msg("server starting")

	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		log.Error().Err(err).Msg("server stopped")
		closeFn()
		os.Exit(1)
	}
}
