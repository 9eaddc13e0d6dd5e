package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/solocast/solocast/internal/adapters/http"
	wssignal "github.com/solocast/solocast/internal/adapters/signal"
	"github.com/solocast/solocast/internal/app"
	"github.com/solocast/solocast/internal/config"
	"github.com/solocast/solocast/internal/media"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	engine, err := media.NewRouter(media.Config{
		AnnouncedIP: cfg.AnnouncedIP,
		MinPort:     cfg.RTCMinPort,
		MaxPort:     cfg.RTCMaxPort,
		TCPPort:     cfg.RTCTCPPort,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("media engine init failed")
	}

	// The fixed producers must exist before the first connection is accepted;
	// failure here aborts startup.
	mediaCtx, err := app.Bootstrap(ctx, engine, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("producer bootstrap failed")
	}

	registry := app.NewRegistry()
	ctl := wssignal.NewController(mediaCtx, registry, cfg)

	r := router.SetupRouter(ctx, cfg, ctl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Solocast server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	registry.CloseAll()
	if err := engine.Close(); err != nil {
		log.Error().Err(err).Msg("media engine close")
	}
	log.Info().Msg("Server exited gracefully")
}
