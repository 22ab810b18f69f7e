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

	wssignal "github.com/oakstream/signaling/internal/adapters/signal"
	"github.com/oakstream/signaling/internal/adapters/standalone"
	"github.com/oakstream/signaling/internal/app"
	"github.com/oakstream/signaling/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	rt := app.NewRouter()
	ctl := wssignal.NewController(rt, cfg)
	relay := standalone.New(ctl)

	addr := fmt.Sprintf(":%d", cfg.RelayPort)
	srv := &http.Server{
		Addr:    addr,
		Handler: relay.Handler(ctx),
	}

	go func() {
		log.Info().Str("addr", addr).Msg("standalone signaling relay started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("relay exited gracefully")
}
