package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/StormyOasis/linsta-sub001/internal/bootstrap"
	"github.com/StormyOasis/linsta-sub001/internal/config"
	"github.com/StormyOasis/linsta-sub001/internal/consumer"
	"github.com/StormyOasis/linsta-sub001/internal/outbox"
	"github.com/StormyOasis/linsta-sub001/internal/service"
	pkglog "github.com/StormyOasis/linsta-sub001/pkg/log"
)

// The worker relays outbox events to the bus, runs queued repairs and keeps
// the author fields of indexed posts in step with profile changes.
func main() {
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	logCfg := cfg.Log
	logCfg.ServiceName = "linsta-worker"
	pkglog.Init(logCfg)
	logger := pkglog.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = pkglog.WithLogger(ctx, logger)

	infra, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize backends")
	}
	defer infra.Close(context.Background())

	deps := infra.Deps(cfg)
	opts := service.OptionsFromConfig(cfg)

	// Outbox relay with its repair handlers
	relay := outbox.NewRelay(infra.Outbox, infra.PubSub, infra.Metrics, cfg.Outbox)
	service.RegisterRepairs(relay, deps)
	if open, err := infra.Outbox.OpenRepairs(ctx); err == nil && open > 0 {
		logger.Warn().Int64("open_repairs", open).Msg("repair tasks pending from previous runs")
	}
	relay.Start(ctx)
	logger.Info().Dur("interval", cfg.Outbox.Interval).Msg("outbox relay started")

	// Profile consumer
	profiles := consumer.NewProfileConsumer(infra.PubSub, service.NewAuthorSync(deps, opts))
	if err := profiles.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to start profile consumer")
	}
	logger.Info().Msg("profile consumer started")

	// Health and metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"OK"}`))
	})
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, infra.Metrics.Handler())
	}
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port+1),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("worker health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down linsta-worker")
	profiles.Stop()
	relay.Stop()
	select {
	case <-relay.Done():
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("outbox relay shutdown timed out")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Info().Msg("linsta-worker stopped")
}
