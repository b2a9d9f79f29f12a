package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/StormyOasis/linsta-sub001/internal/bootstrap"
	"github.com/StormyOasis/linsta-sub001/internal/cache"
	"github.com/StormyOasis/linsta-sub001/internal/config"
	"github.com/StormyOasis/linsta-sub001/internal/geocode"
	"github.com/StormyOasis/linsta-sub001/internal/handler"
	"github.com/StormyOasis/linsta-sub001/internal/notify"
	"github.com/StormyOasis/linsta-sub001/internal/service"
	"github.com/StormyOasis/linsta-sub001/internal/validate"
	"github.com/StormyOasis/linsta-sub001/pkg/jwt"
	pkglog "github.com/StormyOasis/linsta-sub001/pkg/log"
	"github.com/StormyOasis/linsta-sub001/pkg/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	if err := validate.RegisterGin(); err != nil {
		logger.Fatal().Err(err).Msg("failed to register validators")
	}
	validate.SetReserved(cfg.Account.ReservedNames)

	ctx := context.Background()

	// Connect to Neo4j, Elasticsearch, Redis, storage, the outbox and the bus
	infra, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize backends")
	}
	defer infra.Close(context.Background())

	// Tokens
	tokens, err := jwt.NewManager(cfg.JWT, cache.NewRedisRevocationStore(infra.Redis))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token manager")
	}

	// Account notifications
	var email notify.EmailSender = notify.LogSender{}
	if cfg.Email.Enabled {
		email = notify.NewSMTPSender(cfg.Email)
	}
	var sms notify.SMSSender = notify.LogSender{}
	if cfg.SMS.Enabled {
		sms = notify.NewTwilioSender(cfg.SMS)
	}
	notifier := notify.NewNotifier(email, sms, cfg.Account.ResetURL)

	// Initialize services
	deps := infra.Deps(cfg)
	opts := service.OptionsFromConfig(cfg)
	services := handler.Services{
		Accounts:  service.NewAccountService(deps, opts, tokens, notifier),
		Profiles:  service.NewProfileService(deps, opts),
		Posts:     service.NewPostService(deps, opts),
		Comments:  service.NewCommentService(deps, opts),
		Search:    service.NewSearchService(deps, opts),
		Locations: service.NewLocationService(geocode.NewClient(cfg.Geocode, infra.Redis)),
	}

	authMiddleware := middleware.NewAuthMiddleware(tokens, cfg.Server.PublicPaths)
	httpHandler := handler.NewHandler(services, authMiddleware, cfg.Server.MaxUploadBytes)

	// Setup Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	if cfg.Metrics.Enabled {
		r.Use(infra.Metrics.GinMiddleware())
		r.GET(cfg.Metrics.Path, gin.WrapH(infra.Metrics.Handler()))
	}
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	if cfg.Storage.Driver == "local" {
		r.Static("/media", cfg.Storage.Local.BasePath)
	}

	httpHandler.RegisterRoutes(r)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("linsta-api starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down linsta-api")

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	logger.Info().Msg("linsta-api stopped")
}
