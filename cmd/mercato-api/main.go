package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mercato/mercato/internal/api"
	"github.com/mercato/mercato/internal/auth"
	"github.com/mercato/mercato/internal/chat"
	"github.com/mercato/mercato/internal/config"
	"github.com/mercato/mercato/internal/llm"
	marketpostgres "github.com/mercato/mercato/internal/market/postgres"
	"github.com/mercato/mercato/internal/observability"
	"github.com/mercato/mercato/internal/query"
	"github.com/mercato/mercato/internal/schema"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("mercato-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := marketpostgres.Open(context.Background(), marketpostgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open market db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	repo := marketpostgres.NewRepository(db)

	// the only fatal failure after startup config: no chat request can be
	// served without the schema card
	buildCtx, cancelBuild := context.WithTimeout(context.Background(), 10*time.Second)
	card, err := schema.Build(buildCtx, db)
	cancelBuild()
	if err != nil {
		logger.Error("failed to build schema card", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("schema card built", slog.Int("tables", len(card.Tables())))

	deps := api.Dependencies{
		Logger:            logger,
		Market:            repo,
		Card:              card,
		Readiness:         repo.HealthCheck,
		DependencyTimeout: time.Second,
		ChatTimeout:       cfg.Chat.RequestTimeout,
	}

	if cfg.Chat.Enabled {
		model, err := llm.NewHTTPClient(llm.Config{
			BaseURL:     cfg.Model.BaseURL,
			Model:       cfg.Model.Name,
			Temperature: cfg.Model.Temperature,
			Timeout:     cfg.Model.Timeout,
		})
		if err != nil {
			logger.Error("failed to initialize model client", slog.Any("error", err))
			os.Exit(1)
		}
		chatService, err := chat.NewService(model, query.NewExecutor(db), card, logger)
		if err != nil {
			logger.Error("failed to initialize chat service", slog.Any("error", err))
			os.Exit(1)
		}
		deps.Chat = chatService
		logger.Info("chat pipeline enabled",
			slog.String("model", cfg.Model.Name),
			slog.String("base_url", cfg.Model.BaseURL))
	} else {
		logger.Info("chat pipeline disabled")
	}

	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	} else {
		logger.Info("auth disabled; requests run with an anonymous identity")
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
