package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mercato/mercato/internal/sim"
)

func main() {
	_ = godotenv.Load()

	cfg, err := sim.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load simulator config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	service, err := sim.NewService(cfg, logger, nil)
	if err != nil {
		logger.Error("failed to initialize simulator", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(
		"market simulator started",
		slog.String("api_url", cfg.APIBaseURL),
		slog.Int("clubs", cfg.Clubs),
		slog.Int("squad_size", cfg.SquadSize),
		slog.Duration("interval", cfg.Interval),
		slog.Bool("ask_questions", cfg.AskQuestions),
		slog.Int64("seed", cfg.Seed),
	)

	err = service.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("market simulator stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("market simulator stopped")
}
