package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"book_replay/internal/app"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := defaultConfigPath
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// 1. System Bootstrapping
	bootstrap := app.NewBootstrap(configPath)
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		return 1
	}
	defer bootstrap.Close()

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Replay until end of feed or signal
	if err := bootstrap.Replay(ctx); err != nil {
		slog.Error("❌ Replay failed", slog.Any("error", err))
		return 1
	}

	slog.Info("👋 Shutting down gracefully...")
	return 0
}
