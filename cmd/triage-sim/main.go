package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mr1hm/go-triage-dispatch/internal/config"
	"github.com/mr1hm/go-triage-dispatch/internal/logging"
	"github.com/mr1hm/go-triage-dispatch/internal/simulator"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("simulator starting",
		"target", cfg.Simulator.TargetURL,
		"workers", cfg.Simulator.Workers,
		"critical_rate", cfg.Simulator.CriticalRate)

	gen := simulator.NewGenerator(uint64(time.Now().UnixNano()), cfg.Simulator.CriticalRate)
	poster := simulator.NewPoster(cfg.Simulator.TargetURL, cfg.Simulator.RequestTimeout)
	simulator.New(cfg.Simulator, gen, poster).Run(ctx)

	slog.Info("simulator stopped")
}
