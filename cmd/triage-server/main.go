package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mr1hm/go-triage-dispatch/internal/api"
	"github.com/mr1hm/go-triage-dispatch/internal/config"
	"github.com/mr1hm/go-triage-dispatch/internal/dispatch"
	"github.com/mr1hm/go-triage-dispatch/internal/events"
	internalgrpc "github.com/mr1hm/go-triage-dispatch/internal/grpc"
	"github.com/mr1hm/go-triage-dispatch/internal/hotspot"
	"github.com/mr1hm/go-triage-dispatch/internal/ingestion"
	"github.com/mr1hm/go-triage-dispatch/internal/logging"
	"github.com/mr1hm/go-triage-dispatch/internal/models"
	"github.com/mr1hm/go-triage-dispatch/internal/repository"
	"github.com/mr1hm/go-triage-dispatch/internal/severity"
	"github.com/mr1hm/go-triage-dispatch/internal/stream"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path, cfg.DB.BusyTimeout)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DB.SeedHospitals {
		n, err := db.SeedHospitals(ctx, repository.DefaultHospitals())
		if err != nil {
			logging.Fatalf("Failed to seed hospitals: %v", err)
		}
		if n > 0 {
			slog.Info("seeded hospitals", "count", n)
		}
	}

	hospitals, err := db.ListHospitals(ctx)
	if err != nil {
		logging.Fatalf("Failed to load hospitals: %v", err)
	}
	if len(hospitals) == 0 {
		slog.Warn("no hospitals configured, every victim will be waitlisted")
	}
	directory := dispatch.NewDirectory(hospitals)

	classifier, err := newClassifier(cfg.Classifier)
	if err != nil {
		logging.Fatalf("Failed to load classifier: %v", err)
	}
	gate := severity.NewGate(classifier, cfg.Triage.CriticalThreshold, models.Tier(cfg.Triage.FallbackTier))

	var publisher events.Publisher = events.Nop{}
	if cfg.NATS.URL != "" {
		p, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		if err != nil {
			logging.Fatalf("Failed to connect to NATS: %v", err)
		}
		publisher = p
		slog.Info("publishing events to nats", "url", cfg.NATS.URL, "prefix", cfg.NATS.SubjectPrefix)
	}
	defer publisher.Close()

	broadcaster := stream.NewBroadcaster()

	recomputer := hotspot.NewRecomputer(db, hotspot.Params{
		RadiusMeters: cfg.Hotspot.RadiusMeters,
		BufferMeters: cfg.Hotspot.BufferMeters,
	}, cfg.Hotspot.RecomputeTimeout)
	recomputer.OnSnapshot(broadcaster.Broadcast)
	recomputer.OnSnapshot(func(snap models.ClusterSnapshot) {
		if err := publisher.PublishSnapshot(ctx, snap); err != nil {
			slog.Warn("publishing snapshot failed", "error", err)
		}
	})
	recomputer.Start(ctx)
	// pick up victims left waiting by a previous run
	recomputer.Trigger()

	coordinator := ingestion.NewCoordinator(cfg.Ingest, db, directory, gate, recomputer, publisher)

	grpcServer := internalgrpc.NewServer(db)

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))

	handler := api.NewHandler(db, coordinator, broadcaster)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := grpcServer.Start(fmt.Sprintf(":%d", cfg.GRPC.Port)); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		grpcServer.Watch(gctx, 15*time.Second)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		// Close SSE streams first so Shutdown is not held open by them
		broadcaster.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		grpcServer.Stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}

	recomputer.Stop()
	slog.Info("shutdown complete")
}

func newClassifier(cfg config.ClassifierConfig) (severity.Classifier, error) {
	if cfg.URL != "" {
		slog.Info("using remote classifier", "url", cfg.URL)
		return severity.NewHTTPClassifier(cfg.URL, cfg.Timeout), nil
	}
	model, err := severity.LoadAcuityModel(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	slog.Info("using built-in acuity model", "params_file", cfg.ModelPath)
	return model, nil
}
