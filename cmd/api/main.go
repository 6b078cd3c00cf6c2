package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/trafficmap/internal/adapters/dataset"
	"github.com/samirrijal/trafficmap/internal/adapters/http"
	"github.com/samirrijal/trafficmap/internal/adapters/memory"
	natsadapter "github.com/samirrijal/trafficmap/internal/adapters/nats"
	"github.com/samirrijal/trafficmap/internal/adapters/postgres"
	"github.com/samirrijal/trafficmap/internal/adapters/valkey"
	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/core/ports"
	"github.com/samirrijal/trafficmap/internal/core/usecases"
	"github.com/samirrijal/trafficmap/internal/pkg/config"
	"github.com/samirrijal/trafficmap/internal/pkg/logging"
	"github.com/samirrijal/trafficmap/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("trafficmap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := cfg.Log.Level
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		logLevel = v
	}
	logging.Setup(logLevel, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	var db *postgres.DB
	if cfg.Database.Enabled {
		db, err = postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		go reportPoolMetrics(ctx, db)
	}

	// Valkey: session store and dataset summary cache
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		if cfg.Session.Store == "valkey" {
			log.Fatalf("valkey: %v", err)
		}
		slog.Warn("valkey unavailable, caching disabled", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	var store ports.SessionStore
	switch cfg.Session.Store {
	case "valkey":
		store = valkey.NewSessionStore(cache)
	default:
		store = memory.NewSessionStore()
	}

	// NATS
	var (
		publisher ports.EventPublisher
		natsConn  *nats.Conn
	)
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
			natsConn = pub.Conn()
		}
	}

	// Dataset
	source, err := datasetSource(cfg, db)
	if err != nil {
		log.Fatalf("dataset: %v", err)
	}
	datasetSvc := usecases.NewDatasetService(source, cacheSvc)
	if err := datasetSvc.Load(ctx); err != nil {
		log.Fatalf("dataset: %v", err)
	}

	// Use cases
	sessionSvc := usecases.NewSessionService(datasetSvc, store, publisher, cfg.Session.TTL)
	viewSvc := usecases.NewViewService(
		sessionSvc,
		domain.GeoPoint{Lat: cfg.Map.DefaultCenterLat, Lon: cfg.Map.DefaultCenterLon},
		cfg.Map.DefaultZoom,
	)
	go sweepSessions(ctx, sessionSvc)

	deps := &http.Dependencies{
		Dataset:  datasetSvc,
		Sessions: sessionSvc,
		Views:    viewSvc,
		NATS:     natsConn,
		DB:       db,
		Cache:    cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Traffic Map API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "dataset", source.Describe(), "session_store", cfg.Session.Store)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func datasetSource(cfg *config.Config, db *postgres.DB) (ports.DatasetSource, error) {
	if cfg.Dataset.Source == "postgres" {
		if db == nil {
			return nil, fmt.Errorf("postgres dataset source needs database.enabled")
		}
		return postgres.NewRecordRepo(db), nil
	}
	return dataset.FileSource(cfg.Dataset.Source, cfg.Dataset.Path)
}

func reportPoolMetrics(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			db.ReportPoolMetrics()
		case <-ctx.Done():
			return
		}
	}
}

func sweepSessions(ctx context.Context, svc *usecases.SessionService) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			svc.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}
