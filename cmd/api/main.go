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

	"github.com/samirrijal/planpresso/internal/adapters/http"
	"github.com/samirrijal/planpresso/internal/adapters/memory"
	natsadapter "github.com/samirrijal/planpresso/internal/adapters/nats"
	"github.com/samirrijal/planpresso/internal/adapters/photon"
	"github.com/samirrijal/planpresso/internal/adapters/postgres"
	"github.com/samirrijal/planpresso/internal/adapters/sqlite"
	"github.com/samirrijal/planpresso/internal/adapters/valkey"
	"github.com/samirrijal/planpresso/internal/core/ports"
	"github.com/samirrijal/planpresso/internal/core/usecases"
	"github.com/samirrijal/planpresso/internal/pkg/config"
	"github.com/samirrijal/planpresso/internal/pkg/logging"
	"github.com/samirrijal/planpresso/internal/pkg/metrics"
	"github.com/samirrijal/planpresso/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("planpresso-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), postgres.Options{MaxConns: cfg.Database.MaxConns, MaxConnIdleTime: 5 * time.Minute})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go reportPoolStats(ctx, db)

	// Optional collaborators stay nil interfaces when unavailable.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, "planpresso:")
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	drafts, closeDrafts := openDrafts(ctx, cfg, cache)
	defer closeDrafts()

	var (
		renderer ports.PlanRenderer
		events   ports.EventPublisher
	)
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		renderer, events = pub, pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
		natsConn = nil
	}

	planRepo := postgres.NewPlanRepo(db)
	planSvc := usecases.NewPlanService(planRepo, cacheSvc, cfg.Editor.WarnDistanceKm)
	sessionSvc := usecases.NewSessionService(drafts, planRepo, renderer, events, usecases.SessionOptions{
		SyncDelay:      cfg.Editor.SyncDelay(),
		HistoryLimit:   cfg.Editor.HistoryLimit,
		WarnDistanceKm: cfg.Editor.WarnDistanceKm,
		IdleTimeout:    cfg.Editor.SessionIdle(),
	})
	if cfg.Editor.SessionIdle() > 0 {
		go sessionSvc.RunJanitor(ctx, time.Minute)
	}

	if pub != nil {
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			slog.Warn("render subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			if err := sub.SubscribeRenderRequests(ctx, planSvc.RenderSaved); err != nil {
				slog.Warn("subscribe render requests", "error", err)
			}
		}
	}

	deps := &http.Dependencies{
		Sessions: sessionSvc,
		Plans:    planSvc,
		Search: usecases.PlaceSearchOptions{
			Delay:    cfg.Geocoder.Debounce(),
			MinQuery: cfg.Geocoder.MinQuery,
			Limit:    cfg.Geocoder.Limit,
		},
		PlaceCache: cacheSvc,
		NATS:       natsConn,
		DB:         db,
		Cache:      cache,
	}
	if cfg.Geocoder.URL != "" {
		deps.Geocoder = photon.New(cfg.Geocoder.URL, cfg.Geocoder.Timeout())
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Planpresso API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + http.OwnerHeader,
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "drafts", cfg.Drafts.Backend)
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

	// Pending edits are written as drafts before the stores close.
	sessionSvc.Shutdown()

	slog.Info("server stopped")
}

// openDrafts builds the configured draft store. Without Valkey the valkey
// backend degrades to process memory.
func openDrafts(ctx context.Context, cfg *config.Config, cache *valkey.Cache) (ports.DraftStore, func()) {
	switch cfg.Drafts.Backend {
	case config.DraftsSQLite:
		db, err := sqlite.Open(cfg.Drafts.SQLitePath)
		if err != nil {
			log.Fatalf("drafts sqlite: %v", err)
		}
		store := sqlite.NewDraftStore(db, cfg.Drafts.TTL())
		go purgeDrafts(ctx, store)
		return store, func() { _ = db.Close() }
	case config.DraftsValkey:
		if cache != nil {
			return valkey.NewDraftStore(cache, cfg.Drafts.TTL()), func() {}
		}
		slog.Warn("valkey unavailable, keeping drafts in memory")
	}
	return memory.NewDraftStore(), func() {}
}

func purgeDrafts(ctx context.Context, store *sqlite.DraftStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Purge(ctx)
			if err != nil {
				slog.Warn("purge expired drafts", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged expired drafts", "count", n)
			}
		}
	}
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
