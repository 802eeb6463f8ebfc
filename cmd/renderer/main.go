package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/samirrijal/planpresso/internal/adapters/nats"
	"github.com/samirrijal/planpresso/internal/adapters/valkey"
	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/usecases"
	"github.com/samirrijal/planpresso/internal/pkg/config"
	"github.com/samirrijal/planpresso/internal/pkg/logging"
	"github.com/samirrijal/planpresso/internal/pkg/telemetry"
)

// The renderer consumes the render queue fed by plan saves and caches the
// map view of every saved plan in Valkey. It joins the same queue group as
// the API, so any number of renderers can run side by side.
func main() {
	cfg, err := config.Load("planpresso-renderer")
	if err != nil {
		log.Fatalf("config: %v", err)
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

	// A renderer without a cache would do the work and throw it away.
	cache, err := valkey.New(cfg.Valkey.Addr, "planpresso:")
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	plans := usecases.NewPlanService(nil, cache, cfg.Editor.WarnDistanceKm)
	render := func(ctx context.Context, sp *domain.SavedPlan) error {
		start := time.Now()
		if err := plans.RenderSaved(ctx, sp); err != nil {
			slog.Warn("render failed", "plan_id", sp.ID, "error", err)
			return err
		}
		slog.Debug("rendered map view", "plan_id", sp.ID, "stops", len(sp.Plan.Stops), "took", time.Since(start))
		return nil
	}
	if err := sub.SubscribeRenderRequests(ctx, render); err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("renderer started", "queue", natsadapter.RenderQueue)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("received signal, shutting down renderer", "signal", sig.String())
	cancel()
}
