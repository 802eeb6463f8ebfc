package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/samirrijal/planpresso/internal/adapters/photon"
	"github.com/samirrijal/planpresso/internal/cli"
	"github.com/samirrijal/planpresso/internal/core/usecases"
	"github.com/samirrijal/planpresso/internal/pkg/config"
	"github.com/samirrijal/planpresso/internal/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("plankit")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.Log.Level, "text"))

	app := &cli.App{
		Plans:      usecases.NewPlanService(nil, nil, cfg.Editor.WarnDistanceKm),
		DraftsPath: cfg.Drafts.SQLitePath,
		DraftsTTL:  cfg.Drafts.TTL(),
	}
	if cfg.Geocoder.URL != "" {
		app.Search = usecases.NewPlaceSearch(photon.New(cfg.Geocoder.URL, cfg.Geocoder.Timeout()), nil,
			usecases.PlaceSearchOptions{MinQuery: cfg.Geocoder.MinQuery, Limit: cfg.Geocoder.Limit}, nil)
	}

	return cli.NewRootCmd(app).Execute()
}
