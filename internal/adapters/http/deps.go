package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/planpresso/internal/adapters/postgres"
	"github.com/samirrijal/planpresso/internal/adapters/valkey"
	"github.com/samirrijal/planpresso/internal/core/ports"
	"github.com/samirrijal/planpresso/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions *usecases.SessionService
	Plans    *usecases.PlanService

	// Geocoder backs /v1/geocode and the WebSocket place search. Search
	// configures both.
	Geocoder   ports.Geocoder
	PlaceCache ports.CacheService
	Search     usecases.PlaceSearchOptions

	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache
}

func (d *Dependencies) placeSearch(deliver func(usecases.SearchResult)) *usecases.PlaceSearch {
	return usecases.NewPlaceSearch(d.Geocoder, d.PlaceCache, d.Search, deliver)
}
