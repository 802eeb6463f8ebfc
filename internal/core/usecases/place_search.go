package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/ports"
	"github.com/samirrijal/planpresso/internal/pkg/clock"
	"github.com/samirrijal/planpresso/internal/pkg/debounce"
	"github.com/samirrijal/planpresso/internal/pkg/metrics"
)

// Geocoder lookup defaults.
const (
	DefaultSearchDelay = 300 * time.Millisecond
	DefaultMinQuery    = 2
	DefaultSearchLimit = 5

	placeCacheTTL = 3600
)

// PlaceSearchOptions configure a PlaceSearch. Zero values pick the defaults.
type PlaceSearchOptions struct {
	Delay    time.Duration
	MinQuery int
	Limit    int
	Clock    clock.Clock
	Logger   *slog.Logger
}

// SearchResult is delivered for every query that was not superseded.
// A query below the minimum length delivers an empty result at once.
type SearchResult struct {
	Query  string         `json:"query"`
	Places []domain.Place `json:"places"`
	Err    error          `json:"-"`
}

// PlaceSearch runs geocoder lookups for a search box. Input is debounced, a
// newer query cancels the lookup in flight, and a response that arrives
// after a newer query was typed is dropped.
type PlaceSearch struct {
	geocoder ports.Geocoder
	cache    ports.CacheService
	opts     PlaceSearchOptions
	deliver  func(SearchResult)
	debounce *debounce.Debouncer

	mu       sync.Mutex
	seq      uint64
	inflight context.CancelFunc
	closed   bool
}

// NewPlaceSearch creates a PlaceSearch delivering results to deliver, which
// may run on a timer goroutine. cache may be nil.
func NewPlaceSearch(g ports.Geocoder, cache ports.CacheService, opts PlaceSearchOptions, deliver func(SearchResult)) *PlaceSearch {
	if opts.Delay <= 0 {
		opts.Delay = DefaultSearchDelay
	}
	if opts.MinQuery <= 0 {
		opts.MinQuery = DefaultMinQuery
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if deliver == nil {
		deliver = func(SearchResult) {}
	}
	return &PlaceSearch{
		geocoder: g,
		cache:    cache,
		opts:     opts,
		deliver:  deliver,
		debounce: debounce.New(opts.Clock, opts.Delay),
	}
}

// Query records new search box input.
func (s *PlaceSearch) Query(q string) {
	q = strings.TrimSpace(q)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.seq++
	seq := s.seq
	s.cancelInflightLocked()
	s.mu.Unlock()

	if utf8.RuneCountInString(q) < s.opts.MinQuery {
		s.debounce.Cancel()
		s.deliver(SearchResult{Query: q, Places: []domain.Place{}})
		return
	}
	s.debounce.Schedule(func() { s.run(seq, q) })
}

func (s *PlaceSearch) cancelInflightLocked() {
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
}

func (s *PlaceSearch) run(seq uint64, q string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.inflight = cancel
	s.mu.Unlock()

	places, err := s.Lookup(ctx, q)

	s.mu.Lock()
	stale := s.closed || seq != s.seq
	if !stale {
		s.inflight = nil
	}
	s.mu.Unlock()

	if stale {
		metrics.GeocoderRequests.WithLabelValues("stale").Inc()
		return
	}
	if err != nil {
		s.opts.Logger.Warn("place search failed", "query", q, "error", err)
	}
	s.deliver(SearchResult{Query: q, Places: places, Err: err})
}

// Lookup queries the geocoder directly, without debouncing.
func (s *PlaceSearch) Lookup(ctx context.Context, q string) ([]domain.Place, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < s.opts.MinQuery {
		return []domain.Place{}, nil
	}

	cacheKey := fmt.Sprintf("places:%d:%s", s.opts.Limit, strings.ToLower(q))
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var places []domain.Place
			if err := json.Unmarshal(data, &places); err == nil {
				metrics.CacheHits.WithLabelValues("places").Inc()
				return places, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("places").Inc()
	}

	start := time.Now()
	places, err := s.geocoder.Search(ctx, q, s.opts.Limit)
	metrics.GeocoderDuration.Observe(time.Since(start).Seconds())
	switch {
	case errors.Is(err, context.Canceled):
		metrics.GeocoderRequests.WithLabelValues("cancelled").Inc()
		return nil, err
	case err != nil:
		metrics.GeocoderRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("geocode %q: %w", q, err)
	}
	metrics.GeocoderRequests.WithLabelValues("ok").Inc()

	if places == nil {
		places = []domain.Place{}
	}
	if s.cache != nil {
		if data, err := json.Marshal(places); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, placeCacheTTL)
		}
	}
	return places, nil
}

// Close cancels the pending and in-flight lookups. Nothing is delivered
// afterwards.
func (s *PlaceSearch) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancelInflightLocked()
	s.mu.Unlock()
	s.debounce.Cancel()
}
