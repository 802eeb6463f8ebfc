package usecases_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/usecases"
	"github.com/samirrijal/planpresso/internal/pkg/clock"
)

type resultLog struct {
	mu      sync.Mutex
	results []usecases.SearchResult
}

func (l *resultLog) add(r usecases.SearchResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, r)
}

func (l *resultLog) all() []usecases.SearchResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]usecases.SearchResult(nil), l.results...)
}

func TestPlaceSearch_DebouncesInput(t *testing.T) {
	c := clock.Fake(t0)
	var queries []string
	g := &mockGeocoder{searchFn: func(ctx context.Context, q string, limit int) ([]domain.Place, error) {
		queries = append(queries, q)
		if limit != 5 {
			t.Errorf("expected default limit 5, got %d", limit)
		}
		return []domain.Place{{Name: "Praha", Point: domain.GeoPoint{Lat: 50.08, Lng: 14.43}}}, nil
	}}
	log := &resultLog{}
	ps := usecases.NewPlaceSearch(g, nil, usecases.PlaceSearchOptions{Clock: c}, log.add)

	ps.Query("Pr")
	c.Advance(100 * time.Millisecond)
	ps.Query("Pra")
	c.Advance(100 * time.Millisecond)
	ps.Query("Prah")
	c.Advance(299 * time.Millisecond)
	if len(queries) != 0 {
		t.Fatalf("lookup ran before the debounce elapsed: %v", queries)
	}

	c.Advance(time.Millisecond)
	if len(queries) != 1 || queries[0] != "Prah" {
		t.Fatalf("expected one lookup for the latest input, got %v", queries)
	}
	got := log.all()
	if len(got) != 1 || got[0].Query != "Prah" || len(got[0].Places) != 1 {
		t.Errorf("unexpected results %+v", got)
	}
}

func TestPlaceSearch_ShortQueryClearsResults(t *testing.T) {
	c := clock.Fake(t0)
	g := &mockGeocoder{searchFn: func(ctx context.Context, q string, limit int) ([]domain.Place, error) {
		t.Errorf("geocoder must not be called, got %q", q)
		return nil, nil
	}}
	log := &resultLog{}
	ps := usecases.NewPlaceSearch(g, nil, usecases.PlaceSearchOptions{Clock: c}, log.add)

	ps.Query("Prague")
	ps.Query(" P ")
	c.Advance(time.Second)

	got := log.all()
	if len(got) != 1 {
		t.Fatalf("expected a single clearing result, got %+v", got)
	}
	if got[0].Places == nil || len(got[0].Places) != 0 {
		t.Errorf("expected empty non-nil places, got %+v", got[0].Places)
	}
}

func TestPlaceSearch_NewerQueryCancelsInflight(t *testing.T) {
	c := clock.Fake(t0)
	started := make(chan string, 2)
	g := &mockGeocoder{searchFn: func(ctx context.Context, q string, limit int) ([]domain.Place, error) {
		started <- q
		if q == "Brno" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []domain.Place{{Name: q}}, nil
	}}
	log := &resultLog{}
	ps := usecases.NewPlaceSearch(g, nil, usecases.PlaceSearchOptions{Clock: c}, log.add)

	ps.Query("Brno")
	done := make(chan struct{})
	go func() {
		c.Advance(300 * time.Millisecond)
		close(done)
	}()
	if q := <-started; q != "Brno" {
		t.Fatalf("expected Brno lookup first, got %q", q)
	}

	ps.Query("Ostrava")
	<-done
	c.Advance(300 * time.Millisecond)

	got := log.all()
	if len(got) != 1 || got[0].Query != "Ostrava" {
		t.Fatalf("expected only the Ostrava result, got %+v", got)
	}
}

func TestPlaceSearch_LookupUsesCache(t *testing.T) {
	calls := 0
	g := &mockGeocoder{searchFn: func(ctx context.Context, q string, limit int) ([]domain.Place, error) {
		calls++
		return []domain.Place{{Name: "Karlštejn"}}, nil
	}}
	ps := usecases.NewPlaceSearch(g, newMockCache(), usecases.PlaceSearchOptions{Limit: 3}, nil)

	for _, q := range []string{"Karlstejn", "karlstejn "} {
		places, err := ps.Lookup(context.Background(), q)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(places) != 1 {
			t.Errorf("expected 1 place, got %d", len(places))
		}
	}
	if calls != 1 {
		t.Errorf("expected a single upstream call, got %d", calls)
	}
}

func TestPlaceSearch_CloseStopsDelivery(t *testing.T) {
	c := clock.Fake(t0)
	g := &mockGeocoder{searchFn: func(ctx context.Context, q string, limit int) ([]domain.Place, error) {
		return []domain.Place{{Name: q}}, nil
	}}
	log := &resultLog{}
	ps := usecases.NewPlaceSearch(g, nil, usecases.PlaceSearchOptions{Clock: c}, log.add)

	ps.Query("Plzen")
	ps.Close()
	c.Advance(time.Second)
	ps.Query("Olomouc")
	c.Advance(time.Second)

	if got := log.all(); len(got) != 0 {
		t.Errorf("expected no results after close, got %+v", got)
	}
}
