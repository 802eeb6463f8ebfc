package photon_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/samirrijal/planpresso/internal/adapters/photon"
)

const pragueResponse = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [14.4212535, 50.0874654]},
     "properties": {"name": "Praha", "state": "Praha", "country": "Česko"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [14.41854, 50.0881]},
     "properties": {"street": "Karlova", "housenumber": "4", "city": "Praha", "country": "Česko"}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": []},
     "properties": {"name": "Broken"}}
  ]
}`

func TestGeocoder_Search(t *testing.T) {
	var gotQuery, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("limit")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(pragueResponse))
	}))
	defer srv.Close()

	g := photon.New(srv.URL+"/api/", 2*time.Second)
	places, err := g.Search(context.Background(), "Praha", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "Praha" || gotLimit != "5" {
		t.Errorf("unexpected query q=%q limit=%q", gotQuery, gotLimit)
	}
	if len(places) != 2 {
		t.Fatalf("expected 2 places, got %d", len(places))
	}

	p := places[0]
	if p.Name != "Praha" || p.Label != "Praha, Česko" {
		t.Errorf("unexpected first place %+v", p)
	}
	if p.Point.Lat != 50.0874654 || p.Point.Lng != 14.4212535 {
		t.Errorf("coordinates swapped: %+v", p.Point)
	}
	if places[1].Name != "Karlova 4" || places[1].Label != "Karlova 4, Praha, Česko" {
		t.Errorf("unexpected street place %+v", places[1])
	}
}

func TestGeocoder_Limit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(pragueResponse))
	}))
	defer srv.Close()

	places, err := photon.New(srv.URL, time.Second).Search(context.Background(), "Praha", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(places) != 1 {
		t.Errorf("expected 1 place, got %d", len(places))
	}
}

func TestGeocoder_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := photon.New(srv.URL, time.Second).Search(context.Background(), "Praha", 5); err == nil {
		t.Fatal("expected an error for a 502 response")
	}
}

func TestGeocoder_Cancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := photon.New(srv.URL, 5*time.Second).Search(ctx, "Praha", 5)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
