// Package photon implements place search against a Photon geocoding API.
package photon

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// Geocoder implements ports.Geocoder.
type Geocoder struct {
	url     string
	timeout time.Duration
	client  *fasthttp.Client
}

// New creates a Geocoder for the Photon endpoint at url, e.g.
// https://photon.komoot.io/api/.
func New(url string, timeout time.Duration) *Geocoder {
	return &Geocoder{
		url:     url,
		timeout: timeout,
		client: &fasthttp.Client{
			Name:                "planpresso",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Name        string `json:"name"`
		Street      string `json:"street"`
		HouseNumber string `json:"housenumber"`
		City        string `json:"city"`
		State       string `json:"state"`
		Country     string `json:"country"`
	} `json:"properties"`
}

// Search returns up to limit places matching query.
func (g *Geocoder) Search(ctx context.Context, query string, limit int) ([]domain.Place, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	release := func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}

	req.SetRequestURI(g.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	args := req.URI().QueryArgs()
	args.Add("q", query)
	if limit > 0 {
		args.Add("limit", strconv.Itoa(limit))
	}

	done := make(chan error, 1)
	go func() { done <- g.client.DoTimeout(req, resp, g.timeout) }()

	select {
	case <-ctx.Done():
		// The request still owns req and resp until it returns.
		go func() {
			<-done
			release()
		}()
		return nil, ctx.Err()
	case err := <-done:
		defer release()
		if err != nil {
			return nil, fmt.Errorf("photon request: %w", err)
		}
	}

	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, fmt.Errorf("photon: unexpected status %d", code)
	}

	var fc featureCollection
	if err := json.Unmarshal(resp.Body(), &fc); err != nil {
		return nil, fmt.Errorf("decode photon response: %w", err)
	}

	places := make([]domain.Place, 0, len(fc.Features))
	for _, f := range fc.Features {
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}
		places = append(places, toPlace(f))
		if limit > 0 && len(places) == limit {
			break
		}
	}
	return places, nil
}

func toPlace(f feature) domain.Place {
	p := f.Properties
	name := p.Name
	if name == "" {
		name = strings.TrimSpace(p.Street + " " + p.HouseNumber)
	}
	if name == "" {
		name = p.City
	}

	// Label lists the distinct parts from specific to general.
	var parts []string
	for _, s := range []string{name, p.City, p.State, p.Country} {
		if s == "" {
			continue
		}
		if len(parts) > 0 && parts[len(parts)-1] == s {
			continue
		}
		parts = append(parts, s)
	}

	return domain.Place{
		Name:    name,
		Label:   strings.Join(parts, ", "),
		Country: p.Country,
		// GeoJSON orders coordinates longitude first.
		Point: domain.GeoPoint{Lat: f.Geometry.Coordinates[1], Lng: f.Geometry.Coordinates[0]},
	}
}
