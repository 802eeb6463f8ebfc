package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/editor"
	"github.com/samirrijal/planpresso/internal/core/ports"
	"github.com/samirrijal/planpresso/internal/core/validation"
	"github.com/samirrijal/planpresso/internal/pkg/geospatial"
	"github.com/samirrijal/planpresso/internal/pkg/markdown"
	"github.com/samirrijal/planpresso/internal/pkg/metrics"
	"github.com/samirrijal/planpresso/internal/pkg/sharelink"
	"github.com/samirrijal/planpresso/internal/pkg/telemetry"
)

// savedPlanTTL is how long a saved plan stays in the read cache. Saved plans
// are immutable, so this only bounds memory.
const savedPlanTTL = 600

const mapViewTTL = 3600

// PlanService handles plan operations that need no editor session.
type PlanService struct {
	plans     ports.PlanRepository
	cache     ports.CacheService
	validator *validation.Validator
	tracer    trace.Tracer
}

// NewPlanService creates a new PlanService. plans and cache may be nil.
func NewPlanService(plans ports.PlanRepository, cache ports.CacheService, warnDistanceKm float64) *PlanService {
	return &PlanService{
		plans:     plans,
		cache:     cache,
		validator: validation.New(warnDistanceKm),
		tracer:    telemetry.Tracer("usecases"),
	}
}

// Validate parses text and validates the plan in it. Text that does not
// parse yields a report with a single invalid_json error.
func (s *PlanService) Validate(ctx context.Context, text string) validation.Report {
	_, span := s.tracer.Start(ctx, "PlanService.Validate")
	defer span.End()

	p, err := editor.FromText(text)
	if err != nil {
		metrics.ParseFailures.Inc()
		r := parseFailureReport(err)
		recordValidation(r)
		return r
	}
	r := s.validator.Check(*p)
	recordValidation(r)
	span.SetAttributes(attribute.Int("report.errors", len(r.Errors)), attribute.Int("report.warnings", len(r.Warnings)))
	return r
}

// ValidatePlan validates an already decoded plan.
func (s *PlanService) ValidatePlan(p domain.Plan) validation.Report {
	r := s.validator.Check(p)
	recordValidation(r)
	return r
}

func parseFailureReport(err error) validation.Report {
	return validation.Report{
		Errors: []validation.Issue{{
			Code:    validation.CodeInvalidJSON,
			Message: validation.ParseMessage(errors.Unwrap(err)),
		}},
		Warnings: []validation.Issue{},
	}
}

// Format pretty-prints pasted text. Text that does not parse is returned
// unchanged together with the parse error.
func (s *PlanService) Format(text string) (string, error) {
	out, err := editor.Format(text)
	if err != nil {
		metrics.ParseFailures.Inc()
	}
	return out, err
}

// Example returns the builtin example plan.
func (s *PlanService) Example() domain.Plan {
	return domain.ExamplePlan()
}

// Share encodes a plan as a share-link payload.
func (s *PlanService) Share(p domain.Plan) (string, error) {
	return sharelink.Encode(p)
}

// ShareText parses text and encodes the plan in it.
func (s *PlanService) ShareText(text string) (string, error) {
	p, err := editor.FromText(text)
	if err != nil {
		return "", err
	}
	return sharelink.Encode(*p)
}

// OpenShare decodes a share-link payload.
func (s *PlanService) OpenShare(payload string) (*domain.Plan, error) {
	return sharelink.Parse(payload)
}

// RenderNotes renders stop notes to sanitized HTML.
func (s *PlanService) RenderNotes(src string) string {
	return markdown.Render(src)
}

// MapView prepares a plan for drawing.
func (s *PlanService) MapView(p domain.Plan) domain.MapView {
	emoji, name := domain.SplitEmoji(p.Name)
	v := domain.MapView{
		Name:  name,
		Emoji: emoji,
		Stats: p.Stats(),
		Stops: make([]domain.MapStop, len(p.Stops)),
	}
	if b, ok := p.Bounds(); ok {
		v.Bounds = &b
	}

	n := len(p.Stops)
	for i, st := range p.Stops {
		ms := domain.MapStop{
			Number:    i + 1,
			Name:      st.DisplayName(),
			Kind:      domain.KindOf(st, i, n),
			DateRange: st.ShortDateRange(),
			Nights:    st.Nights(),
			NotesHTML: markdown.Render(st.Notes),
			ImageURL:  st.ImageURL,
		}
		if domain.ValidLat(st.Lat) && domain.ValidLng(st.Lng) {
			ms.Point = &domain.GeoPoint{Lat: *st.Lat, Lng: *st.Lng}
		}
		if i+1 < n {
			next := p.Stops[i+1]
			if ms.Point != nil && domain.ValidLat(next.Lat) && domain.ValidLng(next.Lng) {
				km := geospatial.DistanceKm(*st.Lat, *st.Lng, *next.Lat, *next.Lng)
				ms.NextDistanceKm = km
				ms.NextDistance = geospatial.FormatDistance(km)
				v.TotalDistanceKm += km
			}
		}
		v.Stops[i] = ms
	}
	return v
}

// Saved returns a saved plan by ID, read through the cache.
func (s *PlanService) Saved(ctx context.Context, id string) (*domain.SavedPlan, error) {
	ctx, span := s.tracer.Start(ctx, "PlanService.Saved", trace.WithAttributes(attribute.String("plan.id", id)))
	defer span.End()

	if s.plans == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlanNotFound, id)
	}

	cacheKey := "plans:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var sp domain.SavedPlan
			if err := json.Unmarshal(data, &sp); err == nil {
				metrics.CacheHits.WithLabelValues("saved_plan").Inc()
				return &sp, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("saved_plan").Inc()
	}

	sp, err := s.plans.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(sp); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, savedPlanTTL)
		}
	}
	return sp, nil
}

// RenderSaved prepares the map view of a saved plan and caches it. It
// handles the render requests queued when a plan is saved.
func (s *PlanService) RenderSaved(ctx context.Context, sp *domain.SavedPlan) error {
	ctx, span := s.tracer.Start(ctx, "PlanService.RenderSaved", trace.WithAttributes(attribute.String("plan.id", sp.ID)))
	defer span.End()

	v := s.MapView(sp.Plan)
	v.PlanID = sp.ID
	if s.cache == nil {
		metrics.MapViewsRendered.WithLabelValues("uncached").Inc()
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		metrics.MapViewsRendered.WithLabelValues("error").Inc()
		return fmt.Errorf("encode map view: %w", err)
	}
	if err := s.cache.Set(ctx, "mapview:"+sp.ID, data, mapViewTTL); err != nil {
		metrics.MapViewsRendered.WithLabelValues("error").Inc()
		return fmt.Errorf("cache map view: %w", err)
	}
	metrics.MapViewsRendered.WithLabelValues("ok").Inc()
	return nil
}

// SavedMapView returns the map view of a saved plan, rendered on demand
// when the renderer has not produced it yet.
func (s *PlanService) SavedMapView(ctx context.Context, id string) (*domain.MapView, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, "mapview:"+id); err == nil {
			var v domain.MapView
			if err := json.Unmarshal(data, &v); err == nil {
				metrics.CacheHits.WithLabelValues("map_view").Inc()
				return &v, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("map_view").Inc()
	}
	sp, err := s.Saved(ctx, id)
	if err != nil {
		return nil, err
	}
	v := s.MapView(sp.Plan)
	v.PlanID = sp.ID
	return &v, nil
}

// History returns a page of the owner's saved plans, newest first.
func (s *PlanService) History(ctx context.Context, owner string, offset, limit int) ([]domain.SavedPlan, int, error) {
	if s.plans == nil {
		return []domain.SavedPlan{}, 0, nil
	}
	if owner == "" {
		owner = AnonymousOwner
	}
	plans, total, err := s.plans.List(ctx, owner, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list plans: %w", err)
	}
	if plans == nil {
		plans = []domain.SavedPlan{}
	}
	return plans, total, nil
}

// Latest returns the recovery summary of the owner's last saved plan.
func (s *PlanService) Latest(ctx context.Context, owner string) (*domain.RecoverySummary, error) {
	if s.plans == nil {
		return nil, domain.ErrPlanNotFound
	}
	if owner == "" {
		owner = AnonymousOwner
	}
	sp, err := s.plans.Latest(ctx, owner)
	if err != nil {
		return nil, err
	}
	summary := sp.Summary()
	return &summary, nil
}

func recordValidation(r validation.Report) {
	switch {
	case !r.Valid():
		metrics.Validations.WithLabelValues("invalid").Inc()
	case len(r.Warnings) > 0:
		metrics.Validations.WithLabelValues("warnings").Inc()
	default:
		metrics.Validations.WithLabelValues("valid").Inc()
	}
}
