package ports

import (
	"context"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// PlanRenderer hands a validated plan to whatever draws the map.
type PlanRenderer interface {
	RenderPlan(ctx context.Context, plan *domain.SavedPlan) error
}

// EventPublisher publishes editor events to a message broker.
type EventPublisher interface {
	PublishPlanSaved(ctx context.Context, plan *domain.SavedPlan) error
	PublishDraftSaved(ctx context.Context, owner, editorContext string, draft domain.Draft) error
}

// Geocoder resolves free-text queries to places.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]domain.Place, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
