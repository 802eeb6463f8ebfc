package ports

import (
	"context"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// DraftStore persists in-progress drafts, one per owner and editor context.
// Load returns nil, nil when nothing is stored under key.
type DraftStore interface {
	Save(ctx context.Context, key string, draft domain.Draft) error
	Load(ctx context.Context, key string) (*domain.Draft, error)
	Clear(ctx context.Context, key string) error
}

// PlanRepository persists plans that passed validation.
type PlanRepository interface {
	Save(ctx context.Context, plan *domain.SavedPlan) error
	Get(ctx context.Context, id string) (*domain.SavedPlan, error)
	// Latest returns the owner's most recently saved plan, or
	// domain.ErrPlanNotFound.
	Latest(ctx context.Context, owner string) (*domain.SavedPlan, error)
	// List returns a page of the owner's plans, newest first, and the
	// owner's total.
	List(ctx context.Context, owner string, offset, limit int) ([]domain.SavedPlan, int, error)
}
