package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// PlanRepo stores saved plans as JSONB documents.
type PlanRepo struct {
	db *DB
}

func NewPlanRepo(db *DB) *PlanRepo { return &PlanRepo{db: db} }

// Save inserts p, or replaces the stored document when p.ID already exists.
func (r *PlanRepo) Save(ctx context.Context, p *domain.SavedPlan) error {
	data, err := json.Marshal(p.Plan)
	if err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO plans (id, owner, plan, saved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			plan = EXCLUDED.plan,
			saved_at = EXCLUDED.saved_at
		WHERE plans.owner = EXCLUDED.owner
	`, p.ID, p.Owner, data, p.SavedAt)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

func (r *PlanRepo) Get(ctx context.Context, id string) (*domain.SavedPlan, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id::text, owner, plan, saved_at FROM plans WHERE id::text = $1
	`, id)
	return scanPlan(row)
}

// Latest returns the owner's most recently saved plan.
func (r *PlanRepo) Latest(ctx context.Context, owner string) (*domain.SavedPlan, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id::text, owner, plan, saved_at FROM plans
		WHERE owner = $1
		ORDER BY saved_at DESC
		LIMIT 1
	`, owner)
	return scanPlan(row)
}

// List returns a page of the owner's saved plans, newest first, with the
// owner's total count.
func (r *PlanRepo) List(ctx context.Context, owner string, offset, limit int) ([]domain.SavedPlan, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM plans WHERE owner = $1`, owner).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count plans: %w", err)
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, owner, plan, saved_at FROM plans
		WHERE owner = $1
		ORDER BY saved_at DESC
		OFFSET $2 LIMIT $3
	`, owner, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	plans := []domain.SavedPlan{}
	for rows.Next() {
		sp, err := scanPlan(rows)
		if err != nil {
			return nil, 0, err
		}
		plans = append(plans, *sp)
	}
	return plans, total, rows.Err()
}

func scanPlan(row pgx.Row) (*domain.SavedPlan, error) {
	var (
		sp   domain.SavedPlan
		data []byte
	)
	if err := row.Scan(&sp.ID, &sp.Owner, &data, &sp.SavedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &sp.Plan); err != nil {
		return nil, fmt.Errorf("decode plan %s: %w", sp.ID, err)
	}
	return &sp, nil
}
