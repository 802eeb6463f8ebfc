package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// --- Mock DraftStore ---

type mockDraftStore struct {
	mu      sync.Mutex
	drafts  map[string]domain.Draft
	saves   int
	cleared []string
	saveFn  func(ctx context.Context, key string, d domain.Draft) error
}

func newMockDraftStore() *mockDraftStore {
	return &mockDraftStore{drafts: map[string]domain.Draft{}}
}

func (m *mockDraftStore) Save(ctx context.Context, key string, d domain.Draft) error {
	if m.saveFn != nil {
		if err := m.saveFn(ctx, key, d); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[key] = d
	m.saves++
	return nil
}

func (m *mockDraftStore) Load(ctx context.Context, key string) (*domain.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[key]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (m *mockDraftStore) Clear(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, key)
	m.cleared = append(m.cleared, key)
	return nil
}

func (m *mockDraftStore) get(key string) (domain.Draft, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[key]
	return d, ok
}

// --- Mock PlanRepository ---

type mockPlanRepo struct {
	saved    []*domain.SavedPlan
	saveFn   func(ctx context.Context, p *domain.SavedPlan) error
	getFn    func(ctx context.Context, id string) (*domain.SavedPlan, error)
	latestFn func(ctx context.Context, owner string) (*domain.SavedPlan, error)
	listFn   func(ctx context.Context, owner string, offset, limit int) ([]domain.SavedPlan, int, error)
}

func (m *mockPlanRepo) Save(ctx context.Context, p *domain.SavedPlan) error {
	if m.saveFn != nil {
		if err := m.saveFn(ctx, p); err != nil {
			return err
		}
	}
	m.saved = append(m.saved, p)
	return nil
}

func (m *mockPlanRepo) Get(ctx context.Context, id string) (*domain.SavedPlan, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrPlanNotFound
}

func (m *mockPlanRepo) Latest(ctx context.Context, owner string) (*domain.SavedPlan, error) {
	if m.latestFn != nil {
		return m.latestFn(ctx, owner)
	}
	return nil, domain.ErrPlanNotFound
}

func (m *mockPlanRepo) List(ctx context.Context, owner string, offset, limit int) ([]domain.SavedPlan, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, owner, offset, limit)
	}
	return nil, 0, nil
}

// --- Mock PlanRenderer ---

type mockRenderer struct {
	rendered []*domain.SavedPlan
	renderFn func(ctx context.Context, p *domain.SavedPlan) error
}

func (m *mockRenderer) RenderPlan(ctx context.Context, p *domain.SavedPlan) error {
	if m.renderFn != nil {
		if err := m.renderFn(ctx, p); err != nil {
			return err
		}
	}
	m.rendered = append(m.rendered, p)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu          sync.Mutex
	planSaved   []string
	draftsSaved []string
}

func (m *mockPublisher) PublishPlanSaved(ctx context.Context, p *domain.SavedPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.planSaved = append(m.planSaved, p.ID)
	return nil
}

func (m *mockPublisher) PublishDraftSaved(ctx context.Context, owner, editorContext string, d domain.Draft) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.draftsSaved = append(m.draftsSaved, owner+"/"+editorContext)
	return nil
}

// --- Mock Geocoder ---

type mockGeocoder struct {
	searchFn func(ctx context.Context, query string, limit int) ([]domain.Place, error)
}

func (m *mockGeocoder) Search(ctx context.Context, query string, limit int) ([]domain.Place, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query, limit)
	}
	return nil, nil
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
