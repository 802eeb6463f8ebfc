// Package memory holds in-process adapters for single-node runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// DraftStore implements ports.DraftStore in a map. Drafts are lost on
// restart.
type DraftStore struct {
	mu     sync.RWMutex
	drafts map[string]domain.Draft
}

// NewDraftStore creates an empty DraftStore.
func NewDraftStore() *DraftStore {
	return &DraftStore{drafts: make(map[string]domain.Draft)}
}

func (s *DraftStore) Save(_ context.Context, key string, draft domain.Draft) error {
	draft.Data = draft.Data.Clone()
	s.mu.Lock()
	s.drafts[key] = draft
	s.mu.Unlock()
	return nil
}

func (s *DraftStore) Load(_ context.Context, key string) (*domain.Draft, error) {
	s.mu.RLock()
	d, ok := s.drafts[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	d.Data = d.Data.Clone()
	return &d, nil
}

func (s *DraftStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.drafts, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored drafts.
func (s *DraftStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.drafts)
}
