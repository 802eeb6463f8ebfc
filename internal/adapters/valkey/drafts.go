package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// DraftStore implements ports.DraftStore on top of a Cache. Drafts expire
// after ttl so abandoned editors do not accumulate.
type DraftStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewDraftStore creates a DraftStore.
func NewDraftStore(cache *Cache, ttl time.Duration) *DraftStore {
	return &DraftStore{cache: cache, ttl: ttl}
}

func (s *DraftStore) Save(ctx context.Context, key string, draft domain.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	return s.cache.setTTL(ctx, "drafts:"+key, data, s.ttl)
}

func (s *DraftStore) Load(ctx context.Context, key string) (*domain.Draft, error) {
	data, err := s.cache.Get(ctx, "drafts:"+key)
	if errors.Is(err, ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var d domain.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", key, err)
	}
	return &d, nil
}

func (s *DraftStore) Clear(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, "drafts:"+key)
}
