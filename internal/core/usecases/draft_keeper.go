package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/ports"
	"github.com/samirrijal/planpresso/internal/pkg/clock"
	"github.com/samirrijal/planpresso/internal/pkg/metrics"
)

// draftStoreTimeout bounds a single draft store call made from the debounce
// goroutine, which has no request context.
const draftStoreTimeout = 2 * time.Second

// draftKeeper is the editor.DraftSink of one session. Storage failures are
// logged and counted, never returned.
type draftKeeper struct {
	store   ports.DraftStore
	events  ports.EventPublisher
	clock   clock.Clock
	log     *slog.Logger
	owner   string
	context string
	key     string

	mu       sync.Mutex
	lastSeq  uint64
	detached bool
}

func newDraftKeeper(store ports.DraftStore, events ports.EventPublisher, c clock.Clock, log *slog.Logger, owner, editorContext string) *draftKeeper {
	return &draftKeeper{
		store:   store,
		events:  events,
		clock:   c,
		log:     log,
		owner:   owner,
		context: editorContext,
		key:     domain.OwnerDraftKey(owner, editorContext),
	}
}

func (k *draftKeeper) Write(seq uint64, p domain.Plan) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.store == nil || seq <= k.lastSeq {
		return
	}
	k.lastSeq = seq

	ctx, cancel := context.WithTimeout(context.Background(), draftStoreTimeout)
	defer cancel()

	draft := domain.Draft{Data: p, Timestamp: k.clock.Now().UTC()}
	if err := k.store.Save(ctx, k.key, draft); err != nil {
		metrics.DraftsFailed.WithLabelValues("save").Inc()
		k.log.Warn("draft save failed", "key", k.key, "error", err)
		return
	}
	metrics.DraftsSaved.Inc()

	if k.events != nil {
		_ = k.events.PublishDraftSaved(ctx, k.owner, k.context, draft)
	}
}

func (k *draftKeeper) Clear() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.store == nil || k.detached {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), draftStoreTimeout)
	defer cancel()

	if err := k.store.Clear(ctx, k.key); err != nil {
		metrics.DraftsFailed.WithLabelValues("clear").Inc()
		k.log.Warn("draft clear failed", "key", k.key, "error", err)
	}
}

// detach makes later Clear calls no-ops so an evicted session leaves its
// draft behind for the next visit.
func (k *draftKeeper) detach() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.detached = true
}
