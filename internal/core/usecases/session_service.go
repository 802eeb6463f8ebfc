package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/editor"
	"github.com/samirrijal/planpresso/internal/core/ports"
	"github.com/samirrijal/planpresso/internal/core/validation"
	"github.com/samirrijal/planpresso/internal/pkg/clock"
	"github.com/samirrijal/planpresso/internal/pkg/metrics"
	"github.com/samirrijal/planpresso/internal/pkg/sharelink"
	"github.com/samirrijal/planpresso/internal/pkg/telemetry"
)

// AnonymousOwner owns sessions opened without an owner.
const AnonymousOwner = "anonymous"

// Where the document of a freshly opened session came from.
const (
	SourceShare = "share"
	SourceEmpty = "empty"
)

// SessionOptions configure the sessions a SessionService opens.
type SessionOptions struct {
	SyncDelay      time.Duration
	HistoryLimit   int
	WarnDistanceKm float64
	// IdleTimeout is how long an untouched session survives EvictIdle.
	// Zero disables eviction.
	IdleTimeout time.Duration
	Clock       clock.Clock
	Logger      *slog.Logger
}

// OpenRequest describes a page load of one editor context.
type OpenRequest struct {
	Owner   string
	Context string
	// Share is a share-link payload, if the page was opened from one.
	Share string
}

// OpenResult tells the client what it can offer the user after boot.
type OpenResult struct {
	SessionID  string                  `json:"session_id"`
	Owner      string                  `json:"owner"`
	Context    string                  `json:"context"`
	Source     string                  `json:"source"`
	ShareError string                  `json:"share_error,omitempty"`
	Recovery   *domain.RecoverySummary `json:"recovery,omitempty"`
	Draft      *DraftInfo              `json:"draft,omitempty"`
}

// DraftInfo summarizes a stored draft the user may restore.
type DraftInfo struct {
	Name      string    `json:"name"`
	Stops     int       `json:"stops"`
	Timestamp time.Time `json:"timestamp"`
}

type handle struct {
	id       string
	owner    string
	session  *editor.Session
	keeper   *draftKeeper
	lastUsed time.Time
}

// SessionService owns the editor sessions of this process and runs the
// open, save and discard flows around them.
type SessionService struct {
	drafts   ports.DraftStore
	plans    ports.PlanRepository
	renderer ports.PlanRenderer
	events   ports.EventPublisher

	opts      SessionOptions
	validator *validation.Validator
	clock     clock.Clock
	log       *slog.Logger
	tracer    trace.Tracer

	mu       sync.Mutex
	sessions map[string]*handle
}

// NewSessionService creates a SessionService. Any collaborator may be nil;
// the matching step is then skipped.
func NewSessionService(
	drafts ports.DraftStore,
	plans ports.PlanRepository,
	renderer ports.PlanRenderer,
	events ports.EventPublisher,
	opts SessionOptions,
) *SessionService {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &SessionService{
		drafts:    drafts,
		plans:     plans,
		renderer:  renderer,
		events:    events,
		opts:      opts,
		validator: validation.New(opts.WarnDistanceKm),
		clock:     opts.Clock,
		log:       opts.Logger,
		tracer:    telemetry.Tracer("usecases"),
		sessions:  make(map[string]*handle),
	}
}

// Open creates a session for one editor context. A share payload is loaded
// straight away; otherwise the owner's last saved plan is offered as a
// recovery summary and the editor starts empty. A stored draft is reported
// either way so the client can offer to restore it.
func (s *SessionService) Open(ctx context.Context, req OpenRequest) (*OpenResult, error) {
	ctx, span := s.tracer.Start(ctx, "SessionService.Open",
		trace.WithAttributes(attribute.String("editor.context", req.Context)))
	defer span.End()

	if !domain.ValidContext(req.Context) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownContext, req.Context)
	}
	owner := req.Owner
	if owner == "" {
		owner = AnonymousOwner
	}

	h := s.newHandle(owner, req.Context)
	res := &OpenResult{SessionID: h.id, Owner: owner, Context: req.Context, Source: SourceEmpty}

	if req.Share != "" {
		p, err := sharelink.Parse(req.Share)
		if err != nil {
			s.log.Info("share payload rejected", "error", err)
			res.ShareError = err.Error()
		} else {
			h.session.Load(*p)
			res.Source = SourceShare
		}
	}

	if res.Source != SourceShare && s.plans != nil {
		saved, err := s.plans.Latest(ctx, owner)
		switch {
		case err == nil:
			summary := saved.Summary()
			res.Recovery = &summary
		case !errors.Is(err, domain.ErrPlanNotFound):
			s.log.Warn("saved plan lookup failed", "owner", owner, "error", err)
		}
	}

	if d := s.loadDraft(ctx, h); d != nil {
		res.Draft = &DraftInfo{Name: d.Data.Name, Stops: len(d.Data.Stops), Timestamp: d.Timestamp}
	}

	s.mu.Lock()
	s.sessions[h.id] = h
	s.mu.Unlock()
	metrics.SessionsActive.Inc()

	span.SetAttributes(attribute.String("session.id", h.id), attribute.String("session.source", res.Source))
	return res, nil
}

func (s *SessionService) newHandle(owner, editorContext string) *handle {
	id := uuid.NewString()
	log := s.log.With("session", id)
	keeper := newDraftKeeper(s.drafts, s.events, s.clock, log, owner, editorContext)
	return &handle{
		id:    id,
		owner: owner,
		session: editor.NewSession(editor.Options{
			Context:      editorContext,
			HistoryLimit: s.opts.HistoryLimit,
			SyncDelay:    s.opts.SyncDelay,
			Clock:        s.clock,
			Validator:    s.validator,
			Drafts:       keeper,
			Logger:       log,
		}),
		keeper:   keeper,
		lastUsed: s.clock.Now(),
	}
}

func (s *SessionService) loadDraft(ctx context.Context, h *handle) *domain.Draft {
	if s.drafts == nil {
		return nil
	}
	d, err := s.drafts.Load(ctx, h.keeper.key)
	if err != nil {
		metrics.DraftsFailed.WithLabelValues("load").Inc()
		s.log.Warn("draft load failed", "key", h.keeper.key, "error", err)
		return nil
	}
	return d
}

func (s *SessionService) handle(id string) (*handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	h.lastUsed = s.clock.Now()
	return h, nil
}

// Get returns the editor session with the given ID.
func (s *SessionService) Get(id string) (*editor.Session, error) {
	h, err := s.handle(id)
	if err != nil {
		return nil, err
	}
	return h.session, nil
}

// Owner returns the owner of a session.
func (s *SessionService) Owner(id string) (string, error) {
	h, err := s.handle(id)
	if err != nil {
		return "", err
	}
	return h.owner, nil
}

// Count returns the number of open sessions.
func (s *SessionService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// RestoreDraft replaces the session document with its stored draft. It
// reports false when there is no draft.
func (s *SessionService) RestoreDraft(ctx context.Context, id string) (bool, error) {
	h, err := s.handle(id)
	if err != nil {
		return false, err
	}
	d := s.loadDraft(ctx, h)
	if d == nil {
		return false, nil
	}
	h.session.Restore(d.Data)
	return true, nil
}

// DiscardDraft drops the stored draft without touching the document.
func (s *SessionService) DiscardDraft(id string) error {
	h, err := s.handle(id)
	if err != nil {
		return err
	}
	h.keeper.Clear()
	return nil
}

// RecoverSaved loads one of the owner's saved plans into the session.
func (s *SessionService) RecoverSaved(ctx context.Context, id, planID string) (*domain.SavedPlan, error) {
	h, err := s.handle(id)
	if err != nil {
		return nil, err
	}
	if s.plans == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlanNotFound, planID)
	}
	saved, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	if saved.Owner != h.owner {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlanNotFound, planID)
	}
	h.session.Load(saved.Plan)
	return saved, nil
}

// Load replaces the session document, for example with the example plan.
func (s *SessionService) Load(id string, p domain.Plan) error {
	h, err := s.handle(id)
	if err != nil {
		return err
	}
	h.session.Load(p)
	return nil
}

// SwitchView switches the session view, counting refused switches.
func (s *SessionService) SwitchView(id string, v domain.View) error {
	h, err := s.handle(id)
	if err != nil {
		return err
	}
	if err := h.session.SwitchView(v); err != nil {
		if errors.Is(err, domain.ErrParse) {
			metrics.ParseFailures.Inc()
		}
		return err
	}
	return nil
}

// Undo steps the session back one snapshot.
func (s *SessionService) Undo(id string) (bool, error) {
	h, err := s.handle(id)
	if err != nil {
		return false, err
	}
	ok := h.session.Undo()
	if ok {
		metrics.HistoryOps.WithLabelValues("undo").Inc()
	}
	return ok, nil
}

// Redo re-applies the last undone snapshot.
func (s *SessionService) Redo(id string) (bool, error) {
	h, err := s.handle(id)
	if err != nil {
		return false, err
	}
	ok := h.session.Redo()
	if ok {
		metrics.HistoryOps.WithLabelValues("redo").Inc()
	}
	return ok, nil
}

// Validate runs validation on the session document.
func (s *SessionService) Validate(id string) (validation.Report, error) {
	h, err := s.handle(id)
	if err != nil {
		return validation.Report{}, err
	}
	r := h.session.Validate()
	recordValidation(r)
	return r, nil
}

// Save promotes the session document: it is validated, stored, handed to the
// renderer and becomes the new baseline; the draft is dropped. A plan with
// errors is refused with a *validation.InvalidPlanError and nothing else
// happens.
func (s *SessionService) Save(ctx context.Context, id string) (*domain.SavedPlan, validation.Report, error) {
	ctx, span := s.tracer.Start(ctx, "SessionService.Save",
		trace.WithAttributes(attribute.String("session.id", id)))
	defer span.End()

	h, err := s.handle(id)
	if err != nil {
		return nil, validation.Report{}, err
	}

	plan, report, err := h.session.Promote()
	recordValidation(report)
	if err != nil {
		span.SetStatus(codes.Error, "plan rejected")
		return nil, report, err
	}

	saved := &domain.SavedPlan{
		ID:      uuid.NewString(),
		Owner:   h.owner,
		Plan:    plan,
		SavedAt: s.clock.Now().UTC(),
	}
	// Render before storing, so a failed save leaves nothing behind for
	// Latest to offer on the next boot.
	if s.renderer != nil {
		if err := s.renderer.RenderPlan(ctx, saved); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "render failed")
			return nil, report, fmt.Errorf("render plan: %w", err)
		}
	}
	if s.plans != nil {
		if err := s.plans.Save(ctx, saved); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "store failed")
			return nil, report, fmt.Errorf("save plan: %w", err)
		}
	}

	h.session.MarkSaved(plan)
	metrics.PlansSaved.Inc()

	if s.events != nil {
		_ = s.events.PublishPlanSaved(ctx, saved)
	}

	span.SetAttributes(attribute.String("plan.id", saved.ID), attribute.Int("plan.stops", len(plan.Stops)))
	return saved, report, nil
}

// Close discards a session. Its pending sync is dropped and its draft is
// cleared.
func (s *SessionService) Close(id string) error {
	s.mu.Lock()
	h, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	h.session.Close()
	metrics.SessionsActive.Dec()
	return nil
}

// EvictIdle closes sessions untouched for longer than the idle timeout.
// Pending edits are flushed first and the draft is kept for the next visit.
func (s *SessionService) EvictIdle() int {
	if s.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := s.clock.Now().Add(-s.opts.IdleTimeout)

	s.mu.Lock()
	var idle []*handle
	for id, h := range s.sessions {
		if h.lastUsed.Before(cutoff) {
			idle = append(idle, h)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, h := range idle {
		h.session.Flush()
		h.keeper.detach()
		h.session.Close()
		metrics.SessionsActive.Dec()
		s.log.Debug("idle session evicted", "session", h.id)
	}
	return len(idle)
}

// RunJanitor calls EvictIdle every interval until ctx is done.
func (s *SessionService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				s.log.Info("evicted idle sessions", "count", n)
			}
		}
	}
}

// ClearLegacy removes the keys earlier releases stored for owner.
func (s *SessionService) ClearLegacy(ctx context.Context, owner string) error {
	if s.drafts == nil {
		return nil
	}
	if owner == "" {
		owner = AnonymousOwner
	}
	var errs []error
	for _, key := range domain.LegacyKeys {
		if err := s.drafts.Clear(ctx, owner+":"+key); err != nil {
			metrics.DraftsFailed.WithLabelValues("clear").Inc()
			errs = append(errs, fmt.Errorf("clear %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Shutdown flushes every session so the latest edits reach the draft store,
// then drops them without clearing drafts.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	all := make([]*handle, 0, len(s.sessions))
	for id, h := range s.sessions {
		all = append(all, h)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, h := range all {
		h.session.Flush()
		h.keeper.detach()
		h.session.Close()
		metrics.SessionsActive.Dec()
	}
}
