// Package editor keeps a plan's structured model and its text serialization
// consistent while the user edits, with bounded undo/redo, reorder date
// handling and debounced draft persistence.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/validation"
	"github.com/samirrijal/planpresso/internal/pkg/clock"
	"github.com/samirrijal/planpresso/internal/pkg/debounce"
)

// DefaultSyncDelay is the quiet period before an edit is synced to text and
// written as a draft.
const DefaultSyncDelay = 500 * time.Millisecond

// DraftSink receives drafts from a session. Implementations must swallow
// their own storage failures. seq grows with every write, so a sink can drop
// anything older than what it already stored.
type DraftSink interface {
	Write(seq uint64, p domain.Plan)
	Clear()
}

// Options configure a Session. Zero values pick the defaults.
type Options struct {
	Context      string
	HistoryLimit int
	SyncDelay    time.Duration
	Clock        clock.Clock
	Validator    *validation.Validator
	Drafts       DraftSink
	Logger       *slog.Logger
}

// Session is the editor state of one context. All methods are safe for
// concurrent use; the debounce timer fires on its own goroutine.
type Session struct {
	mu sync.Mutex

	context   string
	view      domain.View
	plan      domain.Plan
	text      string
	baseline  string
	history   *History
	report    *validation.Report
	seq       uint64
	closed    bool
	debouncer *debounce.Debouncer
	validator *validation.Validator
	drafts    DraftSink
	log       *slog.Logger
}

// NewSession returns a session in the structured view holding an empty plan.
func NewSession(opts Options) *Session {
	if opts.SyncDelay <= 0 {
		opts.SyncDelay = DefaultSyncDelay
	}
	if opts.Validator == nil {
		opts.Validator = validation.New(0)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Session{
		context:   opts.Context,
		view:      domain.ViewStructured,
		plan:      domain.Plan{Stops: []domain.Stop{}},
		history:   NewHistory(opts.HistoryLimit),
		debouncer: debounce.New(opts.Clock, opts.SyncDelay),
		validator: opts.Validator,
		drafts:    opts.Drafts,
		log:       opts.Logger.With("context", opts.Context),
	}
	s.text = ToText(s.plan)
	s.baseline = s.text
	s.history.Reset(s.text)
	return s
}

// Context returns the editor context this session belongs to.
func (s *Session) Context() string { return s.context }

// View returns the active view.
func (s *Session) View() domain.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Load replaces the document wholesale and makes it the saved baseline.
func (s *Session) Load(p domain.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(p)
	s.baseline = s.text
}

// Restore replaces the document with a recovered draft. The baseline is kept,
// so the restored edits count as unsaved.
func (s *Session) Restore(p domain.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(p)
}

func (s *Session) replaceLocked(p domain.Plan) {
	s.debouncer.Cancel()
	s.plan = p.Clone()
	if s.plan.Stops == nil {
		s.plan.Stops = []domain.Stop{}
	}
	s.text = ToText(s.plan)
	s.report = nil
	if s.view == domain.ViewStructured {
		s.history.Reset(s.text)
	} else {
		s.history.Clear()
	}
}

// Plan returns a copy of the structured model.
func (s *Session) Plan() domain.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan.Clone()
}

// CurrentPlan returns the document as it stands in the active view. In the
// text view that means parsing the text, which may fail.
func (s *Session) CurrentPlan() (domain.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *Session) currentLocked() (domain.Plan, error) {
	if s.view == domain.ViewText {
		p, err := FromText(s.text)
		if err != nil {
			return domain.Plan{}, err
		}
		return *p, nil
	}
	return s.plan.Clone(), nil
}

// Text returns the text view content. In the structured view it reflects the
// model as of the last sync.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// SetText replaces the text view content.
func (s *Session) SetText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != domain.ViewText {
		return fmt.Errorf("set text: %w", domain.ErrWrongView)
	}
	s.text = text
	s.scheduleLocked()
	return nil
}

func (s *Session) requireStructured(op string) error {
	if s.view != domain.ViewStructured {
		return fmt.Errorf("%s: %w", op, domain.ErrWrongView)
	}
	return nil
}

// SetName edits the plan name. Field edits are not snapshotted until Commit.
func (s *Session) SetName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStructured("set name"); err != nil {
		return err
	}
	s.plan.Name = name
	s.scheduleLocked()
	return nil
}

// SetPlanDates edits the plan-level date range.
func (s *Session) SetPlanDates(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStructured("set plan dates"); err != nil {
		return err
	}
	s.plan.DateFrom = strings.TrimSpace(from)
	s.plan.DateTo = strings.TrimSpace(to)
	s.scheduleLocked()
	return nil
}

// SetStopField edits one field of stop i from its form value. A coordinate
// that does not read as a finite number is stored as unset.
func (s *Session) SetStopField(i int, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStructured("set stop field"); err != nil {
		return err
	}
	if err := checkIndex(i, len(s.plan.Stops)); err != nil {
		return err
	}

	stop := &s.plan.Stops[i]
	switch field {
	case "name":
		stop.Name = value
	case "label":
		stop.Label = value
	case "lat":
		stop.Lat = parseCoordinate(value)
	case "lng":
		stop.Lng = parseCoordinate(value)
	case "dateFrom":
		stop.DateFrom = strings.TrimSpace(value)
	case "dateTo":
		stop.DateTo = strings.TrimSpace(value)
	case "notes":
		stop.Notes = value
	case "imageUrl":
		stop.ImageURL = strings.TrimSpace(value)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownField, field)
	}
	s.scheduleLocked()
	return nil
}

func parseCoordinate(value string) *float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Commit records the current model as an undo point. Field edits call it on
// blur or change.
func (s *Session) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != domain.ViewStructured {
		return
	}
	s.history.Push(ToText(s.plan))
}

// structural applies a stop transition with an undo point on each side.
func (s *Session) structural(op string, apply func([]domain.Stop) ([]domain.Stop, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireStructured(op); err != nil {
		return err
	}
	stops, err := apply(s.plan.Stops)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.history.Push(ToText(s.plan))
	s.plan.Stops = stops
	s.history.Push(ToText(s.plan))
	s.scheduleLocked()
	return nil
}

// AddStop appends an empty stop.
func (s *Session) AddStop() error {
	return s.structural("add stop", func(stops []domain.Stop) ([]domain.Stop, error) {
		return AddStop(stops), nil
	})
}

// DuplicateStop copies stop i, unknown fields included, right after it.
func (s *Session) DuplicateStop(i int) error {
	return s.structural("duplicate stop", func(stops []domain.Stop) ([]domain.Stop, error) {
		return DuplicateStop(stops, i)
	})
}

// RemoveStop deletes stop i.
func (s *Session) RemoveStop(i int) error {
	return s.structural("remove stop", func(stops []domain.Stop) ([]domain.Stop, error) {
		return RemoveStop(stops, i)
	})
}

// MoveStop reorders stops and applies the date action.
func (s *Session) MoveStop(from, to int, action domain.DateAction) error {
	return s.structural("move stop", func(stops []domain.Stop) ([]domain.Stop, error) {
		return MoveStop(stops, from, to, action)
	})
}

// Undo restores the previous snapshot. Uncommitted field edits are committed
// first so they are what gets undone.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != domain.ViewStructured {
		return false
	}
	s.history.Push(ToText(s.plan))
	snapshot, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.restoreLocked(snapshot)
	return true
}

// Redo re-applies the last undone snapshot.
func (s *Session) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view != domain.ViewStructured {
		return false
	}
	snapshot, ok := s.history.Redo()
	if !ok {
		return false
	}
	s.restoreLocked(snapshot)
	return true
}

func (s *Session) restoreLocked(snapshot string) {
	p, err := FromText(snapshot)
	if err != nil {
		// Snapshots are produced by ToText, so this means memory corruption
		// or a bug in the codec.
		s.log.Error("history snapshot unreadable", "error", err)
		return
	}
	s.debouncer.Cancel()
	s.plan = *p
	s.syncLocked()
}

// CanUndo and CanRedo drive the toolbar buttons.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view == domain.ViewStructured && s.history.CanUndo()
}

func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view == domain.ViewStructured && s.history.CanRedo()
}

// HistoryLen returns the undo and redo stack sizes.
func (s *Session) HistoryLen() (undo, redo int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}

// SwitchView moves between views. Leaving the text view requires text that
// parses; on failure the text view stays active and the ParseError is
// returned. Any pending sync is cancelled and history starts over.
func (s *Session) SwitchView(v domain.View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v == s.view {
		return nil
	}

	switch v {
	case domain.ViewText:
		s.debouncer.Cancel()
		s.text = ToText(s.plan)
		s.history.Clear()
		s.view = domain.ViewText
	case domain.ViewStructured:
		p, err := FromText(s.text)
		if err != nil {
			return fmt.Errorf("switch to structured view: %w", err)
		}
		s.debouncer.Cancel()
		s.plan = *p
		if s.plan.Stops == nil {
			s.plan.Stops = []domain.Stop{}
		}
		s.text = ToText(s.plan)
		s.history.Reset(s.text)
		s.view = domain.ViewStructured
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownView, v)
	}
	return nil
}

// Flush runs a pending sync now. It reports whether one was pending.
func (s *Session) Flush() bool {
	return s.debouncer.Flush()
}

// SyncPending reports whether an edit is waiting for the debounce.
func (s *Session) SyncPending() bool {
	return s.debouncer.Pending()
}

func (s *Session) scheduleLocked() {
	s.debouncer.Schedule(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.syncLocked()
	})
}

// syncLocked re-serializes the model and writes a draft.
func (s *Session) syncLocked() {
	if s.closed {
		return
	}
	var draft domain.Plan
	if s.view == domain.ViewStructured {
		s.text = ToText(s.plan)
		draft = s.plan.Clone()
	} else {
		p, err := FromText(s.text)
		if err != nil {
			s.log.Debug("draft skipped, text does not parse", "error", err)
			return
		}
		draft = *p
	}
	if s.drafts == nil {
		return
	}
	s.seq++
	s.drafts.Write(s.seq, draft)
}

// Validate checks the current document and stores the report. In the text
// view, text that does not parse yields a single invalid_json error.
func (s *Session) Validate() validation.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validateLocked()
}

func (s *Session) validateLocked() validation.Report {
	var r validation.Report
	p, err := s.currentLocked()
	if err != nil {
		r = validation.Report{
			Errors: []validation.Issue{{
				Code:    validation.CodeInvalidJSON,
				Message: validation.ParseMessage(errors.Unwrap(err)),
			}},
			Warnings: []validation.Issue{},
		}
	} else {
		r = s.validator.Check(p)
	}
	s.report = &r
	return r
}

// LastReport returns the report of the latest Validate, if any.
func (s *Session) LastReport() (validation.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return validation.Report{}, false
	}
	return *s.report, true
}

// Promote flushes pending edits and validates the document. A plan with
// errors is refused with an *validation.InvalidPlanError; otherwise the plan
// is returned for the caller to render and store.
func (s *Session) Promote() (domain.Plan, validation.Report, error) {
	s.Flush()
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.validateLocked()
	if !r.Valid() {
		return domain.Plan{}, r, &validation.InvalidPlanError{Report: r}
	}
	p, err := s.currentLocked()
	if err != nil {
		return domain.Plan{}, r, err
	}
	return p, r, nil
}

// MarkSaved makes saved, the plan returned by Promote, the baseline. The
// draft is dropped only when no edit landed after Promote; a newer edit
// keeps its pending sync and draft.
func (s *Session) MarkSaved(saved domain.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseline = ToText(saved)
	if s.canonicalLocked() != s.baseline {
		return
	}
	s.debouncer.Cancel()
	if s.drafts != nil {
		s.drafts.Clear()
	}
}

// HasUnsavedChanges compares the document with the last loaded or saved one.
func (s *Session) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canonicalLocked() != s.baseline
}

// canonicalLocked is the document in ToText form, or the raw text when the
// text view does not parse.
func (s *Session) canonicalLocked() string {
	if s.view == domain.ViewText {
		if p, err := FromText(s.text); err == nil {
			return ToText(*p)
		}
		return s.text
	}
	return ToText(s.plan)
}

// Stats returns stop count and total nights for the active view.
func (s *Session) Stats() domain.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.currentLocked()
	if err != nil {
		return domain.Stats{}
	}
	return p.Stats()
}

// Close discards the session: the pending sync is dropped without running
// and the draft is cleared.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.debouncer.Cancel()
	s.closed = true
	if s.drafts != nil {
		s.drafts.Clear()
	}
}
