package editor_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/editor"
	"github.com/samirrijal/planpresso/internal/core/validation"
	"github.com/samirrijal/planpresso/internal/pkg/clock"
)

type recordingSink struct {
	mu      sync.Mutex
	writes  []domain.Plan
	seqs    []uint64
	cleared int
}

func (r *recordingSink) Write(seq uint64, p domain.Plan) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, p)
	r.seqs = append(r.seqs, seq)
}

func (r *recordingSink) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.writes)
}

func (r *recordingSink) last() domain.Plan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writes[len(r.writes)-1]
}

func newSession(t *testing.T) (*editor.Session, *clock.FakeClock, *recordingSink) {
	t.Helper()
	c := clock.Fake(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	sink := &recordingSink{}
	s := editor.NewSession(editor.Options{
		Context: domain.ContextEditor,
		Clock:   c,
		Drafts:  sink,
	})
	return s, c, sink
}

func TestSession_UnknownFieldSurvivesLoad(t *testing.T) {
	s, _, _ := newSession(t)
	p := domain.ExamplePlan()
	p.Stops[1].Extra = domain.Fields{"foo": json.RawMessage(`"bar"`)}

	s.Load(p)
	assert.Equal(t, p, s.Plan())
}

func TestSession_DebouncedSyncWritesLatestOnly(t *testing.T) {
	s, c, sink := newSession(t)
	s.Load(domain.ExamplePlan())
	before := s.Text()

	require.NoError(t, s.SetName("A"))
	c.Advance(200 * time.Millisecond)
	require.NoError(t, s.SetName("AB"))
	c.Advance(200 * time.Millisecond)
	require.NoError(t, s.SetName("ABC"))

	assert.Equal(t, before, s.Text(), "text lags until the debounce fires")
	assert.Equal(t, 0, sink.count())

	c.Advance(500 * time.Millisecond)
	require.Equal(t, 1, sink.count())
	assert.Equal(t, "ABC", sink.last().Name)
	assert.Contains(t, s.Text(), `"name": "ABC"`)
}

func TestSession_FieldEditsSnapshotOnCommit(t *testing.T) {
	s, _, _ := newSession(t)
	s.Load(domain.ExamplePlan())

	require.NoError(t, s.SetStopField(0, "name", "P"))
	require.NoError(t, s.SetStopField(0, "name", "Pr"))
	undo, _ := s.HistoryLen()
	assert.Equal(t, 1, undo, "keystrokes are not snapshotted")

	s.Commit()
	undo, _ = s.HistoryLen()
	assert.Equal(t, 2, undo)

	require.True(t, s.Undo())
	assert.Equal(t, "Prague - Old Town", s.Plan().Stops[0].Name)
}

func TestSession_UndoFloor(t *testing.T) {
	s, _, _ := newSession(t)
	s.Load(domain.ExamplePlan())
	assert.False(t, s.CanUndo())
	assert.False(t, s.Undo())
	assert.Equal(t, domain.ExamplePlan(), s.Plan())
}

func TestSession_StructuralUndoRedoInverse(t *testing.T) {
	s, _, _ := newSession(t)
	s.Load(domain.ExamplePlan())

	require.NoError(t, s.MoveStop(0, 2, domain.DateActionNone))
	moved := s.Plan()
	assert.Equal(t, "Prague - Old Town", moved.Stops[2].Name)

	require.True(t, s.Undo())
	assert.Equal(t, domain.ExamplePlan(), s.Plan())
	assert.Equal(t, editor.ToText(domain.ExamplePlan()), s.Text(), "undo re-syncs text immediately")

	require.True(t, s.Redo())
	assert.Equal(t, moved, s.Plan())
	assert.False(t, s.CanRedo())
}

func TestSession_UndoRevertsUncommittedEditsFirst(t *testing.T) {
	s, _, _ := newSession(t)
	s.Load(domain.ExamplePlan())
	require.NoError(t, s.AddStop())
	require.NoError(t, s.SetStopField(3, "name", "Brno"))

	require.True(t, s.Undo())
	p := s.Plan()
	require.Len(t, p.Stops, 4)
	assert.Equal(t, "", p.Stops[3].Name)

	require.True(t, s.Undo())
	assert.Len(t, s.Plan().Stops, 3)
}

func TestSession_OutOfRangeLeavesStateAlone(t *testing.T) {
	s, _, _ := newSession(t)
	s.Load(domain.ExamplePlan())

	assert.ErrorIs(t, s.MoveStop(0, 5, domain.DateActionShift), domain.ErrIndexOutOfRange)
	assert.ErrorIs(t, s.RemoveStop(3), domain.ErrIndexOutOfRange)
	assert.ErrorIs(t, s.DuplicateStop(-1), domain.ErrIndexOutOfRange)
	assert.ErrorIs(t, s.SetStopField(7, "name", "x"), domain.ErrIndexOutOfRange)

	undo, redo := s.HistoryLen()
	assert.Equal(t, 1, undo)
	assert.Equal(t, 0, redo)
	assert.False(t, s.SyncPending())
	assert.Equal(t, domain.ExamplePlan(), s.Plan())
}

func TestSession_SetStopFieldCoordinates(t *testing.T) {
	s, _, _ := newSession(t)
	s.Load(domain.ExamplePlan())

	require.NoError(t, s.SetStopField(0, "lat", " 48.2 "))
	assert.Equal(t, 48.2, *s.Plan().Stops[0].Lat)

	require.NoError(t, s.SetStopField(0, "lat", "north"))
	assert.Nil(t, s.Plan().Stops[0].Lat)

	require.NoError(t, s.SetStopField(0, "lng", "NaN"))
	assert.Nil(t, s.Plan().Stops[0].Lng)

	assert.ErrorIs(t, s.SetStopField(0, "color", "red"), domain.ErrUnknownField)
}

func TestSession_SwitchViewRefusesBadText(t *testing.T) {
	s, _, _ := newSession(t)
	s.Load(domain.ExamplePlan())

	require.NoError(t, s.SwitchView(domain.ViewText))
	assert.Equal(t, domain.ViewText, s.View())
	assert.ErrorIs(t, s.SetName("x"), domain.ErrWrongView)

	require.NoError(t, s.SetText(`{"name": "broken",`))
	err := s.SwitchView(domain.ViewStructured)
	assert.ErrorIs(t, err, domain.ErrParse)
	assert.Equal(t, domain.ViewText, s.View())
	assert.Equal(t, `{"name": "broken",`, s.Text())
}

func TestSession_SwitchViewCarriesTextEdits(t *testing.T) {
	s, _, _ := newSession(t)
	s.Load(domain.ExamplePlan())
	require.NoError(t, s.AddStop())

	require.NoError(t, s.SwitchView(domain.ViewText))
	assert.False(t, s.CanUndo(), "history is dropped in the text view")

	require.NoError(t, s.SetText(`{"name": "Edited", "stops": [{"name": "Only", "lat": 1, "lng": 2, "foo": "bar"}]}`))
	require.NoError(t, s.SwitchView(domain.ViewStructured))

	p := s.Plan()
	assert.Equal(t, "Edited", p.Name)
	require.Len(t, p.Stops, 1)
	assert.Equal(t, json.RawMessage(`"bar"`), p.Stops[0].Extra["foo"])
	assert.False(t, s.CanUndo(), "history is reseeded on entering the structured view")
}

func TestSession_SwitchViewCancelsPendingSync(t *testing.T) {
	s, c, sink := newSession(t)
	s.Load(domain.ExamplePlan())
	require.NoError(t, s.SetName("Renamed"))

	require.NoError(t, s.SwitchView(domain.ViewText))
	assert.Contains(t, s.Text(), `"name": "Renamed"`, "text view shows the latest model")

	c.Advance(time.Second)
	assert.Equal(t, 0, sink.count())
}

func TestSession_TextViewDrafts(t *testing.T) {
	s, c, sink := newSession(t)
	require.NoError(t, s.SwitchView(domain.ViewText))

	require.NoError(t, s.SetText(`{"name": "half`))
	c.Advance(time.Second)
	assert.Equal(t, 0, sink.count(), "unparseable text is not drafted")

	require.NoError(t, s.SetText(`{"name": "whole", "stops": []}`))
	c.Advance(time.Second)
	require.Equal(t, 1, sink.count())
	assert.Equal(t, "whole", sink.last().Name)
}

func TestSession_ValidateInTextView(t *testing.T) {
	s, _, _ := newSession(t)
	require.NoError(t, s.SwitchView(domain.ViewText))
	require.NoError(t, s.SetText(`{"name": `))

	r := s.Validate()
	require.Len(t, r.Errors, 1)
	assert.Equal(t, validation.CodeInvalidJSON, r.Errors[0].Code)

	last, ok := s.LastReport()
	require.True(t, ok)
	assert.Equal(t, r, last)
}

func TestSession_ValidateReplacesWarnings(t *testing.T) {
	s, _, _ := newSession(t)
	s.Load(domain.Plan{Name: "Far", Stops: []domain.Stop{
		{Name: "A", Lat: domain.Float(0), Lng: domain.Float(0)},
		{Name: "B", Lat: domain.Float(0), Lng: domain.Float(90)},
	}})
	require.Len(t, s.Validate().Warnings, 1)

	require.NoError(t, s.SetStopField(1, "lng", "1"))
	assert.Empty(t, s.Validate().Warnings)
}

func TestSession_PromoteBlocksOnErrors(t *testing.T) {
	s, _, sink := newSession(t)
	s.Load(domain.Plan{Name: "x", Stops: []domain.Stop{}})

	_, r, err := s.Promote()
	assert.ErrorIs(t, err, domain.ErrInvalidPlan)
	assert.False(t, r.Valid())
	assert.Equal(t, 0, sink.cleared)
}

func TestSession_PromoteFlushesAndMarkSaved(t *testing.T) {
	s, c, sink := newSession(t)
	s.Load(domain.ExamplePlan())
	require.NoError(t, s.SetName("Saved name"))
	assert.True(t, s.HasUnsavedChanges())

	p, r, err := s.Promote()
	require.NoError(t, err)
	assert.True(t, r.Valid())
	assert.Equal(t, "Saved name", p.Name)
	assert.Equal(t, 1, sink.count(), "pending edit flushed before validation")

	s.MarkSaved(p)
	assert.False(t, s.HasUnsavedChanges())
	assert.Equal(t, 1, sink.cleared)

	c.Advance(time.Second)
	assert.Equal(t, 1, sink.count())
}

func TestSession_MarkSavedKeepsLaterEdit(t *testing.T) {
	s, c, sink := newSession(t)
	s.Load(domain.ExamplePlan())
	require.NoError(t, s.SetName("Saved name"))

	p, _, err := s.Promote()
	require.NoError(t, err)

	// An edit arrives while the plan is being stored.
	require.NoError(t, s.SetName("Edited during save"))
	s.MarkSaved(p)

	assert.True(t, s.HasUnsavedChanges(), "the later edit is not part of the save")
	assert.Equal(t, 0, sink.cleared, "the later edit's draft must survive")

	c.Advance(time.Second)
	assert.Equal(t, 2, sink.count(), "the later edit still syncs")
	assert.Equal(t, "Edited during save", s.Plan().Name)

	require.NoError(t, s.SetName("Saved name"))
	assert.False(t, s.HasUnsavedChanges(), "baseline is the promoted plan")
}

func TestSession_UnsavedChangesIgnoresFormatting(t *testing.T) {
	s, _, _ := newSession(t)
	s.Load(domain.ExamplePlan())
	require.NoError(t, s.SwitchView(domain.ViewText))

	compact, err := json.Marshal(domain.ExamplePlan())
	require.NoError(t, err)
	require.NoError(t, s.SetText(string(compact)))
	assert.False(t, s.HasUnsavedChanges())

	require.NoError(t, s.SetText(`not json`))
	assert.True(t, s.HasUnsavedChanges())
}

func TestSession_RestoreCountsAsUnsaved(t *testing.T) {
	s, _, _ := newSession(t)
	s.Restore(domain.ExamplePlan())
	assert.True(t, s.HasUnsavedChanges())
	assert.Equal(t, domain.Stats{Stops: 3, TotalNights: 2}, s.Stats())
}

func TestSession_CloseDropsPendingAndClearsDraft(t *testing.T) {
	s, c, sink := newSession(t)
	s.Load(domain.ExamplePlan())
	require.NoError(t, s.SetName("discard me"))

	s.Close()
	c.Advance(time.Second)
	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 1, sink.cleared)

	s.Close()
	assert.Equal(t, 1, sink.cleared)
}

func TestSession_DraftSequenceIncreases(t *testing.T) {
	s, c, sink := newSession(t)
	s.Load(domain.ExamplePlan())
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, s.SetName(name))
		c.Advance(time.Second)
	}
	require.Len(t, sink.seqs, 3)
	assert.Less(t, sink.seqs[0], sink.seqs[1])
	assert.Less(t, sink.seqs[1], sink.seqs[2])
}
