package editor_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/planpresso/internal/core/editor"
)

func TestHistory_UndoFloor(t *testing.T) {
	h := editor.NewHistory(0)
	_, ok := h.Undo()
	assert.False(t, ok)

	h.Push("seed")
	_, ok = h.Undo()
	assert.False(t, ok, "the first snapshot can never be undone")
	assert.False(t, h.CanUndo())
}

func TestHistory_UndoRedoInverse(t *testing.T) {
	h := editor.NewHistory(0)
	h.Push("a")
	h.Push("b")

	got, ok := h.Undo()
	require.True(t, ok)
	assert.Equal(t, "a", got)

	got, ok = h.Redo()
	require.True(t, ok)
	assert.Equal(t, "b", got)
	assert.False(t, h.CanRedo())
}

func TestHistory_PushDedupesAndClearsRedo(t *testing.T) {
	h := editor.NewHistory(0)
	h.Push("a")
	h.Push("a")
	undo, _ := h.Len()
	assert.Equal(t, 1, undo)

	h.Push("b")
	h.Undo()
	assert.True(t, h.CanRedo())

	h.Push("a")
	assert.True(t, h.CanRedo(), "equal push is a no-op and keeps redo")

	h.Push("c")
	assert.False(t, h.CanRedo())
}

func TestHistory_CapEvictsOldest(t *testing.T) {
	h := editor.NewHistory(50)
	for i := 0; i < 60; i++ {
		h.Push(fmt.Sprintf("s%02d", i))
	}
	snaps := h.Snapshots()
	require.Len(t, snaps, 50)
	assert.Equal(t, "s10", snaps[0])
	assert.Equal(t, "s59", snaps[49])
}

func TestHistory_RedoRespectsCap(t *testing.T) {
	h := editor.NewHistory(3)
	h.Push("a")
	h.Push("b")
	h.Push("c")
	h.Undo()
	h.Redo()
	assert.Equal(t, []string{"a", "b", "c"}, h.Snapshots())
}

func TestHistory_Reset(t *testing.T) {
	h := editor.NewHistory(0)
	h.Push("a")
	h.Push("b")
	h.Undo()
	h.Reset("z")
	undo, redo := h.Len()
	assert.Equal(t, 1, undo)
	assert.Equal(t, 0, redo)
	assert.Equal(t, []string{"z"}, h.Snapshots())
}
