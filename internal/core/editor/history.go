package editor

// DefaultHistoryLimit bounds the undo stack.
const DefaultHistoryLimit = 50

// History keeps serialized plan snapshots for undo and redo. The top of the
// undo stack always mirrors the current model.
type History struct {
	limit int
	undo  []string
	redo  []string
}

// NewHistory returns an empty history. A non-positive limit means the default.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Push records a snapshot. Equal consecutive snapshots collapse, and any
// new snapshot invalidates the redo stack.
func (h *History) Push(snapshot string) {
	if n := len(h.undo); n > 0 && h.undo[n-1] == snapshot {
		return
	}
	h.undo = append(h.undo, snapshot)
	if over := len(h.undo) - h.limit; over > 0 {
		h.undo = append(h.undo[:0:0], h.undo[over:]...)
	}
	h.redo = h.redo[:0]
}

// Undo moves the current snapshot to the redo stack and returns the one
// before it. The first snapshot can never be undone.
func (h *History) Undo() (string, bool) {
	n := len(h.undo)
	if n < 2 {
		return "", false
	}
	h.redo = append(h.redo, h.undo[n-1])
	h.undo = h.undo[:n-1]
	return h.undo[n-2], true
}

// Redo re-applies the last undone snapshot.
func (h *History) Redo() (string, bool) {
	n := len(h.redo)
	if n == 0 {
		return "", false
	}
	snapshot := h.redo[n-1]
	h.redo = h.redo[:n-1]
	h.undo = append(h.undo, snapshot)
	if over := len(h.undo) - h.limit; over > 0 {
		h.undo = append(h.undo[:0:0], h.undo[over:]...)
	}
	return snapshot, true
}

func (h *History) CanUndo() bool { return len(h.undo) >= 2 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Len returns the sizes of the undo and redo stacks.
func (h *History) Len() (undo, redo int) { return len(h.undo), len(h.redo) }

// Snapshots returns a copy of the undo stack, oldest first.
func (h *History) Snapshots() []string {
	return append([]string(nil), h.undo...)
}

// Clear drops both stacks.
func (h *History) Clear() {
	h.undo = nil
	h.redo = nil
}

// Reset clears the history and seeds it with the current state.
func (h *History) Reset(seed string) {
	h.Clear()
	h.Push(seed)
}
