package scene

import "errors"

// ErrNothingToUndo is returned when the undo history is empty.
var ErrNothingToUndo = errors.New("nothing to undo")

// undoEntry pairs a human-readable label with the inverse operation.
type undoEntry struct {
	label  string
	revert func()
}

// UndoStack records inverse operations for structural mutations so edits
// participate in the editor's undo history.
type UndoStack struct {
	entries []undoEntry
	limit   int
}

// NewUndoStack creates a stack bounded to limit entries; older entries are
// discarded once the bound is reached.
func NewUndoStack(limit int) *UndoStack {
	if limit <= 0 {
		limit = 100
	}
	return &UndoStack{limit: limit}
}

// Record pushes one undoable mutation.
func (u *UndoStack) Record(label string, revert func()) {
	u.entries = append(u.entries, undoEntry{label: label, revert: revert})
	if len(u.entries) > u.limit {
		u.entries = u.entries[len(u.entries)-u.limit:]
	}
}

// Undo reverts the most recent mutation and returns its label.
func (u *UndoStack) Undo() (string, error) {
	if len(u.entries) == 0 {
		return "", ErrNothingToUndo
	}
	entry := u.entries[len(u.entries)-1]
	u.entries = u.entries[:len(u.entries)-1]
	entry.revert()
	return entry.label, nil
}

// History returns the labels of recorded mutations, oldest first.
func (u *UndoStack) History() []string {
	labels := make([]string, len(u.entries))
	for i, e := range u.entries {
		labels[i] = e.label
	}
	return labels
}

// Len returns the number of undoable entries.
func (u *UndoStack) Len() int {
	return len(u.entries)
}
