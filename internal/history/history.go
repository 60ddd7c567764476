// Package history keeps a linear undo stack of committed document snapshots.
//
// Entries are deep copies, so mutating the live document never reaches back
// into a stored snapshot. There is no redo: a commit after an undo discards
// the forward tail.
package history

import "github.com/starford/menuboard/internal/models"

// History is a sequence of snapshots with a cursor on the current entry.
type History struct {
	entries []models.Document
	cursor  int
	limit   int
}

// New starts a history whose only entry is initial. limit caps the number of
// retained entries; 0 keeps everything for the lifetime of the session.
func New(initial models.Document, limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{
		entries: []models.Document{initial.Clone()},
		limit:   limit,
	}
}

// Commit truncates any entries after the cursor and appends a snapshot.
func (h *History) Commit(doc models.Document) {
	h.entries = append(h.entries[:h.cursor+1], doc.Clone())
	if h.limit > 0 && len(h.entries) > h.limit {
		drop := len(h.entries) - h.limit
		h.entries = append([]models.Document(nil), h.entries[drop:]...)
	}
	h.cursor = len(h.entries) - 1
}

// Undo steps the cursor back and returns a copy of the entry it lands on.
// At the oldest entry it reports false and changes nothing.
func (h *History) Undo() (models.Document, bool) {
	if h.cursor == 0 {
		return models.Document{}, false
	}
	h.cursor--
	return h.entries[h.cursor].Clone(), true
}

// Current returns a copy of the entry under the cursor.
func (h *History) Current() models.Document {
	return h.entries[h.cursor].Clone()
}

// Len is the number of retained entries.
func (h *History) Len() int { return len(h.entries) }

// Cursor is the index of the current entry.
func (h *History) Cursor() int { return h.cursor }

// CanUndo reports whether Undo would move the cursor.
func (h *History) CanUndo() bool { return h.cursor > 0 }
