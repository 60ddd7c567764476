package history

import (
	"testing"

	"github.com/starford/menuboard/internal/models"
)

func docNamed(name string) models.Document {
	d := models.NewDocument(name, models.DefaultCanvas)
	d.Elements = append(d.Elements, models.Element{ID: name, Type: models.KindText, ZIndex: 1, Opacity: 1})
	return d
}

func TestInitialState(t *testing.T) {
	h := New(docNamed("start"), 0)
	if h.Len() != 1 || h.Cursor() != 0 {
		t.Fatalf("len/cursor = %d/%d, want 1/0", h.Len(), h.Cursor())
	}
	if h.CanUndo() {
		t.Error("fresh history should not undo")
	}
}

func TestUndoAtStartIsNoop(t *testing.T) {
	h := New(docNamed("start"), 0)
	if _, ok := h.Undo(); ok {
		t.Error("undo at cursor 0 should report false")
	}
	if h.Cursor() != 0 || h.Current().Name != "start" {
		t.Error("undo at cursor 0 changed state")
	}
}

func TestCommitThenUndo(t *testing.T) {
	h := New(docNamed("a"), 0)
	h.Commit(docNamed("b"))
	h.Commit(docNamed("c"))
	got, ok := h.Undo()
	if !ok || got.Name != "b" {
		t.Fatalf("undo = %q/%v, want b/true", got.Name, ok)
	}
	got, _ = h.Undo()
	if got.Name != "a" {
		t.Errorf("second undo = %q, want a", got.Name)
	}
}

func TestCommitAfterUndoTruncatesForwardTail(t *testing.T) {
	h := New(docNamed("a"), 0)
	h.Commit(docNamed("b"))
	h.Commit(docNamed("c"))
	h.Undo()
	h.Undo()
	h.Commit(docNamed("d"))
	if h.Len() != 2 {
		t.Fatalf("len = %d, want 2", h.Len())
	}
	if h.Current().Name != "d" {
		t.Errorf("current = %q, want d", h.Current().Name)
	}
}

func TestSnapshotsAreNotAliased(t *testing.T) {
	live := docNamed("a")
	h := New(live, 0)
	live.Elements[0].X = 500
	h.Commit(live)
	live.Elements[0].X = 900

	if got := h.Current().Elements[0].X; got != 500 {
		t.Errorf("committed snapshot X = %v, want 500", got)
	}
	prev, _ := h.Undo()
	if prev.Elements[0].X != 0 {
		t.Errorf("initial snapshot X = %v, want 0", prev.Elements[0].X)
	}
	prev.Elements[0].X = 42
	if h.Current().Elements[0].X != 0 {
		t.Error("mutating an undo result leaked into history")
	}
}

func TestLimitEvictsOldest(t *testing.T) {
	h := New(docNamed("0"), 3)
	for _, n := range []string{"1", "2", "3", "4"} {
		h.Commit(docNamed(n))
	}
	if h.Len() != 3 {
		t.Fatalf("len = %d, want 3", h.Len())
	}
	h.Undo()
	last, _ := h.Undo()
	if last.Name != "2" {
		t.Errorf("oldest retained = %q, want 2", last.Name)
	}
	if _, ok := h.Undo(); ok {
		t.Error("undo past oldest retained entry should fail")
	}
}
