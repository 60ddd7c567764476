package editor

import (
	"errors"
	"reflect"
	"testing"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/document"
	"github.com/starford/menuboard/internal/geometry"
	"github.com/starford/menuboard/internal/layering"
	"github.com/starford/menuboard/internal/models"
)

func newDoc(els ...models.Element) models.Document {
	doc := models.NewDocument("test", models.DefaultCanvas)
	for i, el := range els {
		if el.ZIndex == 0 {
			el.ZIndex = i + 1
		}
		if el.Opacity == 0 {
			el.Opacity = 1
		}
		if el.Type == "" {
			el.Type = models.KindShape
		}
		doc.Elements = append(doc.Elements, el)
	}
	return doc
}

func box(id string, x, y, w, h float64) models.Element {
	return models.Element{ID: id, X: x, Y: y, Width: w, Height: h}
}

func mustElement(t *testing.T, s *Session, id string) models.Element {
	t.Helper()
	el, ok := s.Document().Element(id)
	if !ok {
		t.Fatalf("element %s missing", id)
	}
	return el
}

func TestAddElementCommits(t *testing.T) {
	s := New(newDoc(), DefaultConfig())
	el, err := s.AddElement(models.KindText)
	if err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	doc := s.Document()
	if len(doc.Elements) != 1 {
		t.Fatalf("elements = %d, want 1", len(doc.Elements))
	}
	if doc.Elements[0].ZIndex != 1 {
		t.Errorf("zIndex = %d, want 1", doc.Elements[0].ZIndex)
	}
	if got := s.Selection(); !reflect.DeepEqual(got, []string{el.ID}) {
		t.Errorf("selection = %v, want [%s]", got, el.ID)
	}
	if s.HistoryLen() != 2 {
		t.Errorf("history = %d, want 2", s.HistoryLen())
	}
}

func TestAddElementRejectsUnknownKind(t *testing.T) {
	s := New(newDoc(), DefaultConfig())
	if _, err := s.AddElement("sticker"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	if s.HistoryLen() != 1 {
		t.Error("failed add should not commit")
	}
}

func TestDragCommitsOnce(t *testing.T) {
	s := New(newDoc(box("a", 60, 60, 100, 100)), DefaultConfig())
	s.Select([]string{"a"}, false)

	if err := s.PointerDown(PointerEvent{X: 70, Y: 70}); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	if s.State() != StateDragging {
		t.Fatalf("state = %s, want dragging", s.State())
	}
	for i := 1; i <= 5; i++ {
		s.PointerMove(PointerEvent{X: 70 + float64(i)*6, Y: 70 + float64(i)*2})
		if s.HistoryLen() != 1 {
			t.Fatal("pointer move must not commit")
		}
	}
	if !s.PointerUp() {
		t.Fatal("PointerUp did not commit")
	}

	el := mustElement(t, s, "a")
	if el.X != 90 || el.Y != 70 {
		t.Errorf("position = (%v,%v), want (90,70)", el.X, el.Y)
	}
	if s.HistoryLen() != 2 {
		t.Errorf("history = %d, want 2", s.HistoryLen())
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

func TestDragHonoursZoom(t *testing.T) {
	s := New(newDoc(box("a", 60, 60, 100, 100)), DefaultConfig())
	s.SetViewport(geometry.Rect{X: 10, Y: 20, Width: 960, Height: 540})
	s.SetZoom(0.5)

	// canvas (70,70) sits at viewport (10+35, 20+35)
	if err := s.PointerDown(PointerEvent{X: 45, Y: 55, Target: "a"}); err != nil {
		t.Fatal(err)
	}
	s.PointerMove(PointerEvent{X: 60, Y: 60})
	s.PointerUp()

	el := mustElement(t, s, "a")
	if el.X != 90 || el.Y != 70 {
		t.Errorf("position = (%v,%v), want (90,70)", el.X, el.Y)
	}
}

func TestGroupDragKeepsOffsets(t *testing.T) {
	s := New(newDoc(box("a", 0, 0, 50, 50), box("b", 200, 100, 50, 50)), DefaultConfig())
	s.Select([]string{"a", "b"}, false)

	s.PointerDown(PointerEvent{X: 10, Y: 10, Target: "a"})
	s.PointerMove(PointerEvent{X: 20, Y: 30})
	s.PointerUp()

	a, b := mustElement(t, s, "a"), mustElement(t, s, "b")
	if a.X != 10 || a.Y != 20 || b.X != 210 || b.Y != 120 {
		t.Errorf("a=(%v,%v) b=(%v,%v), want a=(10,20) b=(210,120)", a.X, a.Y, b.X, b.Y)
	}
}

func TestClickWithoutMoveDoesNotCommit(t *testing.T) {
	s := New(newDoc(box("a", 0, 0, 50, 50)), DefaultConfig())
	s.PointerDown(PointerEvent{X: 10, Y: 10})
	if s.PointerUp() {
		t.Error("stationary click should not commit")
	}
	if got := s.Selection(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("selection = %v, want [a]", got)
	}
}

func TestPointerDownWhileBusy(t *testing.T) {
	s := New(newDoc(box("a", 0, 0, 50, 50)), DefaultConfig())
	s.PointerDown(PointerEvent{X: 10, Y: 10})
	if err := s.PointerDown(PointerEvent{X: 10, Y: 10}); !errors.Is(err, apperr.ErrBusy) {
		t.Errorf("err = %v, want ErrBusy", err)
	}
}

func TestEmptyCanvasClearsSelection(t *testing.T) {
	s := New(newDoc(box("a", 0, 0, 50, 50)), DefaultConfig())
	s.Select([]string{"a"}, false)
	s.PointerDown(PointerEvent{X: 500, Y: 500})
	if len(s.Selection()) != 0 {
		t.Errorf("selection = %v, want empty", s.Selection())
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s, want idle", s.State())
	}
}

func TestMultiSelectToggles(t *testing.T) {
	s := New(newDoc(box("a", 0, 0, 50, 50), box("b", 100, 0, 50, 50)), DefaultConfig())
	s.PointerDown(PointerEvent{X: 10, Y: 10})
	s.PointerUp()
	s.PointerDown(PointerEvent{X: 110, Y: 10, Multi: true})
	s.PointerUp()
	if got := s.Selection(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("selection = %v, want [a b]", got)
	}
	s.PointerDown(PointerEvent{X: 10, Y: 10, Multi: true})
	if got := s.Selection(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("selection = %v, want [b]", got)
	}
}

func TestResizeFloor(t *testing.T) {
	start := geometry.Rect{X: 100, Y: 100, Width: 100, Height: 100}
	cases := []struct {
		corner Corner
		to     geometry.Point
		want   geometry.Rect
	}{
		{CornerBottomRight, geometry.Point{X: 250, Y: 260}, geometry.Rect{X: 100, Y: 100, Width: 150, Height: 160}},
		{CornerBottomRight, geometry.Point{X: 0, Y: 0}, geometry.Rect{X: 100, Y: 100, Width: 20, Height: 20}},
		{CornerTopLeft, geometry.Point{X: 50, Y: 60}, geometry.Rect{X: 50, Y: 60, Width: 150, Height: 140}},
		{CornerTopLeft, geometry.Point{X: 400, Y: 400}, geometry.Rect{X: 180, Y: 180, Width: 20, Height: 20}},
		{CornerTopRight, geometry.Point{X: 0, Y: 500}, geometry.Rect{X: 100, Y: 180, Width: 20, Height: 20}},
		{CornerBottomLeft, geometry.Point{X: 500, Y: 0}, geometry.Rect{X: 180, Y: 100, Width: 20, Height: 20}},
	}
	for _, tc := range cases {
		t.Run(string(tc.corner), func(t *testing.T) {
			s := New(newDoc(box("a", start.X, start.Y, start.Width, start.Height)), DefaultConfig())
			if err := s.PointerDown(PointerEvent{X: 0, Y: 0, Target: "a", Handle: tc.corner}); err != nil {
				t.Fatal(err)
			}
			if s.State() != StateResizing {
				t.Fatalf("state = %s, want resizing", s.State())
			}
			s.PointerMove(PointerEvent{X: tc.to.X, Y: tc.to.Y})
			s.PointerUp()
			got := document.BoxOf(mustElement(t, s, "a"))
			if got != tc.want {
				t.Errorf("box = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestResizeCollapsesSelection(t *testing.T) {
	s := New(newDoc(box("a", 0, 0, 50, 50), box("b", 100, 0, 50, 50)), DefaultConfig())
	s.SelectAll()
	s.PointerDown(PointerEvent{Target: "b", Handle: CornerBottomRight})
	if got := s.Selection(); !reflect.DeepEqual(got, []string{"b"}) {
		t.Errorf("selection = %v, want [b]", got)
	}
}

func TestDeleteThenUndo(t *testing.T) {
	a := box("a", 10, 20, 30, 40)
	a.Content = "keep me"
	a.Color = "#ff0000"
	orig := newDoc(a, box("b", 100, 0, 50, 50))
	s := New(orig, DefaultConfig())
	s.Select([]string{"a"}, false)

	if !s.DeleteSelected() {
		t.Fatal("delete reported no change")
	}
	if len(s.Document().Elements) != 1 {
		t.Fatalf("elements after delete = %d, want 1", len(s.Document().Elements))
	}
	if !s.Undo() {
		t.Fatal("undo reported no change")
	}
	if got := s.Document(); !reflect.DeepEqual(got, orig) {
		t.Errorf("after undo = %+v, want %+v", got, orig)
	}
}

func TestUndoAtStart(t *testing.T) {
	orig := newDoc(box("a", 0, 0, 50, 50))
	s := New(orig, DefaultConfig())
	if s.Undo() {
		t.Error("undo at start reported change")
	}
	if !reflect.DeepEqual(s.Document(), orig) {
		t.Error("undo at start changed the document")
	}
}

func TestUndoPrunesSelection(t *testing.T) {
	s := New(newDoc(), DefaultConfig())
	el, _ := s.AddElement(models.KindShape)
	s.Undo()
	for _, id := range s.Selection() {
		if id == el.ID {
			t.Error("selection still holds an element undone out of existence")
		}
	}
}

func TestBringToFront(t *testing.T) {
	s := New(newDoc(box("a", 0, 0, 10, 10), box("b", 0, 0, 10, 10), box("c", 0, 0, 10, 10)), DefaultConfig())
	s.Select([]string{"a"}, false)
	changed, err := s.Layer(layering.OpBringToFront)
	if err != nil || !changed {
		t.Fatalf("Layer = %v, %v", changed, err)
	}
	z := map[string]int{}
	for _, el := range s.Document().Elements {
		z[el.ID] = el.ZIndex
	}
	if z["a"] != 3 || z["b"] != 1 || z["c"] != 2 {
		t.Errorf("z = %v, want a=3 b=1 c=2", z)
	}
	if s.HistoryLen() != 2 {
		t.Errorf("history = %d, want 2", s.HistoryLen())
	}
}

func TestLayerAtTopDoesNotCommit(t *testing.T) {
	s := New(newDoc(box("a", 0, 0, 10, 10), box("b", 0, 0, 10, 10)), DefaultConfig())
	s.Select([]string{"b"}, false)
	changed, _ := s.Layer(layering.OpBringForward)
	if changed || s.HistoryLen() != 1 {
		t.Error("bringing the topmost element forward should be a no-op")
	}
}

func TestKeyboardShortcuts(t *testing.T) {
	s := New(newDoc(box("a", 100, 100, 50, 50)), DefaultConfig())
	s.Select([]string{"a"}, false)

	s.KeyDown(KeyEvent{Key: "ArrowRight"})
	s.KeyDown(KeyEvent{Key: "ArrowDown", Shift: true})
	el := mustElement(t, s, "a")
	if el.X != 101 || el.Y != 110 {
		t.Errorf("after nudge = (%v,%v), want (101,110)", el.X, el.Y)
	}
	if s.HistoryLen() != 3 {
		t.Errorf("history = %d, want one entry per key press", s.HistoryLen())
	}

	s.KeyDown(KeyEvent{Key: "d", Ctrl: true})
	if n := len(s.Document().Elements); n != 2 {
		t.Fatalf("elements after duplicate = %d, want 2", n)
	}
	if sel := s.Selection(); len(sel) != 1 || sel[0] == "a" {
		t.Errorf("selection after duplicate = %v, want the copy", sel)
	}

	s.KeyDown(KeyEvent{Key: "z", Meta: true})
	if n := len(s.Document().Elements); n != 1 {
		t.Errorf("elements after undo = %d, want 1", n)
	}

	s.KeyDown(KeyEvent{Key: "a", Ctrl: true})
	s.KeyDown(KeyEvent{Key: "Delete"})
	if n := len(s.Document().Elements); n != 0 {
		t.Errorf("elements after delete = %d, want 0", n)
	}

	if s.KeyDown(KeyEvent{Key: "z", Ctrl: true, Shift: true}) {
		t.Error("ctrl+shift+z has no binding")
	}
}

func TestEscapeCancelsGesture(t *testing.T) {
	s := New(newDoc(box("a", 0, 0, 50, 50)), DefaultConfig())
	s.PointerDown(PointerEvent{X: 10, Y: 10})
	s.PointerMove(PointerEvent{X: 300, Y: 300})
	s.KeyDown(KeyEvent{Key: "Escape"})
	if s.State() != StateIdle {
		t.Fatalf("state = %s, want idle", s.State())
	}
	if el := mustElement(t, s, "a"); el.X != 0 || el.Y != 0 {
		t.Errorf("position = (%v,%v), want restored (0,0)", el.X, el.Y)
	}
	if s.HistoryLen() != 1 {
		t.Error("cancelled gesture committed")
	}
}

func TestUpdateElementDeferredCommit(t *testing.T) {
	s := New(newDoc(box("a", 0, 0, 50, 50)), DefaultConfig())
	content := "Burger"
	s.UpdateElement("a", document.Patch{Content: &content}, false)
	if s.HistoryLen() != 1 {
		t.Fatal("uncommitted update reached history")
	}
	if !s.Commit() {
		t.Fatal("Commit reported nothing to commit")
	}
	if s.Commit() {
		t.Error("second Commit should be a no-op")
	}
}

func TestReplaceDocumentResetsHistory(t *testing.T) {
	s := New(newDoc(), DefaultConfig())
	s.AddElement(models.KindText)
	imported := newDoc(box("x", 0, 0, 50, 50))
	if err := s.ReplaceDocument(imported); err != nil {
		t.Fatal(err)
	}
	if s.HistoryLen() != 1 || s.CanUndo() {
		t.Error("history should restart at the imported document")
	}

	bad := newDoc(box("x", 0, 0, 50, 50), box("x", 0, 0, 50, 50))
	if err := s.ReplaceDocument(bad); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	if !reflect.DeepEqual(s.Document(), imported) {
		t.Error("failed replace changed the document")
	}
}

func TestZIndexDenseAfterCommands(t *testing.T) {
	s := New(newDoc(), DefaultConfig())
	for _, k := range models.Kinds {
		s.AddElement(k)
	}
	s.SelectAll()
	s.DuplicateSelected()
	s.Select(s.Selection()[:2], false)
	s.Layer(layering.OpSendToBack)
	s.DeleteSelected()
	if !document.DenseZ(s.Document()) {
		t.Error("zIndex not dense")
	}
}

func TestDecodeAndApplyCommand(t *testing.T) {
	s := New(newDoc(), DefaultConfig())
	cmd, err := DecodeCommand([]byte(`{"type":"addElement","kind":"price"}`))
	if err != nil {
		t.Fatal(err)
	}
	res, err := s.Apply(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Changed || res.Element == nil || res.Element.Content != "$9.99" {
		t.Errorf("result = %+v", res)
	}

	cmd, _ = DecodeCommand([]byte(`{"type":"keyDown","key":"z","ctrl":true}`))
	res, _ = s.Apply(cmd)
	if !res.Changed || len(s.Document().Elements) != 0 {
		t.Error("keyboard undo through Apply did not take effect")
	}

	if _, err := DecodeCommand([]byte(`{"type":"explode"}`)); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	cmd, _ = DecodeCommand([]byte(`{"type":"updateElement","id":"nope","patch":{"x":5},"commit":true}`))
	res, err = s.Apply(cmd)
	if err != nil || res.Changed {
		t.Errorf("stale update: result = %+v, err = %v, want silent no-op", res, err)
	}
}

func TestPointerUpWithoutCoordinates(t *testing.T) {
	s := New(newDoc(box("a", 60, 60, 100, 100)), DefaultConfig())
	for _, raw := range []string{
		`{"type":"pointerDown","x":70,"y":70}`,
		`{"type":"pointerMove","x":100,"y":80}`,
		`{"type":"pointerUp"}`,
	} {
		cmd, err := DecodeCommand([]byte(raw))
		if err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
		if _, err := s.Apply(cmd); err != nil {
			t.Fatalf("apply %s: %v", raw, err)
		}
	}
	el := mustElement(t, s, "a")
	if el.X != 90 || el.Y != 70 {
		t.Errorf("position = (%v,%v), want (90,70)", el.X, el.Y)
	}
	if s.HistoryLen() != 2 || s.State() != StateIdle {
		t.Errorf("history = %d state = %s, want 2 idle", s.HistoryLen(), s.State())
	}
}

func TestPointerDownStaleTarget(t *testing.T) {
	s := New(newDoc(box("a", 0, 0, 50, 50)), DefaultConfig())
	s.Select([]string{"a"}, false)
	if err := s.PointerDown(PointerEvent{X: 10, Y: 10, Target: "gone"}); err != nil {
		t.Fatalf("PointerDown: %v", err)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s, want idle", s.State())
	}
	if len(s.Selection()) != 0 {
		t.Errorf("selection = %v, want empty", s.Selection())
	}
	if s.HistoryLen() != 1 {
		t.Errorf("history = %d, want 1", s.HistoryLen())
	}
}

func TestUndoDropsPendingChangeOnly(t *testing.T) {
	s := New(newDoc(box("a", 0, 0, 50, 50)), DefaultConfig())
	s.Select([]string{"a"}, false)
	s.Nudge(5, 0)
	committed := s.Document()

	content := "Burger"
	s.UpdateElement("a", document.Patch{Content: &content}, false)
	if !s.CanUndo() {
		t.Fatal("CanUndo = false with a pending change")
	}
	if !s.Undo() {
		t.Fatal("Undo reported nothing to undo")
	}
	if !reflect.DeepEqual(s.Document(), committed) {
		t.Errorf("document = %+v, want last committed state", s.Document())
	}
	if s.HistoryLen() != 2 {
		t.Errorf("history = %d, want 2", s.HistoryLen())
	}

	s.Undo()
	if el := mustElement(t, s, "a"); el.X != 0 {
		t.Errorf("x = %v after second undo, want 0", el.X)
	}
}
