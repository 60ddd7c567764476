package editor

import (
	"fmt"
	"math"
	"reflect"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/document"
	"github.com/starford/menuboard/internal/geometry"
	"github.com/starford/menuboard/internal/models"
)

// State is the pointer interaction state.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateResizing
)

func (s State) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	default:
		return "idle"
	}
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Corner identifies a resize handle.
type Corner string

const (
	CornerTopLeft     Corner = "tl"
	CornerTopRight    Corner = "tr"
	CornerBottomLeft  Corner = "bl"
	CornerBottomRight Corner = "br"
)

// Valid reports whether c is a known handle.
func (c Corner) Valid() bool {
	switch c {
	case CornerTopLeft, CornerTopRight, CornerBottomLeft, CornerBottomRight:
		return true
	}
	return false
}

// PointerEvent is a pointer position in viewport coordinates. Target names
// the element under the pointer; when empty the session hit-tests itself.
// Handle is set when the press lands on a resize handle of Target.
type PointerEvent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Target string  `json:"target,omitempty"`
	Handle Corner  `json:"handle,omitempty"`
	Multi  bool    `json:"multi,omitempty"`
}

type gesture struct {
	state   State
	ids     []string
	offsets map[string]geometry.Point
	corner  Corner
	box     geometry.Rect
	start   models.Document
}

func (s *Session) toCanvas(ev PointerEvent) geometry.Point {
	return geometry.ToCanvas(geometry.Point{X: ev.X, Y: ev.Y}, s.viewport.Rect, s.viewport.Zoom)
}

// PointerDown starts a drag or resize, or changes the selection.
// A press on empty canvas clears the selection (unless Multi is set); so does
// a press whose Target is not in the document.
func (s *Session) PointerDown(ev PointerEvent) error {
	if err := s.idle(); err != nil {
		return err
	}
	p := s.toCanvas(ev)
	target := ev.Target
	if target == "" {
		target, _ = document.HitTest(s.doc, p)
	}
	el, ok := s.doc.Element(target)
	if !ok {
		// Nothing under the pointer, or a target that no longer exists.
		if !ev.Multi {
			s.sel.Clear()
		}
		return nil
	}

	if ev.Handle != "" {
		if !ev.Handle.Valid() {
			return fmt.Errorf("%w: resize handle %q", apperr.ErrInvalid, ev.Handle)
		}
		s.sel.Set(target)
		s.g = gesture{
			state:  StateResizing,
			ids:    []string{target},
			corner: ev.Handle,
			box:    document.BoxOf(el),
			start:  s.doc.Clone(),
		}
		return nil
	}

	switch {
	case ev.Multi && s.sel.Has(target):
		s.sel.Remove(target)
		return nil
	case ev.Multi:
		s.sel.Add(target)
	case !s.sel.Has(target):
		s.sel.Set(target)
	}

	ids := s.sel.IDs()
	offsets := make(map[string]geometry.Point, len(ids))
	for _, id := range ids {
		if e, ok := s.doc.Element(id); ok {
			offsets[id] = p.Sub(geometry.Point{X: e.X, Y: e.Y})
		}
	}
	s.g = gesture{
		state:   StateDragging,
		ids:     ids,
		offsets: offsets,
		start:   s.doc.Clone(),
	}
	return nil
}

// PointerMove updates the live document for the active gesture. Nothing is
// committed until PointerUp. In the idle state it does nothing.
func (s *Session) PointerMove(ev PointerEvent) {
	p := s.toCanvas(ev)
	switch s.g.state {
	case StateDragging:
		for _, id := range s.g.ids {
			off, ok := s.g.offsets[id]
			if !ok {
				continue
			}
			pos := p.Sub(off)
			s.doc = document.UpdateElement(s.doc, id, document.Move(pos.X, pos.Y), s.opts)
		}
	case StateResizing:
		r := ResizeRect(s.g.box, s.g.corner, p, s.cfg.MinElementSize)
		s.doc = document.UpdateElement(s.doc, s.g.ids[0], document.Bounds(r), s.opts)
	}
}

// PointerUp ends the gesture where the last PointerMove left it. It commits
// exactly once when the gesture changed the document and reports whether it
// did.
func (s *Session) PointerUp() bool {
	if s.g.state == StateIdle {
		return false
	}
	state, start := s.g.state, s.g.start
	s.g = gesture{}
	if reflect.DeepEqual(start, s.doc) {
		return false
	}
	reason := "drag"
	if state == StateResizing {
		reason = "resize"
	}
	s.commit(reason)
	return true
}

// CancelGesture abandons the active gesture and restores the document as it
// was at PointerDown.
func (s *Session) CancelGesture() {
	if s.g.state == StateIdle {
		return
	}
	s.doc = s.g.start
	s.g = gesture{}
}

// ResizeRect returns box resized by dragging corner c to p. The opposite
// corner stays fixed and neither side shrinks below min.
func ResizeRect(box geometry.Rect, c Corner, p geometry.Point, min float64) geometry.Rect {
	left, top, right, bottom := box.X, box.Y, box.Right(), box.Bottom()
	switch c {
	case CornerBottomRight:
		right = math.Max(p.X, left+min)
		bottom = math.Max(p.Y, top+min)
	case CornerBottomLeft:
		left = math.Min(p.X, right-min)
		bottom = math.Max(p.Y, top+min)
	case CornerTopRight:
		right = math.Max(p.X, left+min)
		top = math.Min(p.Y, bottom-min)
	case CornerTopLeft:
		left = math.Min(p.X, right-min)
		top = math.Min(p.Y, bottom-min)
	}
	return geometry.Rect{X: left, Y: top, Width: right - left, Height: bottom - top}
}
