// Package editor implements a board editing session: the live document, the
// selection, undo history and the pointer/keyboard interaction state machine.
//
// A Session is single-owner state and is not safe for concurrent use; callers
// that share one across goroutines must serialize access (see package sessions).
package editor

import (
	"fmt"
	"reflect"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/document"
	"github.com/starford/menuboard/internal/geometry"
	"github.com/starford/menuboard/internal/history"
	"github.com/starford/menuboard/internal/layering"
	"github.com/starford/menuboard/internal/models"
)

// Config holds the editing rules of a session.
type Config struct {
	MinElementSize  float64
	DuplicateOffset float64
	NudgeStep       float64
	NudgeStepLarge  float64
	HistoryLimit    int
}

// DefaultConfig returns the stock editing rules.
func DefaultConfig() Config {
	return Config{
		MinElementSize:  20,
		DuplicateOffset: 20,
		NudgeStep:       1,
		NudgeStepLarge:  10,
	}
}

// CommitHook is called after every history commit with a short reason
// ("add", "drag", "resize", "nudge", ...).
type CommitHook func(reason string)

// Viewport describes where the canvas sits on screen.
type Viewport struct {
	Rect geometry.Rect `json:"rect"`
	Zoom float64       `json:"zoom"`
}

// Session is one editing session over a single owned document.
type Session struct {
	cfg      Config
	opts     document.Options
	doc      models.Document
	sel      Selection
	hist     *history.History
	viewport Viewport
	g        gesture
	onCommit CommitHook
	version  int
}

// New starts a session on doc. The document is copied and its zIndex values
// normalized; that normalized state is history entry 0.
func New(doc models.Document, cfg Config) *Session {
	doc = document.Normalize(doc)
	if doc.Elements == nil {
		doc.Elements = []models.Element{}
	}
	return &Session{
		cfg:      cfg,
		opts:     document.Options{MinSize: cfg.MinElementSize, DuplicateOffset: cfg.DuplicateOffset},
		doc:      doc,
		hist:     history.New(doc, cfg.HistoryLimit),
		viewport: Viewport{Zoom: 1},
	}
}

// OnCommit registers a hook fired after each history commit.
func (s *Session) OnCommit(h CommitHook) { s.onCommit = h }

// Document returns a copy of the live document.
func (s *Session) Document() models.Document { return s.doc.Clone() }

// Selection returns the selected ids.
func (s *Session) Selection() []string { return s.sel.IDs() }

// State returns the interaction state.
func (s *Session) State() State { return s.g.state }

// HistoryLen is the number of retained history entries.
func (s *Session) HistoryLen() int { return s.hist.Len() }

// Version increases every time the committed document changes: commits,
// undos and document replacement.
func (s *Session) Version() int { return s.version }

// CanUndo reports whether an undo would change anything.
func (s *Session) CanUndo() bool { return s.hist.CanUndo() || s.pending() }

// pending reports whether the live document holds uncommitted changes.
func (s *Session) pending() bool {
	return !reflect.DeepEqual(document.Normalize(s.doc), s.hist.Current())
}

// Viewport returns the current viewport.
func (s *Session) Viewport() Viewport { return s.viewport }

// SetViewport records the canvas's on-screen rect; zoom is kept.
func (s *Session) SetViewport(r geometry.Rect) { s.viewport.Rect = r }

// SetZoom sets the zoom, clamped to the supported range.
func (s *Session) SetZoom(z float64) { s.viewport.Zoom = geometry.ClampZoom(z) }

// ZoomBy moves the zoom by whole steps.
func (s *Session) ZoomBy(steps int) { s.viewport.Zoom = geometry.StepZoom(s.viewport.Zoom, steps) }

func (s *Session) idle() error {
	if s.g.state != StateIdle {
		return apperr.ErrBusy
	}
	return nil
}

// commit normalizes the live document and pushes it to history.
func (s *Session) commit(reason string) {
	s.doc = document.Normalize(s.doc)
	s.hist.Commit(s.doc)
	s.version++
	if s.onCommit != nil {
		s.onCommit(reason)
	}
}

// replace swaps in next and commits when it differs from the live document.
func (s *Session) replace(next models.Document, reason string) bool {
	if reflect.DeepEqual(next, s.doc) {
		return false
	}
	s.doc = next
	s.commit(reason)
	return true
}

// AddElement adds an element of kind k, selects it alone and commits.
func (s *Session) AddElement(k models.Kind) (models.Element, error) {
	if err := s.idle(); err != nil {
		return models.Element{}, err
	}
	if !k.Valid() {
		return models.Element{}, fmt.Errorf("%w: unknown element kind %q", apperr.ErrInvalid, k)
	}
	doc, el := document.AddElement(s.doc, k)
	s.doc = doc
	s.sel.Set(el.ID)
	s.commit("add")
	return el, nil
}

// UpdateElement merges patch into the element. With commit false the change
// stays live until the next Commit (or any other committing operation).
func (s *Session) UpdateElement(id string, patch document.Patch, commit bool) error {
	if err := s.idle(); err != nil {
		return err
	}
	s.doc = document.UpdateElement(s.doc, id, patch, s.opts)
	if commit {
		s.Commit()
	}
	return nil
}

// Commit pushes the live document to history if it differs from the
// current entry. It reports whether an entry was added.
func (s *Session) Commit() bool {
	if s.g.state != StateIdle {
		return false
	}
	if !s.pending() {
		return false
	}
	s.commit("update")
	return true
}

// DeleteSelected removes the selected elements and clears the selection.
func (s *Session) DeleteSelected() bool {
	if s.idle() != nil || s.sel.Len() == 0 {
		return false
	}
	ids := s.sel.IDs()
	s.sel.Clear()
	return s.replace(document.DeleteElements(s.doc, ids), "delete")
}

// DuplicateSelected copies the selected elements and selects the copies.
func (s *Session) DuplicateSelected() bool {
	if s.idle() != nil || s.sel.Len() == 0 {
		return false
	}
	doc, created := document.DuplicateElements(s.doc, s.sel.IDs(), s.opts)
	if len(created) == 0 {
		return false
	}
	s.sel.Set(created...)
	return s.replace(doc, "duplicate")
}

// Nudge shifts the selected elements by (dx, dy) and commits.
func (s *Session) Nudge(dx, dy float64) bool {
	if s.idle() != nil || s.sel.Len() == 0 {
		return false
	}
	doc := s.doc
	for _, id := range s.sel.IDs() {
		el, ok := doc.Element(id)
		if !ok {
			continue
		}
		doc = document.UpdateElement(doc, id, document.Move(el.X+dx, el.Y+dy), s.opts)
	}
	return s.replace(doc, "nudge")
}

// Layer applies a z-order operation to the selection.
func (s *Session) Layer(op layering.Op) (bool, error) {
	if err := s.idle(); err != nil {
		return false, err
	}
	doc, ok := layering.Apply(op, s.doc, s.sel.IDs())
	if !ok {
		return false, fmt.Errorf("%w: unknown layering op %q", apperr.ErrInvalid, op)
	}
	return s.replace(doc, "layer"), nil
}

// Undo reverts the most recent change. Uncommitted live changes count as
// that change: they are dropped and the history cursor stays put. Otherwise
// the previous history entry is restored; at the start of the session it
// does nothing.
func (s *Session) Undo() bool {
	if s.idle() != nil {
		return false
	}
	if s.pending() {
		s.doc = s.hist.Current()
		s.sel.Prune(s.doc)
		s.version++
		return true
	}
	prev, ok := s.hist.Undo()
	if !ok {
		return false
	}
	s.doc = prev
	s.sel.Prune(s.doc)
	s.version++
	return true
}

// Select replaces the selection, or extends it when additive. Unknown ids are ignored.
func (s *Session) Select(ids []string, additive bool) {
	if !additive {
		s.sel.Clear()
	}
	for _, id := range ids {
		if s.doc.IndexOf(id) >= 0 {
			s.sel.Add(id)
		}
	}
}

// SelectAll selects every element in paint order.
func (s *Session) SelectAll() {
	s.sel.Clear()
	for _, i := range document.PaintOrder(s.doc) {
		s.sel.Add(s.doc.Elements[i].ID)
	}
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() { s.sel.Clear() }

// SetCanvas resizes the canvas.
func (s *Session) SetCanvas(size models.CanvasSize) error {
	if err := s.idle(); err != nil {
		return err
	}
	if size.Width <= 0 || size.Height <= 0 || size.Width > document.MaxCanvasSide || size.Height > document.MaxCanvasSide {
		return fmt.Errorf("%w: canvas size %dx%d", apperr.ErrInvalid, size.Width, size.Height)
	}
	next := s.doc.Clone()
	next.CanvasSize = size
	s.replace(next, "canvas")
	return nil
}

// SetBackground sets the background colour and image reference.
func (s *Session) SetBackground(color, image string) error {
	if err := s.idle(); err != nil {
		return err
	}
	next := s.doc.Clone()
	next.BackgroundColor = color
	next.BackgroundImage = image
	s.replace(next, "background")
	return nil
}

// Rename sets the document name.
func (s *Session) Rename(name string) error {
	if err := s.idle(); err != nil {
		return err
	}
	next := s.doc.Clone()
	next.Name = name
	s.replace(next, "rename")
	return nil
}

// ReplaceDocument swaps in a whole new document (an import). The history
// restarts with doc as its first entry and the selection is cleared. An
// invalid document leaves the session untouched.
func (s *Session) ReplaceDocument(doc models.Document) error {
	if err := s.idle(); err != nil {
		return err
	}
	doc = document.Normalize(doc)
	if doc.Elements == nil {
		doc.Elements = []models.Element{}
	}
	if err := document.Validate(doc); err != nil {
		return err
	}
	s.doc = doc
	s.sel.Clear()
	s.hist = history.New(doc, s.cfg.HistoryLimit)
	s.version++
	return nil
}
