package editor

import (
	"encoding/json"
	"fmt"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/document"
	"github.com/starford/menuboard/internal/geometry"
	"github.com/starford/menuboard/internal/layering"
	"github.com/starford/menuboard/internal/models"
)

// Command is one editing action sent over the wire to a session.
type Command interface {
	isCommand()
}

// AddElementCmd adds an element of Kind with its defaults.
type AddElementCmd struct {
	Kind models.Kind `json:"kind"`
}

// UpdateElementCmd patches one element, committing when Commit is set.
type UpdateElementCmd struct {
	ID     string         `json:"id"`
	Patch  document.Patch `json:"patch"`
	Commit bool           `json:"commit"`
}

// CommitCmd commits pending live changes.
type CommitCmd struct{}

// SelectCmd replaces or extends the selection.
type SelectCmd struct {
	IDs      []string `json:"ids"`
	Additive bool     `json:"additive"`
}

// SelectAllCmd selects every element.
type SelectAllCmd struct{}

// ClearSelectionCmd empties the selection.
type ClearSelectionCmd struct{}

// DeleteSelectedCmd deletes the selection.
type DeleteSelectedCmd struct{}

// DuplicateSelectedCmd duplicates the selection.
type DuplicateSelectedCmd struct{}

// NudgeCmd moves the selection by (DX, DY).
type NudgeCmd struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// LayerCmd reorders the selection in paint order.
type LayerCmd struct {
	Op layering.Op `json:"op"`
}

// UndoCmd steps back one history entry.
type UndoCmd struct{}

// PointerDownCmd presses the pointer.
type PointerDownCmd struct{ PointerEvent }

// PointerMoveCmd moves the pointer.
type PointerMoveCmd struct{ PointerEvent }

// PointerUpCmd ends the active gesture. Any coordinates it carries are
// ignored; the position comes from the last pointerMove.
type PointerUpCmd struct{}

// KeyDownCmd is a key press.
type KeyDownCmd struct{ KeyEvent }

// SetViewportCmd records where the canvas sits on screen.
type SetViewportCmd struct {
	Rect geometry.Rect `json:"rect"`
}

// SetZoomCmd sets the zoom, or moves it by Steps when non-zero.
type SetZoomCmd struct {
	Zoom  float64 `json:"zoom"`
	Steps int     `json:"steps"`
}

// SetCanvasCmd resizes the canvas to Width x Height or a named Preset.
type SetCanvasCmd struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Preset string `json:"preset"`
}

// SetBackgroundCmd sets the background colour and image.
type SetBackgroundCmd struct {
	Color string `json:"color"`
	Image string `json:"image"`
}

// RenameCmd renames the document.
type RenameCmd struct {
	Name string `json:"name"`
}

// ReplaceDocumentCmd swaps in a new document and restarts history.
type ReplaceDocumentCmd struct {
	Document models.Document `json:"document"`
}

func (AddElementCmd) isCommand()        {}
func (UpdateElementCmd) isCommand()     {}
func (CommitCmd) isCommand()            {}
func (SelectCmd) isCommand()            {}
func (SelectAllCmd) isCommand()         {}
func (ClearSelectionCmd) isCommand()    {}
func (DeleteSelectedCmd) isCommand()    {}
func (DuplicateSelectedCmd) isCommand() {}
func (NudgeCmd) isCommand()             {}
func (LayerCmd) isCommand()             {}
func (UndoCmd) isCommand()              {}
func (PointerDownCmd) isCommand()       {}
func (PointerMoveCmd) isCommand()       {}
func (PointerUpCmd) isCommand()         {}
func (KeyDownCmd) isCommand()           {}
func (SetViewportCmd) isCommand()       {}
func (SetZoomCmd) isCommand()           {}
func (SetCanvasCmd) isCommand()         {}
func (SetBackgroundCmd) isCommand()     {}
func (RenameCmd) isCommand()            {}
func (ReplaceDocumentCmd) isCommand()   {}

var commandTypes = map[string]func() Command{
	"addElement":        func() Command { return &AddElementCmd{} },
	"updateElement":     func() Command { return &UpdateElementCmd{} },
	"commit":            func() Command { return &CommitCmd{} },
	"select":            func() Command { return &SelectCmd{} },
	"selectAll":         func() Command { return &SelectAllCmd{} },
	"clearSelection":    func() Command { return &ClearSelectionCmd{} },
	"deleteSelected":    func() Command { return &DeleteSelectedCmd{} },
	"duplicateSelected": func() Command { return &DuplicateSelectedCmd{} },
	"nudge":             func() Command { return &NudgeCmd{} },
	"layer":             func() Command { return &LayerCmd{} },
	"undo":              func() Command { return &UndoCmd{} },
	"pointerDown":       func() Command { return &PointerDownCmd{} },
	"pointerMove":       func() Command { return &PointerMoveCmd{} },
	"pointerUp":         func() Command { return &PointerUpCmd{} },
	"keyDown":           func() Command { return &KeyDownCmd{} },
	"setViewport":       func() Command { return &SetViewportCmd{} },
	"setZoom":           func() Command { return &SetZoomCmd{} },
	"setCanvas":         func() Command { return &SetCanvasCmd{} },
	"setBackground":     func() Command { return &SetBackgroundCmd{} },
	"rename":            func() Command { return &RenameCmd{} },
	"replaceDocument":   func() Command { return &ReplaceDocumentCmd{} },
}

// DecodeCommand parses a {"type": "...", ...} envelope.
func DecodeCommand(raw []byte) (Command, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: command: %v", apperr.ErrInvalid, err)
	}
	mk, ok := commandTypes[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown command type %q", apperr.ErrInvalid, env.Type)
	}
	cmd := mk()
	if err := json.Unmarshal(raw, cmd); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrInvalid, env.Type, err)
	}
	return cmd, nil
}

// Result reports what a command did.
type Result struct {
	Changed bool            `json:"changed"`
	Element *models.Element `json:"element,omitempty"`
}

// Apply runs cmd against the session.
func (s *Session) Apply(cmd Command) (Result, error) {
	before := s.version
	var res Result
	var err error

	switch c := cmd.(type) {
	case *AddElementCmd:
		var el models.Element
		el, err = s.AddElement(c.Kind)
		if err == nil {
			res.Element = &el
		}
	case *UpdateElementCmd:
		err = s.UpdateElement(c.ID, c.Patch, c.Commit)
	case *CommitCmd:
		s.Commit()
	case *SelectCmd:
		s.Select(c.IDs, c.Additive)
	case *SelectAllCmd:
		s.SelectAll()
	case *ClearSelectionCmd:
		s.ClearSelection()
	case *DeleteSelectedCmd:
		s.DeleteSelected()
	case *DuplicateSelectedCmd:
		s.DuplicateSelected()
	case *NudgeCmd:
		s.Nudge(c.DX, c.DY)
	case *LayerCmd:
		_, err = s.Layer(c.Op)
	case *UndoCmd:
		s.Undo()
	case *PointerDownCmd:
		err = s.PointerDown(c.PointerEvent)
	case *PointerMoveCmd:
		s.PointerMove(c.PointerEvent)
	case *PointerUpCmd:
		s.PointerUp()
	case *KeyDownCmd:
		s.KeyDown(c.KeyEvent)
	case *SetViewportCmd:
		s.SetViewport(c.Rect)
	case *SetZoomCmd:
		if c.Steps != 0 {
			s.ZoomBy(c.Steps)
		} else {
			s.SetZoom(c.Zoom)
		}
	case *SetCanvasCmd:
		size := models.CanvasSize{Width: c.Width, Height: c.Height}
		if c.Preset != "" {
			p, ok := models.CanvasPresets[c.Preset]
			if !ok {
				return res, fmt.Errorf("%w: unknown canvas preset %q", apperr.ErrInvalid, c.Preset)
			}
			size = p
		}
		err = s.SetCanvas(size)
	case *SetBackgroundCmd:
		err = s.SetBackground(c.Color, c.Image)
	case *RenameCmd:
		err = s.Rename(c.Name)
	case *ReplaceDocumentCmd:
		err = s.ReplaceDocument(c.Document)
	default:
		return res, fmt.Errorf("%w: unsupported command %T", apperr.ErrInvalid, cmd)
	}
	res.Changed = s.version != before
	return res, err
}
