package editor

import "strings"

// KeyEvent is a key press with its modifier state. Key uses DOM key names
// ("Delete", "ArrowLeft", "d", ...).
type KeyEvent struct {
	Key   string `json:"key"`
	Shift bool   `json:"shift,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
}

func (k KeyEvent) command() bool { return k.Ctrl || k.Meta }

// KeyDown applies a keyboard shortcut and reports whether it was handled.
// Shortcuts are ignored while a gesture is active.
func (s *Session) KeyDown(k KeyEvent) bool {
	if s.g.state != StateIdle {
		if k.Key == "Escape" {
			s.CancelGesture()
			return true
		}
		return false
	}

	if k.command() {
		switch strings.ToLower(k.Key) {
		case "z":
			if k.Shift {
				return false
			}
			s.Undo()
			return true
		case "d":
			s.DuplicateSelected()
			return true
		case "a":
			s.SelectAll()
			return true
		}
		return false
	}

	step := s.cfg.NudgeStep
	if k.Shift {
		step = s.cfg.NudgeStepLarge
	}
	switch k.Key {
	case "Delete", "Backspace":
		s.DeleteSelected()
		return true
	case "Escape":
		s.ClearSelection()
		return true
	case "ArrowLeft":
		return s.nudgeKey(-step, 0)
	case "ArrowRight":
		return s.nudgeKey(step, 0)
	case "ArrowUp":
		return s.nudgeKey(0, -step)
	case "ArrowDown":
		return s.nudgeKey(0, step)
	}
	return false
}

func (s *Session) nudgeKey(dx, dy float64) bool {
	if s.sel.Len() == 0 {
		return false
	}
	s.Nudge(dx, dy)
	return true
}
