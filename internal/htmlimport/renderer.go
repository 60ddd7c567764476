// Package htmlimport converts an HTML page and its stylesheet into a board
// document.
//
// Layout is delegated to a Renderer, which produces the computed boxes and
// styles of every visible element. StaticRenderer is the built-in engine; a
// headless browser can be plugged in behind the same interface.
package htmlimport

import (
	"context"
	"strings"

	"github.com/starford/menuboard/internal/geometry"
	"github.com/starford/menuboard/internal/models"
)

// RenderRequest is one page to lay out.
type RenderRequest struct {
	HTML     string
	CSS      string
	Viewport models.CanvasSize
	BaseURL  string
}

// Rendering is the result of laying out a page.
type Rendering struct {
	// Root is the box every element position is made relative to.
	Root geometry.Rect
	// Canvas is the detected board size.
	Canvas models.CanvasSize
	// Backdrop holds the computed styles of the root and its ancestors,
	// innermost first. The board background is taken from them.
	Backdrop []Style
	// Title is the text of the page's <title>, if any.
	Title string
	// Nodes lists every rendered element below the root in document order.
	Nodes []RenderedNode
}

// RenderedNode is one laid-out element. Text holds the element's own text
// plus that of its inline descendants, whitespace collapsed. Depth counts
// element ancestors below the render root (the root's children have depth
// 0) and Parent is the index of the parent node, or -1 below the root.
type RenderedNode struct {
	Tag                string
	Attrs              map[string]string
	Text               string
	Box                geometry.Rect
	Style              Style
	Depth              int
	Parent             int
	Index              int
	HasElementChildren bool
}

// Renderer lays out a page and reports computed boxes and styles.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (*Rendering, error)
}

// Style is a computed style: lower-case property names to resolved values.
// Font sizes are always in px.
type Style map[string]string

// Get returns the value of prop, or "".
func (s Style) Get(prop string) string {
	return s[prop]
}

// GetOr returns the value of prop, or def when unset.
func (s Style) GetOr(prop, def string) string {
	if v, ok := s[prop]; ok && v != "" {
		return v
	}
	return def
}

// FontSize returns the resolved font size in px.
func (s Style) FontSize() float64 {
	if v, ok := parsePx(s["font-size"]); ok {
		return v
	}
	return rootFontSize
}

// Display returns the display value with "inline" as the default.
func (s Style) Display() string {
	return strings.TrimSpace(s.GetOr("display", "inline"))
}
