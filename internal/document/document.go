// Package document implements the mutation primitives of the board model.
//
// Every function takes a models.Document by value and returns a new one; the
// input's element slice is never written to. Unknown ids are ignored rather
// than reported, matching the forgiving nature of direct manipulation.
package document

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/starford/menuboard/internal/geometry"
	"github.com/starford/menuboard/internal/models"
)

// Options tunes the sizing rules applied by the primitives.
type Options struct {
	MinSize         float64
	DuplicateOffset float64
}

// DefaultOptions returns the stock editing rules.
func DefaultOptions() Options {
	return Options{MinSize: 20, DuplicateOffset: 20}
}

// NewID returns a fresh element id.
func NewID() string {
	return uuid.NewString()
}

// AddElement appends a new element of kind k with the per-kind defaults and
// the next zIndex. It returns the new document and the added element.
func AddElement(doc models.Document, k models.Kind) (models.Document, models.Element) {
	out := doc.Clone()
	el := Defaults(k)
	el.ID = NewID()
	el.X, el.Y = defaultX, defaultY
	if cw := float64(out.CanvasSize.Width); cw > 0 && el.X+el.Width > cw {
		el.X = math.Max(0, cw-el.Width)
	}
	if ch := float64(out.CanvasSize.Height); ch > 0 && el.Y+el.Height > ch {
		el.Y = math.Max(0, ch-el.Height)
	}
	el.ZIndex = len(out.Elements) + 1
	out.Elements = append(out.Elements, el)
	return out, el
}

// Patch is a partial element update; nil fields are left untouched.
type Patch struct {
	X               *float64 `json:"x,omitempty"`
	Y               *float64 `json:"y,omitempty"`
	Width           *float64 `json:"width,omitempty"`
	Height          *float64 `json:"height,omitempty"`
	Rotation        *float64 `json:"rotation,omitempty"`
	Opacity         *float64 `json:"opacity,omitempty"`
	Content         *string  `json:"content,omitempty"`
	FontSize        *float64 `json:"fontSize,omitempty"`
	FontWeight      *string  `json:"fontWeight,omitempty"`
	FontFamily      *string  `json:"fontFamily,omitempty"`
	Color           *string  `json:"color,omitempty"`
	BackgroundColor *string  `json:"backgroundColor,omitempty"`
	BorderRadius    *float64 `json:"borderRadius,omitempty"`
	ImageURL        *string  `json:"imageUrl,omitempty"`
	Shadow          *string  `json:"shadow,omitempty"`
	TextAlign       *string  `json:"textAlign,omitempty"`
	Stroke          *string  `json:"stroke,omitempty"`
	StrokeWidth     *float64 `json:"strokeWidth,omitempty"`
}

// Apply merges the patch into e and returns the result.
func (p Patch) Apply(e models.Element) models.Element {
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setS := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	setF(&e.X, p.X)
	setF(&e.Y, p.Y)
	setF(&e.Width, p.Width)
	setF(&e.Height, p.Height)
	setF(&e.Rotation, p.Rotation)
	setF(&e.Opacity, p.Opacity)
	setS(&e.Content, p.Content)
	setF(&e.FontSize, p.FontSize)
	setS(&e.FontWeight, p.FontWeight)
	setS(&e.FontFamily, p.FontFamily)
	setS(&e.Color, p.Color)
	setS(&e.BackgroundColor, p.BackgroundColor)
	setF(&e.BorderRadius, p.BorderRadius)
	setS(&e.ImageURL, p.ImageURL)
	setS(&e.Shadow, p.Shadow)
	setS(&e.TextAlign, p.TextAlign)
	setS(&e.Stroke, p.Stroke)
	setF(&e.StrokeWidth, p.StrokeWidth)
	return e
}

// Move returns a patch that sets the element position.
func Move(x, y float64) Patch {
	return Patch{X: &x, Y: &y}
}

// Bounds returns a patch that sets position and size.
func Bounds(r geometry.Rect) Patch {
	return Patch{X: &r.X, Y: &r.Y, Width: &r.Width, Height: &r.Height}
}

// UpdateElement merges patch into the element with the given id. The size
// floor and the opacity range are enforced on the result.
func UpdateElement(doc models.Document, id string, patch Patch, opts Options) models.Document {
	i := doc.IndexOf(id)
	if i < 0 {
		return doc
	}
	out := doc.Clone()
	out.Elements[i] = Constrain(patch.Apply(out.Elements[i]), opts)
	return out
}

// Constrain clamps the element's size to the floor and its opacity to [0,1].
func Constrain(e models.Element, opts Options) models.Element {
	if e.Width < opts.MinSize {
		e.Width = opts.MinSize
	}
	if e.Height < opts.MinSize {
		e.Height = opts.MinSize
	}
	e.Opacity = math.Max(0, math.Min(1, e.Opacity))
	return e
}

// DeleteElements removes every element whose id is listed and renumbers the
// survivors densely.
func DeleteElements(doc models.Document, ids []string) models.Document {
	drop := toSet(ids)
	out := doc.Clone()
	out.Elements = out.Elements[:0]
	for _, el := range doc.Elements {
		if _, ok := drop[el.ID]; ok {
			continue
		}
		out.Elements = append(out.Elements, el)
	}
	return Normalize(out)
}

// DuplicateElements copies each listed element with a fresh id and a
// position shifted by opts.DuplicateOffset. Copies are stacked above every
// existing element in the originals' paint order. It returns the new ids.
func DuplicateElements(doc models.Document, ids []string, opts Options) (models.Document, []string) {
	want := toSet(ids)
	out := Normalize(doc)
	next := len(out.Elements) + 1
	var created []string
	for _, i := range PaintOrder(out) {
		el := out.Elements[i]
		if _, ok := want[el.ID]; !ok {
			continue
		}
		cp := el
		cp.ID = NewID()
		cp.X += opts.DuplicateOffset
		cp.Y += opts.DuplicateOffset
		cp.ZIndex = next
		next++
		out.Elements = append(out.Elements, cp)
		created = append(created, cp.ID)
	}
	return out, created
}

// PaintOrder returns element indices sorted bottom-to-top: by zIndex, with
// ties broken by insertion order.
func PaintOrder(doc models.Document) []int {
	order := make([]int, len(doc.Elements))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return doc.Elements[order[a]].ZIndex < doc.Elements[order[b]].ZIndex
	})
	return order
}

// Normalize reassigns zIndex 1..N following the current paint order.
func Normalize(doc models.Document) models.Document {
	out := doc.Clone()
	for rank, i := range PaintOrder(doc) {
		out.Elements[i].ZIndex = rank + 1
	}
	return out
}

// Reorder assigns zIndex 1..N from an explicit bottom-to-top list of ids.
// Ids missing from order keep their relative order and are placed below.
func Reorder(doc models.Document, order []string) models.Document {
	out := doc.Clone()
	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i + 1
	}
	base := len(doc.Elements)
	for i := range out.Elements {
		if r, ok := rank[out.Elements[i].ID]; ok {
			out.Elements[i].ZIndex = base + r
		} else {
			out.Elements[i].ZIndex = out.Elements[i].ZIndex - base - 1
		}
	}
	return Normalize(out)
}

// HitTest returns the topmost element whose box contains p.
func HitTest(doc models.Document, p geometry.Point) (string, bool) {
	order := PaintOrder(doc)
	for k := len(order) - 1; k >= 0; k-- {
		el := doc.Elements[order[k]]
		if BoxOf(el).Contains(p) {
			return el.ID, true
		}
	}
	return "", false
}

// BoxOf returns the element's unrotated bounds.
func BoxOf(e models.Element) geometry.Rect {
	return geometry.Rect{X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
}

// IDs returns every element id in insertion order.
func IDs(doc models.Document) []string {
	out := make([]string, len(doc.Elements))
	for i, el := range doc.Elements {
		out[i] = el.ID
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
