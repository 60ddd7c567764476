// Package geometry maps between viewport and canvas coordinates.
package geometry

import "math"

// Zoom limits and step used by the editor.
const (
	MinZoom  = 0.1
	MaxZoom  = 3.0
	ZoomStep = 0.1
)

// Point is a 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Rect is an axis-aligned box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// IsEmpty reports whether the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether p lies inside the rect (edges included).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Intersects reports whether the two rects overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.Right(), o.Right())
	maxY := math.Max(r.Bottom(), o.Bottom())
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// ToCanvas converts a viewport pointer position into canvas space given the
// canvas's on-screen rect and the current zoom. It performs no clamping.
func ToCanvas(pointer Point, canvasRect Rect, zoom float64) Point {
	return Point{
		X: (pointer.X - canvasRect.X) / zoom,
		Y: (pointer.Y - canvasRect.Y) / zoom,
	}
}

// ToViewport is the inverse of ToCanvas.
func ToViewport(p Point, canvasRect Rect, zoom float64) Point {
	return Point{
		X: p.X*zoom + canvasRect.X,
		Y: p.Y*zoom + canvasRect.Y,
	}
}

// ClampZoom limits z to [MinZoom, MaxZoom] on the ZoomStep grid.
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	z = math.Round(z/ZoomStep) * ZoomStep
	z = math.Max(MinZoom, math.Min(MaxZoom, z))
	// Trim float noise from the multiplication (0.30000000000000004).
	return math.Round(z*10) / 10
}

// StepZoom moves z by the given number of ZoomStep increments and clamps.
func StepZoom(z float64, steps int) float64 {
	return ClampZoom(z + float64(steps)*ZoomStep)
}
