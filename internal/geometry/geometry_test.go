package geometry

import "testing"

func TestToCanvas(t *testing.T) {
	cases := []struct {
		name    string
		pointer Point
		rect    Rect
		zoom    float64
		want    Point
	}{
		{"identity", Point{110, 220}, Rect{X: 10, Y: 20}, 1, Point{100, 200}},
		{"zoomed in", Point{210, 420}, Rect{X: 10, Y: 20}, 2, Point{100, 200}},
		{"zoomed out", Point{60, 70}, Rect{X: 10, Y: 20}, 0.5, Point{100, 100}},
		{"left of canvas", Point{0, 0}, Rect{X: 10, Y: 20}, 1, Point{-10, -20}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToCanvas(tc.pointer, tc.rect, tc.zoom)
			if got != tc.want {
				t.Errorf("ToCanvas = %+v, want %+v", got, tc.want)
			}
			back := ToViewport(got, tc.rect, tc.zoom)
			if back != tc.pointer {
				t.Errorf("ToViewport = %+v, want %+v", back, tc.pointer)
			}
		})
	}
}

func TestClampZoom(t *testing.T) {
	cases := map[float64]float64{
		0.01: 0.1,
		0.1:  0.1,
		1.04: 1.0,
		1.06: 1.1,
		2.99: 3.0,
		7:    3.0,
	}
	for in, want := range cases {
		if got := ClampZoom(in); got != want {
			t.Errorf("ClampZoom(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestStepZoom(t *testing.T) {
	if got := StepZoom(1, 1); got != 1.1 {
		t.Errorf("StepZoom(1, 1) = %v, want 1.1", got)
	}
	if got := StepZoom(0.2, -5); got != 0.1 {
		t.Errorf("StepZoom(0.2, -5) = %v, want 0.1", got)
	}
	if got := StepZoom(2.9, 3); got != 3.0 {
		t.Errorf("StepZoom(2.9, 3) = %v, want 3.0", got)
	}
}

func TestRectContainsAndUnion(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 20, Height: 20}
	if !r.Contains(Point{10, 10}) || !r.Contains(Point{30, 30}) {
		t.Error("edges should be contained")
	}
	if r.Contains(Point{31, 15}) {
		t.Error("point outside reported as contained")
	}
	u := r.Union(Rect{X: 0, Y: 25, Width: 5, Height: 20})
	want := Rect{X: 0, Y: 10, Width: 30, Height: 35}
	if u != want {
		t.Errorf("Union = %+v, want %+v", u, want)
	}
	if !r.Intersects(Rect{X: 25, Y: 25, Width: 10, Height: 10}) {
		t.Error("overlapping rects should intersect")
	}
}
