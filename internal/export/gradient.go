package export

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/fogleman/gg"

	"github.com/starford/menuboard/internal/colors"
)

type colorStop struct {
	offset float64
	color  color.Color
	set    bool
}

// parseGradient turns a CSS linear-gradient() or radial-gradient() into a gg
// pattern spanning a w x h area. It reports false for anything else.
func parseGradient(v string, w, h float64) (gg.Pattern, bool) {
	v = strings.TrimSpace(v)
	lv := strings.ToLower(v)
	open := strings.Index(v, "(")
	if open < 0 || !strings.HasSuffix(v, ")") {
		return nil, false
	}
	args := splitArgs(v[open+1 : len(v)-1])
	switch {
	case strings.HasPrefix(lv, "linear-gradient("):
		angle := 180.0
		if len(args) > 0 {
			if a, ok := gradientAngle(args[0]); ok {
				angle = a
				args = args[1:]
			}
		}
		stops, ok := parseStops(args)
		if !ok {
			return nil, false
		}
		rad := angle * math.Pi / 180
		dx, dy := math.Sin(rad), -math.Cos(rad)
		half := (math.Abs(w*dx) + math.Abs(h*dy)) / 2
		cx, cy := w/2, h/2
		g := gg.NewLinearGradient(cx-dx*half, cy-dy*half, cx+dx*half, cy+dy*half)
		for _, s := range stops {
			g.AddColorStop(s.offset, s.color)
		}
		return g, true
	case strings.HasPrefix(lv, "radial-gradient("):
		if len(args) > 0 {
			if _, ok := colors.Parse(firstField(args[0])); !ok {
				args = args[1:]
			}
		}
		stops, ok := parseStops(args)
		if !ok {
			return nil, false
		}
		cx, cy := w/2, h/2
		g := gg.NewRadialGradient(cx, cy, 0, cx, cy, math.Hypot(w, h)/2)
		for _, s := range stops {
			g.AddColorStop(s.offset, s.color)
		}
		return g, true
	}
	return nil, false
}

// gradientAngle reads "<angle>" or "to <side>" in degrees, CSS convention
// (0deg points up, clockwise).
func gradientAngle(arg string) (float64, bool) {
	a := strings.ToLower(strings.TrimSpace(arg))
	if strings.HasPrefix(a, "to ") {
		sides := strings.Fields(strings.TrimPrefix(a, "to "))
		var x, y float64
		for _, s := range sides {
			switch s {
			case "top":
				y = -1
			case "bottom":
				y = 1
			case "left":
				x = -1
			case "right":
				x = 1
			default:
				return 0, false
			}
		}
		if x == 0 && y == 0 {
			return 0, false
		}
		return math.Mod(math.Atan2(x, -y)*180/math.Pi+360, 360), true
	}
	units := []struct {
		suffix string
		scale  float64
	}{{"deg", 1}, {"grad", 0.9}, {"rad", 180 / math.Pi}, {"turn", 360}}
	for _, u := range units {
		if strings.HasSuffix(a, u.suffix) {
			f, err := strconv.ParseFloat(strings.TrimSuffix(a, u.suffix), 64)
			if err != nil {
				return 0, false
			}
			return f * u.scale, true
		}
	}
	return 0, false
}

// parseStops reads "color [pos%]" stops and spreads unpositioned ones
// evenly between their neighbours.
func parseStops(args []string) ([]colorStop, bool) {
	if len(args) < 2 {
		return nil, false
	}
	stops := make([]colorStop, 0, len(args))
	for _, arg := range args {
		fields := strings.Fields(arg)
		if len(fields) == 0 {
			return nil, false
		}
		// The color may contain spaces (rgb(0 0 0)); the position is last.
		colorPart, pos := arg, ""
		if last := fields[len(fields)-1]; len(fields) > 1 && strings.HasSuffix(last, "%") {
			colorPart, pos = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(arg), last)), last
		}
		c, ok := colors.Parse(colorPart)
		if !ok {
			return nil, false
		}
		s := colorStop{color: c}
		if pos != "" {
			if f, err := strconv.ParseFloat(strings.TrimSuffix(pos, "%"), 64); err == nil {
				s.offset, s.set = math.Max(0, math.Min(1, f/100)), true
			}
		}
		stops = append(stops, s)
	}
	if !stops[0].set {
		stops[0].offset, stops[0].set = 0, true
	}
	if last := len(stops) - 1; !stops[last].set {
		stops[last].offset, stops[last].set = 1, true
	}
	for i := 1; i < len(stops); {
		if stops[i].set {
			i++
			continue
		}
		j := i
		for !stops[j].set {
			j++
		}
		from, to := stops[i-1].offset, stops[j].offset
		n := float64(j - i + 1)
		for k := i; k < j; k++ {
			stops[k].offset = from + (to-from)*float64(k-i+1)/n
			stops[k].set = true
		}
		i = j
	}
	return stops, true
}

// splitArgs splits a function argument list on top-level commas.
func splitArgs(s string) []string {
	var (
		out   []string
		depth int
		last  int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[last:i]))
				last = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[last:]))
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}
