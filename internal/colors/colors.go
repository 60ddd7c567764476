// Package colors converts CSS color notations to the hex form stored in
// templates and back to image colors.
package colors

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Transparent is the stored value for a fully transparent color.
const Transparent = "transparent"

// ToHex converts any CSS color (hex, rgb(), rgba(), hsl(), hsla(), named,
// transparent) to "#rrggbb", "#rrggbbaa" when partly transparent, or
// "transparent". It reports false for anything it cannot read.
func ToHex(v string) (string, bool) {
	c, ok := Parse(v)
	if !ok {
		return "", false
	}
	return format(c), true
}

// Parse reads a CSS color.
func Parse(v string) (color.NRGBA, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch {
	case v == "":
		return color.NRGBA{}, false
	case v == Transparent:
		return color.NRGBA{}, true
	case strings.HasPrefix(v, "#"):
		return parseHex(v)
	case strings.HasPrefix(v, "rgb"):
		return parseRGB(v)
	case strings.HasPrefix(v, "hsl"):
		return parseHSL(v)
	}
	if rgba, ok := colornames.Map[v]; ok {
		return color.NRGBA{R: rgba.R, G: rgba.G, B: rgba.B, A: 255}, true
	}
	return color.NRGBA{}, false
}

// IsColor reports whether v reads as a color.
func IsColor(v string) bool {
	_, ok := Parse(v)
	return ok
}

func format(c color.NRGBA) string {
	if c.A == 0 {
		return Transparent
	}
	cf := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	hex := cf.Clamped().Hex()
	if c.A == 255 {
		return hex
	}
	return fmt.Sprintf("%s%02x", hex, c.A)
}

func parseHex(v string) (color.NRGBA, bool) {
	digits := strings.TrimPrefix(v, "#")
	alpha := uint8(255)
	switch len(digits) {
	case 3, 6:
	case 4:
		a, err := strconv.ParseUint(strings.Repeat(digits[3:], 2), 16, 8)
		if err != nil {
			return color.NRGBA{}, false
		}
		alpha, digits = uint8(a), digits[:3]
	case 8:
		a, err := strconv.ParseUint(digits[6:], 16, 8)
		if err != nil {
			return color.NRGBA{}, false
		}
		alpha, digits = uint8(a), digits[:6]
	default:
		return color.NRGBA{}, false
	}
	c, err := colorful.Hex("#" + digits)
	if err != nil {
		return color.NRGBA{}, false
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, true
}

// funcArgs splits "name(a, b, c / d)" into its arguments.
func funcArgs(v string) ([]string, bool) {
	open, end := strings.Index(v, "("), strings.LastIndex(v, ")")
	if open < 0 || end < open {
		return nil, false
	}
	inner := strings.NewReplacer(",", " ", "/", " ").Replace(v[open+1 : end])
	return strings.Fields(inner), true
}

func parseRGB(v string) (color.NRGBA, bool) {
	args, ok := funcArgs(v)
	if !ok || len(args) < 3 {
		return color.NRGBA{}, false
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		f, ok := channel(args[i], 255)
		if !ok {
			return color.NRGBA{}, false
		}
		ch[i] = uint8(math.Round(clamp(f, 0, 255)))
	}
	a := 1.0
	if len(args) > 3 {
		if a, ok = channel(args[3], 1); !ok {
			return color.NRGBA{}, false
		}
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: alpha8(a)}, true
}

func parseHSL(v string) (color.NRGBA, bool) {
	args, ok := funcArgs(v)
	if !ok || len(args) < 3 {
		return color.NRGBA{}, false
	}
	h, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "deg"), 64)
	if err != nil {
		return color.NRGBA{}, false
	}
	s, ok1 := channel(args[1], 1)
	l, ok2 := channel(args[2], 1)
	if !ok1 || !ok2 {
		return color.NRGBA{}, false
	}
	a := 1.0
	if len(args) > 3 {
		if a, ok = channel(args[3], 1); !ok {
			return color.NRGBA{}, false
		}
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	r, g, b := colorful.Hsl(h, clamp(s, 0, 1), clamp(l, 0, 1)).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha8(a)}, true
}

// channel parses a number or percentage; percentages scale to max.
func channel(s string, max float64) (float64, bool) {
	if strings.HasSuffix(s, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, false
		}
		return f / 100 * max, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func alpha8(a float64) uint8 {
	return uint8(math.Round(clamp(a, 0, 1) * 255))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
