package htmlimport

import (
	"math"
	"strconv"
	"strings"
)

const rootFontSize = 16.0

// lengthCtx carries the references needed to resolve relative units.
type lengthCtx struct {
	fontSize float64
	vw, vh   float64
}

// parsePx parses a plain "12px" or unitless number.
func parsePx(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, "px")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// resolve converts a CSS length into px. ref is the reference for
// percentages; auto, calc() and unknown units are reported as unresolved.
func (c lengthCtx) resolve(v string, ref float64) (float64, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || v == "auto" || v == "none" || v == "normal" {
		return 0, false
	}
	if v == "0" {
		return 0, true
	}
	units := []struct {
		suffix string
		scale  func(float64) float64
	}{
		{"px", func(f float64) float64 { return f }},
		{"rem", func(f float64) float64 { return f * rootFontSize }},
		{"em", func(f float64) float64 { return f * c.fontSize }},
		{"%", func(f float64) float64 { return f * ref / 100 }},
		{"vw", func(f float64) float64 { return f * c.vw / 100 }},
		{"vh", func(f float64) float64 { return f * c.vh / 100 }},
		{"vmin", func(f float64) float64 { return f * math.Min(c.vw, c.vh) / 100 }},
		{"vmax", func(f float64) float64 { return f * math.Max(c.vw, c.vh) / 100 }},
		{"pt", func(f float64) float64 { return f * 96 / 72 }},
	}
	for _, u := range units {
		if !strings.HasSuffix(v, u.suffix) {
			continue
		}
		// "rem" is listed before "em" so it matches first.
		num := strings.TrimSuffix(v, u.suffix)
		f, err := strconv.ParseFloat(num, 64)
		if err != nil {
			continue
		}
		return u.scale(f), true
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// fontSizeKeywords are the absolute font-size keywords in px.
var fontSizeKeywords = map[string]float64{
	"xx-small": 9,
	"x-small":  10,
	"small":    13,
	"medium":   16,
	"large":    18,
	"x-large":  24,
	"xx-large": 32,
}

// resolveFontSize turns a declared font-size into px given the parent's size.
func resolveFontSize(v string, parent float64, vw, vh float64) float64 {
	v = strings.ToLower(strings.TrimSpace(v))
	if px, ok := fontSizeKeywords[v]; ok {
		return px
	}
	switch v {
	case "smaller":
		return parent / 1.2
	case "larger":
		return parent * 1.2
	}
	c := lengthCtx{fontSize: parent, vw: vw, vh: vh}
	if px, ok := c.resolve(v, parent); ok && px >= 0 {
		return px
	}
	return parent
}

// formatPx renders a px value without trailing zeros.
func formatPx(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + "px"
}

// boxSides parses a 1–4 value shorthand (margin, padding, inset) into
// top, right, bottom, left.
func boxSides(v string) [4]string {
	parts := strings.Fields(v)
	switch len(parts) {
	case 1:
		return [4]string{parts[0], parts[0], parts[0], parts[0]}
	case 2:
		return [4]string{parts[0], parts[1], parts[0], parts[1]}
	case 3:
		return [4]string{parts[0], parts[1], parts[2], parts[1]}
	case 4:
		return [4]string{parts[0], parts[1], parts[2], parts[3]}
	}
	return [4]string{}
}
