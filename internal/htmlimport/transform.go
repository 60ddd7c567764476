package htmlimport

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	rotateRe = regexp.MustCompile(`(?i)rotate(?:z)?\(\s*(-?[0-9.]+)\s*(deg|rad|turn|grad)?\s*\)`)
	matrixRe = regexp.MustCompile(`(?i)matrix\(\s*([^)]*)\)`)
)

// rotation extracts the 2D rotation in degrees from a CSS transform. It
// returns 0 when the transform is absent or unparseable.
func rotation(transform string) float64 {
	t := strings.TrimSpace(transform)
	if t == "" || strings.EqualFold(t, "none") {
		return 0
	}
	if m := rotateRe.FindStringSubmatch(t); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0
		}
		switch strings.ToLower(m[2]) {
		case "rad":
			v = v * 180 / math.Pi
		case "turn":
			v *= 360
		case "grad":
			v *= 0.9
		}
		return round2(v)
	}
	if m := matrixRe.FindStringSubmatch(t); m != nil {
		parts := strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ' ' })
		if len(parts) != 6 {
			return 0
		}
		a, errA := strconv.ParseFloat(parts[0], 64)
		b, errB := strconv.ParseFloat(parts[1], 64)
		if errA != nil || errB != nil {
			return 0
		}
		return round2(math.Atan2(b, a) * 180 / math.Pi)
	}
	return 0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
