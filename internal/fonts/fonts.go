// Package fonts provides the Go font faces used to measure and draw board
// text. Every font family maps onto Go Regular or Go Bold.
package fonts

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	parseOnce sync.Once
	regular   *truetype.Font
	bold      *truetype.Font
	parseErr  error

	mu    sync.Mutex
	faces = map[faceKey]font.Face{}
)

type faceKey struct {
	bold bool
	size float64
}

func load() error {
	parseOnce.Do(func() {
		regular, parseErr = truetype.Parse(goregular.TTF)
		if parseErr != nil {
			parseErr = fmt.Errorf("fonts: parse regular: %w", parseErr)
			return
		}
		bold, parseErr = truetype.Parse(gobold.TTF)
		if parseErr != nil {
			parseErr = fmt.Errorf("fonts: parse bold: %w", parseErr)
		}
	})
	return parseErr
}

// IsBold reports whether a CSS font-weight renders with the bold face.
func IsBold(weight string) bool {
	w := strings.TrimSpace(strings.ToLower(weight))
	switch w {
	case "bold", "bolder":
		return true
	case "", "normal", "lighter":
		return false
	}
	n, err := strconv.Atoi(w)
	return err == nil && n >= 600
}

// NewFace returns a fresh face. Faces are not safe for concurrent use, so
// each drawing context takes its own.
func NewFace(weight string, size float64) (font.Face, error) {
	if err := load(); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 16
	}
	f := regular
	if IsBold(weight) {
		f = bold
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

// Measure returns the advance width of s in pixels.
func Measure(s, weight string, size float64) float64 {
	key := faceKey{bold: IsBold(weight), size: size}
	mu.Lock()
	defer mu.Unlock()
	face, ok := faces[key]
	if !ok {
		var err error
		face, err = NewFace(weight, size)
		if err != nil {
			// Fall back to an average glyph width.
			return float64(len([]rune(s))) * size * 0.55
		}
		faces[key] = face
	}
	return float64(font.MeasureString(face, s)) / 64
}

// Wrap breaks text into lines no wider than width. Explicit newlines are
// kept; a single word wider than width gets its own line.
func Wrap(text, weight string, size, width float64) []string {
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			candidate := line + " " + w
			if width > 0 && Measure(candidate, weight, size) > width {
				lines = append(lines, line)
				line = w
				continue
			}
			line = candidate
		}
		lines = append(lines, line)
	}
	return lines
}

// LineHeight is the CSS "normal" line height for a font size.
func LineHeight(size float64) float64 {
	return size * 1.2
}
