// Package codec reads and writes the JSON template format and extracts the
// searchable summary of a template.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/document"
	"github.com/starford/menuboard/internal/models"
)

// Encode serializes doc as indented JSON. The output is also the import format.
func Encode(doc models.Document) ([]byte, error) {
	if doc.Elements == nil {
		doc.Elements = []models.Element{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a template. Missing element ids are generated, a missing
// canvas size falls back to the default canvas, and zIndex values are
// renumbered densely. The result is validated; every failure wraps
// apperr.ErrInvalid so callers can keep their previous document.
func Decode(data []byte) (models.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.Document{}, fmt.Errorf("%w: empty template", apperr.ErrInvalid)
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Document{}, fmt.Errorf("%w: parse template: %v", apperr.ErrInvalid, err)
	}
	if doc.CanvasSize.Width == 0 && doc.CanvasSize.Height == 0 {
		doc.CanvasSize = models.DefaultCanvas
	}
	if doc.Elements == nil {
		doc.Elements = []models.Element{}
	}
	for i := range doc.Elements {
		if doc.Elements[i].ID == "" {
			doc.Elements[i].ID = document.NewID()
		}
	}
	if !document.DenseZ(doc) {
		doc = document.Normalize(doc)
	}
	if err := document.Validate(doc); err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

// Summary is the searchable view of a template.
type Summary struct {
	Title  string
	Body   string
	Kinds  []string
	Images []string
}

// Summarize collects the text content of a template in paint order, the
// element kinds it uses and the image references it holds.
func Summarize(doc models.Document) Summary {
	var (
		lines  []string
		kinds  = map[string]struct{}{}
		images []string
		seen   = map[string]struct{}{}
	)
	for _, i := range document.PaintOrder(doc) {
		el := doc.Elements[i]
		kinds[string(el.Type)] = struct{}{}
		if c := strings.TrimSpace(el.Content); c != "" && el.Type.TextBearing() {
			lines = append(lines, c)
		}
		if el.ImageURL != "" {
			if _, dup := seen[el.ImageURL]; !dup {
				seen[el.ImageURL] = struct{}{}
				images = append(images, el.ImageURL)
			}
		}
	}
	if doc.BackgroundImage != "" {
		if _, dup := seen[doc.BackgroundImage]; !dup {
			images = append(images, doc.BackgroundImage)
		}
	}
	out := Summary{
		Title:  doc.Name,
		Body:   strings.Join(lines, "\n"),
		Images: images,
	}
	for k := range kinds {
		out.Kinds = append(out.Kinds, k)
	}
	sort.Strings(out.Kinds)
	return out
}
