// Package models defines the domain types for menuboard.
package models

import (
	"encoding/json"
	"time"
)

// Kind is the closed set of element variants that can be placed on a canvas.
type Kind string

const (
	KindText      Kind = "text"
	KindImage     Kind = "image"
	KindShape     Kind = "shape"
	KindPrice     Kind = "price"
	KindPromotion Kind = "promotion"
)

// Kinds lists every valid Kind in a stable order.
var Kinds = []Kind{KindText, KindImage, KindShape, KindPrice, KindPromotion}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindShape, KindPrice, KindPromotion:
		return true
	default:
		return false
	}
}

// TextBearing reports whether elements of this kind render their Content.
func (k Kind) TextBearing() bool {
	switch k {
	case KindText, KindPrice, KindPromotion:
		return true
	case KindImage, KindShape:
		return false
	default:
		return false
	}
}

// Element is one placed object on the canvas.
type Element struct {
	ID              string  `json:"id"`
	Type            Kind    `json:"type"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	Rotation        float64 `json:"rotation"`
	Content         string  `json:"content"`
	FontSize        float64 `json:"fontSize"`
	FontWeight      string  `json:"fontWeight"`
	FontFamily      string  `json:"fontFamily"`
	Color           string  `json:"color"`
	BackgroundColor string  `json:"backgroundColor"`
	BorderRadius    float64 `json:"borderRadius"`
	ImageURL        string  `json:"imageUrl,omitempty"`
	ZIndex          int     `json:"zIndex"`
	Opacity         float64 `json:"opacity"`
	Shadow          string  `json:"shadow"`
	TextAlign       string  `json:"textAlign,omitempty"`
	Stroke          string  `json:"stroke,omitempty"`
	StrokeWidth     float64 `json:"strokeWidth,omitempty"`
}

// UnmarshalJSON decodes an element, treating an absent opacity as fully opaque.
func (e *Element) UnmarshalJSON(data []byte) error {
	type plain Element
	p := plain{Opacity: 1}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Element(p)
	return nil
}

// Paint holds the effective paint properties of an element after fallbacks.
type Paint struct {
	Color           string
	BackgroundColor string
	FontSize        float64
	FontWeight      string
	FontFamily      string
	TextAlign       string
}

// Fallback paint values used when an element leaves a property empty.
const (
	DefaultColor           = "#000000"
	DefaultBackgroundColor = "transparent"
	DefaultFontSize        = 16
	DefaultFontWeight      = "normal"
	DefaultFontFamily      = "sans-serif"
	DefaultTextAlign       = "center"
)

// Paint returns the element's paint with defaults applied to absent fields.
func (e Element) Paint() Paint {
	p := Paint{
		Color:           e.Color,
		BackgroundColor: e.BackgroundColor,
		FontSize:        e.FontSize,
		FontWeight:      e.FontWeight,
		FontFamily:      e.FontFamily,
		TextAlign:       e.TextAlign,
	}
	if p.Color == "" {
		p.Color = DefaultColor
	}
	if p.BackgroundColor == "" {
		p.BackgroundColor = DefaultBackgroundColor
	}
	if p.FontSize <= 0 {
		p.FontSize = DefaultFontSize
	}
	if p.FontWeight == "" {
		p.FontWeight = DefaultFontWeight
	}
	if p.FontFamily == "" {
		p.FontFamily = DefaultFontFamily
	}
	if p.TextAlign == "" {
		p.TextAlign = DefaultTextAlign
	}
	return p
}

// CanvasSize is the native pixel size of a document.
type CanvasSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Orientation names the aspect of a canvas.
type Orientation string

const (
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
	OrientationSquare    Orientation = "square"
)

// Orientation derives the canvas orientation from its size.
func (c CanvasSize) Orientation() Orientation {
	switch {
	case c.Width > c.Height:
		return OrientationLandscape
	case c.Height > c.Width:
		return OrientationPortrait
	default:
		return OrientationSquare
	}
}

// Rotate swaps width and height.
func (c CanvasSize) Rotate() CanvasSize {
	return CanvasSize{Width: c.Height, Height: c.Width}
}

// CanvasPresets are the named canvas sizes offered for new boards.
var CanvasPresets = map[string]CanvasSize{
	"landscape-hd": {Width: 1920, Height: 1080},
	"portrait-hd":  {Width: 1080, Height: 1920},
	"landscape-4k": {Width: 3840, Height: 2160},
	"square":       {Width: 1080, Height: 1080},
}

// DefaultCanvas is the size used for blank boards and HTML imports.
var DefaultCanvas = CanvasSize{Width: 1920, Height: 1080}

// Document is a whole editable menu board (a template).
type Document struct {
	Name            string     `json:"name"`
	CanvasSize      CanvasSize `json:"canvasSize"`
	BackgroundColor string     `json:"backgroundColor"`
	BackgroundImage string     `json:"backgroundImage,omitempty"`
	Elements        []Element  `json:"elements"`
}

// NewDocument returns an empty document of the given size.
func NewDocument(name string, size CanvasSize) Document {
	return Document{
		Name:            name,
		CanvasSize:      size,
		BackgroundColor: "#ffffff",
		Elements:        []Element{},
	}
}

// Clone returns a deep copy that shares no memory with d.
func (d Document) Clone() Document {
	out := d
	out.Elements = make([]Element, len(d.Elements))
	copy(out.Elements, d.Elements)
	return out
}

// IndexOf returns the position of the element with the given id, or -1.
func (d Document) IndexOf(id string) int {
	for i := range d.Elements {
		if d.Elements[i].ID == id {
			return i
		}
	}
	return -1
}

// Element returns the element with the given id.
func (d Document) Element(id string) (Element, bool) {
	if i := d.IndexOf(id); i >= 0 {
		return d.Elements[i], true
	}
	return Element{}, false
}

// TemplateMetadata describes one template file in the library.
type TemplateMetadata struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Asset is an uploaded image stored in the library.
type Asset struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Filename  string    `json:"filename"`
	File      string    `json:"file"`
	MIMEType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}
