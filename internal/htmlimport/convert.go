package htmlimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/colors"
	"github.com/starford/menuboard/internal/document"
	"github.com/starford/menuboard/internal/geometry"
	"github.com/starford/menuboard/internal/models"
)

// Options tunes an import.
type Options struct {
	Canvas     models.CanvasSize
	Retries    int
	RetryDelay time.Duration
}

// DefaultOptions returns the stock import settings.
func DefaultOptions() Options {
	return Options{Canvas: models.DefaultCanvas, Retries: 3, RetryDelay: 500 * time.Millisecond}
}

// Source is one page to import.
type Source struct {
	HTML    string
	CSS     string
	BaseURL string
}

// Converter turns rendered pages into documents.
type Converter struct {
	renderer Renderer
	prober   ImageProber
	opts     Options
	log      *slog.Logger
	now      func() time.Time
}

// NewConverter creates a Converter. A nil prober accepts every image URL.
func NewConverter(r Renderer, p ImageProber, opts Options, log *slog.Logger) *Converter {
	if opts.Canvas.Width <= 0 || opts.Canvas.Height <= 0 {
		opts.Canvas = models.DefaultCanvas
	}
	if log == nil {
		log = slog.Default()
	}
	return &Converter{renderer: r, prober: p, opts: opts, log: log, now: time.Now}
}

// Convert renders src and extracts a new document. Any render failure aborts
// the whole import; unreachable images only lose their URL.
func (c *Converter) Convert(ctx context.Context, src Source) (models.Document, error) {
	if strings.TrimSpace(src.HTML) == "" {
		return models.Document{}, fmt.Errorf("%w: empty html", apperr.ErrInvalid)
	}
	rend, err := c.renderer.Render(ctx, RenderRequest{
		HTML:     src.HTML,
		CSS:      src.CSS,
		Viewport: c.opts.Canvas,
		BaseURL:  src.BaseURL,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInvalid) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return models.Document{}, fmt.Errorf("htmlimport: %w", err)
		}
		return models.Document{}, fmt.Errorf("%w: render: %v", apperr.ErrInvalid, err)
	}

	base, _ := url.Parse(src.BaseURL)
	elements, depths, images := c.extractAll(rend, base)
	if err := c.probeImages(ctx, elements, images); err != nil {
		return models.Document{}, err
	}

	for i := range elements {
		elements[i].ID = document.NewID()
		elements[i].ZIndex = depths[i] + 1
	}

	canvas := rend.Canvas
	if canvas.Width <= 0 || canvas.Height <= 0 {
		canvas = c.opts.Canvas
	}
	name := rend.Title
	if name == "" {
		name = c.now().Format("2006-01-02 15:04")
	}
	doc := models.NewDocument("Imported "+name, canvas)
	doc.BackgroundColor, doc.BackgroundImage = background(rend.Backdrop, base)
	doc.Elements = elements
	doc = document.Normalize(doc)
	if err := document.Validate(doc); err != nil {
		return models.Document{}, fmt.Errorf("htmlimport: %w", err)
	}
	c.log.Debug("html imported",
		slog.Int("nodes", len(rend.Nodes)),
		slog.Int("elements", len(doc.Elements)),
	)
	return doc, nil
}

// extractAll walks the rendered nodes in document order and returns the
// accepted elements, their nesting depths and the indices of image elements.
func (c *Converter) extractAll(rend *Rendering, base *url.URL) ([]models.Element, []int, []int) {
	var (
		elements []models.Element
		depths   []int
		images   []int
		seen     = map[string]struct{}{}
		accepted = make([]int, len(rend.Nodes))
	)
	for i, n := range rend.Nodes {
		accepted[i] = -1
		if n.Box.Width <= 0 || n.Box.Height <= 0 {
			continue
		}
		if v := n.Style.Get("visibility"); v == "hidden" || v == "collapse" {
			continue
		}
		el := extract(n, rend.Root, base)
		if el.Type == models.KindShape && !painted(el, n.Style) {
			continue
		}

		if n.Parent >= 0 && accepted[n.Parent] >= 0 && el.Type.TextBearing() && !n.HasElementChildren &&
			!distinctStyle(n.Style, rend.Nodes[n.Parent].Style) {
			parent := &elements[accepted[n.Parent]]
			if parent.Content == "" && parent.Type != models.KindImage {
				parent.Content = el.Content
				parent.Type = classifyText(el.Content)
			}
			continue
		}

		key := dedupKey(el)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		accepted[i] = len(elements)
		if el.Type == models.KindImage {
			images = append(images, len(elements))
		}
		elements = append(elements, el)
		depths = append(depths, n.Depth)
	}
	return elements, depths, images
}

// probeImages nulls the URL of every image that cannot be loaded.
func (c *Converter) probeImages(ctx context.Context, elements []models.Element, images []int) error {
	if c.prober == nil || len(images) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, idx := range images {
		el := &elements[idx]
		if el.ImageURL == "" {
			continue
		}
		g.Go(func() error {
			err := probeWithRetry(gctx, c.prober, el.ImageURL, c.opts.Retries, c.opts.RetryDelay)
			if err == nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("image unavailable, url dropped",
				slog.String("url", el.ImageURL),
				slog.String("error", err.Error()),
			)
			el.ImageURL = ""
			return nil
		})
	}
	return g.Wait()
}

func classify(n RenderedNode) models.Kind {
	if n.Tag == "img" {
		return models.KindImage
	}
	if n.Text != "" {
		return classifyText(n.Text)
	}
	return models.KindShape
}

func classifyText(text string) models.Kind {
	switch {
	case strings.HasPrefix(text, "$"):
		return models.KindPrice
	case strings.Contains(text, "!"):
		return models.KindPromotion
	default:
		return models.KindText
	}
}

// extract builds the element for one node, positioned relative to root.
func extract(n RenderedNode, root geometry.Rect, base *url.URL) models.Element {
	s := n.Style
	kind := classify(n)
	el := models.Element{
		Type:            kind,
		X:               round2(n.Box.X - root.X),
		Y:               round2(n.Box.Y - root.Y),
		Width:           round2(n.Box.Width),
		Height:          round2(n.Box.Height),
		Rotation:        rotation(s.Get("transform")),
		FontSize:        s.FontSize(),
		FontWeight:      fontWeight(s.Get("font-weight")),
		FontFamily:      fontFamily(s.Get("font-family")),
		Color:           hexOr(s.Get("color"), models.DefaultColor),
		BackgroundColor: hexOr(s.Get("background-color"), colors.Transparent),
		Opacity:         opacity(s.Get("opacity")),
		Shadow:          shadow(s.Get("box-shadow")),
		TextAlign:       textAlign(s.Get("text-align")),
	}
	if kind.TextBearing() {
		el.Content = n.Text
	}
	if r, ok := (lengthCtx{fontSize: el.FontSize}).resolve(s.Get("border-radius"), math.Min(n.Box.Width, n.Box.Height)); ok {
		el.BorderRadius = round2(r)
	}
	if kind == models.KindImage {
		el.ImageURL = resolveURL(base, n.Attrs["src"])
	}
	if kind == models.KindShape {
		if bw, ok := (lengthCtx{fontSize: el.FontSize}).resolve(s.Get("border-width"), 0); ok && bw > 0 && s.Get("border-style") != "none" {
			el.StrokeWidth = round2(bw)
			el.Stroke = hexOr(s.GetOr("border-color", s.Get("color")), models.DefaultColor)
		}
	}
	return el
}

// painted reports whether a shape would leave any mark on the board.
func painted(el models.Element, s Style) bool {
	if el.BackgroundColor != colors.Transparent || el.Shadow != "" || el.StrokeWidth > 0 {
		return true
	}
	img := s.Get("background-image")
	return img != "" && img != "none"
}

// distinctStyle reports whether child carries styling of its own beyond what
// it inherits from parent.
func distinctStyle(child, parent Style) bool {
	if hexOr(child.Get("color"), "") != hexOr(parent.Get("color"), "") {
		return true
	}
	if bg := hexOr(child.Get("background-color"), colors.Transparent); bg != colors.Transparent {
		return true
	}
	if child.FontSize() != parent.FontSize() {
		return true
	}
	if fontWeight(child.Get("font-weight")) != fontWeight(parent.Get("font-weight")) {
		return true
	}
	if r, ok := (lengthCtx{}).resolve(child.Get("border-radius"), 0); ok && r > 0 {
		return true
	}
	return false
}

// dedupKey identifies an element by rounded position, kind, a short
// content prefix and its text styling.
func dedupKey(el models.Element) string {
	var prefix []rune
	for _, r := range el.Content {
		if unicode.IsSpace(r) {
			continue
		}
		prefix = append(prefix, r)
		if len(prefix) == 20 {
			break
		}
	}
	return fmt.Sprintf("%d|%d|%s|%s|%s|%s|%g|%s",
		int(math.Round(el.X)), int(math.Round(el.Y)), el.Type, string(prefix),
		el.Color, el.BackgroundColor, el.FontSize, el.FontWeight)
}

// background derives the board background from the innermost backdrop style
// that paints one.
func background(backdrop []Style, base *url.URL) (string, string) {
	bgColor, bgImage := "", ""
	for _, s := range backdrop {
		if bgColor == "" {
			if hex, ok := colors.ToHex(s.Get("background-color")); ok && hex != colors.Transparent {
				bgColor = hex
			}
		}
		if bgImage == "" {
			bgImage = backgroundImage(s.Get("background-image"), base)
		}
	}
	if bgColor == "" {
		bgColor = "#ffffff"
	}
	return bgColor, bgImage
}

func backgroundImage(v string, base *url.URL) string {
	v = strings.TrimSpace(v)
	lv := strings.ToLower(v)
	switch {
	case v == "" || lv == "none":
		return ""
	case strings.HasPrefix(lv, "url("):
		inner := strings.TrimSuffix(v[len("url("):], ")")
		return resolveURL(base, strings.Trim(strings.TrimSpace(inner), `"'`))
	case strings.Contains(lv, "gradient("):
		return v
	}
	return ""
}

// resolveURL makes ref absolute against base. Relative references without a
// base cannot be loaded and resolve to "".
func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "data:") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	if base == nil || !base.IsAbs() {
		return ""
	}
	return base.ResolveReference(u).String()
}

func hexOr(v, def string) string {
	if hex, ok := colors.ToHex(v); ok {
		return hex
	}
	return def
}

func fontWeight(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "", "normal", "400":
		return models.DefaultFontWeight
	case "bold", "bolder", "700":
		return "bold"
	}
	return v
}

func fontFamily(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return models.DefaultFontFamily
	}
	return v
}

func opacity(v string) float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 1
	}
	if strings.HasSuffix(v, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		if err != nil {
			return 1
		}
		return math.Max(0, math.Min(1, f/100))
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 1
	}
	return math.Max(0, math.Min(1, f))
}

func shadow(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "none") {
		return ""
	}
	return v
}

func textAlign(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "left", "start":
		return "left"
	case "right", "end":
		return "right"
	case "center":
		return "center"
	case "justify":
		return "justify"
	}
	return "left"
}
