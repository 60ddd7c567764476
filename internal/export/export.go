// Package export draws documents to images and names exported files.
package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/starford/menuboard/internal/colors"
	"github.com/starford/menuboard/internal/document"
	"github.com/starford/menuboard/internal/fonts"
	"github.com/starford/menuboard/internal/models"
)

var (
	placeholderFill  = color.NRGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}
	placeholderCross = color.NRGBA{R: 0x9c, G: 0xa3, B: 0xaf, A: 0xff}
)

// Rasterizer draws documents at their native canvas size.
type Rasterizer struct {
	loader ImageLoader
	log    *slog.Logger
}

// NewRasterizer creates a Rasterizer. A nil loader renders every image as a
// placeholder.
func NewRasterizer(loader ImageLoader, log *slog.Logger) *Rasterizer {
	if log == nil {
		log = slog.Default()
	}
	return &Rasterizer{loader: loader, log: log}
}

// PNG encodes the rendered document to w.
func (r *Rasterizer) PNG(ctx context.Context, doc models.Document, w io.Writer) error {
	img, err := r.Render(ctx, doc)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("export: encode png: %w", err)
	}
	return nil
}

// Render draws doc. Images that fail to load are drawn as placeholders;
// only an invalid document or a cancelled context fails the render.
func (r *Rasterizer) Render(ctx context.Context, doc models.Document) (image.Image, error) {
	if err := document.Validate(doc); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	images, err := r.loadImages(ctx, doc)
	if err != nil {
		return nil, err
	}

	cw, ch := doc.CanvasSize.Width, doc.CanvasSize.Height
	dc := gg.NewContext(cw, ch)
	r.drawBackground(dc, doc, images)

	for _, i := range document.PaintOrder(doc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.drawElement(dc, doc.Elements[i], images); err != nil {
			return nil, err
		}
	}
	return dc.Image(), nil
}

// loadImages fetches every referenced image concurrently. Failed loads are
// logged and left out of the map.
func (r *Rasterizer) loadImages(ctx context.Context, doc models.Document) (map[string]image.Image, error) {
	refs := map[string]struct{}{}
	if ref := backgroundURL(doc.BackgroundImage); ref != "" {
		refs[ref] = struct{}{}
	}
	for _, el := range doc.Elements {
		if el.Type == models.KindImage && el.ImageURL != "" {
			refs[el.ImageURL] = struct{}{}
		}
	}
	out := make(map[string]image.Image, len(refs))
	if r.loader == nil || len(refs) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for ref := range refs {
		g.Go(func() error {
			img, err := r.loader.Load(gctx, ref)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.log.Warn("image load failed, drawing placeholder",
					slog.String("error", err.Error()),
				)
				return nil
			}
			mu.Lock()
			out[ref] = img
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Rasterizer) drawBackground(dc *gg.Context, doc models.Document, images map[string]image.Image) {
	w, h := float64(dc.Width()), float64(dc.Height())
	if c, ok := colors.Parse(doc.BackgroundColor); ok {
		dc.SetColor(c)
	} else {
		dc.SetColor(color.White)
	}
	dc.Clear()

	bg := strings.TrimSpace(doc.BackgroundImage)
	if bg == "" {
		return
	}
	if p, ok := parseGradient(bg, w, h); ok {
		dc.SetFillStyle(p)
		dc.DrawRectangle(0, 0, w, h)
		dc.Fill()
		return
	}
	if img, ok := images[backgroundURL(bg)]; ok {
		dc.DrawImage(cover(img, dc.Width(), dc.Height()), 0, 0)
	}
}

// drawElement renders el into its own layer, applies opacity and composites
// the layer rotated about the element centre.
func (r *Rasterizer) drawElement(dc *gg.Context, el models.Element, images map[string]image.Image) error {
	// Layers are capped at twice the canvas so a runaway element cannot
	// exhaust memory.
	w := math.Min(el.Width, 2*float64(dc.Width()))
	h := math.Min(el.Height, 2*float64(dc.Height()))
	if w < 1 || h < 1 || el.Opacity <= 0 {
		return nil
	}
	// Shadow offsets and stroke are bounded by the canvas for the same reason.
	side := math.Max(float64(dc.Width()), float64(dc.Height()))
	sh, hasShadow := parseShadow(el.Shadow, side)
	stroke := math.Min(el.StrokeWidth, math.Min(w, h))
	margin := math.Max(0, stroke)
	if hasShadow {
		margin += math.Max(math.Abs(sh.dx), math.Abs(sh.dy)) + sh.blur
	}
	pad := int(math.Ceil(math.Min(margin, side)))

	layer := gg.NewContext(int(math.Ceil(w))+2*pad, int(math.Ceil(h))+2*pad)
	x0, y0 := float64(pad), float64(pad)
	radius := math.Min(el.BorderRadius, math.Min(w, h)/2)
	paint := el.Paint()

	if hasShadow {
		drawShadow(layer, sh, x0, y0, w, h, radius)
	}
	if c, ok := colors.Parse(paint.BackgroundColor); ok && c.A > 0 {
		layer.SetColor(c)
		layer.DrawRoundedRectangle(x0, y0, w, h, radius)
		layer.Fill()
	}

	switch el.Type {
	case models.KindImage:
		drawImage(layer, images[el.ImageURL], x0, y0, w, h, radius)
	case models.KindText, models.KindPrice, models.KindPromotion:
		if err := drawText(layer, el.Content, paint, x0, y0, w, h); err != nil {
			return err
		}
	case models.KindShape:
	}

	if stroke > 0 {
		if c, ok := colors.Parse(el.Stroke); ok {
			layer.SetColor(c)
			layer.SetLineWidth(stroke)
			layer.DrawRoundedRectangle(x0, y0, w, h, radius)
			layer.Stroke()
		}
	}

	src := layer.Image()
	if el.Opacity < 1 {
		src = fade(src, el.Opacity)
	}
	cx, cy := el.X+w/2, el.Y+h/2
	dc.Push()
	if el.Rotation != 0 {
		dc.RotateAbout(gg.Radians(el.Rotation), cx, cy)
	}
	dc.DrawImage(src, int(math.Round(el.X))-pad, int(math.Round(el.Y))-pad)
	dc.Pop()
	return nil
}

func drawImage(dc *gg.Context, img image.Image, x, y, w, h, radius float64) {
	if radius > 0 {
		dc.DrawRoundedRectangle(x, y, w, h, radius)
		dc.Clip()
		defer dc.ResetClip()
	}
	if img == nil {
		dc.SetColor(placeholderFill)
		dc.DrawRectangle(x, y, w, h)
		dc.Fill()
		dc.SetColor(placeholderCross)
		dc.SetLineWidth(2)
		dc.DrawLine(x, y, x+w, y+h)
		dc.DrawLine(x+w, y, x, y+h)
		dc.Stroke()
		return
	}
	dc.DrawImage(scale(img, int(math.Round(w)), int(math.Round(h))), int(math.Round(x)), int(math.Round(y)))
}

func drawText(dc *gg.Context, text string, p models.Paint, x, y, w, h float64) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	face, err := fonts.NewFace(p.FontWeight, p.FontSize)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	dc.SetFontFace(face)
	if c, ok := colors.Parse(p.Color); ok {
		dc.SetColor(c)
	} else {
		dc.SetColor(color.Black)
	}

	lines := fonts.Wrap(text, p.FontWeight, p.FontSize, w)
	lh := fonts.LineHeight(p.FontSize)
	top := y + (h-lh*float64(len(lines)))/2
	for i, line := range lines {
		ly := top + lh*(float64(i)+0.5)
		switch p.TextAlign {
		case "left", "justify":
			dc.DrawStringAnchored(line, x, ly, 0, 0.35)
		case "right":
			dc.DrawStringAnchored(line, x+w, ly, 1, 0.35)
		default:
			dc.DrawStringAnchored(line, x+w/2, ly, 0.5, 0.35)
		}
	}
	return nil
}

type boxShadow struct {
	dx, dy, blur float64
	color        color.NRGBA
}

// parseShadow reads the first layer of a CSS box-shadow:
// "<dx> <dy> [blur] [spread] <color>". Inset shadows are ignored. Offsets
// are clamped to ±limit and blur to [0, limit].
func parseShadow(v string, limit float64) (boxShadow, bool) {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "none") {
		return boxShadow{}, false
	}
	first := splitArgs(v)[0]
	sh := boxShadow{color: color.NRGBA{A: 0x40}}
	var lengths []float64
	for _, tok := range splitSpaces(first) {
		if strings.EqualFold(tok, "inset") {
			return boxShadow{}, false
		}
		if c, ok := colors.Parse(tok); ok {
			sh.color = c
			continue
		}
		if f, ok := px(tok); ok {
			lengths = append(lengths, f)
		}
	}
	if len(lengths) < 2 {
		return boxShadow{}, false
	}
	sh.dx = clamp(lengths[0], -limit, limit)
	sh.dy = clamp(lengths[1], -limit, limit)
	if len(lengths) > 2 {
		sh.blur = clamp(lengths[2], 0, limit)
	}
	return sh, sh.color.A > 0
}

// drawShadow approximates a blurred shadow with concentric translucent
// rounded rectangles.
func drawShadow(dc *gg.Context, sh boxShadow, x, y, w, h, radius float64) {
	steps := int(math.Min(8, math.Ceil(sh.blur/2)))
	if steps < 1 {
		dc.SetColor(sh.color)
		dc.DrawRoundedRectangle(x+sh.dx, y+sh.dy, w, h, radius)
		dc.Fill()
		return
	}
	c := sh.color
	c.A = uint8(math.Max(1, float64(c.A)/float64(steps)))
	for i := steps; i >= 1; i-- {
		grow := sh.blur * float64(i) / float64(steps) / 2
		dc.SetColor(c)
		dc.DrawRoundedRectangle(x+sh.dx-grow, y+sh.dy-grow, w+2*grow, h+2*grow, radius+grow)
		dc.Fill()
	}
}

// fade scales every channel of the premultiplied image by alpha.
func fade(src image.Image, alpha float64) image.Image {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	for i := range dst.Pix {
		dst.Pix[i] = uint8(math.Round(float64(dst.Pix[i]) * alpha))
	}
	return dst
}

func scale(src image.Image, w, h int) image.Image {
	if w < 1 || h < 1 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

// cover scales src to fill a w x h area, cropping the overflow centrally.
func cover(src image.Image, w, h int) image.Image {
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	k := math.Max(float64(w)/float64(sb.Dx()), float64(h)/float64(sb.Dy()))
	cropW := int(math.Round(float64(w) / k))
	cropH := int(math.Round(float64(h) / k))
	x0 := sb.Min.X + (sb.Dx()-cropW)/2
	y0 := sb.Min.Y + (sb.Dy()-cropH)/2
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, image.Rect(x0, y0, x0+cropW, y0+cropH), draw.Over, nil)
	return dst
}

// backgroundURL returns the image reference of a non-gradient background.
func backgroundURL(v string) string {
	v = strings.TrimSpace(v)
	lv := strings.ToLower(v)
	switch {
	case v == "", strings.Contains(lv, "gradient("):
		return ""
	case strings.HasPrefix(lv, "url(") && strings.HasSuffix(v, ")"):
		return strings.Trim(strings.TrimSpace(v[4:len(v)-1]), `"'`)
	}
	return v
}

func splitSpaces(s string) []string {
	var (
		out   []string
		depth int
		start = -1
	)
	for i, r := range s {
		switch {
		case r == '(':
			depth++
		case r == ')':
			depth--
		case unicode.IsSpace(r) && depth == 0:
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

func px(tok string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(tok), "px"), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// FileName returns the download name for doc with the given extension:
// the document name lower-cased with runs of other characters turned into
// single dashes.
func FileName(doc models.Document, ext string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(doc.Name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	name := b.String()
	if name == "" {
		name = "menu-board"
	}
	return name + "." + strings.TrimPrefix(ext, ".")
}
