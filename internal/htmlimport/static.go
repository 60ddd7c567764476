package htmlimport

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/starford/menuboard/internal/apperr"
	"github.com/starford/menuboard/internal/colors"
	"github.com/starford/menuboard/internal/geometry"
	"github.com/starford/menuboard/internal/models"
)

// skipTags never produce boxes.
var skipTags = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Meta:     true,
	atom.Link:     true,
	atom.Title:    true,
	atom.Template: true,
	atom.Noscript: true,
	atom.Br:       true,
	atom.Base:     true,
}

// StaticRenderer is a pure-Go Renderer. It parses the page, applies the
// page's <style> blocks followed by the supplied stylesheet and runs a
// simplified block, inline, flex and grid layout. No scripts run and no
// resources are fetched.
type StaticRenderer struct{}

// NewStaticRenderer returns the built-in renderer.
func NewStaticRenderer() *StaticRenderer { return &StaticRenderer{} }

// Render implements Renderer.
func (r *StaticRenderer) Render(ctx context.Context, req RenderRequest) (*Rendering, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vp := req.Viewport
	if vp.Width <= 0 || vp.Height <= 0 {
		vp = models.DefaultCanvas
	}
	vw, vh := float64(vp.Width), float64(vp.Height)

	doc, err := html.Parse(strings.NewReader(req.HTML))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %v", apperr.ErrInvalid, err)
	}

	order := 0
	ua, err := parseStylesheet(userAgentCSS, originUA, vw, &order)
	if err != nil {
		return nil, fmt.Errorf("htmlimport: default stylesheet: %w", err)
	}
	sheets := []*stylesheet{ua}
	for _, src := range append(styleBlocks(doc), req.CSS) {
		if strings.TrimSpace(src) == "" {
			continue
		}
		sh, err := parseStylesheet(src, originAuthor, vw, &order)
		if err != nil {
			return nil, fmt.Errorf("%w: parse css: %v", apperr.ErrInvalid, err)
		}
		sheets = append(sheets, sh)
	}

	htmlNode := findElement(doc, atom.Html)
	if htmlNode == nil {
		return nil, fmt.Errorf("%w: document has no <html> element", apperr.ErrInvalid)
	}
	b := &builder{cascade: &cascade{sheets: sheets, vw: vw, vh: vh}}
	top := b.build(htmlNode, nil, nil)
	if top == nil {
		return nil, fmt.Errorf("%w: nothing to render", apperr.ErrInvalid)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	viewport := &box{rect: geometry.Rect{Width: vw, Height: vh}, style: Style{}}
	l := &layout{vw: vw, vh: vh, root: viewport}
	l.place(top, 0, 0, vw, vh, viewport, sizeAuto)
	l.flushAbsolute(viewport)

	root, canvas := detectRoot(top, vp)
	out := &Rendering{
		Root:   root.rect,
		Canvas: canvas,
		Title:  collapse(textOf(findElement(doc, atom.Title))),
	}
	for a := root; a != nil; a = a.parent {
		out.Backdrop = append(out.Backdrop, a.style)
	}
	emit(out, root, -1, 0)
	return out, nil
}

type builder struct {
	cascade *cascade
}

// build creates the box subtree for an element; hidden subtrees yield nil.
func (bd *builder) build(n *html.Node, parent *box, parentStyle Style) *box {
	style := bd.cascade.compute(n, parentStyle)
	if strings.EqualFold(strings.TrimSpace(style.Get("display")), "none") {
		return nil
	}
	if n.DataAtom == atom.Img || n.DataAtom == atom.Svg {
		if style.Get("display") == "" {
			style["display"] = "inline-block"
		}
	}
	b := &box{node: n, tag: strings.ToLower(n.Data), style: style, parent: parent}
	if b.replaced() {
		return b
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			if skipTags[c.DataAtom] {
				continue
			}
			if child := bd.build(c, b, style); child != nil {
				b.children = append(b.children, child)
			}
		case html.TextNode:
			text := c.Data
			if !strings.HasPrefix(style.Get("white-space"), "pre") {
				text = collapse(text)
			}
			if strings.TrimSpace(text) == "" {
				continue
			}
			b.children = append(b.children, &box{
				tag:    "#text",
				style:  style,
				text:   transformText(text, style.Get("text-transform")),
				parent: b,
			})
		}
	}
	return b
}

// detectRoot picks the board container: an element marked data-canvas, or
// the only child of <body> when it has a fixed px size. Otherwise <body>
// stands for a board of the default size.
func detectRoot(top *box, fallback models.CanvasSize) (*box, models.CanvasSize) {
	if marked := findBox(top, func(b *box) bool { return hasAttr(b.node, "data-canvas") }); marked != nil {
		return marked, sizeOf(marked.rect)
	}
	body := findBox(top, func(b *box) bool { return b.node.DataAtom == atom.Body })
	if body == nil {
		return top, fallback
	}
	var only *box
	for _, c := range body.children {
		if c.isText() {
			return body, fallback
		}
		if only != nil {
			return body, fallback
		}
		only = c
	}
	if only != nil && isPx(only.style.Get("width")) && isPx(only.style.Get("height")) {
		return only, sizeOf(only.rect)
	}
	return body, fallback
}

func sizeOf(r geometry.Rect) models.CanvasSize {
	return models.CanvasSize{Width: int(math.Round(r.Width)), Height: int(math.Round(r.Height))}
}

func isPx(v string) bool {
	v = strings.TrimSpace(v)
	if !strings.HasSuffix(v, "px") {
		return false
	}
	_, err := strconv.ParseFloat(strings.TrimSuffix(v, "px"), 64)
	return err == nil
}

// emit appends the element boxes below parent in document order.
func emit(out *Rendering, parent *box, parentIdx, depth int) {
	for _, c := range parent.children {
		if c.isText() {
			continue
		}
		idx := len(out.Nodes)
		out.Nodes = append(out.Nodes, RenderedNode{
			Tag:                c.tag,
			Attrs:              attrMap(c.node),
			Text:               collapse(inlineText(c)),
			Box:                c.rect,
			Style:              c.style,
			Depth:              depth,
			Parent:             parentIdx,
			Index:              idx,
			HasElementChildren: hasElementChild(c),
		})
		emit(out, c, idx, depth+1)
	}
}

// inlineText returns the text of b and its inline-level descendants.
func inlineText(b *box) string {
	var sb strings.Builder
	for _, c := range b.children {
		switch {
		case c.isText():
			sb.WriteString(c.text)
			sb.WriteByte(' ')
		case c.inlineLevel() && !c.replaced() && !c.outOfFlow():
			sb.WriteString(inlineText(c))
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

func hasElementChild(b *box) bool {
	for _, c := range b.children {
		if !c.isText() {
			return true
		}
	}
	return false
}

func findBox(b *box, match func(*box) bool) *box {
	if !b.isText() && match(b) {
		return b
	}
	for _, c := range b.children {
		if found := findBox(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// styleBlocks returns the contents of every <style> element in document order.
func styleBlocks(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Style {
			out = append(out, textOf(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func attrMap(n *html.Node) map[string]string {
	if len(n.Attr) == 0 {
		return nil
	}
	m := make(map[string]string, len(n.Attr))
	for _, a := range n.Attr {
		m[a.Key] = a.Val
	}
	return m
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func transformText(s, mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "uppercase":
		return strings.ToUpper(s)
	case "lowercase":
		return strings.ToLower(s)
	}
	return s
}

func isColorToken(tok string) bool {
	return strings.HasPrefix(strings.ToLower(tok), "var(") || colors.IsColor(tok)
}
