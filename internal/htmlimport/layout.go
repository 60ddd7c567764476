package htmlimport

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/starford/menuboard/internal/fonts"
	"github.com/starford/menuboard/internal/geometry"
)

// box is a node of the layout tree. Text runs have a nil node.
type box struct {
	node     *html.Node
	tag      string
	style    Style
	text     string
	parent   *box
	children []*box

	rect     geometry.Rect
	margin   edges
	static   geometry.Point
	deferred []*box
}

func (b *box) isText() bool { return b.node == nil }

func (b *box) display() string {
	if b.isText() {
		return "inline"
	}
	return b.style.Display()
}

func (b *box) position() string {
	return strings.ToLower(b.style.GetOr("position", "static"))
}

func (b *box) positioned() bool {
	return b.position() != "static"
}

func (b *box) outOfFlow() bool {
	p := b.position()
	return p == "absolute" || p == "fixed"
}

func (b *box) inlineLevel() bool {
	switch b.display() {
	case "inline", "inline-block", "inline-flex", "inline-grid":
		return true
	}
	return false
}

func (b *box) replaced() bool {
	switch b.tag {
	case "img", "svg", "video", "canvas", "iframe", "input", "textarea", "select":
		return true
	}
	return false
}

type edges struct{ top, right, bottom, left float64 }

func (e edges) h() float64 { return e.left + e.right }
func (e edges) v() float64 { return e.top + e.bottom }

type sizeMode int

const (
	sizeAuto sizeMode = iota
	sizeStretch
	sizeShrink
)

// layout runs the simplified box layout over a box tree.
type layout struct {
	vw, vh float64
	root   *box
}

func (l *layout) ctx(b *box) lengthCtx {
	return lengthCtx{fontSize: b.style.FontSize(), vw: l.vw, vh: l.vh}
}

func (l *layout) length(b *box, prop string, ref float64) (float64, bool) {
	return l.ctx(b).resolve(b.style.Get(prop), ref)
}

func (l *layout) lengthOr0(b *box, prop string, ref float64) float64 {
	v, _ := l.length(b, prop, ref)
	return v
}

func (l *layout) sides(b *box, prefix string, ref float64) edges {
	return edges{
		top:    l.lengthOr0(b, prefix+"-top", ref),
		right:  l.lengthOr0(b, prefix+"-right", ref),
		bottom: l.lengthOr0(b, prefix+"-bottom", ref),
		left:   l.lengthOr0(b, prefix+"-left", ref),
	}
}

func (l *layout) border(b *box) float64 {
	if strings.EqualFold(b.style.Get("border-style"), "none") {
		return 0
	}
	return l.lengthOr0(b, "border-width", 0)
}

func (l *layout) borderBox(b *box) bool {
	return strings.EqualFold(b.style.Get("box-sizing"), "border-box")
}

func (l *layout) lineHeight(s Style) float64 {
	fs := s.FontSize()
	v := strings.TrimSpace(s.Get("line-height"))
	if v == "" || v == "normal" {
		return fonts.LineHeight(fs)
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f * fs
	}
	if px, ok := (lengthCtx{fontSize: fs, vw: l.vw, vh: l.vh}).resolve(v, fs); ok {
		return px
	}
	return fonts.LineHeight(fs)
}

// place lays out b with its margin box starting at (x, y) inside a
// container of width availW. cb is the containing block for absolutely
// positioned descendants.
func (l *layout) place(b *box, x, y, availW, availH float64, cb *box, mode sizeMode) {
	m := l.sides(b, "margin", availW)
	p := l.sides(b, "padding", availW)
	bw := l.border(b)
	extraW := p.h() + 2*bw
	extraH := p.v() + 2*bw

	w, hasW := l.length(b, "width", availW)
	if hasW && !l.borderBox(b) {
		w += extraW
	}
	if !hasW && b.replaced() {
		w, hasW = l.replacedSize(b, availW)
		w += extraW
	}
	if !hasW {
		switch {
		case mode == sizeStretch, mode == sizeAuto && !b.inlineLevel():
			w = availW - m.h()
		default:
			w = math.Min(l.intrinsic(b)+extraW, availW-m.h())
		}
	}
	if mw, ok := l.length(b, "max-width", availW); ok && w > mw {
		w = mw
	}
	if mw, ok := l.length(b, "min-width", availW); ok && w < mw {
		w = mw
	}
	w = math.Max(0, w)
	if hasW && b.style.Get("margin-left") == "auto" && b.style.Get("margin-right") == "auto" {
		if free := availW - w; free > 0 {
			m.left, m.right = free/2, free/2
		}
	}
	b.margin = m
	b.rect = geometry.Rect{X: x + m.left, Y: y + m.top, Width: w}

	h, hasH := l.height(b, availH)
	if hasH && !l.borderBox(b) {
		h += extraH
	}
	if !hasH && b.replaced() {
		_, h = l.replacedDims(b, w-extraW)
		h += extraH
		hasH = true
	}

	content := geometry.Rect{
		X:     b.rect.X + bw + p.left,
		Y:     b.rect.Y + bw + p.top,
		Width: math.Max(0, w-extraW),
	}
	if hasH {
		content.Height = math.Max(0, h-extraH)
	}

	childCB := cb
	if b.positioned() {
		childCB = b
	}
	var contentH float64
	if !b.replaced() {
		switch b.display() {
		case "flex", "inline-flex":
			contentH = l.flex(b, content, childCB)
		case "grid", "inline-grid":
			contentH = l.grid(b, content, childCB)
		default:
			contentH = l.flow(b, content, childCB)
		}
	}
	if !hasH {
		h = contentH + extraH
	}
	if mh, ok := l.length(b, "max-height", availH); ok && h > mh {
		h = mh
	}
	if mh, ok := l.length(b, "min-height", availH); ok && h < mh {
		h = mh
	}
	b.rect.Height = math.Max(0, h)

	if b.positioned() {
		l.flushAbsolute(b)
	}
	if b.position() == "relative" {
		dx := l.lengthOr0(b, "left", availW) - l.lengthOr0(b, "right", availW)
		dy := l.lengthOr0(b, "top", availH) - l.lengthOr0(b, "bottom", availH)
		shift(b, dx, dy)
	}
}

// height resolves the CSS height. Percentages of an auto-height container
// behave as auto.
func (l *layout) height(b *box, availH float64) (float64, bool) {
	if strings.HasSuffix(strings.TrimSpace(b.style.Get("height")), "%") && availH <= 0 {
		return 0, false
	}
	return l.length(b, "height", availH)
}

// replacedSize returns the used width of a replaced element without a CSS
// width.
func (l *layout) replacedSize(b *box, availW float64) (float64, bool) {
	w, _ := l.replacedDims(b, -1)
	return math.Min(w, availW), true
}

// replacedDims resolves the intrinsic size of a replaced element from its
// attributes. When width is known (>= 0) the height follows the attribute
// aspect ratio.
func (l *layout) replacedDims(b *box, width float64) (float64, float64) {
	aw, okW := parsePx(attr(b.node, "width"))
	ah, okH := parsePx(attr(b.node, "height"))
	switch {
	case okW && okH:
	case okW:
		ah = aw
	case okH:
		aw = ah
	default:
		aw, ah = 150, 150
	}
	if width >= 0 {
		if aw > 0 {
			return width, width * ah / aw
		}
		return width, ah
	}
	return aw, ah
}

// intrinsic returns the max-content width of b's content box.
func (l *layout) intrinsic(b *box) float64 {
	if b.isText() {
		return l.textWidth(b)
	}
	if b.replaced() {
		w, _ := l.replacedDims(b, -1)
		return w
	}
	if w, ok := l.length(b, "width", 0); ok && !strings.HasSuffix(b.style.Get("width"), "%") {
		if l.borderBox(b) {
			w -= l.sides(b, "padding", 0).h() + 2*l.border(b)
		}
		return math.Max(0, w)
	}
	outer := func(c *box) float64 {
		if c.isText() {
			return l.textWidth(c)
		}
		return l.intrinsic(c) + l.sides(c, "padding", 0).h() + l.sides(c, "margin", 0).h() + 2*l.border(c)
	}

	var best, run float64
	switch b.display() {
	case "flex", "inline-flex":
		gap := l.lengthOr0(b, "column-gap", 0)
		column := strings.HasPrefix(b.style.Get("flex-direction"), "column")
		n := 0
		for _, c := range b.children {
			if c.outOfFlow() {
				continue
			}
			if column {
				best = math.Max(best, outer(c))
			} else {
				if n > 0 {
					run += gap
				}
				run += outer(c)
			}
			n++
		}
		return math.Max(best, run)
	}
	for _, c := range b.children {
		if c.outOfFlow() {
			continue
		}
		if c.inlineLevel() {
			run += outer(c)
			continue
		}
		best = math.Max(best, math.Max(run, outer(c)))
		run = 0
	}
	return math.Max(best, run)
}

func (l *layout) textWidth(t *box) float64 {
	return fonts.Measure(t.text, t.style.Get("font-weight"), t.style.FontSize())
}

// line tracks the inline formatting state of one flow container.
type line struct {
	x, y, h float64
	items   []*box
}

// flow lays out block and inline children and returns the content height.
func (l *layout) flow(b *box, content geometry.Rect, cb *box) float64 {
	y := content.Y
	ln := line{x: content.X, y: y}
	align := strings.ToLower(b.style.Get("text-align"))

	newLine := func() {
		if len(ln.items) > 0 {
			if free := content.Right() - ln.x; free > 0 {
				switch align {
				case "center":
					for _, it := range ln.items {
						shift(it, free/2, 0)
					}
				case "right", "end":
					for _, it := range ln.items {
						shift(it, free, 0)
					}
				}
			}
		}
		ln = line{x: content.X, y: ln.y + ln.h}
	}

	for _, c := range b.children {
		if c.outOfFlow() {
			c.static = geometry.Point{X: ln.x, Y: ln.y}
			if c.position() == "fixed" {
				l.root.deferred = append(l.root.deferred, c)
			} else {
				cb.deferred = append(cb.deferred, c)
			}
			continue
		}
		if c.isText() {
			l.flowText(c, content, &ln, newLine)
			continue
		}
		if c.inlineLevel() {
			l.place(c, ln.x, ln.y, content.Width, content.Height, cb, sizeShrink)
			ow := c.rect.Width + c.margin.h()
			if ln.x > content.X && ln.x+ow > content.Right() {
				newLine()
				shift(c, content.X-(c.rect.X-c.margin.left), ln.y-(c.rect.Y-c.margin.top))
			}
			ln.x += ow
			ln.h = math.Max(ln.h, c.rect.Height+c.margin.v())
			ln.items = append(ln.items, c)
			continue
		}
		if len(ln.items) > 0 {
			newLine()
		}
		l.place(c, content.X, ln.y, content.Width, content.Height, cb, sizeAuto)
		ln.y += c.rect.Height + c.margin.v()
		ln.x = content.X
	}
	if len(ln.items) > 0 {
		newLine()
	}
	return ln.y - y
}

func (l *layout) flowText(t *box, content geometry.Rect, ln *line, newLine func()) {
	lh := l.lineHeight(t.style)
	tw := l.textWidth(t)
	nowrap := strings.HasPrefix(t.style.Get("white-space"), "nowrap") || strings.HasPrefix(t.style.Get("white-space"), "pre")
	if nowrap || ln.x+tw <= content.Right() {
		t.rect = geometry.Rect{X: ln.x, Y: ln.y, Width: tw, Height: lh}
		ln.x += tw
		ln.h = math.Max(ln.h, lh)
		ln.items = append(ln.items, t)
		return
	}
	if ln.x > content.X {
		newLine()
	}
	lines := fonts.Wrap(t.text, t.style.Get("font-weight"), t.style.FontSize(), content.Width)
	var widest, last float64
	for _, s := range lines {
		last = fonts.Measure(s, t.style.Get("font-weight"), t.style.FontSize())
		widest = math.Max(widest, last)
	}
	t.rect = geometry.Rect{X: content.X, Y: ln.y, Width: widest, Height: float64(len(lines)) * lh}
	ln.y += float64(len(lines)-1) * lh
	ln.x = content.X + last
	ln.h = lh
	ln.items = append(ln.items, t)
}

// flowItem is a flex or grid item with its outer main size.
type flowItem struct {
	b     *box
	basis float64
	grow  float64
}

func (l *layout) items(b *box, cb *box) []*box {
	var out []*box
	for _, c := range b.children {
		if c.outOfFlow() {
			c.static = geometry.Point{X: b.rect.X, Y: b.rect.Y}
			if c.position() == "fixed" {
				l.root.deferred = append(l.root.deferred, c)
			} else {
				cb.deferred = append(cb.deferred, c)
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// placeItem positions an item's outer box at (x, y) with the given outer width.
func (l *layout) placeItem(c *box, x, y, outerW, availH float64, cb *box, mode sizeMode) {
	if c.isText() {
		lh := l.lineHeight(c.style)
		lines := fonts.Wrap(c.text, c.style.Get("font-weight"), c.style.FontSize(), outerW)
		c.rect = geometry.Rect{X: x, Y: y, Width: math.Min(l.textWidth(c), outerW), Height: float64(len(lines)) * lh}
		return
	}
	l.place(c, x, y, outerW, availH, cb, mode)
}

func outerHeight(c *box) float64 { return c.rect.Height + c.margin.v() }
func outerWidth(c *box) float64  { return c.rect.Width + c.margin.h() }

func (l *layout) flex(b *box, content geometry.Rect, cb *box) float64 {
	dir := strings.ToLower(b.style.GetOr("flex-direction", "row"))
	children := l.items(b, cb)
	if strings.HasSuffix(dir, "-reverse") {
		for i, j := 0, len(children)-1; i < j; i, j = i+1, j-1 {
			children[i], children[j] = children[j], children[i]
		}
	}
	if strings.HasPrefix(dir, "column") {
		return l.flexColumn(b, children, content, cb)
	}

	colGap := l.lengthOr0(b, "column-gap", content.Width)
	rowGap := l.lengthOr0(b, "row-gap", content.Height)
	wrap := strings.HasPrefix(strings.ToLower(b.style.Get("flex-wrap")), "wrap")
	justify := strings.ToLower(b.style.Get("justify-content"))

	items := make([]flowItem, 0, len(children))
	for _, c := range children {
		it := flowItem{b: c}
		switch {
		case c.isText():
			it.basis = math.Min(l.textWidth(c), content.Width)
		default:
			it.grow, _ = strconv.ParseFloat(c.style.Get("flex-grow"), 64)
			m := l.sides(c, "margin", content.Width)
			extra := l.sides(c, "padding", content.Width).h() + 2*l.border(c)
			basis, ok := l.length(c, "flex-basis", content.Width)
			if !ok {
				basis, ok = l.length(c, "width", content.Width)
			}
			switch {
			case ok && basis == 0:
			case ok && l.borderBox(c):
			case ok:
				basis += extra
			default:
				basis = math.Min(l.intrinsic(c)+extra, content.Width)
			}
			it.basis = basis + m.h()
		}
		items = append(items, it)
	}

	var lines [][]flowItem
	var cur []flowItem
	var used float64
	for _, it := range items {
		need := it.basis
		if len(cur) > 0 {
			need += colGap
		}
		if wrap && len(cur) > 0 && used+need > content.Width {
			lines = append(lines, cur)
			cur, used, need = nil, 0, it.basis
		}
		cur = append(cur, it)
		used += need
	}
	if len(cur) > 0 {
		lines = append(lines, cur)
	}

	y := content.Y
	for li, ln := range lines {
		var sum, grow float64
		for _, it := range ln {
			sum += it.basis
			grow += it.grow
		}
		gaps := colGap * float64(len(ln)-1)
		free := content.Width - sum - gaps
		widths := make([]float64, len(ln))
		for i, it := range ln {
			widths[i] = it.basis
			switch {
			case free > 0 && grow > 0:
				widths[i] += free * it.grow / grow
			case free < 0 && sum > 0:
				widths[i] = math.Max(0, it.basis+free*it.basis/sum)
			}
		}
		if grow > 0 || free < 0 {
			free = 0
		}
		start, between := justifyOffsets(justify, math.Max(0, free), len(ln))

		x := content.X + start
		var lineH float64
		for i, it := range ln {
			l.placeItem(it.b, x, y, widths[i], content.Height, cb, sizeStretch)
			x += widths[i] + colGap + between
			lineH = math.Max(lineH, outerHeight(it.b))
		}
		if len(lines) == 1 && content.Height > 0 {
			lineH = math.Max(lineH, content.Height)
		}
		for _, it := range ln {
			l.alignCross(b, it.b, y, lineH)
		}
		y += lineH
		if li < len(lines)-1 {
			y += rowGap
		}
	}
	return y - content.Y
}

func (l *layout) flexColumn(b *box, children []*box, content geometry.Rect, cb *box) float64 {
	rowGap := l.lengthOr0(b, "row-gap", content.Height)
	align := strings.ToLower(b.style.GetOr("align-items", "stretch"))
	mode := sizeStretch
	if align != "stretch" && align != "normal" {
		mode = sizeShrink
	}
	y := content.Y
	for i, c := range children {
		l.placeItem(c, content.X, y, content.Width, content.Height, cb, mode)
		if free := content.Width - outerWidth(c); free > 0 {
			switch align {
			case "center":
				shift(c, free/2, 0)
			case "flex-end", "end":
				shift(c, free, 0)
			}
		}
		y += outerHeight(c)
		if i < len(children)-1 {
			y += rowGap
		}
	}
	used := y - content.Y
	if content.Height > used && len(children) > 0 {
		start, between := justifyOffsets(strings.ToLower(b.style.Get("justify-content")), content.Height-used, len(children))
		for i, c := range children {
			shift(c, 0, start+between*float64(i))
		}
		return content.Height
	}
	return used
}

// alignCross aligns an item inside a flex line of height lineH.
func (l *layout) alignCross(container, c *box, y, lineH float64) {
	align := strings.ToLower(container.style.GetOr("align-items", "stretch"))
	if !c.isText() {
		if self := strings.ToLower(c.style.Get("align-self")); self != "" && self != "auto" {
			align = self
		}
	}
	free := lineH - outerHeight(c)
	switch align {
	case "center":
		shift(c, 0, free/2)
	case "flex-end", "end":
		shift(c, 0, free)
	case "stretch", "normal":
		if !c.isText() && c.style.Get("height") == "" && !c.replaced() && free > 0 {
			c.rect.Height += free
		}
	}
}

// justifyOffsets returns the leading offset and the extra spacing between
// items for a justify-content value.
func justifyOffsets(justify string, free float64, n int) (float64, float64) {
	if free <= 0 || n == 0 {
		return 0, 0
	}
	switch justify {
	case "center":
		return free / 2, 0
	case "flex-end", "end", "right":
		return free, 0
	case "space-between":
		if n == 1 {
			return 0, 0
		}
		return 0, free / float64(n-1)
	case "space-around":
		each := free / float64(n)
		return each / 2, each
	case "space-evenly":
		each := free / float64(n+1)
		return each, each
	}
	return 0, 0
}

// gridColumns resolves grid-template-columns into column widths.
func (l *layout) gridColumns(b *box, width, gap float64) []float64 {
	tracks := expandRepeat(b.style.Get("grid-template-columns"))
	if len(tracks) == 0 {
		return []float64{width}
	}
	fr := make([]float64, len(tracks))
	out := make([]float64, len(tracks))
	var fixed, totalFr float64
	for i, t := range tracks {
		t = strings.ToLower(t)
		if strings.HasSuffix(t, "fr") {
			if f, err := strconv.ParseFloat(strings.TrimSuffix(t, "fr"), 64); err == nil {
				fr[i] = f
				totalFr += f
				continue
			}
		}
		if px, ok := l.ctx(b).resolve(t, width); ok {
			out[i] = px
			fixed += px
			continue
		}
		fr[i] = 1
		totalFr++
	}
	free := width - fixed - gap*float64(len(tracks)-1)
	for i := range out {
		if fr[i] > 0 && totalFr > 0 {
			out[i] = math.Max(0, free*fr[i]/totalFr)
		}
	}
	return out
}

// expandRepeat splits a track list, expanding repeat(N, track...).
func expandRepeat(v string) []string {
	var out []string
	for _, tok := range splitTopLevel(strings.TrimSpace(v), ' ') {
		lt := strings.ToLower(tok)
		if !strings.HasPrefix(lt, "repeat(") || !strings.HasSuffix(lt, ")") {
			out = append(out, tok)
			continue
		}
		count, tracks, ok := strings.Cut(tok[len("repeat("):len(tok)-1], ",")
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if !ok || err != nil || n <= 0 {
			out = append(out, "1fr")
			continue
		}
		inner := splitTopLevel(strings.TrimSpace(tracks), ' ')
		for i := 0; i < n; i++ {
			out = append(out, inner...)
		}
	}
	return out
}

func (l *layout) grid(b *box, content geometry.Rect, cb *box) float64 {
	colGap := l.lengthOr0(b, "column-gap", content.Width)
	rowGap := l.lengthOr0(b, "row-gap", content.Height)
	cols := l.gridColumns(b, content.Width, colGap)
	children := l.items(b, cb)

	y := content.Y
	for start := 0; start < len(children); start += len(cols) {
		end := min(start+len(cols), len(children))
		row := children[start:end]
		x := content.X
		var rowH float64
		for i, c := range row {
			l.placeItem(c, x, y, cols[i], content.Height, cb, sizeStretch)
			x += cols[i] + colGap
			rowH = math.Max(rowH, outerHeight(c))
		}
		for _, c := range row {
			l.alignCross(b, c, y, rowH)
		}
		y += rowH
		if end < len(children) {
			y += rowGap
		}
	}
	return y - content.Y
}

// flushAbsolute places the out-of-flow descendants whose containing block is cb.
func (l *layout) flushAbsolute(cb *box) {
	pending := cb.deferred
	cb.deferred = nil
	for _, c := range pending {
		l.placeAbsolute(c, cb)
	}
}

func (l *layout) placeAbsolute(c *box, cb *box) {
	bw := 0.0
	if cb != l.root {
		bw = l.border(cb)
	}
	area := geometry.Rect{
		X:      cb.rect.X + bw,
		Y:      cb.rect.Y + bw,
		Width:  math.Max(0, cb.rect.Width-2*bw),
		Height: math.Max(0, cb.rect.Height-2*bw),
	}
	left, okL := l.length(c, "left", area.Width)
	right, okR := l.length(c, "right", area.Width)
	top, okT := l.length(c, "top", area.Height)
	bottom, okB := l.length(c, "bottom", area.Height)

	availW, mode := area.Width, sizeShrink
	if okL && okR && c.style.Get("width") == "" {
		availW, mode = math.Max(0, area.Width-left-right), sizeStretch
	} else if okL {
		availW = math.Max(0, area.Width-left)
	}
	l.place(c, 0, 0, availW, area.Height, c, mode)

	if okT && okB && c.style.Get("height") == "" && !c.replaced() {
		if h := area.Height - top - bottom - c.margin.v(); h > c.rect.Height {
			c.rect.Height = h
		}
	}

	x := c.static.X + c.margin.left
	switch {
	case okL:
		x = area.X + left + c.margin.left
	case okR:
		x = area.Right() - right - c.margin.right - c.rect.Width
	}
	y := c.static.Y + c.margin.top
	switch {
	case okT:
		y = area.Y + top + c.margin.top
	case okB:
		y = area.Bottom() - bottom - c.margin.bottom - c.rect.Height
	}
	shift(c, x-c.rect.X, y-c.rect.Y)
}

// shift moves b and its whole subtree.
func shift(b *box, dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	b.rect.X += dx
	b.rect.Y += dy
	b.static.X += dx
	b.static.Y += dy
	for _, c := range b.children {
		shift(c, dx, dy)
	}
}
