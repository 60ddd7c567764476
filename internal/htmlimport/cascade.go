package htmlimport

import (
	"regexp"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// inherited lists the properties that flow from parent to child.
var inherited = map[string]bool{
	"color":          true,
	"font-size":      true,
	"font-weight":    true,
	"font-family":    true,
	"font-style":     true,
	"line-height":    true,
	"text-align":     true,
	"text-transform": true,
	"letter-spacing": true,
	"white-space":    true,
	"visibility":     true,
}

var imageFuncRe = regexp.MustCompile(`(?i)((?:repeating-)?(?:linear|radial|conic)-gradient\(.*\)|url\([^)]*\))`)

type cascade struct {
	sheets []*stylesheet
	vw, vh float64
}

type matched struct {
	decl   declaration
	origin origin
	spec   cascadia.Specificity
	order  int
}

func (a matched) less(b matched) bool {
	if a.decl.important != b.decl.important {
		return !a.decl.important
	}
	if a.origin != b.origin {
		return a.origin < b.origin
	}
	if a.spec != b.spec {
		return a.spec.Less(b.spec)
	}
	return a.order < b.order
}

// compute returns the computed style of n given its parent's computed style
// (nil for the document root).
func (c *cascade) compute(n *html.Node, parent Style) Style {
	out := Style{}
	for k, v := range parent {
		if inherited[k] || strings.HasPrefix(k, "--") {
			out[k] = v
		}
	}

	var ms []matched
	for _, sh := range c.sheets {
		for _, r := range sh.rules {
			if !r.sel.Match(n) {
				continue
			}
			for _, d := range r.decls {
				ms = append(ms, matched{decl: d, origin: sh.origin, spec: r.spec, order: r.order})
			}
		}
	}
	if inline := attr(n, "style"); inline != "" {
		for i, d := range parseInlineStyle(inline) {
			ms = append(ms, matched{decl: d, origin: originInline, order: i})
		}
	}
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].less(ms[j]) })
	for _, m := range ms {
		setProperty(out, parent, m.decl.prop, m.decl.value)
	}

	for k, v := range out {
		if strings.Contains(v, "var(") {
			out[k] = resolveVars(v, out, 0)
		}
	}

	parentFS := rootFontSize
	if parent != nil {
		parentFS = parent.FontSize()
	}
	if v, ok := out["font-size"]; ok {
		out["font-size"] = formatPx(resolveFontSize(v, parentFS, c.vw, c.vh))
	} else {
		out["font-size"] = formatPx(parentFS)
	}
	for _, prop := range []string{"background-color", "border-color"} {
		if strings.EqualFold(out[prop], "currentcolor") {
			out[prop] = out["color"]
		}
	}
	return out
}

func setProperty(out, parent Style, prop, value string) {
	lv := strings.ToLower(value)
	switch lv {
	case "inherit":
		if v, ok := parent[prop]; ok {
			out[prop] = v
		} else {
			delete(out, prop)
		}
		return
	case "initial", "unset", "revert":
		delete(out, prop)
		return
	}

	switch prop {
	case "margin", "padding":
		sides := boxSides(value)
		for i, side := range []string{"top", "right", "bottom", "left"} {
			out[prop+"-"+side] = sides[i]
		}
	case "inset":
		sides := boxSides(value)
		for i, side := range []string{"top", "right", "bottom", "left"} {
			out[side] = sides[i]
		}
	case "gap", "grid-gap":
		parts := strings.Fields(value)
		if len(parts) == 0 {
			return
		}
		out["row-gap"] = parts[0]
		out["column-gap"] = parts[len(parts)-1]
	case "flex":
		setFlex(out, lv)
	case "background":
		setBackground(out, value)
	case "border":
		setBorder(out, value)
	case "border-width":
		if parts := strings.Fields(value); len(parts) > 0 {
			out["border-width"] = parts[0]
		}
	case "border-radius":
		if parts := strings.Fields(strings.Split(value, "/")[0]); len(parts) > 0 {
			out["border-radius"] = parts[0]
		}
	case "font":
		setFont(out, value)
	default:
		out[prop] = value
	}
}

func setFlex(out Style, v string) {
	switch v {
	case "none":
		out["flex-grow"] = "0"
		return
	case "auto":
		out["flex-grow"] = "1"
		return
	}
	parts := strings.Fields(v)
	if len(parts) == 0 {
		return
	}
	if _, ok := parsePx(parts[0]); ok && !strings.HasSuffix(parts[0], "px") {
		out["flex-grow"] = parts[0]
		out["flex-basis"] = "0"
	} else {
		out["flex-basis"] = parts[0]
	}
	if len(parts) == 3 {
		out["flex-basis"] = parts[2]
	}
}

func setBackground(out Style, v string) {
	if strings.EqualFold(strings.TrimSpace(v), "none") {
		out["background-color"] = "transparent"
		out["background-image"] = "none"
		return
	}
	img := imageFuncRe.FindString(v)
	if img != "" {
		out["background-image"] = img
		v = strings.Replace(v, img, " ", 1)
	} else {
		out["background-image"] = "none"
	}
	out["background-color"] = "transparent"
	for _, tok := range splitTopLevel(v, ' ') {
		if isColorToken(tok) {
			out["background-color"] = tok
		}
	}
}

func setBorder(out Style, v string) {
	if strings.EqualFold(strings.TrimSpace(v), "none") {
		out["border-width"] = "0"
		return
	}
	for _, tok := range splitTopLevel(v, ' ') {
		switch {
		case isColorToken(tok):
			out["border-color"] = tok
		case tok == "thin":
			out["border-width"] = "1px"
		case tok == "medium":
			out["border-width"] = "3px"
		case tok == "thick":
			out["border-width"] = "5px"
		default:
			if _, ok := (lengthCtx{}).resolve(tok, 0); ok {
				out["border-width"] = tok
			}
		}
	}
}

// setFont expands "[style] [weight] size[/line-height] family".
func setFont(out Style, v string) {
	parts := strings.Fields(v)
	for i, p := range parts {
		lp := strings.ToLower(p)
		switch {
		case lp == "italic" || lp == "oblique":
			out["font-style"] = lp
		case lp == "bold" || lp == "bolder" || lp == "lighter" || isNumericWeight(lp):
			out["font-weight"] = lp
		case lp == "normal" || lp == "small-caps":
		default:
			size, lh, _ := strings.Cut(p, "/")
			out["font-size"] = size
			if lh != "" {
				out["line-height"] = lh
			}
			if i+1 < len(parts) {
				out["font-family"] = strings.Join(parts[i+1:], " ")
			}
			return
		}
	}
}

func isNumericWeight(s string) bool {
	switch s {
	case "100", "200", "300", "400", "500", "600", "700", "800", "900":
		return true
	}
	return false
}

// resolveVars substitutes var(--name[, fallback]) references.
func resolveVars(v string, props Style, depth int) string {
	if depth > 8 {
		return v
	}
	from := 0
	for {
		i := strings.Index(v[from:], "var(")
		if i < 0 {
			return v
		}
		start := from + i
		end := matchParen(v, start+3)
		if end < 0 {
			return v
		}
		inner := v[start+4 : end]
		name, fallback, _ := strings.Cut(inner, ",")
		repl, ok := props[strings.TrimSpace(name)]
		if !ok {
			repl = strings.TrimSpace(fallback)
		}
		repl = resolveVars(repl, props, depth+1)
		v = v[:start] + repl + v[end+1:]
		from = start + len(repl)
	}
}

// matchParen returns the index of the parenthesis closing the one at open.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits s on sep outside parentheses.
func splitTopLevel(s string, sep byte) []string {
	var (
		out   []string
		depth int
		last  int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				if t := strings.TrimSpace(s[last:i]); t != "" {
					out = append(out, t)
				}
				last = i + 1
			}
		}
	}
	if t := strings.TrimSpace(s[last:]); t != "" {
		out = append(out, t)
	}
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
