package htmlimport

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

// origin orders declarations from the built-in sheet, the page's sheets and
// inline style attributes.
type origin int

const (
	originUA origin = iota
	originAuthor
	originInline
)

type declaration struct {
	prop      string
	value     string
	important bool
}

type rule struct {
	sel   cascadia.Sel
	spec  cascadia.Specificity
	decls []declaration
	order int
}

type stylesheet struct {
	origin origin
	rules  []rule
}

// mediaWidthRe pulls min-/max-width conditions out of a media query.
var mediaWidthRe = regexp.MustCompile(`(min|max)-width\s*:\s*([0-9.]+)px`)

// parseStylesheet tokenizes src and keeps the rules that apply at a viewport
// of the given width. Selectors cascadia cannot compile (pseudo-classes like
// :hover, pseudo-elements) are dropped with their rule.
func parseStylesheet(src string, o origin, viewportW float64, order *int) (*stylesheet, error) {
	sheet := &stylesheet{origin: o}
	p := css.NewParser(parse.NewInputString(src), false)

	var (
		selector strings.Builder
		current  []rule
		inRule   bool
		skip     []bool // one entry per open at-rule block
	)
	skipping := func() bool {
		for _, s := range skip {
			if s {
				return true
			}
		}
		return false
	}

	for {
		gt, _, data := p.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := p.Err(); err == io.EOF {
				return sheet, nil
			} else if err != nil {
				return nil, fmt.Errorf("stylesheet: %w", err)
			}
		case css.QualifiedRuleGrammar:
			selector.WriteString(tokensString(p.Values()))
			selector.WriteString(",")
		case css.BeginRulesetGrammar:
			selector.WriteString(tokensString(p.Values()))
			current = current[:0]
			inRule = !skipping()
			if inRule {
				current = compileSelectors(selector.String())
			}
			selector.Reset()
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			if !inRule || len(current) == 0 {
				continue
			}
			d := newDeclaration(string(data), tokensString(p.Values()))
			for i := range current {
				current[i].decls = append(current[i].decls, d)
			}
		case css.EndRulesetGrammar:
			if inRule {
				for _, r := range current {
					*order++
					r.order = *order
					sheet.rules = append(sheet.rules, r)
				}
			}
			current = nil
			inRule = false
		case css.BeginAtRuleGrammar:
			skip = append(skip, !atRuleApplies(string(data), tokensString(p.Values()), viewportW))
		case css.EndAtRuleGrammar:
			if len(skip) > 0 {
				skip = skip[:len(skip)-1]
			}
		}
	}
}

// parseInlineStyle parses a style="" attribute.
func parseInlineStyle(src string) []declaration {
	var out []declaration
	p := css.NewParser(parse.NewInputString(src), true)
	for {
		gt, _, data := p.Next()
		if gt == css.ErrorGrammar {
			if p.Err() != nil {
				return out
			}
			continue
		}
		if gt == css.DeclarationGrammar || gt == css.CustomPropertyGrammar {
			out = append(out, newDeclaration(string(data), tokensString(p.Values())))
		}
	}
}

func newDeclaration(prop, value string) declaration {
	value = strings.TrimSpace(value)
	d := declaration{prop: strings.ToLower(strings.TrimSpace(prop))}
	compact := strings.ReplaceAll(strings.ToLower(value), " ", "")
	if strings.HasSuffix(compact, "!important") {
		d.important = true
		idx := strings.LastIndex(value, "!")
		value = strings.TrimSpace(value[:idx])
	}
	d.value = value
	return d
}

func tokensString(vals []css.Token) string {
	var b strings.Builder
	for _, v := range vals {
		b.Write(v.Data)
	}
	return b.String()
}

func compileSelectors(list string) []rule {
	var out []rule
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sel, err := cascadia.Parse(part)
		if err != nil {
			continue
		}
		out = append(out, rule{sel: sel, spec: sel.Specificity()})
	}
	return out
}

// atRuleApplies decides whether rules nested in an at-rule are used. Only
// @media and @supports blocks contribute styles.
func atRuleApplies(name, prelude string, viewportW float64) bool {
	name = strings.ToLower(strings.TrimPrefix(name, "@"))
	switch name {
	case "supports":
		return true
	case "media":
	default:
		return false
	}
	q := strings.ToLower(prelude)
	if strings.Contains(q, "print") && !strings.Contains(q, "screen") {
		return false
	}
	for _, m := range mediaWidthRe.FindAllStringSubmatch(q, -1) {
		px, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		if m[1] == "min" && viewportW < px {
			return false
		}
		if m[1] == "max" && viewportW > px {
			return false
		}
	}
	return true
}

// userAgentCSS is the subset of browser defaults that affects layout and
// text styling of typical menu pages.
const userAgentCSS = `
html, body, div, section, article, header, footer, main, nav, aside, figure,
figcaption, p, h1, h2, h3, h4, h5, h6, ul, ol, li, dl, dt, dd, form, fieldset,
blockquote, pre, address, hr, table, details, summary, center { display: block; }
li { display: list-item; }
img, button, input, select, textarea { display: inline-block; }
body { margin: 8px; }
p, blockquote, ul, ol, dl { margin: 16px 0; }
ul, ol { padding-left: 40px; }
h1 { font-size: 2em; font-weight: bold; margin: 0.67em 0; }
h2 { font-size: 1.5em; font-weight: bold; margin: 0.83em 0; }
h3 { font-size: 1.17em; font-weight: bold; margin: 1em 0; }
h4 { font-size: 1em; font-weight: bold; margin: 1.33em 0; }
h5 { font-size: 0.83em; font-weight: bold; margin: 1.67em 0; }
h6 { font-size: 0.67em; font-weight: bold; margin: 2.33em 0; }
b, strong, th { font-weight: bold; }
small { font-size: smaller; }
center { text-align: center; }
`
