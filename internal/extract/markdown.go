package extract

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"

	"stencil/internal/field"
)

// markdownRegions walks the goldmark AST and returns the document's text
// runs with the style in effect at each. Placeholders inside code spans,
// code blocks, and link destinations are literal content and are never
// extracted, so those regions are simply not emitted.
func markdownRegions(raw []byte) []region {
	md := goldmark.New()
	doc := md.Parser().Parse(gtext.NewReader(raw))

	var regions []region
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		t, ok := n.(*ast.Text)
		if !ok {
			return ast.WalkContinue, nil
		}
		if inCodeRegion(t) {
			return ast.WalkContinue, nil
		}
		seg := t.Segment
		if seg.Start >= seg.Stop {
			return ast.WalkContinue, nil
		}
		regions = append(regions, region{
			start: seg.Start,
			stop:  seg.Stop,
			style: styleAt(t),
		})
		return ast.WalkContinue, nil
	})
	return regions
}

// inCodeRegion reports whether a text node sits inside an inline code span.
// Fenced and indented code blocks carry their content as raw lines, not
// text nodes, so they never reach the walker.
func inCodeRegion(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == ast.KindCodeSpan {
			return true
		}
	}
	return false
}

// styleAt derives the style attributes in effect at a text node from its
// ancestors: emphasis level and enclosing heading level.
func styleAt(n ast.Node) field.Style {
	var style field.Style
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch v := p.(type) {
		case *ast.Emphasis:
			if v.Level >= 2 {
				style.Bold = true
			} else {
				style.Italic = true
			}
		case *ast.Heading:
			style.HeadingLevel = v.Level
		}
	}
	return style
}
