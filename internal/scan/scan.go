// Package scan finds closed citations such as "[2B:15]" in Markdown prose.
// Code spans, code blocks, raw HTML and link text followed by a destination
// are not prose and are skipped.
package scan

import (
	"bytes"
	"regexp"
	"sort"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/hpungsan/citelink/internal/citation"
)

// citationRegex matches a canonical closed citation.
var citationRegex = regexp.MustCompile(`\[(\d+[A-Z]+(?::\d+)?)\]`)

// Match is one citation found in a source file.
type Match struct {
	Token citation.Token `json:"citation"`

	// Start and End are byte offsets of the bracketed text in the source.
	Start int `json:"start"`
	End   int `json:"end"`

	// Line is 1-based.
	Line int `json:"line"`
}

type span struct{ start, stop int }

// Find returns every citation in source in document order.
func Find(source []byte) []Match {
	root := goldmark.DefaultParser().Parse(text.NewReader(source))

	var (
		prose    []span
		excluded []span
	)
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Paragraph, *ast.Heading, *ast.TextBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				prose = append(prose, span{seg.Start, seg.Stop})
			}
		case *ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					excluded = append(excluded, span{t.Segment.Start, t.Segment.Stop})
				}
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				excluded = append(excluded, span{seg.Start, seg.Stop})
			}
		}
		return ast.WalkContinue, nil
	})

	sort.Slice(prose, func(i, j int) bool { return prose[i].start < prose[j].start })

	var out []Match
	for _, p := range prose {
		for _, loc := range citationRegex.FindAllSubmatchIndex(source[p.start:p.stop], -1) {
			start, end := p.start+loc[0], p.start+loc[1]
			if overlaps(start, end, excluded) {
				continue
			}
			// "[2B](url)" is a link, not a citation.
			if end < len(source) && source[end] == '(' {
				continue
			}
			ref := string(source[p.start+loc[2] : p.start+loc[3]])
			out = append(out, Match{
				Token: citation.New("", 0, "", "", ref),
				Start: start,
				End:   end,
				Line:  bytes.Count(source[:start], []byte("\n")) + 1,
			})
		}
	}
	return out
}

func overlaps(start, end int, spans []span) bool {
	for _, s := range spans {
		if start < s.stop && s.start < end {
			return true
		}
	}
	return false
}
