// Package document is the minimal host document the citation subsystem plugs
// into: a flat run of inline nodes, a selection, and a transactional editor.
//
// Positions count runes in text nodes and one unit per non-text node. The node
// list is kept normalized so every non-text node is flanked by text nodes
// (possibly empty) and every position lands inside some text node.
package document

import (
	"strings"
	"unicode/utf8"

	"github.com/hpungsan/citelink/internal/citation"
)

// Kind distinguishes inline node types.
type Kind int

const (
	KindText Kind = iota
	KindCitation
	// KindOpaque is a serialized node this package does not understand.
	// It is carried through load and save byte for byte.
	KindOpaque
)

// Node is one inline node.
type Node struct {
	Kind     Kind
	Text     string
	Citation citation.Token
	Raw      []byte
}

// TextNode returns a text node.
func TextNode(s string) Node { return Node{Kind: KindText, Text: s} }

// CitationNode returns a citation node.
func CitationNode(t citation.Token) Node { return Node{Kind: KindCitation, Citation: t} }

// OpaqueNode returns a pass-through node holding raw serialized JSON.
func OpaqueNode(raw []byte) Node {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return Node{Kind: KindOpaque, Raw: cp}
}

func (n Node) width() int {
	if n.Kind == KindText {
		return utf8.RuneCountInString(n.Text)
	}
	return 1
}

// Selection is an anchor/focus pair of positions. Focus is the caret.
type Selection struct {
	Anchor int
	Focus  int
}

// Collapsed reports whether the selection is a bare caret.
func (s Selection) Collapsed() bool { return s.Anchor == s.Focus }

func (s Selection) bounds() (int, int) {
	if s.Anchor <= s.Focus {
		return s.Anchor, s.Focus
	}
	return s.Focus, s.Anchor
}

// Doc is a document value. Copies share nothing mutable.
type Doc struct {
	nodes     []Node
	selection *Selection
}

// New builds a normalized document without a selection.
func New(nodes ...Node) Doc {
	return Doc{nodes: normalize(nodes)}
}

// Nodes returns a copy of the node list.
func (d Doc) Nodes() []Node {
	out := make([]Node, len(d.nodes))
	copy(out, d.nodes)
	return out
}

// Selection returns the current selection, if any.
func (d Doc) Selection() (Selection, bool) {
	if d.selection == nil {
		return Selection{}, false
	}
	return *d.selection, true
}

// Len is the number of caret positions past the start.
func (d Doc) Len() int {
	n := 0
	for _, node := range d.nodes {
		n += node.width()
	}
	return n
}

// PlainText renders the document with citations as "[ref]".
func (d Doc) PlainText() string {
	var b strings.Builder
	for _, n := range d.nodes {
		switch n.Kind {
		case KindText:
			b.WriteString(n.Text)
		case KindCitation:
			b.WriteString(n.Citation.Text())
		}
	}
	return b.String()
}

// Citations lists the document's citation tokens in order.
func (d Doc) Citations() []citation.Token {
	var out []citation.Token
	for _, n := range d.nodes {
		if n.Kind == KindCitation {
			out = append(out, n.Citation)
		}
	}
	return out
}

// TextBeforeCaret returns the caret's text node content up to the caret.
// It reports false when there is no collapsed selection.
func (d Doc) TextBeforeCaret() (string, bool) {
	if d.selection == nil || !d.selection.Collapsed() {
		return "", false
	}
	i, off := d.locate(d.selection.Focus)
	runes := []rune(d.nodes[i].Text)
	return string(runes[:off]), true
}

// CitationBeforeCaret returns the index of a citation sitting directly
// before a collapsed caret.
func (d Doc) CitationBeforeCaret() (int, bool) {
	if d.selection == nil || !d.selection.Collapsed() {
		return 0, false
	}
	pos := 0
	ci := 0
	for _, n := range d.nodes {
		w := n.width()
		if n.Kind == KindCitation {
			if pos+w == d.selection.Focus {
				return ci, true
			}
			ci++
		}
		pos += w
	}
	return 0, false
}

func (d Doc) clone() Doc {
	c := Doc{nodes: make([]Node, len(d.nodes))}
	copy(c.nodes, d.nodes)
	if d.selection != nil {
		sel := *d.selection
		c.selection = &sel
	}
	return c
}

// locate maps a position to a text node index and rune offset within it.
func (d Doc) locate(pos int) (int, int) {
	start := 0
	for i, n := range d.nodes {
		w := n.width()
		if n.Kind == KindText && pos >= start && pos <= start+w {
			return i, pos - start
		}
		start += w
	}
	last := len(d.nodes) - 1
	return last, d.nodes[last].width()
}

// normalize merges adjacent text nodes and pads non-text nodes with text.
func normalize(in []Node) []Node {
	out := make([]Node, 0, len(in)+2)
	for _, n := range in {
		if n.Kind == KindText {
			if len(out) > 0 && out[len(out)-1].Kind == KindText {
				out[len(out)-1].Text += n.Text
				continue
			}
			out = append(out, n)
			continue
		}
		if len(out) == 0 || out[len(out)-1].Kind != KindText {
			out = append(out, TextNode(""))
		}
		out = append(out, n)
	}
	if len(out) == 0 || out[len(out)-1].Kind != KindText {
		out = append(out, TextNode(""))
	}
	return out
}
