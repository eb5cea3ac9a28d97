package document

import (
	"errors"

	"github.com/hpungsan/citelink/internal/citation"
)

// ErrNestedUpdate is returned when Update is called from inside an update.
var ErrNestedUpdate = errors.New("document: update already in progress")

// Editor owns a document and applies changes as transactions. A transaction
// works on a draft; the draft replaces the document only if the callback
// succeeds, so listeners never see a half-applied change.
type Editor struct {
	doc      Doc
	updating bool
	onChange []func(Doc)
}

// NewEditor wraps doc in an editor.
func NewEditor(doc Doc) *Editor {
	if len(doc.nodes) == 0 {
		doc.nodes = normalize(nil)
	}
	return &Editor{doc: doc.clone()}
}

// Doc returns a snapshot of the current document.
func (e *Editor) Doc() Doc { return e.doc.clone() }

// OnChange registers a listener called after every committed change,
// including caret moves.
func (e *Editor) OnChange(fn func(Doc)) {
	e.onChange = append(e.onChange, fn)
}

// Update runs fn against a draft and commits it when fn returns nil.
func (e *Editor) Update(fn func(*Txn) error) error {
	if e.updating {
		return ErrNestedUpdate
	}
	e.updating = true
	draft := e.doc.clone()
	tx := &Txn{doc: &draft}
	err := fn(tx)
	if err == nil && tx.dirty {
		e.doc = draft
	}
	e.updating = false

	if err != nil || !tx.dirty {
		return err
	}
	for _, listener := range e.onChange {
		listener(e.doc.clone())
	}
	return nil
}

// Txn is the mutation handle passed to Update callbacks.
type Txn struct {
	doc   *Doc
	dirty bool
}

// Doc returns a snapshot of the draft.
func (tx *Txn) Doc() Doc { return tx.doc.clone() }

// Selection returns the draft selection.
func (tx *Txn) Selection() (Selection, bool) { return tx.doc.Selection() }

// TextBeforeCaret returns the caret's text node content up to the caret.
func (tx *Txn) TextBeforeCaret() (string, bool) { return tx.doc.TextBeforeCaret() }

// SetSelection sets anchor and focus, clamped to the document.
func (tx *Txn) SetSelection(anchor, focus int) {
	n := tx.doc.Len()
	sel := Selection{Anchor: clamp(anchor, 0, n), Focus: clamp(focus, 0, n)}
	tx.doc.selection = &sel
	tx.dirty = true
}

// SetCaret collapses the selection at pos.
func (tx *Txn) SetCaret(pos int) { tx.SetSelection(pos, pos) }

// ClearSelection drops the selection, as when focus leaves the editor.
func (tx *Txn) ClearSelection() {
	tx.doc.selection = nil
	tx.dirty = true
}

// InsertText types s at the caret, replacing any selected range.
func (tx *Txn) InsertText(s string) bool {
	sel, ok := tx.doc.Selection()
	if !ok {
		return false
	}
	from, to := sel.bounds()
	if from != to {
		tx.DeleteRange(from, to)
	}
	i, off := tx.doc.locate(from)
	runes := []rune(tx.doc.nodes[i].Text)
	ins := []rune(s)
	merged := make([]rune, 0, len(runes)+len(ins))
	merged = append(merged, runes[:off]...)
	merged = append(merged, ins...)
	merged = append(merged, runes[off:]...)
	tx.doc.nodes[i].Text = string(merged)
	tx.SetCaret(from + len(ins))
	return true
}

// DeleteBackward removes up to n positions before the caret, or the selected
// range when the selection is not collapsed.
func (tx *Txn) DeleteBackward(n int) bool {
	sel, ok := tx.doc.Selection()
	if !ok {
		return false
	}
	from, to := sel.bounds()
	if from == to {
		from = max(to-n, 0)
	}
	if from == to {
		return false
	}
	tx.DeleteRange(from, to)
	return true
}

// DeleteRange removes [from, to). Citation nodes inside the range are
// destroyed with it.
func (tx *Txn) DeleteRange(from, to int) {
	n := tx.doc.Len()
	from, to = clamp(from, 0, n), clamp(to, 0, n)
	if from >= to {
		return
	}
	out := make([]Node, 0, len(tx.doc.nodes))
	start := 0
	for _, node := range tx.doc.nodes {
		w := node.width()
		end := start + w
		switch {
		case node.Kind == KindText:
			runes := []rune(node.Text)
			lo := clamp(from-start, 0, w)
			hi := clamp(to-start, 0, w)
			node.Text = string(runes[:lo]) + string(runes[hi:])
			out = append(out, node)
		case start >= from && start < to:
			// removed
		default:
			out = append(out, node)
		}
		start = end
	}
	tx.doc.nodes = normalize(out)

	if tx.doc.selection != nil {
		tx.doc.selection.Anchor = shiftAfterDelete(tx.doc.selection.Anchor, from, to)
		tx.doc.selection.Focus = shiftAfterDelete(tx.doc.selection.Focus, from, to)
	}
	tx.dirty = true
}

// InsertNode puts node at a collapsed caret after deleting replaceBefore
// runes of the caret's text node (the partial text that triggered it).
// It reports false when there is no collapsed selection.
func (tx *Txn) InsertNode(node Node, replaceBefore int) bool {
	sel, ok := tx.doc.Selection()
	if !ok || !sel.Collapsed() {
		return false
	}
	i, off := tx.doc.locate(sel.Focus)
	replaceBefore = clamp(replaceBefore, 0, off)
	pos := sel.Focus - replaceBefore

	runes := []rune(tx.doc.nodes[i].Text)
	before := string(runes[:off-replaceBefore])
	after := string(runes[off:])

	nodes := make([]Node, 0, len(tx.doc.nodes)+2)
	nodes = append(nodes, tx.doc.nodes[:i]...)
	nodes = append(nodes, TextNode(before), node, TextNode(after))
	nodes = append(nodes, tx.doc.nodes[i+1:]...)
	tx.doc.nodes = normalize(nodes)
	tx.SetCaret(pos + node.width())
	return true
}

// Citation returns the i-th citation token in document order.
func (tx *Txn) Citation(i int) (citation.Token, bool) {
	idx, ok := tx.citationIndex(i)
	if !ok {
		return citation.Token{}, false
	}
	return tx.doc.nodes[idx].Citation, true
}

// ReplaceCitation swaps the i-th citation node for t.
func (tx *Txn) ReplaceCitation(i int, t citation.Token) bool {
	idx, ok := tx.citationIndex(i)
	if !ok {
		return false
	}
	tx.doc.nodes[idx] = CitationNode(t)
	tx.dirty = true
	return true
}

func (tx *Txn) citationIndex(i int) (int, bool) {
	if i < 0 {
		return 0, false
	}
	seen := 0
	for idx, n := range tx.doc.nodes {
		if n.Kind != KindCitation {
			continue
		}
		if seen == i {
			return idx, true
		}
		seen++
	}
	return 0, false
}

func shiftAfterDelete(pos, from, to int) int {
	switch {
	case pos <= from:
		return pos
	case pos >= to:
		return pos - (to - from)
	default:
		return from
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
