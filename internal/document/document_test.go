package document

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/citelink/internal/citation"
)

func typeAt(t *testing.T, e *Editor, s string) {
	t.Helper()
	err := e.Update(func(tx *Txn) error {
		if _, ok := tx.Selection(); !ok {
			tx.SetCaret(tx.Doc().Len())
		}
		tx.InsertText(s)
		return nil
	})
	require.NoError(t, err)
}

func TestNormalize(t *testing.T) {
	d := New(
		TextNode("a"), TextNode("b"),
		CitationNode(citation.New("2B", 0, "", "", "")),
		CitationNode(citation.New("3C", 0, "", "", "")),
	)
	nodes := d.Nodes()
	kinds := make([]Kind, len(nodes))
	for i, n := range nodes {
		kinds[i] = n.Kind
	}
	require.Equal(t, []Kind{KindText, KindCitation, KindText, KindCitation, KindText}, kinds)
	require.Equal(t, "ab", nodes[0].Text)
	require.Equal(t, "ab[2B][3C]", d.PlainText())
	require.Equal(t, 4, d.Len())
}

func TestEditor_TypeAndTextBeforeCaret(t *testing.T) {
	e := NewEditor(New())
	typeAt(t, e, "see [2B")

	text, ok := e.Doc().TextBeforeCaret()
	require.True(t, ok)
	require.Equal(t, "see [2B", text)

	require.NoError(t, e.Update(func(tx *Txn) error {
		tx.SetCaret(4)
		return nil
	}))
	text, _ = e.Doc().TextBeforeCaret()
	require.Equal(t, "see ", text)
}

func TestEditor_TextBeforeCaretNeedsCollapsedSelection(t *testing.T) {
	e := NewEditor(New(TextNode("hello")))
	_, ok := e.Doc().TextBeforeCaret()
	require.False(t, ok)

	require.NoError(t, e.Update(func(tx *Txn) error {
		tx.SetSelection(1, 3)
		return nil
	}))
	_, ok = e.Doc().TextBeforeCaret()
	require.False(t, ok)
}

func TestTxn_InsertNodeReplacesPartial(t *testing.T) {
	e := NewEditor(New())
	typeAt(t, e, "see [2 now")
	require.NoError(t, e.Update(func(tx *Txn) error {
		tx.SetCaret(6) // after "[2"
		return nil
	}))

	var inserted bool
	require.NoError(t, e.Update(func(tx *Txn) error {
		inserted = tx.InsertNode(CitationNode(citation.New("2B", 0, "", "f1", "")), 2)
		return nil
	}))
	require.True(t, inserted)

	d := e.Doc()
	require.Equal(t, "see [2B] now", d.PlainText())
	sel, _ := d.Selection()
	require.Equal(t, 5, sel.Focus)

	idx, ok := d.CitationBeforeCaret()
	require.True(t, ok)
	require.Equal(t, 0, idx)
}

func TestTxn_InsertNodeRequiresCollapsedSelection(t *testing.T) {
	e := NewEditor(New(TextNode("hello")))
	node := CitationNode(citation.New("2B", 0, "", "", ""))

	require.NoError(t, e.Update(func(tx *Txn) error {
		require.False(t, tx.InsertNode(node, 0))
		tx.SetSelection(0, 2)
		require.False(t, tx.InsertNode(node, 0))
		return nil
	}))
	require.Empty(t, e.Doc().Citations())
}

func TestTxn_InsertNodeReplaceClampedToTextNode(t *testing.T) {
	e := NewEditor(New(TextNode("ab")))
	require.NoError(t, e.Update(func(tx *Txn) error {
		tx.SetCaret(1)
		tx.InsertNode(CitationNode(citation.New("1A", 0, "", "", "")), 10)
		return nil
	}))
	require.Equal(t, "[1A]b", e.Doc().PlainText())
}

func TestTxn_DeleteBackwardRemovesCitation(t *testing.T) {
	e := NewEditor(New(TextNode("x"), CitationNode(citation.New("2B", 0, "", "", "")), TextNode("y")))
	require.NoError(t, e.Update(func(tx *Txn) error {
		tx.SetCaret(2)
		require.True(t, tx.DeleteBackward(1))
		return nil
	}))
	d := e.Doc()
	require.Equal(t, "xy", d.PlainText())
	require.Empty(t, d.Citations())
	sel, _ := d.Selection()
	require.Equal(t, 1, sel.Focus)
}

func TestTxn_DeleteRangeShiftsSelection(t *testing.T) {
	e := NewEditor(New(TextNode("abcdef")))
	require.NoError(t, e.Update(func(tx *Txn) error {
		tx.SetSelection(5, 6)
		tx.DeleteRange(1, 3)
		return nil
	}))
	d := e.Doc()
	require.Equal(t, "adef", d.PlainText())
	sel, _ := d.Selection()
	require.Equal(t, Selection{Anchor: 3, Focus: 4}, sel)
}

func TestTxn_ReplaceCitation(t *testing.T) {
	e := NewEditor(New(CitationNode(citation.New("2B", 0, "", "", "")), TextNode(" and "), CitationNode(citation.New("3C", 0, "", "", ""))))
	require.NoError(t, e.Update(func(tx *Txn) error {
		tok, ok := tx.Citation(1)
		require.True(t, ok)
		require.True(t, tx.ReplaceCitation(1, tok.WithReference("3C:9")))
		require.False(t, tx.ReplaceCitation(2, tok))
		return nil
	}))
	require.Equal(t, "[2B] and [3C:9]", e.Doc().PlainText())
}

func TestEditor_FailedUpdateDiscardsDraft(t *testing.T) {
	e := NewEditor(New(TextNode("keep")))
	calls := 0
	e.OnChange(func(Doc) { calls++ })

	boom := errors.New("boom")
	err := e.Update(func(tx *Txn) error {
		tx.SetCaret(4)
		tx.InsertText(" lost")
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, "keep", e.Doc().PlainText())
	require.Zero(t, calls)
}

func TestEditor_NestedUpdateRejected(t *testing.T) {
	e := NewEditor(New())
	var inner error
	require.NoError(t, e.Update(func(tx *Txn) error {
		inner = e.Update(func(*Txn) error { return nil })
		return nil
	}))
	require.ErrorIs(t, inner, ErrNestedUpdate)
}

func TestEditor_OnChangeSeesCommittedDoc(t *testing.T) {
	e := NewEditor(New())
	var seen []string
	e.OnChange(func(d Doc) { seen = append(seen, d.PlainText()) })

	typeAt(t, e, "a")
	typeAt(t, e, "b")
	require.NoError(t, e.Update(func(*Txn) error { return nil }))

	require.Equal(t, []string{"a", "ab"}, seen)
}

func TestEditor_Multibyte(t *testing.T) {
	e := NewEditor(New())
	typeAt(t, e, "§ é [2")
	text, ok := e.Doc().TextBeforeCaret()
	require.True(t, ok)
	require.Equal(t, "§ é [2", text)
	require.Equal(t, 6, e.Doc().Len())
}
