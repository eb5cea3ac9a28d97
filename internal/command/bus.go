package command

import (
	"log/slog"
	"strings"

	"github.com/hpungsan/citelink/internal/citation"
	"github.com/hpungsan/citelink/internal/detect"
	"github.com/hpungsan/citelink/internal/document"
	"github.com/hpungsan/citelink/internal/exhibit"
)

// Bus dispatches citation commands against one editor.
//
// A command dispatched while another is still running is dropped: commands
// must never chain synchronously.
type Bus struct {
	editor    *document.Editor
	source    exhibit.Source
	logger    *slog.Logger
	listeners []ClickListener
	running   string
}

// NewBus creates a bus for editor. source fills in file ids on insert and may
// be nil. A nil logger means slog.Default().
func NewBus(editor *document.Editor, source exhibit.Source, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{editor: editor, source: source, logger: logger}
}

// OnClick registers a click listener.
func (b *Bus) OnClick(l ClickListener) {
	b.listeners = append(b.listeners, l)
}

// Insert places a citation at the caret. It reports false, without error,
// when there is no collapsed selection or the exhibit ref is not of the
// digits-then-letters form.
func (b *Bus) Insert(cmd InsertCitation) bool {
	if !b.enter("insert_citation") {
		return false
	}
	defer b.leave()

	tok := cmd.Token()
	if !citation.ValidExhibitRef(tok.ExhibitRef) {
		b.logger.Debug("insert skipped: invalid exhibit ref", "ref", tok.CitationReference)
		return false
	}
	if tok.FileID == "" {
		tok = tok.WithFileID(b.linkedFile(tok.ExhibitRef))
	}

	inserted := false
	err := b.editor.Update(func(tx *document.Txn) error {
		replace := 0
		if cmd.FromSuggestion {
			if text, ok := tx.TextBeforeCaret(); ok {
				replace = detect.Detect(text).Span()
			}
		}
		inserted = tx.InsertNode(document.CitationNode(tok), replace)
		return nil
	})
	if err != nil {
		b.logger.Warn("insert failed", "ref", tok.CitationReference, "error", err)
		return false
	}
	if !inserted {
		b.logger.Debug("insert skipped: no collapsed selection", "ref", tok.CitationReference)
		return false
	}
	b.logger.Debug("citation inserted", "ref", tok.CitationReference, "file_id", tok.FileID)
	return true
}

// InsertExternal accepts an insert request from outside the editor.
func (b *Bus) InsertExternal(req ExternalInsert) bool {
	return b.Insert(req.Command())
}

// Click notifies listeners. It is safe to call repeatedly.
func (b *Bus) Click(c CitationClicked) {
	if !b.enter("citation_clicked") {
		return
	}
	defer b.leave()

	b.logger.Debug("citation clicked", "ref", c.CitationReference)
	for _, l := range b.listeners {
		l.CitationClicked(c)
	}
}

// EditReference re-derives the Index-th citation from a new reference.
func (b *Bus) EditReference(cmd ReferenceEdited) bool {
	if !b.enter("citation_reference_edited") {
		return false
	}
	defer b.leave()

	if strings.TrimSpace(cmd.Reference) == "" {
		return false
	}
	var (
		before, after citation.Token
		replaced      bool
	)
	err := b.editor.Update(func(tx *document.Txn) error {
		tok, ok := tx.Citation(cmd.Index)
		if !ok {
			return nil
		}
		before = tok
		after = tok.WithReference(cmd.Reference)
		replaced = tx.ReplaceCitation(cmd.Index, after)
		return nil
	})
	if err != nil {
		b.logger.Warn("reference edit failed", "index", cmd.Index, "error", err)
		return false
	}
	if replaced {
		b.logger.Debug("citation reference edited", "from", before.CitationReference, "to", after.CitationReference)
	}
	return replaced
}

func (b *Bus) linkedFile(ref string) string {
	if b.source == nil {
		return ""
	}
	if e, ok := exhibit.EntryByRef(b.source.Exhibits(), ref); ok && e.FileID != "" {
		return e.FileID
	}
	if f, ok := exhibit.FileByExhibitRef(b.source.Files(), ref); ok {
		return f.ID
	}
	return ""
}

func (b *Bus) enter(name string) bool {
	if b.running != "" {
		b.logger.Warn("command dropped: dispatched from inside another command",
			"command", name, "running", b.running)
		return false
	}
	b.running = name
	return true
}

func (b *Bus) leave() { b.running = "" }
