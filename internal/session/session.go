// Package session wires the citation pieces to one editor: typing runs the
// detector and ranker, picking a suggestion inserts a token, and clicking a
// token resolves it, records it and hands it to the viewer.
package session

import (
	"context"
	"log/slog"

	"github.com/hpungsan/citelink/internal/command"
	"github.com/hpungsan/citelink/internal/detect"
	"github.com/hpungsan/citelink/internal/document"
	"github.com/hpungsan/citelink/internal/exhibit"
	"github.com/hpungsan/citelink/internal/history"
	"github.com/hpungsan/citelink/internal/navigate"
	"github.com/hpungsan/citelink/internal/suggest"
)

// Key is a dropdown control key.
type Key int

const (
	KeyUp Key = iota
	KeyDown
	KeyEnter
	KeyEscape
)

// Viewer consumes navigation intents. Unresolved intents must be shown as a
// placeholder.
type Viewer interface {
	Show(navigate.Intent)
}

// ViewerFunc adapts a function to Viewer.
type ViewerFunc func(navigate.Intent)

// Show calls f(in).
func (f ViewerFunc) Show(in navigate.Intent) { f(in) }

// Options configures a Session. Only Source is required.
type Options struct {
	Source         exhibit.Source
	Tracker        *history.Tracker
	Viewer         Viewer
	MaxSuggestions int
	TimestampLimit int
	Logger         *slog.Logger
}

// DropdownView is a read-only copy of the dropdown state.
type DropdownView struct {
	State      suggest.State
	Partial    string
	Candidates []suggest.Suggestion
	Selected   int
}

// Open reports whether there are candidates to draw.
func (v DropdownView) Open() bool {
	return v.State == suggest.StateSuggesting && len(v.Candidates) > 0
}

// Session is a single-threaded editing session.
type Session struct {
	editor   *document.Editor
	bus      *command.Bus
	source   exhibit.Source
	resolver *navigate.Resolver
	tracker  *history.Tracker
	viewer   Viewer
	logger   *slog.Logger
	limit    int

	dropdown suggest.Dropdown
	last     detect.Result
}

// New starts a session over doc.
func New(doc document.Doc, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	src := opts.Source
	if src == nil {
		src = exhibit.NewSnapshot(nil, nil)
	}
	limit := opts.MaxSuggestions
	if limit <= 0 || limit > suggest.MaxResults {
		limit = suggest.MaxResults
	}

	editor := document.NewEditor(doc)
	s := &Session{
		editor:   editor,
		bus:      command.NewBus(editor, src, logger),
		source:   src,
		resolver: navigate.NewResolver(src, opts.TimestampLimit),
		tracker:  opts.Tracker,
		viewer:   opts.Viewer,
		logger:   logger,
		limit:    limit,
	}
	editor.OnChange(s.documentChanged)
	return s
}

// Doc returns the current document.
func (s *Session) Doc() document.Doc { return s.editor.Doc() }

// Bus exposes the command bus so other panels can insert or listen for clicks.
func (s *Session) Bus() *command.Bus { return s.bus }

// Detection returns the last detector result.
func (s *Session) Detection() detect.Result { return s.last }

// Dropdown returns the current dropdown state.
func (s *Session) Dropdown() DropdownView {
	cands := s.dropdown.Candidates()
	out := make([]suggest.Suggestion, len(cands))
	copy(out, cands)
	return DropdownView{
		State:      s.dropdown.State(),
		Partial:    s.dropdown.Partial(),
		Candidates: out,
		Selected:   s.dropdown.SelectedIndex(),
	}
}

// TypeText inserts s at the caret. Without a selection the caret is placed
// at the end first.
func (s *Session) TypeText(text string) {
	s.update(func(tx *document.Txn) error {
		if _, ok := tx.Selection(); !ok {
			tx.SetCaret(tx.Doc().Len())
		}
		tx.InsertText(text)
		return nil
	})
}

// Backspace deletes one position before the caret.
func (s *Session) Backspace() {
	s.update(func(tx *document.Txn) error {
		tx.DeleteBackward(1)
		return nil
	})
}

// MoveCaret collapses the selection at pos.
func (s *Session) MoveCaret(pos int) {
	s.update(func(tx *document.Txn) error {
		tx.SetCaret(pos)
		return nil
	})
}

// Select sets an expanded selection.
func (s *Session) Select(anchor, focus int) {
	s.update(func(tx *document.Txn) error {
		tx.SetSelection(anchor, focus)
		return nil
	})
}

// Blur drops the selection, as when focus leaves the editor.
func (s *Session) Blur() {
	s.update(func(tx *document.Txn) error {
		tx.ClearSelection()
		return nil
	})
}

// Key handles dropdown keys. It reports whether the key was consumed.
func (s *Session) Key(k Key) bool {
	switch k {
	case KeyUp:
		if !s.dropdown.Open() {
			return false
		}
		s.dropdown.Prev()
		return true
	case KeyDown:
		if !s.dropdown.Open() {
			return false
		}
		s.dropdown.Next()
		return true
	case KeyEnter:
		return s.pick()
	case KeyEscape:
		if s.dropdown.State() != suggest.StateSuggesting {
			return false
		}
		s.dropdown.Escape()
		return true
	}
	return false
}

// Choose picks the i-th candidate directly, as with a mouse click.
func (s *Session) Choose(i int) bool {
	if !s.dropdown.Open() || i < 0 || i >= len(s.dropdown.Candidates()) {
		return false
	}
	for s.dropdown.SelectedIndex() != i {
		s.dropdown.Next()
	}
	return s.pick()
}

func (s *Session) pick() bool {
	sug, ok := s.dropdown.Select()
	if !ok {
		return false
	}
	inserted := s.bus.Insert(command.InsertCitation{
		ExhibitRef:     sug.Entry.ExhibitRef,
		PageNumber:     s.last.Page(),
		FileID:         sug.Entry.FileID,
		FromSuggestion: true,
	})
	if !inserted {
		s.dropdown.Reset()
	}
	return true
}

// Click activates the i-th citation in the document.
func (s *Session) Click(ctx context.Context, i int) (navigate.Intent, bool) {
	toks := s.editor.Doc().Citations()
	if i < 0 || i >= len(toks) {
		return navigate.Intent{}, false
	}
	payload := command.Clicked(toks[i])
	s.bus.Click(payload)
	return s.Navigate(ctx, payload), true
}

// ClickBeforeCaret activates the citation directly before the caret.
func (s *Session) ClickBeforeCaret(ctx context.Context) (navigate.Intent, bool) {
	i, ok := s.editor.Doc().CitationBeforeCaret()
	if !ok {
		return navigate.Intent{}, false
	}
	return s.Click(ctx, i)
}

// Navigate resolves a click, records it in history when it reached a file and
// shows it. A failed history write is logged and does not stop navigation.
func (s *Session) Navigate(ctx context.Context, c command.CitationClicked) navigate.Intent {
	intent := s.resolver.Resolve(navigate.Payload{
		ExhibitRef:        c.ExhibitRef,
		PageNumber:        c.PageNumber,
		FileID:            c.FileID,
		CitationReference: c.CitationReference,
		Description:       c.Description,
	})
	if !intent.Resolved() {
		s.logger.Info("citation has no linked file", "ref", c.CitationReference)
	} else if s.tracker != nil {
		if _, err := s.tracker.Record(ctx, c.CitationReference, c.ExhibitRef); err != nil {
			s.logger.Warn("history record failed", "ref", c.CitationReference, "error", err)
		}
	}
	if s.viewer != nil {
		s.viewer.Show(intent)
	}
	return intent
}

// EditReference rewrites the i-th citation's reference.
func (s *Session) EditReference(i int, ref string) bool {
	return s.bus.EditReference(command.ReferenceEdited{Index: i, Reference: ref})
}

// InsertExternal handles an insert request from another panel.
func (s *Session) InsertExternal(req command.ExternalInsert) bool {
	return s.bus.InsertExternal(req)
}

func (s *Session) update(fn func(*document.Txn) error) {
	if err := s.editor.Update(fn); err != nil {
		s.logger.Warn("edit dropped", "error", err)
	}
}

func (s *Session) documentChanged(d document.Doc) {
	text, ok := d.TextBeforeCaret()
	if !ok {
		s.last = detect.Result{}
		s.dropdown.Reset()
		return
	}
	s.last = detect.Detect(text)
	var cands []suggest.Suggestion
	if q := s.last.Query(); q != "" {
		cands = suggest.RankN(q, s.source.Exhibits(), s.limit)
	}
	s.dropdown.Update(s.last, cands)
}
