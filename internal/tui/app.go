// Package tui is a terminal host for a citation editing session: one line of
// text, the suggestion dropdown under it, the viewer panel and recent history.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hpungsan/citelink/internal/document"
	"github.com/hpungsan/citelink/internal/history"
	"github.com/hpungsan/citelink/internal/navigate"
	"github.com/hpungsan/citelink/internal/session"
)

const defaultRecent = 5

// Options configures the model.
type Options struct {
	Project string
	// Tracker feeds the history pane. The session records visits itself.
	Tracker *history.Tracker
	Recent  int
}

// Model is the bubbletea model.
type Model struct {
	ctx     context.Context
	sess    *session.Session
	tracker *history.Tracker
	project string
	recent  int

	intent      *navigate.Intent
	history     []history.Entry
	showHistory bool
	status      string
	width       int
	quitting    bool
}

type historyMsg struct {
	entries []history.Entry
	err     error
}

// New returns a model driving sess.
func New(ctx context.Context, sess *session.Session, opts Options) Model {
	recent := opts.Recent
	if recent <= 0 {
		recent = defaultRecent
	}
	return Model{
		ctx:         ctx,
		sess:        sess,
		tracker:     opts.Tracker,
		project:     opts.Project,
		recent:      recent,
		showHistory: opts.Tracker != nil,
	}
}

// Init loads the history pane.
func (m Model) Init() tea.Cmd {
	return m.loadHistory()
}

// Intent returns the last intent shown in the viewer panel.
func (m Model) Intent() (navigate.Intent, bool) {
	if m.intent == nil {
		return navigate.Intent{}, false
	}
	return *m.intent, true
}

// Status returns the status line.
func (m Model) Status() string { return m.status }

// History returns the entries in the history pane.
func (m Model) History() []history.Entry { return m.history }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case historyMsg:
		if msg.err != nil {
			m.status = "history unavailable: " + msg.err.Error()
			return m, nil
		}
		m.history = msg.entries
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyUp:
		m.sess.Key(session.KeyUp)
	case tea.KeyDown:
		m.sess.Key(session.KeyDown)
	case tea.KeyEnter:
		m.sess.Key(session.KeyEnter)
	case tea.KeyEsc:
		if !m.sess.Key(session.KeyEscape) {
			m.intent = nil
		}
	case tea.KeyBackspace:
		m.sess.Backspace()
	case tea.KeyLeft:
		m.sess.MoveCaret(m.caret() - 1)
	case tea.KeyRight:
		m.sess.MoveCaret(m.caret() + 1)
	case tea.KeyHome, tea.KeyCtrlA:
		m.sess.MoveCaret(0)
	case tea.KeyEnd, tea.KeyCtrlE:
		m.sess.MoveCaret(m.sess.Doc().Len())
	case tea.KeyCtrlO:
		intent, ok := m.sess.ClickBeforeCaret(m.ctx)
		if !ok {
			m.status = "No citation before the caret."
			return m, nil
		}
		m.intent = &intent
		return m, m.loadHistory()
	case tea.KeyCtrlR:
		m.showHistory = !m.showHistory && m.tracker != nil
	case tea.KeySpace:
		m.sess.TypeText(" ")
	case tea.KeyRunes:
		m.sess.TypeText(string(msg.Runes))
	}
	return m, nil
}

func (m Model) caret() int {
	sel, ok := m.sess.Doc().Selection()
	if !ok {
		return m.sess.Doc().Len()
	}
	return sel.Focus
}

func (m Model) loadHistory() tea.Cmd {
	if m.tracker == nil {
		return nil
	}
	tracker, ctx, n := m.tracker, m.ctx, m.recent
	return func() tea.Msg {
		entries, err := tracker.Recent(ctx, n)
		return historyMsg{entries: entries, err: err}
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	citationStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)
	caretStyle    = lipgloss.NewStyle().Reverse(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelStyle    = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var sections []string

	title := "citelink"
	if m.project != "" {
		title += " · " + m.project
	}
	sections = append(sections, titleStyle.Render(title))
	sections = append(sections, panelStyle.Render(renderLine(m.sess.Doc())))

	if dd := m.sess.Dropdown(); dd.Open() {
		sections = append(sections, panelStyle.Render(renderDropdown(dd)))
	}
	if m.intent != nil {
		sections = append(sections, panelStyle.Render(RenderIntent(*m.intent)))
	}
	if m.showHistory {
		sections = append(sections, panelStyle.Render(renderHistory(m.history)))
	}
	if m.status != "" {
		sections = append(sections, m.status)
	}
	sections = append(sections, dimStyle.Render("enter pick · ctrl+o open citation · ctrl+r history · esc close · ctrl+c quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderLine draws the document with citations highlighted and the caret as
// a reversed cell.
func renderLine(d document.Doc) string {
	caret := -1
	if sel, ok := d.Selection(); ok {
		caret = sel.Focus
	}
	var b strings.Builder
	pos := 0
	for _, n := range d.Nodes() {
		switch n.Kind {
		case document.KindText:
			for _, r := range n.Text {
				if pos == caret {
					b.WriteString(caretStyle.Render(string(r)))
				} else {
					b.WriteRune(r)
				}
				pos++
			}
			continue
		case document.KindCitation:
			if pos == caret {
				b.WriteString(caretStyle.Render(" "))
			}
			b.WriteString(citationStyle.Render(n.Citation.Text()))
		default:
			b.WriteString(dimStyle.Render("[?]"))
		}
		pos++
	}
	if pos == caret {
		b.WriteString(caretStyle.Render(" "))
	}
	return b.String()
}

func renderDropdown(dd session.DropdownView) string {
	lines := make([]string, 0, len(dd.Candidates))
	for i, c := range dd.Candidates {
		line := fmt.Sprintf("%-6s %s", c.Entry.ExhibitRef, c.Entry.Title)
		if c.Entry.IsKeyEvidence {
			line += " ★"
		}
		if i == dd.Selected {
			line = selectedStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// RenderIntent is the viewer panel text for an intent. An intent without a
// file renders as a placeholder.
func RenderIntent(in navigate.Intent) string {
	if !in.Resolved() {
		return fmt.Sprintf("Exhibit %s has no linked file yet.", in.ExhibitReference)
	}
	var b strings.Builder
	name := in.FileID
	if in.File != nil && in.File.Name != "" {
		name = in.File.Name
	}
	fmt.Fprintf(&b, "Exhibit %s · %s", in.ExhibitReference, name)
	switch {
	case in.Timestamp != "":
		fmt.Fprintf(&b, "\nPlay from %s", in.Timestamp)
	case in.TargetPage > 0:
		fmt.Fprintf(&b, "\nPage %d", in.TargetPage)
	}
	if in.SourceDescription != "" {
		b.WriteString("\n" + dimStyle.Render(in.SourceDescription))
	}
	return b.String()
}

func renderHistory(entries []history.Entry) string {
	if len(entries) == 0 {
		return dimStyle.Render("No citations opened yet.")
	}
	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, "Recent")
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("[%s] ×%d  %s", e.CitationReference, e.AccessCount, e.LastAccessedAt.Format("Jan 2 15:04")))
	}
	return strings.Join(lines, "\n")
}
