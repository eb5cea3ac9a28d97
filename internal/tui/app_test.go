package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/citelink/internal/document"
	"github.com/hpungsan/citelink/internal/exhibit"
	"github.com/hpungsan/citelink/internal/history"
	"github.com/hpungsan/citelink/internal/navigate"
	"github.com/hpungsan/citelink/internal/session"
)

func newTestModel(t *testing.T) (Model, *history.Tracker) {
	t.Helper()
	src := exhibit.NewSnapshot(
		[]exhibit.Entry{
			{ExhibitRef: "2B", Title: "Contract", Type: exhibit.TypeDocument, FileID: "f1", IsKeyEvidence: true},
			{ExhibitRef: "12A", Title: "Photo of scene", Type: exhibit.TypePhoto},
			{ExhibitRef: "3C", Title: "Deposition video", Type: exhibit.TypeVideo},
		},
		[]exhibit.File{
			{ID: "f1", Name: "contract.pdf", Type: exhibit.TypeDocument, ExhibitRef: "2B"},
			{ID: "f3", Name: "depo.mp4", Type: exhibit.TypeVideo, ExhibitRef: "3C"},
		},
	)
	tracker := history.NewTracker(history.NewMemoryStore())
	sess := session.New(document.New(), session.Options{
		Source:  src,
		Tracker: tracker,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return New(context.Background(), sess, Options{Project: "acme", Tracker: tracker}), tracker
}

// send feeds msg to m and runs any returned command once, feeding its
// message back in.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil {
		if out := cmd(); out != nil {
			if _, quit := out.(tea.QuitMsg); !quit {
				next, _ = m.Update(out)
				m = next.(Model)
			}
		}
	}
	return m
}

func typeString(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		if r == ' ' {
			m = send(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
			continue
		}
		m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func TestModel_TypePickAndOpen(t *testing.T) {
	m, tracker := newTestModel(t)

	m = typeString(t, m, "see [2")
	require.True(t, m.sess.Dropdown().Open())
	require.Contains(t, m.View(), "Contract")

	m = send(t, m, key(tea.KeyEnter))
	require.False(t, m.sess.Dropdown().Open())
	require.Equal(t, "see [2B]", m.sess.Doc().PlainText())

	m = send(t, m, key(tea.KeyCtrlO))
	intent, ok := m.Intent()
	require.True(t, ok)
	require.Equal(t, "f1", intent.FileID)
	require.Contains(t, m.View(), "contract.pdf")

	entries, err := tracker.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, m.History(), 1)
	require.Equal(t, "2B", m.History()[0].CitationReference)
}

func TestModel_ArrowKeysMoveSelection(t *testing.T) {
	m, _ := newTestModel(t)

	m = typeString(t, m, "[2")
	require.Equal(t, 0, m.sess.Dropdown().Selected)
	m = send(t, m, key(tea.KeyDown))
	require.Equal(t, 1, m.sess.Dropdown().Selected)

	m = send(t, m, key(tea.KeyEnter))
	require.Equal(t, "[12A]", m.sess.Doc().PlainText())
}

func TestModel_EscapeClosesDropdownThenViewer(t *testing.T) {
	m, _ := newTestModel(t)

	m = typeString(t, m, "[3C:754] ")
	m = send(t, m, key(tea.KeyLeft))
	m = send(t, m, key(tea.KeyCtrlO))
	// Typed text is not a token; nothing to open.
	require.Equal(t, "No citation before the caret.", m.Status())

	m, _ = newTestModel(t)
	m = typeString(t, m, "[3C:754")
	m = send(t, m, key(tea.KeyEnter))
	m = send(t, m, key(tea.KeyCtrlO))
	intent, ok := m.Intent()
	require.True(t, ok)
	require.Equal(t, "12:34", intent.Timestamp)
	require.Contains(t, m.View(), "Play from 12:34")

	m = typeString(t, m, " [1")
	require.True(t, m.sess.Dropdown().Open())
	m = send(t, m, key(tea.KeyEsc))
	require.False(t, m.sess.Dropdown().Open())
	_, ok = m.Intent()
	require.True(t, ok)

	m = send(t, m, key(tea.KeyEsc))
	_, ok = m.Intent()
	require.False(t, ok)
}

func TestModel_BackspaceReopensDropdown(t *testing.T) {
	m, _ := newTestModel(t)

	m = typeString(t, m, "[2B]")
	require.False(t, m.sess.Dropdown().Open())
	m = send(t, m, key(tea.KeyBackspace))
	require.True(t, m.sess.Dropdown().Open())
}

func TestModel_HistoryToggle(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, m.Init()())
	require.Contains(t, m.View(), "No citations opened yet.")

	m = send(t, m, key(tea.KeyCtrlR))
	require.NotContains(t, m.View(), "No citations opened yet.")
}

func TestModel_CtrlCQuits(t *testing.T) {
	m, _ := newTestModel(t)
	next, cmd := m.Update(key(tea.KeyCtrlC))
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
	require.Empty(t, next.(Model).View())
}

func TestRenderIntent(t *testing.T) {
	tests := []struct {
		name string
		in   navigate.Intent
		want string
	}{
		{"placeholder", navigate.Intent{ExhibitReference: "1A"}, "Exhibit 1A has no linked file yet."},
		{"page", navigate.Intent{FileID: "f1", TargetPage: 15, ExhibitReference: "2B:15"}, "Page 15"},
		{"file name", navigate.Intent{FileID: "f1", ExhibitReference: "2B", File: &exhibit.File{ID: "f1", Name: "contract.pdf"}}, "contract.pdf"},
		{"timestamp", navigate.Intent{FileID: "f3", TargetPage: 754, Timestamp: "12:34", ExhibitReference: "3C:754"}, "Play from 12:34"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderIntent(tt.in); !strings.Contains(got, tt.want) {
				t.Errorf("RenderIntent() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
