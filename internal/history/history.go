// Package history keeps the per-user log of visited citations.
package history

import (
	"context"
	"crypto/rand"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/citelink/internal/errors"
)

// Entry is one visited citation. Entries are keyed by CitationReference.
type Entry struct {
	ID                string    `json:"id"`
	ExhibitRef        string    `json:"exhibit_ref"`
	CitationReference string    `json:"citation_reference"`
	LastAccessedAt    time.Time `json:"last_accessed_at"`
	AccessCount       int       `json:"access_count"`
}

// Store persists history entries.
type Store interface {
	// Get returns the entry for citationReference, if present.
	Get(ctx context.Context, citationReference string) (Entry, bool, error)
	// Visit inserts e when no entry has e.CitationReference. Otherwise it
	// increments the stored access count and moves its access time to
	// e.LastAccessedAt in one atomic step, keeping the stored ID. A non-empty
	// e.ExhibitRef replaces the stored one. It returns the stored entry.
	Visit(ctx context.Context, e Entry) (Entry, error)
	// List returns all entries, most recently accessed first.
	List(ctx context.Context) ([]Entry, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
}

// Tracker records citation visits into a Store.
type Tracker struct {
	store Store
	now   func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker returns a tracker backed by store.
func NewTracker(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:   store,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record notes a visit. A repeat visit bumps the access count and time of the
// existing entry instead of adding another.
func (t *Tracker) Record(ctx context.Context, citationReference, exhibitRef string) (Entry, error) {
	citationReference = strings.TrimSpace(citationReference)
	if citationReference == "" {
		return Entry{}, errors.NewInvalidRequest("citation_reference is required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now().UTC()
	id, err := ulid.New(ulid.Timestamp(now), t.entropy)
	if err != nil {
		return Entry{}, errors.NewInternal(err)
	}
	e, err := t.store.Visit(ctx, Entry{
		ID:                id.String(),
		ExhibitRef:        exhibitRef,
		CitationReference: citationReference,
		LastAccessedAt:    now,
		AccessCount:       1,
	})
	if err != nil {
		return Entry{}, errors.NewInternal(err)
	}
	return e, nil
}

// List returns every entry, most recent first.
func (t *Tracker) List(ctx context.Context) ([]Entry, error) {
	entries, err := t.store.List(ctx)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return entries, nil
}

// Recent returns up to n of the most recent entries. n <= 0 means all.
func (t *Tracker) Recent(ctx context.Context, n int) ([]Entry, error) {
	entries, err := t.List(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// Clear empties the log. It cannot be undone.
func (t *Tracker) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.store.Clear(ctx); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Get(_ context.Context, ref string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[ref]
	return e, ok, nil
}

func (m *MemoryStore) Visit(_ context.Context, e Entry) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.entries[e.CitationReference]; ok {
		cur.AccessCount++
		cur.LastAccessedAt = e.LastAccessedAt
		if e.ExhibitRef != "" {
			cur.ExhibitRef = e.ExhibitRef
		}
		e = cur
	}
	m.entries[e.CitationReference] = e
	return e, nil
}

func (m *MemoryStore) List(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()
	SortRecent(out)
	return out, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.entries)
	return nil
}

// SortRecent orders entries by last access, newest first. Ties fall back to
// citation reference so the order is stable.
func SortRecent(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.LastAccessedAt.Equal(b.LastAccessedAt) {
			return a.LastAccessedAt.After(b.LastAccessedAt)
		}
		return a.CitationReference < b.CitationReference
	})
}
