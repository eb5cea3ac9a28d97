package suggest

import "github.com/hpungsan/citelink/internal/detect"

// State is the phase of the suggestion dropdown.
type State int

const (
	StateIdle State = iota
	StateSuggesting
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSuggesting:
		return "suggesting"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// Dropdown tracks whether completions are showing and which one is highlighted.
// Transitions are driven by detector results, arrow keys, Enter and Escape.
// The zero value is an idle dropdown.
type Dropdown struct {
	state      State
	partial    string
	candidates []Suggestion
	selected   int

	// dismissed holds the bracket text the user escaped from; the dropdown
	// stays shut until that text changes.
	dismissed    string
	hasDismissed bool
}

// State returns the current phase.
func (d *Dropdown) State() State { return d.state }

// Partial returns the bracket content the candidates were ranked for.
func (d *Dropdown) Partial() string { return d.partial }

// Candidates returns the visible candidates.
func (d *Dropdown) Candidates() []Suggestion { return d.candidates }

// SelectedIndex returns the highlighted candidate index.
func (d *Dropdown) SelectedIndex() int { return d.selected }

// Open reports whether there is a list worth drawing.
func (d *Dropdown) Open() bool {
	return d.state == StateSuggesting && len(d.candidates) > 0
}

// Update feeds a fresh detector result and its candidates.
func (d *Dropdown) Update(r detect.Result, candidates []Suggestion) {
	if !r.InContext {
		d.Reset()
		return
	}
	if d.hasDismissed {
		if r.Raw == d.dismissed {
			d.state = StateIdle
			d.candidates = nil
			return
		}
		d.hasDismissed = false
	}

	if d.state != StateSuggesting || d.partial != r.Raw {
		d.selected = 0
	}
	d.state = StateSuggesting
	d.partial = r.Raw
	d.candidates = candidates
	if d.selected >= len(candidates) {
		d.selected = 0
	}
}

// Next moves the highlight down, wrapping at the end.
func (d *Dropdown) Next() {
	if !d.Open() {
		return
	}
	d.selected = (d.selected + 1) % len(d.candidates)
}

// Prev moves the highlight up, wrapping at the start.
func (d *Dropdown) Prev() {
	if !d.Open() {
		return
	}
	d.selected = (d.selected - 1 + len(d.candidates)) % len(d.candidates)
}

// Select takes the highlighted candidate and starts closing.
func (d *Dropdown) Select() (Suggestion, bool) {
	if !d.Open() {
		return Suggestion{}, false
	}
	s := d.candidates[d.selected]
	d.state = StateClosing
	d.candidates = nil
	return s, true
}

// Escape dismisses the list for the current bracket text.
func (d *Dropdown) Escape() {
	if d.state != StateSuggesting {
		return
	}
	d.dismissed = d.partial
	d.hasDismissed = true
	d.state = StateClosing
	d.candidates = nil
}

// Reset returns to idle, forgetting any dismissal.
func (d *Dropdown) Reset() {
	*d = Dropdown{}
}
