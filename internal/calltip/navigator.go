package calltip

import (
	"fmt"
	"strings"

	csacerrors "github.com/standardbeagle/csac/internal/errors"
)

// Navigator is the state of the call-tip popup. It is Hidden until Show
// receives entries; while Visible the typed filter narrows the entries and
// the index cycles through the matches. A filter that matches nothing hides
// the popup. Navigator is owned by the editor goroutine and is not safe for
// concurrent use.
type Navigator struct {
	entries       []*Entry
	filtered      []*Entry
	index         int
	filter        []rune
	visible       bool
	matchAnywhere bool

	onSelected func(*Entry)
	onHidden   func()
}

type NavigatorOption func(*Navigator)

// WithMatchAnywhere matches the filter anywhere in a member name instead
// of only at its start
func WithMatchAnywhere(anywhere bool) NavigatorOption {
	return func(n *Navigator) { n.matchAnywhere = anywhere }
}

func NewNavigator(opts ...NavigatorOption) *Navigator {
	n := &Navigator{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Navigator) SetMatchAnywhere(anywhere bool) {
	n.matchAnywhere = anywhere
	if n.visible {
		n.refilter()
	}
}

func (n *Navigator) MatchAnywhere() bool { return n.matchAnywhere }

// OnSelected sets the hook called by Commit with the chosen entry
func (n *Navigator) OnSelected(fn func(*Entry)) { n.onSelected = fn }

// OnHidden sets the hook called whenever the popup goes from Visible to Hidden
func (n *Navigator) OnHidden(fn func()) { n.onHidden = fn }

// Show opens the popup over entries with an empty filter. It reports
// whether the popup is visible; an empty list keeps it hidden.
func (n *Navigator) Show(entries []*Entry) bool {
	if len(entries) == 0 {
		n.hide()
		return false
	}
	n.entries = entries
	n.filter = n.filter[:0]
	n.visible = true
	n.refilter()
	return true
}

// TypeChar appends r to the filter
func (n *Navigator) TypeChar(r rune) {
	if !n.visible {
		return
	}
	n.filter = append(n.filter, r)
	n.refilter()
}

// Backspace removes the last filter rune, or hides the popup when the
// filter is already empty
func (n *Navigator) Backspace() {
	if !n.visible {
		return
	}
	if len(n.filter) == 0 {
		n.hide()
		return
	}
	n.filter = n.filter[:len(n.filter)-1]
	n.refilter()
}

func (n *Navigator) Next() {
	if !n.visible || len(n.filtered) == 0 {
		return
	}
	n.index = (n.index + 1) % len(n.filtered)
}

func (n *Navigator) Previous() {
	if !n.visible || len(n.filtered) == 0 {
		return
	}
	n.index = (n.index - 1 + len(n.filtered)) % len(n.filtered)
}

// Commit selects the current entry and hides the popup. It returns nil
// when the popup is hidden.
func (n *Navigator) Commit() *Entry {
	if !n.visible {
		return nil
	}
	selected := n.Current()
	n.hide()
	if selected != nil && n.onSelected != nil {
		n.onSelected(selected)
	}
	return selected
}

// Escape hides the popup without a selection
func (n *Navigator) Escape() {
	if n.visible {
		n.hide()
	}
}

func (n *Navigator) FocusLost() { n.Escape() }

// SetIndex moves to the i-th filtered entry
func (n *Navigator) SetIndex(i int) error {
	if len(n.filtered) == 0 {
		return nil
	}
	if i < 0 || i >= len(n.filtered) {
		return fmt.Errorf("call tip index %d of %d: %w", i, len(n.filtered), csacerrors.ErrIndexOutOfRange)
	}
	n.index = i
	return nil
}

// Current returns the entry under the index, or nil when hidden
func (n *Navigator) Current() *Entry {
	if !n.visible || len(n.filtered) == 0 {
		return nil
	}
	return n.filtered[n.index]
}

func (n *Navigator) Filtered() []*Entry {
	out := make([]*Entry, len(n.filtered))
	copy(out, n.filtered)
	return out
}

func (n *Navigator) Index() int     { return n.index }
func (n *Navigator) Filter() string { return string(n.filter) }
func (n *Navigator) Visible() bool  { return n.visible }

// Position renders the index as "X of Y", or "" when hidden
func (n *Navigator) Position() string {
	if !n.visible || len(n.filtered) == 0 {
		return ""
	}
	return fmt.Sprintf("%d of %d", n.index+1, len(n.filtered))
}

func (n *Navigator) refilter() {
	filter := strings.ToLower(string(n.filter))
	n.filtered = n.filtered[:0]
	for _, e := range n.entries {
		if n.matches(strings.ToLower(e.BodyTextNoParameters), filter) {
			n.filtered = append(n.filtered, e)
		}
	}
	n.index = 0
	if len(n.filtered) == 0 {
		n.hide()
	}
}

func (n *Navigator) matches(name, filter string) bool {
	if filter == "" {
		return true
	}
	if n.matchAnywhere {
		return strings.Contains(name, filter)
	}
	return strings.HasPrefix(name, filter)
}

func (n *Navigator) hide() {
	wasVisible := n.visible
	n.visible = false
	n.filter = n.filter[:0]
	n.filtered = nil
	n.index = 0
	if wasVisible && n.onHidden != nil {
		n.onHidden()
	}
}
