// Package calltip formats member signatures for the call-tip popup and
// tracks the popup's navigation state.
package calltip

import (
	"sort"

	"github.com/standardbeagle/csac/internal/types"
)

// Span styles a byte range of an entry's body text
type Span struct {
	Start  int                  `json:"start" yaml:"start"`
	Length int                  `json:"length" yaml:"length"`
	Style  types.HighlightStyle `json:"style" yaml:"style"`
}

// End returns the offset one past the span
func (s Span) End() int { return s.Start + s.Length }

// Entry is one formatted member shown in the call tip. The spans returned
// by Spans always cover the whole body text without gaps or overlaps; any
// range not covered by an added span is filled with HighlightNone.
type Entry struct {
	BodyText             string              `json:"body" yaml:"body"`
	BodyTextNoParameters string              `json:"name" yaml:"name"`
	TypeText             string              `json:"type" yaml:"type"`
	Kind                 types.ConstructKind `json:"kind" yaml:"kind"`
	// Unavailable marks members that cannot be called from the document:
	// methods of libraries that are not loaded and non-public members.
	// Hosts render them dimmed.
	Unavailable bool `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`

	added  []Span
	filled []Span
}

// NewEntry returns an entry with a single gap span over body
func NewEntry(body, name, typeText string, kind types.ConstructKind) *Entry {
	e := &Entry{BodyText: body, BodyTextNoParameters: name, TypeText: typeText, Kind: kind}
	e.fill()
	return e
}

// AddSpan adds a styled range. Ranges outside the body are clipped.
func (e *Entry) AddSpan(start, length int, style types.HighlightStyle) {
	e.added = append(e.added, Span{Start: start, Length: length, Style: style})
	e.fill()
}

// ClearSpans removes every added span
func (e *Entry) ClearSpans() {
	e.added = nil
	e.fill()
}

// Spans returns the gap-filled spans in offset order
func (e *Entry) Spans() []Span {
	out := make([]Span, len(e.filled))
	copy(out, e.filled)
	return out
}

// Text returns the body text covered by s
func (e *Entry) Text(s Span) string {
	return e.BodyText[s.Start:s.End()]
}

// fill sorts the added spans by start, longest first, clips overlaps and
// inserts neutral spans into the holes.
func (e *Entry) fill() {
	sorted := make([]Span, len(e.added))
	copy(sorted, e.added)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Length > sorted[j].Length
	})

	total := len(e.BodyText)
	filled := make([]Span, 0, len(sorted)*2+1)
	pos := 0
	for _, s := range sorted {
		start, end := max(s.Start, pos), min(s.End(), total)
		if end <= start {
			continue
		}
		if start > pos {
			filled = append(filled, Span{Start: pos, Length: start - pos, Style: types.HighlightNone})
		}
		filled = append(filled, Span{Start: start, Length: end - start, Style: s.Style})
		pos = end
	}
	if pos < total {
		filled = append(filled, Span{Start: pos, Length: total - pos, Style: types.HighlightNone})
	}
	e.filled = filled
}
