package calltip

import (
	"sync"

	"github.com/standardbeagle/csac/internal/types"
)

// Style is how the host renders one highlight style. Colors are whatever
// the host understands, usually "#rrggbb".
type Style struct {
	Fore string `json:"fore,omitempty" yaml:"fore,omitempty" toml:"fore,omitempty"`
	Back string `json:"back,omitempty" yaml:"back,omitempty" toml:"back,omitempty"`
	Font string `json:"font,omitempty" yaml:"font,omitempty" toml:"font,omitempty"`
}

// Styles maps highlight styles to their rendering and construct kinds to
// icon references. Setting a key again replaces the previous value.
type Styles struct {
	mu     sync.RWMutex
	styles map[types.HighlightStyle]Style
	icons  map[types.ConstructKind]string
}

func NewStyles() *Styles {
	return &Styles{
		styles: make(map[types.HighlightStyle]Style),
		icons:  make(map[types.ConstructKind]string),
	}
}

func (s *Styles) SetStyle(style types.HighlightStyle, st Style) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles[style] = st
}

// Style returns the rendering of style and whether one was set
func (s *Styles) Style(style types.HighlightStyle) (Style, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.styles[style]
	return st, ok
}

func (s *Styles) SetIcon(kind types.ConstructKind, ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.icons[kind] = ref
}

// Icon returns the icon reference for kind, or "" when none is set
func (s *Styles) Icon(kind types.ConstructKind) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.icons[kind]
}

// Icons returns a copy of the icon table
func (s *Styles) Icons() map[types.ConstructKind]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[types.ConstructKind]string, len(s.icons))
	for k, v := range s.icons {
		out[k] = v
	}
	return out
}
