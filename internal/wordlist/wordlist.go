// Package wordlist builds the kind-tagged word list handed to the editor's
// suggestion popup. Each word is rendered as "name?ordinal", where ordinal
// is the construct kind the editor uses to pick an icon, and words are
// joined by single spaces.
package wordlist

import (
	"sort"
	"strconv"
	"strings"

	"github.com/standardbeagle/csac/internal/catalog"
	"github.com/standardbeagle/csac/internal/types"
)

// Word is one identifier of the list
type Word struct {
	Name string              `json:"name" yaml:"name"`
	Kind types.ConstructKind `json:"kind" yaml:"kind"`
}

// String renders the wire form of the word
func (w Word) String() string {
	return w.Name + "?" + strconv.Itoa(int(w.Kind))
}

// Builder is a set of words keyed by (kind, name). The zero value is not
// usable; call New.
type Builder struct {
	words map[Word]struct{}
}

func New() *Builder {
	return &Builder{words: make(map[Word]struct{})}
}

// Parse reads a serialized word list into a new builder
func Parse(list string) *Builder {
	return New().WithWordList(list)
}

// Add inserts one word. Names that are empty or would break the wire
// format are ignored.
func (b *Builder) Add(name string, kind types.ConstructKind) *Builder {
	if name == "" || strings.ContainsAny(name, "? \t\r\n") {
		return b
	}
	b.words[Word{Name: name, Kind: kind}] = struct{}{}
	return b
}

// AddKeywords inserts every word containing filter, compared
// case-insensitively. An empty filter keeps all words.
func (b *Builder) AddKeywords(words []string, kind types.ConstructKind, filter string) *Builder {
	for _, w := range words {
		if matches(w, filter) {
			b.Add(w, kind)
		}
	}
	return b
}

// AddKeywordText is AddKeywords for a space-delimited list
func (b *Builder) AddKeywordText(words string, kind types.ConstructKind, filter string) *Builder {
	return b.AddKeywords(strings.Fields(words), kind, filter)
}

// RemoveKind drops every word of the given kind
func (b *Builder) RemoveKind(kind types.ConstructKind) *Builder {
	for w := range b.words {
		if w.Kind == kind {
			delete(b.words, w)
		}
	}
	return b
}

// AddFromCatalog inserts the names of entries. With kind set only entries
// of that kind are taken and tagged with it; otherwise each entry keeps its
// own kind.
func (b *Builder) AddFromCatalog(entries []*catalog.Entry, kind *types.ConstructKind, filter string) *Builder {
	for _, e := range entries {
		if e == nil || (kind != nil && e.Kind != *kind) {
			continue
		}
		if matches(e.Name, filter) {
			b.Add(e.Name, e.Kind)
		}
	}
	return b
}

// WithWordList merges a serialized list. Tokens without a kind are taken as
// keywords; tokens with an unknown kind are skipped.
func (b *Builder) WithWordList(list string) *Builder {
	for _, token := range strings.Fields(list) {
		name, ordinal, found := strings.Cut(token, "?")
		if !found {
			b.Add(name, types.KindKeyword)
			continue
		}
		n, err := strconv.Atoi(ordinal)
		if err != nil || !types.ConstructKind(n).Valid() {
			continue
		}
		b.Add(name, types.ConstructKind(n))
	}
	return b
}

// Contains reports whether the word is in the set
func (b *Builder) Contains(name string, kind types.ConstructKind) bool {
	_, ok := b.words[Word{Name: name, Kind: kind}]
	return ok
}

func (b *Builder) Len() int {
	return len(b.words)
}

// Words returns the words sorted by name, then kind ordinal
func (b *Builder) Words() []Word {
	out := make([]Word, 0, len(b.words))
	for w := range b.words {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Names returns the distinct names of the given kind, sorted
func (b *Builder) Names(kind types.ConstructKind) []string {
	var out []string
	for w := range b.words {
		if w.Kind == kind {
			out = append(out, w.Name)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy
func (b *Builder) Clone() *Builder {
	c := &Builder{words: make(map[Word]struct{}, len(b.words))}
	for w := range b.words {
		c.words[w] = struct{}{}
	}
	return c
}

// String serializes the set in sorted order
func (b *Builder) String() string {
	words := b.Words()
	var sb strings.Builder
	for i, w := range words {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(w.String())
	}
	return sb.String()
}

// Build merges existing, if any, and serializes the result
func (b *Builder) Build(existing string) string {
	if existing != "" {
		b.WithWordList(existing)
	}
	return b.String()
}

func matches(word, filter string) bool {
	if strings.TrimSpace(filter) == "" {
		return true
	}
	return strings.Contains(strings.ToLower(word), strings.ToLower(filter))
}
