package catalog

import (
	"sort"
	"strings"
	"sync"

	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/csac/internal/typename"
	"github.com/standardbeagle/csac/internal/types"
)

// Catalog is a set of entries with identity-based deduplication. Readers
// share an RWMutex; every mutation takes the write lock, so concurrent
// populate passes are serialized. Published entries are never changed.
type Catalog struct {
	name   string
	mapper *typename.Mapper

	mu        sync.RWMutex
	entries   []*Entry
	index     map[Key]*Entry
	byName    map[string][]*Entry
	libraries map[string]bool
}

// Option configures a Catalog
type Option func(*Catalog)

// WithMapper sets the mapper used for type display names
func WithMapper(m *typename.Mapper) Option {
	return func(c *Catalog) { c.mapper = m }
}

// New returns an empty catalog. The name only shows up in logs.
func New(name string, opts ...Option) *Catalog {
	c := &Catalog{
		name:      name,
		mapper:    typename.Default(),
		index:     make(map[Key]*Entry),
		byName:    make(map[string][]*Entry),
		libraries: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewShared returns the catalog shared by every session of a process. It is
// created once by the host and injected into each session.
func NewShared(opts ...Option) *Catalog {
	return New("shared", opts...)
}

func (c *Catalog) Name() string { return c.name }

func (c *Catalog) Mapper() *typename.Mapper { return c.mapper }

// AddEntry publishes e. It returns false when an entry with the same
// identity exists. isStatic marks the entry with the static modifier.
func (c *Catalog) AddEntry(e *Entry, isStatic bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addEntryLocked(e, isStatic)
}

func (c *Catalog) addEntryLocked(e *Entry, isStatic bool) bool {
	if e == nil {
		return false
	}
	key := e.Key()
	if _, exists := c.index[key]; exists {
		return false
	}
	if isStatic {
		e.Modifiers |= types.ModStatic
	}
	c.entries = append(c.entries, e)
	c.index[key] = e
	c.byName[e.Name] = append(c.byName[e.Name], e)
	return true
}

// Entries returns the entries in insertion order. The slice is a copy; the
// entries are shared and must not be modified.
func (c *Catalog) Entries() []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// OfKind returns the entries of the given kinds in insertion order
func (c *Catalog) OfKind(kinds ...types.ConstructKind) []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Entry
	for _, e := range c.entries {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// HasLibrary reports whether a library with the given path was populated
func (c *Catalog) HasLibrary(path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.libraries[path]
}

// Libraries returns the populated library paths in sorted order
func (c *Catalog) Libraries() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.libraries))
	for p := range c.libraries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the entries with the given simple name
func (c *Catalog) Lookup(name string) []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	found := c.byName[name]
	out := make([]*Entry, len(found))
	copy(out, found)
	return out
}

// FindStaticClass returns the first static class named name, or nil
func (c *Catalog) FindStaticClass(name string) *Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.byName[name] {
		if e.Kind == types.KindStaticClass {
			return e
		}
	}
	return nil
}

// FindType returns the first type entry named name, static classes first
func (c *Catalog) FindType(name string) *Entry {
	if e := c.FindStaticClass(name); e != nil {
		return e
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.byName[name] {
		if e.Kind.IsType() {
			return e
		}
	}
	return nil
}

// FindByType returns the first entry whose construct type matches d. A
// descriptor without a namespace matches on the simple name alone.
func (c *Catalog) FindByType(d *typename.Descriptor) *Entry {
	if d == nil || d.IsArray() {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if sameType(e.ConstructType, d) {
			return e
		}
	}
	return nil
}

func sameType(ct, d *typename.Descriptor) bool {
	if ct == nil {
		return false
	}
	if ct.Equal(d) {
		return true
	}
	if ct.Name != d.Name || len(ct.Args) != len(d.Args) {
		return false
	}
	return ct.Namespace == "" || d.Namespace == "" || ct.Namespace == d.Namespace
}

// Suggest returns up to n entry names similar to name, best match first,
// for "did you mean" hints on lookup misses.
func (c *Catalog) Suggest(name string, n int) []string {
	if name == "" || n <= 0 {
		return nil
	}
	c.mu.RLock()
	names := make([]string, 0, len(c.byName))
	for candidate := range c.byName {
		names = append(names, candidate)
	}
	c.mu.RUnlock()

	type scored struct {
		name  string
		score float32
	}
	lower := strings.ToLower(name)
	var hits []scored
	for _, candidate := range names {
		score, err := edlib.StringsSimilarity(lower, strings.ToLower(candidate), edlib.JaroWinkler)
		if err != nil || score < suggestThreshold {
			continue
		}
		hits = append(hits, scored{candidate, score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].name < hits[j].name
	})
	if len(hits) > n {
		hits = hits[:n]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

const suggestThreshold = 0.75

// MemberType returns the type of member on the type described by owner:
// a property or field value type, or a method return type. It returns nil
// when the owner is not cataloged or has no such member.
func (c *Catalog) MemberType(owner *typename.Descriptor, member string) *typename.Descriptor {
	e := c.FindByType(owner)
	if e == nil {
		return nil
	}
	for _, p := range e.Properties {
		if p.Name == member {
			return p.ReturnType
		}
	}
	for _, f := range e.Fields {
		if f.Name == member {
			return f.ReturnType
		}
	}
	for _, m := range e.Methods {
		if m.Name == member && !m.IsConstructor {
			return m.ReturnType
		}
	}
	if e.Enum != nil {
		if _, ok := e.Enum.Value(member); ok {
			return e.ConstructType
		}
	}
	return nil
}
