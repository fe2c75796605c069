package typename

import (
	"strings"
	"sync"
)

// baseTable holds the C# keyword aliases of the built-in types
var baseTable = []struct {
	full  string
	short string
}{
	{"System.Boolean", "bool"},
	{"System.Byte", "byte"},
	{"System.SByte", "sbyte"},
	{"System.Char", "char"},
	{"System.Decimal", "decimal"},
	{"System.Double", "double"},
	{"System.Single", "float"},
	{"System.Int32", "int"},
	{"System.UInt32", "uint"},
	{"System.Int64", "long"},
	{"System.UInt64", "ulong"},
	{"System.Int16", "short"},
	{"System.UInt16", "ushort"},
	{"System.Object", "object"},
	{"System.String", "string"},
	{"System.Void", "void"},
}

const nullableFullName = "System.Nullable`1"

// Mapper translates type descriptors to display names. The base table is
// fixed; AddPair extends it with first-writer-wins semantics. A Mapper is safe
// for concurrent use.
type Mapper struct {
	mu      sync.RWMutex
	byType  map[string]string
	byShort map[string]*Descriptor
}

// NewMapper returns a mapper seeded with the built-in type aliases
func NewMapper() *Mapper {
	m := &Mapper{
		byType:  make(map[string]string, len(baseTable)),
		byShort: make(map[string]*Descriptor, len(baseTable)),
	}
	for _, p := range baseTable {
		m.AddPair(Named(p.full), p.short)
	}
	return m
}

var defaultMapper = NewMapper()

// Default returns the process-wide mapper
func Default() *Mapper {
	return defaultMapper
}

// AddPair registers name as the display name of d. It returns false when d is
// already mapped; the earlier mapping is kept.
func (m *Mapper) AddPair(d *Descriptor, name string) bool {
	if d == nil || name == "" {
		return false
	}
	key := d.FullName()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byType[key]; exists {
		return false
	}
	m.byType[key] = name
	if _, exists := m.byShort[name]; !exists {
		m.byShort[name] = d.Clone()
	}
	return true
}

// IsMapped reports whether d has a registered display name
func (m *Mapper) IsMapped(d *Descriptor) bool {
	if d == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.byType[d.FullName()]
	return ok
}

// ShortName returns the display name of d. Arrays and generic instantiations
// are rendered recursively; unmapped types fall back to their bare name.
func (m *Mapper) ShortName(d *Descriptor) string {
	if d == nil {
		return ""
	}

	if d.IsArray() {
		base, ranks := d.arrayParts()
		var sb strings.Builder
		sb.WriteString(m.ShortName(base))
		for _, r := range ranks {
			sb.WriteString(rankSuffix(r))
		}
		return sb.String()
	}

	m.mu.RLock()
	mapped, ok := m.byType[d.FullName()]
	m.mu.RUnlock()

	if len(d.Args) == 0 {
		if ok {
			return mapped
		}
		return bareName(d.Name)
	}

	if d.FullName() == nullableFullName && !ok {
		return m.ShortName(d.Args[0]) + "?"
	}

	base := bareName(d.Name)
	if ok {
		base = mapped
	}
	args := make([]string, len(d.Args))
	for i, a := range d.Args {
		args[i] = m.ShortName(a)
	}
	return base + "<" + strings.Join(args, ", ") + ">"
}

// FullType resolves a display name back to its descriptor, or nil when the
// name is not mapped. The result is a copy the caller may modify.
func (m *Mapper) FullType(name string) *Descriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.byShort[strings.TrimSpace(name)]; ok {
		return d.Clone()
	}
	return nil
}

// Names returns every registered display name
func (m *Mapper) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.byShort))
	for name := range m.byShort {
		out = append(out, name)
	}
	return out
}

// bareName strips any namespace and generic arity left in a runtime name
func bareName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.IndexByte(name, '`'); i >= 0 {
		name = name[:i]
	}
	return name
}
