// Package catalog holds the member catalog: one entry per library type with
// its fields, properties and methods, queried by completion and call tips.
package catalog

import (
	"github.com/standardbeagle/csac/internal/typename"
	"github.com/standardbeagle/csac/internal/types"
)

// Key is the identity of an entry within a catalog
type Key struct {
	Name       string
	FileOrigin string
	Namespace  string
	Kind       types.ConstructKind
}

// Entry is one cataloged construct. Top-level entries describe types;
// their children describe members.
type Entry struct {
	Name       string              `json:"name" yaml:"name"`
	FileOrigin string              `json:"file_origin" yaml:"file_origin"`
	Namespace  string              `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Kind       types.ConstructKind `json:"kind" yaml:"kind"`
	Modifiers  types.Modifiers     `json:"modifiers" yaml:"modifiers"`

	ReturnType    *typename.Descriptor `json:"return_type,omitempty" yaml:"return_type,omitempty"`
	ConstructType *typename.Descriptor `json:"construct_type,omitempty" yaml:"construct_type,omitempty"`

	CanRead  bool `json:"can_read" yaml:"can_read"`
	CanWrite bool `json:"can_write" yaml:"can_write"`

	Enum *EnumDescription `json:"enum,omitempty" yaml:"enum,omitempty"`

	Fields     []*Entry             `json:"fields,omitempty" yaml:"fields,omitempty"`
	Properties []*Entry             `json:"properties,omitempty" yaml:"properties,omitempty"`
	Methods    []*MethodDescription `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// NewEntry returns an entry that is readable and writable by default
func NewEntry(name, fileOrigin, namespace string, kind types.ConstructKind) *Entry {
	return &Entry{
		Name:       name,
		FileOrigin: fileOrigin,
		Namespace:  namespace,
		Kind:       kind,
		CanRead:    true,
		CanWrite:   true,
	}
}

func (e *Entry) Key() Key {
	return Key{Name: e.Name, FileOrigin: e.FileOrigin, Namespace: e.Namespace, Kind: e.Kind}
}

// SameIdentity reports whether o would be a duplicate of e in a catalog
func (e *Entry) SameIdentity(o *Entry) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.Key() == o.Key()
}

// FullName returns Namespace.Name
func (e *Entry) FullName() string {
	if e.Namespace == "" {
		return e.Name
	}
	return e.Namespace + "." + e.Name
}

func (e *Entry) IsStatic() bool {
	return e.Modifiers.Has(types.ModStatic)
}

// AddField appends f unless an equal field is already present
func (e *Entry) AddField(f *Entry) bool {
	if containsEntry(e.Fields, f) {
		return false
	}
	e.Fields = append(e.Fields, f)
	return true
}

// AddProperty appends p unless an equal property is already present
func (e *Entry) AddProperty(p *Entry) bool {
	if containsEntry(e.Properties, p) {
		return false
	}
	e.Properties = append(e.Properties, p)
	return true
}

// AddMethod appends m unless a structurally equal method is already present
func (e *Entry) AddMethod(m *MethodDescription) bool {
	for _, existing := range e.Methods {
		if existing.Equal(m) {
			return false
		}
	}
	e.Methods = append(e.Methods, m)
	return true
}

func containsEntry(list []*Entry, e *Entry) bool {
	for _, existing := range list {
		if existing.SameIdentity(e) && existing.Modifiers == e.Modifiers {
			return true
		}
	}
	return false
}

// Argument is one method parameter
type Argument struct {
	Name string               `json:"name" yaml:"name"`
	Type *typename.Descriptor `json:"type" yaml:"type"`
}

// MethodDescription describes a method or constructor of a cataloged type
type MethodDescription struct {
	Name          string               `json:"name" yaml:"name"`
	ReturnType    *typename.Descriptor `json:"return_type,omitempty" yaml:"return_type,omitempty"`
	Args          []Argument           `json:"args,omitempty" yaml:"args,omitempty"`
	IsConstructor bool                 `json:"constructor,omitempty" yaml:"constructor,omitempty"`
	IsStatic      bool                 `json:"static,omitempty" yaml:"static,omitempty"`
	IsPrivate     bool                 `json:"private,omitempty" yaml:"private,omitempty"`
	// IsUsable is false when the declaring library is not loaded
	IsUsable bool `json:"usable" yaml:"usable"`
}

// Equal compares name, flags and the ordered argument list. The return type
// and usability do not take part.
func (m *MethodDescription) Equal(o *MethodDescription) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Name != o.Name || m.IsConstructor != o.IsConstructor ||
		m.IsStatic != o.IsStatic || m.IsPrivate != o.IsPrivate ||
		len(m.Args) != len(o.Args) {
		return false
	}
	for i := range m.Args {
		if m.Args[i].Name != o.Args[i].Name || !m.Args[i].Type.Equal(o.Args[i].Type) {
			return false
		}
	}
	return true
}

// EnumValue is one named enum constant
type EnumValue struct {
	Name  string `json:"name" yaml:"name"`
	Value int64  `json:"value" yaml:"value"`
}

// EnumDescription carries the ordered constants of an enum
type EnumDescription struct {
	Name     string               `json:"name" yaml:"name"`
	BaseType *typename.Descriptor `json:"base_type" yaml:"base_type"`
	Flags    bool                 `json:"flags,omitempty" yaml:"flags,omitempty"`
	Values   []EnumValue          `json:"values" yaml:"values"`
}

// Value returns the raw value of the named constant
func (d *EnumDescription) Value(name string) (int64, bool) {
	for _, v := range d.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return 0, false
}

// Names returns the constant names in declaration order
func (d *EnumDescription) Names() []string {
	out := make([]string, len(d.Values))
	for i, v := range d.Values {
		out[i] = v.Name
	}
	return out
}
