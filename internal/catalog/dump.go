package catalog

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/standardbeagle/csac/internal/types"
	"github.com/standardbeagle/csac/pkg/pathutil"
)

// Document is the printable form of a catalog. Type descriptors are
// rendered as display names and library paths relative to Root.
type Document struct {
	Catalog   string      `json:"catalog" yaml:"catalog"`
	Libraries []string    `json:"libraries" yaml:"libraries"`
	Entries   []EntryView `json:"entries" yaml:"entries"`
}

type EntryView struct {
	Name       string              `json:"name" yaml:"name"`
	Namespace  string              `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Kind       types.ConstructKind `json:"kind" yaml:"kind"`
	Modifiers  types.Modifiers     `json:"modifiers" yaml:"modifiers"`
	Library    string              `json:"library" yaml:"library"`
	Type       string              `json:"type,omitempty" yaml:"type,omitempty"`
	ReadOnly   bool                `json:"read_only,omitempty" yaml:"read_only,omitempty"`
	Enum       *EnumView           `json:"enum,omitempty" yaml:"enum,omitempty"`
	Fields     []EntryView         `json:"fields,omitempty" yaml:"fields,omitempty"`
	Properties []EntryView         `json:"properties,omitempty" yaml:"properties,omitempty"`
	Methods    []string            `json:"methods,omitempty" yaml:"methods,omitempty"`
}

type EnumView struct {
	BaseType string      `json:"base_type" yaml:"base_type"`
	Flags    bool        `json:"flags,omitempty" yaml:"flags,omitempty"`
	Values   []EnumValue `json:"values" yaml:"values"`
}

// Document builds the printable form. With kinds given, only top-level
// entries of those kinds are included.
func (c *Catalog) Document(root string, kinds ...types.ConstructKind) *Document {
	entries := c.Entries()
	if len(kinds) > 0 {
		entries = c.OfKind(kinds...)
	}
	doc := &Document{
		Catalog:   c.name,
		Libraries: pathutil.ToRelativeAll(c.Libraries(), root),
		Entries:   make([]EntryView, 0, len(entries)),
	}
	for _, e := range entries {
		doc.Entries = append(doc.Entries, c.view(e, root))
	}
	return doc
}

// View returns the printable form of one entry
func (c *Catalog) View(e *Entry, root string) EntryView { return c.view(e, root) }

func (c *Catalog) view(e *Entry, root string) EntryView {
	v := EntryView{
		Name:      e.Name,
		Namespace: e.Namespace,
		Kind:      e.Kind,
		Modifiers: e.Modifiers,
		Library:   pathutil.ToRelative(e.FileOrigin, root),
		ReadOnly:  e.CanRead && !e.CanWrite,
	}
	if e.ReturnType != nil {
		v.Type = c.mapper.ShortName(e.ReturnType)
	}
	if e.Enum != nil {
		v.Enum = &EnumView{
			BaseType: c.mapper.ShortName(e.Enum.BaseType),
			Flags:    e.Enum.Flags,
			Values:   e.Enum.Values,
		}
	}
	for _, f := range e.Fields {
		v.Fields = append(v.Fields, c.view(f, root))
	}
	for _, p := range e.Properties {
		v.Properties = append(v.Properties, c.view(p, root))
	}
	for _, m := range e.Methods {
		v.Methods = append(v.Methods, c.Signature(m))
	}
	return v
}

// Signature renders a method as "ret Name(T a, U b)"; constructors have no
// return type.
func (c *Catalog) Signature(m *MethodDescription) string {
	s := ""
	if !m.IsConstructor && m.ReturnType != nil {
		s = c.mapper.ShortName(m.ReturnType) + " "
	}
	if m.IsStatic {
		s = "static " + s
	}
	s += m.Name + "("
	for i, a := range m.Args {
		if i > 0 {
			s += ", "
		}
		s += c.mapper.ShortName(a.Type) + " " + a.Name
	}
	return s + ")"
}

// WriteYAML writes the catalog document as YAML
func (c *Catalog) WriteYAML(w io.Writer, root string, kinds ...types.ConstructKind) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c.Document(root, kinds...)); err != nil {
		return err
	}
	return enc.Close()
}

// WriteJSON writes the catalog document as indented JSON
func (c *Catalog) WriteJSON(w io.Writer, root string, kinds ...types.ConstructKind) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c.Document(root, kinds...))
}
