package analysis

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/csac/internal/typename"
)

// scopeSet collects the names visible at an offset. The first declaration
// of a name wins, so inner scopes shadow outer ones. Types are inferred on
// demand; inference of one var may look up others.
type scopeSet struct {
	w       *Workspace
	at      uint
	depth   int
	seen    map[string]bool
	entries []scopeEntry
}

type scopeEntry struct {
	sym Symbol
	typ func() *typename.Descriptor
}

func (s *scopeSet) add(name string, kind SymbolKind, node *tree_sitter.Node, typ func() *typename.Descriptor) {
	if name == "" || s.seen[name] {
		return
	}
	s.seen[name] = true
	s.entries = append(s.entries, scopeEntry{
		sym: Symbol{Name: name, Kind: kind, Offset: int(node.StartByte())},
		typ: typ,
	})
}

// typeOf returns the type of the named entry and whether the name is in scope
func (s *scopeSet) typeOf(name string) (*typename.Descriptor, bool) {
	for _, e := range s.entries {
		if e.sym.Name == name {
			if e.typ == nil {
				return nil, true
			}
			return e.typ(), true
		}
	}
	return nil, false
}

// symbols returns every entry with its type resolved
func (s *scopeSet) symbols() []Symbol {
	out := make([]Symbol, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.sym
		if e.typ != nil {
			out[i].Type = e.typ()
		}
	}
	return out
}

// scope walks from the node at offset up to the root
func (w *Workspace) scope(at uint, depth int) *scopeSet {
	s := &scopeSet{w: w, at: at, depth: depth, seen: make(map[string]bool)}
	root := w.tree.RootNode()
	lo := at
	if lo > 0 {
		lo--
	}
	for n := root.DescendantForByteRange(lo, at); n != nil; n = n.Parent() {
		switch n.Kind() {
		case "block", "switch_section":
			s.statements(n)
		case "compilation_unit":
			// top-level statements
			for i := uint(0); i < n.NamedChildCount(); i++ {
				if g := n.NamedChild(i); g != nil && g.Kind() == "global_statement" {
					s.statements(g)
				}
			}
		case "for_statement", "using_statement", "fixed_statement":
			if decl := findKind(n, "variable_declaration"); decl != nil {
				s.declarators(decl, SymbolLocal)
			}
		case "foreach_statement":
			s.foreach(n)
		case "catch_clause":
			if decl := findKind(n, "catch_declaration"); decl != nil {
				s.add(w.text(decl.ChildByFieldName("name")), SymbolLocal, decl, func() *typename.Descriptor {
					return w.parseType(decl.ChildByFieldName("type"))
				})
			}
		case "method_declaration", "constructor_declaration", "local_function_statement",
			"lambda_expression", "anonymous_method_expression", "operator_declaration",
			"conversion_operator_declaration", "indexer_declaration":
			s.parameters(n.ChildByFieldName("parameters"))
		case "class_declaration", "struct_declaration", "interface_declaration",
			"record_declaration", "record_struct_declaration":
			// primary constructor parameters
			s.parameters(n.ChildByFieldName("parameters"))
			s.members(n)
		case "accessor_declaration":
			if kind := w.text(n.ChildByFieldName("name")); kind == "set" || kind == "init" {
				s.add("value", SymbolParameter, n, func() *typename.Descriptor {
					return w.accessorValueType(n)
				})
			}
		}
	}
	return s
}

// statements adds the locals declared by statements that start before the offset
func (s *scopeSet) statements(block *tree_sitter.Node) {
	// walk backwards so the nearest declaration of a name wins
	for i := int(block.NamedChildCount()) - 1; i >= 0; i-- {
		stmt := block.NamedChild(uint(i))
		if stmt == nil || stmt.StartByte() >= s.at {
			continue
		}
		switch stmt.Kind() {
		case "local_declaration_statement", "using_statement", "global_statement":
			if decl := findKind(stmt, "variable_declaration"); decl != nil {
				s.declarators(decl, SymbolLocal)
			} else if inner := findKind(stmt, "local_declaration_statement"); inner != nil {
				if decl := findKind(inner, "variable_declaration"); decl != nil {
					s.declarators(decl, SymbolLocal)
				}
			}
		case "local_function_statement":
			s.add(s.w.text(stmt.ChildByFieldName("name")), SymbolMethod, stmt, func() *typename.Descriptor {
				return s.w.parseType(returnsNode(stmt))
			})
		}
	}
}

// declarators adds every variable declared by a variable_declaration
func (s *scopeSet) declarators(decl *tree_sitter.Node, kind SymbolKind) {
	typeNode := decl.ChildByFieldName("type")
	for i := uint(0); i < decl.NamedChildCount(); i++ {
		v := decl.NamedChild(i)
		if v == nil || v.Kind() != "variable_declarator" {
			continue
		}
		nameNode := v.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = findKind(v, "identifier")
		}
		if nameNode == nil || (kind == SymbolLocal && nameNode.EndByte() > s.at) {
			continue
		}
		s.add(s.w.text(nameNode), kind, v, func() *typename.Descriptor {
			return s.w.declaredType(typeNode, v, s.depth)
		})
	}
}

func (s *scopeSet) foreach(n *tree_sitter.Node) {
	left := n.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return
	}
	s.add(s.w.text(left), SymbolLocal, left, func() *typename.Descriptor {
		if t := s.w.parseType(n.ChildByFieldName("type")); t != nil {
			return t
		}
		// var over an array or a generic collection
		coll := s.w.infer(n.ChildByFieldName("right"), s.depth+1)
		switch {
		case coll == nil:
			return nil
		case coll.IsArray():
			return coll.Elem
		case len(coll.Args) == 1:
			return coll.Args[0]
		}
		return nil
	})
}

func (s *scopeSet) parameters(list *tree_sitter.Node) {
	if list == nil {
		return
	}
	if list.Kind() == "identifier" {
		// x => ...
		s.add(s.w.text(list), SymbolParameter, list, nil)
		return
	}
	for i := uint(0); i < list.NamedChildCount(); i++ {
		p := list.NamedChild(i)
		if p == nil || (p.Kind() != "parameter" && p.Kind() != "parameter_array") {
			continue
		}
		s.add(s.w.text(p.ChildByFieldName("name")), SymbolParameter, p, func() *typename.Descriptor {
			return s.w.parseType(p.ChildByFieldName("type"))
		})
	}
}

// members adds the fields, properties and methods of a type declaration
func (s *scopeSet) members(decl *tree_sitter.Node) {
	body := decl.ChildByFieldName("body")
	if body == nil {
		body = findKind(decl, "declaration_list")
	}
	if body == nil {
		return
	}
	for i := uint(0); i < body.NamedChildCount(); i++ {
		m := body.NamedChild(i)
		if m == nil {
			continue
		}
		switch m.Kind() {
		case "field_declaration", "event_field_declaration":
			if v := findKind(m, "variable_declaration"); v != nil {
				s.declarators(v, SymbolField)
			}
		case "property_declaration":
			s.add(s.w.text(m.ChildByFieldName("name")), SymbolProperty, m, func() *typename.Descriptor {
				return s.w.parseType(m.ChildByFieldName("type"))
			})
		case "method_declaration":
			s.add(s.w.text(m.ChildByFieldName("name")), SymbolMethod, m, func() *typename.Descriptor {
				return s.w.parseType(returnsNode(m))
			})
		}
	}
}

// memberSymbol reports whether member declares name, with its type
func (w *Workspace) memberSymbol(m *tree_sitter.Node, name string) (Symbol, bool) {
	switch m.Kind() {
	case "property_declaration":
		if w.text(m.ChildByFieldName("name")) == name {
			return Symbol{Name: name, Kind: SymbolProperty, Type: w.parseType(m.ChildByFieldName("type"))}, true
		}
	case "method_declaration":
		if w.text(m.ChildByFieldName("name")) == name {
			return Symbol{Name: name, Kind: SymbolMethod, Type: w.parseType(returnsNode(m))}, true
		}
	case "field_declaration":
		decl := findKind(m, "variable_declaration")
		if decl == nil {
			return Symbol{}, false
		}
		for i := uint(0); i < decl.NamedChildCount(); i++ {
			v := decl.NamedChild(i)
			if v != nil && v.Kind() == "variable_declarator" && w.text(v.ChildByFieldName("name")) == name {
				return Symbol{Name: name, Kind: SymbolField, Type: w.declaredType(decl.ChildByFieldName("type"), v, 0)}, true
			}
		}
	}
	return Symbol{}, false
}

// declaredType returns the declared type of a variable, inferring it from
// the initializer for var
func (w *Workspace) declaredType(typeNode, declarator *tree_sitter.Node, depth int) *typename.Descriptor {
	if t := w.parseType(typeNode); t != nil {
		return t
	}
	return w.infer(initializer(declarator), depth+1)
}

// nearestDeclaration scans the whole tree for the last declaration of name
// before offset
func (w *Workspace) nearestDeclaration(name string, at uint, depth int) *Symbol {
	var found *Symbol
	var visit func(n *tree_sitter.Node)
	visit = func(n *tree_sitter.Node) {
		if n == nil || n.StartByte() >= at {
			return
		}
		switch n.Kind() {
		case "variable_declaration":
			for i := uint(0); i < n.NamedChildCount(); i++ {
				v := n.NamedChild(i)
				if v != nil && v.Kind() == "variable_declarator" && w.text(v.ChildByFieldName("name")) == name {
					found = &Symbol{Name: name, Kind: SymbolLocal, Offset: int(v.StartByte()),
						Type: w.declaredType(n.ChildByFieldName("type"), v, depth)}
				}
			}
		case "parameter":
			if w.text(n.ChildByFieldName("name")) == name {
				found = &Symbol{Name: name, Kind: SymbolParameter, Offset: int(n.StartByte()),
					Type: w.parseType(n.ChildByFieldName("type"))}
			}
		}
		for i := uint(0); i < n.NamedChildCount(); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(w.tree.RootNode())
	return found
}

// accessorValueType returns the property type a setter's value carries
func (w *Workspace) accessorValueType(accessor *tree_sitter.Node) *typename.Descriptor {
	for n := accessor.Parent(); n != nil; n = n.Parent() {
		if n.Kind() == "property_declaration" || n.Kind() == "indexer_declaration" {
			return w.parseType(n.ChildByFieldName("type"))
		}
	}
	return nil
}

// returnsNode returns the return type node of a method-like declaration
func returnsNode(n *tree_sitter.Node) *tree_sitter.Node {
	if r := n.ChildByFieldName("returns"); r != nil {
		return r
	}
	return n.ChildByFieldName("type")
}

// initializer returns the value expression of a variable declarator
func initializer(v *tree_sitter.Node) *tree_sitter.Node {
	if v == nil {
		return nil
	}
	name := v.ChildByFieldName("name")
	for i := uint(0); i < v.NamedChildCount(); i++ {
		c := v.NamedChild(i)
		if c == nil || c.Kind() == "bracketed_argument_list" ||
			(name != nil && c.StartByte() == name.StartByte() && c.EndByte() == name.EndByte()) {
			continue
		}
		if c.Kind() == "equals_value_clause" {
			return firstNamed(c)
		}
		return c
	}
	return nil
}
