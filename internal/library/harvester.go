package library

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/csac/internal/debug"
	csacerrors "github.com/standardbeagle/csac/internal/errors"
	"github.com/standardbeagle/csac/internal/typename"
)

// Harvester reads C# declaration files into TypeInfo values. It is safe for
// concurrent use; each parse gets its own tree-sitter parser.
type Harvester struct {
	mapper  *typename.Mapper
	cache   *Cache
	workers int
	lang    *tree_sitter.Language
}

// HarvesterOption configures a Harvester
type HarvesterOption func(*Harvester)

// WithMapper sets the mapper used to resolve keyword type names
func WithMapper(m *typename.Mapper) HarvesterOption {
	return func(h *Harvester) { h.mapper = m }
}

// WithCache sets the content-hash cache used by HarvestFile
func WithCache(c *Cache) HarvesterOption {
	return func(h *Harvester) { h.cache = c }
}

// WithWorkers bounds the number of files parsed in parallel. Zero or less
// means one per CPU.
func WithWorkers(n int) HarvesterOption {
	return func(h *Harvester) { h.workers = n }
}

func NewHarvester(opts ...HarvesterOption) *Harvester {
	h := &Harvester{
		mapper: typename.Default(),
		lang:   tree_sitter.NewLanguage(tree_sitter_csharp.Language()),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.workers <= 0 {
		h.workers = runtime.NumCPU()
	}
	if h.cache == nil {
		h.cache = NewCache()
	}
	return h
}

// HarvestLibrary parses every file of a library. Files are parsed in
// parallel; the resulting types keep file order.
func (h *Harvester) HarvestLibrary(ctx context.Context, name, path string, files []string) (*Library, error) {
	results := make([][]*TypeInfo, len(files))
	hashes := make([]uint64, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			types, sum, err := h.HarvestFile(file, path)
			if err != nil {
				return err
			}
			results[i] = types
			hashes[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, csacerrors.NewLibraryError("harvest", name, err).WithPath(path)
	}

	lib := &Library{Name: name, Path: path, Files: files, Hash: combineHashes(hashes)}
	for _, types := range results {
		lib.Types = append(lib.Types, types...)
	}
	debug.LogCatalog("harvested %s: %d files, %d types\n", name, len(files), len(lib.Types))
	return lib, nil
}

// HarvestFile parses one file, reusing the cached result when the content
// hash is unchanged. It returns the types and the content hash.
func (h *Harvester) HarvestFile(file, libPath string) ([]*TypeInfo, uint64, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, 0, err
	}
	sum := HashContent(content)
	if types, ok := h.cache.Get(file, sum); ok {
		return types, sum, nil
	}
	types, err := h.HarvestSource(file, libPath, content)
	if err != nil {
		return nil, 0, err
	}
	h.cache.Put(file, sum, types)
	return types, sum, nil
}

// HarvestSource parses C# source text. Declarations with syntax errors are
// returned with Err set rather than failing the whole file.
func (h *Harvester) HarvestSource(file, libPath string, content []byte) ([]*TypeInfo, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(h.lang); err != nil {
		return nil, fmt.Errorf("set C# language: %w", err)
	}
	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("parse %s: no tree produced", file)
	}
	defer tree.Close()

	w := &declWalker{h: h, content: content, file: file, lib: libPath}
	w.walk(tree.RootNode(), "", nil)
	return w.types, nil
}

// declWalker collects type declarations from one syntax tree
type declWalker struct {
	h       *Harvester
	content []byte
	file    string
	lib     string
	types   []*TypeInfo
}

// walk visits the declarations under node. File-scoped namespaces apply to
// the siblings that follow them.
func (w *declWalker) walk(node *tree_sitter.Node, ns string, outer *TypeInfo) {
	if node == nil {
		return
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "namespace_declaration":
			name := w.text(child.ChildByFieldName("name"))
			w.walk(child.ChildByFieldName("body"), joinName(ns, name), nil)
		case "file_scoped_namespace_declaration":
			ns = joinName(ns, w.text(child.ChildByFieldName("name")))
			w.walk(child, ns, nil)
		case "class_declaration", "struct_declaration", "interface_declaration",
			"enum_declaration", "record_declaration", "record_struct_declaration":
			w.harvestType(child, ns, outer)
		case "declaration_list":
			w.walk(child, ns, outer)
		}
	}
}

func (w *declWalker) harvestType(node *tree_sitter.Node, ns string, outer *TypeInfo) {
	name := w.text(node.ChildByFieldName("name"))
	if name == "" {
		return
	}
	mods := w.modifiers(node)

	t := &TypeInfo{
		Name:                name,
		Namespace:           ns,
		File:                w.file,
		Library:             w.lib,
		IsPublic:            mods["public"],
		IsGenericDefinition: findChild(node, "type_parameter_list") != nil,
	}
	if outer != nil {
		t.Namespace = outer.FullName()
		t.IsPublic = t.IsPublic && outer.IsPublic
	}

	switch node.Kind() {
	case "class_declaration":
		t.IsClass = true
		t.IsAbstract = mods["abstract"] || mods["static"]
		t.IsSealed = mods["sealed"] || mods["static"]
	case "record_declaration":
		if findChild(node, "struct") != nil {
			t.IsValueType, t.IsSealed = true, true
		} else {
			t.IsClass = true
			t.IsAbstract = mods["abstract"]
			t.IsSealed = mods["sealed"]
		}
	case "struct_declaration", "record_struct_declaration":
		t.IsValueType, t.IsSealed = true, true
	case "interface_declaration":
		t.IsInterface, t.IsAbstract = true, true
	case "enum_declaration":
		t.IsEnum, t.IsValueType, t.IsSealed = true, true, true
		t.IsFlags = w.hasAttribute(node, "Flags")
		if base := findChild(node, "base_list"); base != nil {
			if n := firstNamedChild(base); n != nil {
				t.EnumUnderlying = w.resolveType(n)
			}
		}
	}
	if t.IsValueType && !t.IsEnum && ns == "System" && name != "Decimal" &&
		w.h.mapper.IsMapped(t.Descriptor()) {
		t.IsPrimitive = true
	}

	if node.HasError() {
		t.Err = fmt.Errorf("declaration of %s in %s has syntax errors", t.FullName(), w.file)
	}

	w.types = append(w.types, t)

	body := node.ChildByFieldName("body")
	if body == nil {
		body = findChild(node, "declaration_list")
	}
	if t.IsEnum {
		if body == nil {
			body = findChild(node, "enum_member_declaration_list")
		}
		t.EnumValues = w.enumValues(body)
		return
	}
	w.members(t, body)
}

func (w *declWalker) members(t *TypeInfo, body *tree_sitter.Node) {
	if body == nil {
		return
	}
	declaredCtor := false
	for i := uint(0); i < body.NamedChildCount(); i++ {
		m := body.NamedChild(i)
		if m == nil {
			continue
		}
		switch m.Kind() {
		case "field_declaration":
			w.fields(t, m)
		case "property_declaration":
			w.property(t, m)
		case "event_field_declaration", "event_declaration":
			w.event(t, m)
		case "method_declaration":
			t.Methods = append(t.Methods, w.method(t, m))
		case "operator_declaration", "conversion_operator_declaration":
			op := w.method(t, m)
			op.Name = "op_" + w.operatorName(m)
			op.IsSpecialName = true
			op.IsStatic = true
			t.Methods = append(t.Methods, op)
		case "constructor_declaration":
			mods := w.modifiers(m)
			if mods["static"] {
				continue
			}
			declaredCtor = true
			t.Constructors = append(t.Constructors, &MethodInfo{
				Name:     ".ctor",
				Params:   w.params(m.ChildByFieldName("parameters")),
				IsPublic: mods["public"],
				Library:  w.lib,
			})
		case "class_declaration", "struct_declaration", "interface_declaration",
			"enum_declaration", "record_declaration", "record_struct_declaration":
			w.harvestType(m, "", t)
		}
	}
	// The compiler supplies a public parameterless constructor for concrete
	// classes that declare none.
	if t.IsClass && !declaredCtor && !t.IsAbstract {
		t.Constructors = append(t.Constructors, &MethodInfo{Name: ".ctor", IsPublic: true, Library: w.lib})
	}
}

// memberPublic applies C# default accessibility: interface members are
// public unless marked otherwise.
func memberPublic(t *TypeInfo, mods map[string]bool) bool {
	if mods["public"] {
		return true
	}
	if t.IsInterface {
		return !mods["private"] && !mods["protected"] && !mods["internal"]
	}
	return false
}

func (w *declWalker) fields(t *TypeInfo, node *tree_sitter.Node) {
	mods := w.modifiers(node)
	decl := findChild(node, "variable_declaration")
	if decl == nil {
		return
	}
	typ := w.resolveType(decl.ChildByFieldName("type"))
	for i := uint(0); i < decl.NamedChildCount(); i++ {
		v := decl.NamedChild(i)
		if v == nil || v.Kind() != "variable_declarator" {
			continue
		}
		name := w.text(v.ChildByFieldName("name"))
		if name == "" {
			name = w.text(findChild(v, "identifier"))
		}
		t.Fields = append(t.Fields, &FieldInfo{
			Name:       name,
			Type:       typ,
			IsPublic:   memberPublic(t, mods),
			IsStatic:   mods["static"] || mods["const"],
			IsConst:    mods["const"],
			IsReadonly: mods["readonly"],
		})
	}
}

func (w *declWalker) property(t *TypeInfo, node *tree_sitter.Node) {
	mods := w.modifiers(node)
	p := &PropertyInfo{
		Name:     w.text(node.ChildByFieldName("name")),
		Type:     w.resolveType(node.ChildByFieldName("type")),
		IsPublic: memberPublic(t, mods),
		IsStatic: mods["static"],
	}
	if p.Name == "" {
		return
	}

	accessors := node.ChildByFieldName("accessors")
	if accessors == nil {
		accessors = findChild(node, "accessor_list")
	}
	if accessors == nil {
		// expression-bodied: read only
		p.CanRead = true
	} else {
		for i := uint(0); i < accessors.NamedChildCount(); i++ {
			a := accessors.NamedChild(i)
			if a == nil || a.Kind() != "accessor_declaration" {
				continue
			}
			amods := w.modifiers(a)
			if amods["private"] || amods["protected"] || amods["internal"] {
				continue
			}
			switch w.accessorKind(a) {
			case "get":
				p.CanRead = true
			case "set", "init":
				p.CanWrite = true
			}
		}
	}
	t.Properties = append(t.Properties, p)

	if p.CanRead {
		t.Methods = append(t.Methods, &MethodInfo{
			Name: "get_" + p.Name, ReturnType: p.Type, IsPublic: p.IsPublic,
			IsStatic: p.IsStatic, IsSpecialName: true, Library: w.lib,
		})
	}
	if p.CanWrite {
		t.Methods = append(t.Methods, &MethodInfo{
			Name: "set_" + p.Name, ReturnType: typename.Named("System.Void"),
			Params:   []ParamInfo{{Name: "value", Type: p.Type}},
			IsPublic: p.IsPublic, IsStatic: p.IsStatic, IsSpecialName: true, Library: w.lib,
		})
	}
}

func (w *declWalker) accessorKind(a *tree_sitter.Node) string {
	if n := a.ChildByFieldName("name"); n != nil {
		return w.text(n)
	}
	for i := uint(0); i < a.ChildCount(); i++ {
		c := a.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "get", "set", "init":
			return c.Kind()
		}
	}
	return ""
}

func (w *declWalker) event(t *TypeInfo, node *tree_sitter.Node) {
	mods := w.modifiers(node)
	var names []string
	if decl := findChild(node, "variable_declaration"); decl != nil {
		for i := uint(0); i < decl.NamedChildCount(); i++ {
			if v := decl.NamedChild(i); v != nil && v.Kind() == "variable_declarator" {
				names = append(names, w.text(findChild(v, "identifier")))
			}
		}
	} else if n := node.ChildByFieldName("name"); n != nil {
		names = append(names, w.text(n))
	}
	for _, name := range names {
		for _, prefix := range []string{"add_", "remove_"} {
			t.Methods = append(t.Methods, &MethodInfo{
				Name: prefix + name, ReturnType: typename.Named("System.Void"),
				IsPublic: memberPublic(t, mods), IsStatic: mods["static"],
				IsSpecialName: true, Library: w.lib,
			})
		}
	}
}

func (w *declWalker) method(t *TypeInfo, node *tree_sitter.Node) *MethodInfo {
	mods := w.modifiers(node)
	ret := node.ChildByFieldName("returns")
	if ret == nil {
		ret = node.ChildByFieldName("type")
	}
	isPublic := memberPublic(t, mods)
	if findChild(node, "explicit_interface_specifier") != nil {
		isPublic = false
	}
	return &MethodInfo{
		Name:                w.text(node.ChildByFieldName("name")),
		ReturnType:          w.resolveType(ret),
		Params:              w.params(node.ChildByFieldName("parameters")),
		IsPublic:            isPublic,
		IsStatic:            mods["static"],
		IsGenericDefinition: findChild(node, "type_parameter_list") != nil,
		Library:             w.lib,
	}
}

func (w *declWalker) operatorName(node *tree_sitter.Node) string {
	if node.Kind() == "conversion_operator_declaration" {
		if findChild(node, "implicit") != nil {
			return "Implicit"
		}
		return "Explicit"
	}
	op := w.text(node.ChildByFieldName("operator"))
	if name, ok := operatorNames[op]; ok {
		return name
	}
	return op
}

var operatorNames = map[string]string{
	"+": "Addition", "-": "Subtraction", "*": "Multiply", "/": "Division",
	"%": "Modulus", "==": "Equality", "!=": "Inequality", "<": "LessThan",
	">": "GreaterThan", "<=": "LessThanOrEqual", ">=": "GreaterThanOrEqual",
	"!": "LogicalNot", "~": "OnesComplement", "++": "Increment", "--": "Decrement",
	"&": "BitwiseAnd", "|": "BitwiseOr", "^": "ExclusiveOr",
	"<<": "LeftShift", ">>": "RightShift", "true": "True", "false": "False",
}

func (w *declWalker) params(list *tree_sitter.Node) []ParamInfo {
	if list == nil {
		return nil
	}
	var out []ParamInfo
	for i := uint(0); i < list.NamedChildCount(); i++ {
		p := list.NamedChild(i)
		if p == nil || (p.Kind() != "parameter" && p.Kind() != "parameter_array") {
			continue
		}
		out = append(out, ParamInfo{
			Name: w.text(p.ChildByFieldName("name")),
			Type: w.resolveType(p.ChildByFieldName("type")),
		})
	}
	return out
}

// resolveType turns a type node into a descriptor. Text the type parser
// cannot read is kept as a plain name.
func (w *declWalker) resolveType(node *tree_sitter.Node) *typename.Descriptor {
	text := strings.TrimSpace(w.text(node))
	if text == "" {
		return typename.Named("System.Object")
	}
	d, err := w.h.mapper.Parse(text)
	if err != nil {
		return &typename.Descriptor{Name: text}
	}
	return d
}

// modifiers returns the set of modifier keywords on a declaration
func (w *declWalker) modifiers(node *tree_sitter.Node) map[string]bool {
	mods := make(map[string]bool)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch kind := child.Kind(); kind {
		case "modifier":
			mods[strings.TrimSpace(w.text(child))] = true
		case "public", "private", "protected", "internal", "static", "abstract",
			"sealed", "readonly", "const", "virtual", "override", "partial":
			mods[kind] = true
		}
	}
	return mods
}

func (w *declWalker) hasAttribute(node *tree_sitter.Node, name string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		list := node.Child(i)
		if list == nil || list.Kind() != "attribute_list" {
			continue
		}
		for j := uint(0); j < list.NamedChildCount(); j++ {
			attr := list.NamedChild(j)
			if attr == nil || attr.Kind() != "attribute" {
				continue
			}
			n := w.text(attr.ChildByFieldName("name"))
			if idx := strings.LastIndex(n, "."); idx >= 0 {
				n = n[idx+1:]
			}
			if n == name || n == name+"Attribute" {
				return true
			}
		}
	}
	return false
}

func (w *declWalker) text(node *tree_sitter.Node) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > uint(len(w.content)) || end > uint(len(w.content)) || start > end {
		return ""
	}
	return string(w.content[start:end])
}

// findChild returns the first child of the given kind
func findChild(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if c := node.Child(i); c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

func firstNamedChild(node *tree_sitter.Node) *tree_sitter.Node {
	if node == nil || node.NamedChildCount() == 0 {
		return nil
	}
	return node.NamedChild(0)
}

func joinName(ns, name string) string {
	switch {
	case ns == "":
		return name
	case name == "":
		return ns
	}
	return ns + "." + name
}
