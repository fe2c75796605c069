package analysis

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"

	"github.com/standardbeagle/csac/internal/debug"
	csacerrors "github.com/standardbeagle/csac/internal/errors"
	"github.com/standardbeagle/csac/internal/typename"
)

// MemberResolver returns the type of a member of a type declared outside
// the document, or nil when unknown
type MemberResolver func(owner *typename.Descriptor, member string) *typename.Descriptor

// Workspace is an Engine over a tree-sitter parse of one C# document.
// Scopes are read from the syntax tree; types come from declarations and
// simple initializers. Types declared in libraries are reached through the
// MemberResolver.
type Workspace struct {
	mapper  *typename.Mapper
	members MemberResolver
	lang    *tree_sitter.Language

	// tree-sitter trees are not shared across goroutines, so queries
	// serialize too
	mu      sync.Mutex
	src     []byte
	tree    *tree_sitter.Tree
	updates int
	closed  bool
}

type WorkspaceOption func(*Workspace)

func WithMapper(m *typename.Mapper) WorkspaceOption {
	return func(w *Workspace) { w.mapper = m }
}

// WithMemberResolver sets the lookup used for members of library types
func WithMemberResolver(r MemberResolver) WorkspaceOption {
	return func(w *Workspace) { w.members = r }
}

func NewWorkspace(opts ...WorkspaceOption) *Workspace {
	w := &Workspace{
		mapper: typename.Default(),
		lang:   tree_sitter.NewLanguage(tree_sitter_csharp.Language()),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Update parses text and makes it the analyzed document. Syntax errors do
// not fail the update; the tree keeps whatever could be recovered.
func (w *Workspace) Update(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src := []byte(text)

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(w.lang); err != nil {
		return csacerrors.NewAnalysisError("update", 0, fmt.Errorf("set C# language: %w", err))
	}
	tree := parser.Parse(src, nil)
	if tree == nil {
		return csacerrors.NewAnalysisError("update", 0, fmt.Errorf("no tree produced"))
	}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		tree.Close()
		return csacerrors.ErrClosed
	}
	old := w.tree
	w.src, w.tree = src, tree
	w.updates++
	w.mu.Unlock()
	if old != nil {
		old.Close()
	}

	if tree.RootNode().HasError() {
		debug.LogAnalysis("document has syntax errors, %d bytes\n", len(src))
	}
	return nil
}

// Updates returns how many times the document was re-bound
func (w *Workspace) Updates() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updates
}

// Close releases the syntax tree. Later updates fail with ErrClosed.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	if w.tree != nil {
		w.tree.Close()
		w.tree = nil
	}
}

// RecommendedSymbols lists the locals, parameters and members of the
// enclosing types visible at offset, innermost first.
func (w *Workspace) RecommendedSymbols(ctx context.Context, offset int) ([]Symbol, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tree == nil {
		return nil, ErrNotAnalyzed
	}
	if offset < 0 || offset > len(w.src) {
		return nil, csacerrors.NewAnalysisError("symbols", offset, csacerrors.ErrIndexOutOfRange)
	}
	return w.scope(uint(offset), 0).symbols(), nil
}

// TypeOfExpression returns the type of the expression spanning
// [start, end), or nil when it cannot be inferred.
func (w *Workspace) TypeOfExpression(ctx context.Context, start, end int) (*typename.Descriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.tree == nil {
		return nil, ErrNotAnalyzed
	}
	if start < 0 || end > len(w.src) || start > end {
		return nil, csacerrors.NewAnalysisError("type of", start, csacerrors.ErrIndexOutOfRange)
	}

	root := w.tree.RootNode()
	node := root.NamedDescendantForByteRange(uint(start), uint(end))
	// widen to the outermost node with exactly this range
	for node != nil {
		parent := node.Parent()
		if parent == nil || parent.StartByte() != node.StartByte() || parent.EndByte() != node.EndByte() {
			break
		}
		node = parent
	}
	if node != nil && int(node.StartByte()) == start && int(node.EndByte()) == end && !node.IsError() {
		return w.infer(node, 0), nil
	}

	// error recovery can leave the range without a node of its own
	text := strings.TrimSpace(string(w.src[start:end]))
	return w.inferText(text, uint(start), 0), nil
}

const maxInferDepth = 8

// infer returns the static type of an expression node
func (w *Workspace) infer(node *tree_sitter.Node, depth int) *typename.Descriptor {
	if node == nil || depth > maxInferDepth {
		return nil
	}
	switch node.Kind() {
	case "string_literal", "verbatim_string_literal", "raw_string_literal", "interpolated_string_expression":
		return typename.Named("System.String")
	case "character_literal":
		return typename.Named("System.Char")
	case "boolean_literal", "is_expression", "is_pattern_expression":
		return typename.Named("System.Boolean")
	case "integer_literal":
		return integerType(w.text(node))
	case "real_literal":
		return realType(w.text(node))
	case "typeof_expression":
		return typename.Named("System.Type")
	case "object_creation_expression", "array_creation_expression", "cast_expression", "default_expression":
		if t := node.ChildByFieldName("type"); t != nil {
			return w.parseType(t)
		}
	case "parenthesized_expression":
		return w.infer(firstNamed(node), depth+1)
	case "this_expression", "this":
		return w.enclosingType(node)
	case "identifier":
		return w.lookup(w.text(node), node.StartByte(), depth+1)
	case "member_access_expression":
		owner := w.infer(node.ChildByFieldName("expression"), depth+1)
		if owner == nil {
			// static access through a type name
			owner = w.typeNamed(w.text(node.ChildByFieldName("expression")))
		}
		return w.memberType(owner, w.text(node.ChildByFieldName("name")))
	case "invocation_expression":
		fn := node.ChildByFieldName("function")
		if fn == nil {
			return nil
		}
		switch fn.Kind() {
		case "member_access_expression":
			return w.infer(fn, depth+1)
		case "identifier":
			return w.memberType(w.enclosingType(node), w.text(fn))
		}
	case "conditional_expression":
		return w.infer(node.ChildByFieldName("consequence"), depth+1)
	case "await_expression":
		return unwrapTask(w.infer(firstNamed(node), depth+1))
	}
	return nil
}

// inferText resolves a dotted identifier chain such as "a.b.c" or a
// literal, for ranges the parser could not give a node.
func (w *Workspace) inferText(text string, at uint, depth int) *typename.Descriptor {
	switch {
	case text == "":
		return nil
	case strings.HasPrefix(text, "\"") || strings.HasPrefix(text, "@\"") || strings.HasPrefix(text, "$\""):
		return typename.Named("System.String")
	case strings.HasPrefix(text, "'"):
		return typename.Named("System.Char")
	case text == "true" || text == "false":
		return typename.Named("System.Boolean")
	case text[0] >= '0' && text[0] <= '9':
		if strings.ContainsAny(text, ".eE") && !strings.HasPrefix(text, "0x") {
			return realType(text)
		}
		return integerType(text)
	}

	parts := strings.Split(text, ".")
	head := strings.TrimSuffix(strings.TrimSpace(parts[0]), "()")
	var owner *typename.Descriptor
	if head == "this" {
		owner = w.enclosingType(w.tree.RootNode().NamedDescendantForByteRange(at, at))
	} else {
		owner = w.lookup(head, at, depth+1)
		if owner == nil {
			owner = w.typeNamed(head)
		}
	}
	for _, part := range parts[1:] {
		if owner == nil {
			return nil
		}
		owner = w.memberType(owner, strings.TrimSuffix(strings.TrimSpace(part), "()"))
	}
	return owner
}

// lookup finds the type of a name visible at offset
func (w *Workspace) lookup(name string, at uint, depth int) *typename.Descriptor {
	if name == "" || depth > maxInferDepth {
		return nil
	}
	if t, ok := w.scope(at, depth).typeOf(name); ok {
		return t
	}
	// declarations that error recovery detached from their scope
	if sym := w.nearestDeclaration(name, at, depth); sym != nil {
		return sym.Type
	}
	return nil
}

// typeNamed returns the descriptor of a type declared in the document or a
// keyword alias, or nil
func (w *Workspace) typeNamed(name string) *typename.Descriptor {
	if name == "" {
		return nil
	}
	if d := w.mapper.FullType(name); d != nil {
		return d
	}
	if decl := w.findTypeDecl(w.tree.RootNode(), name); decl != nil {
		return w.declDescriptor(decl)
	}
	return nil
}

// memberType returns the type of a member of owner. Document types are
// searched first, then the member resolver.
func (w *Workspace) memberType(owner *typename.Descriptor, member string) *typename.Descriptor {
	if owner == nil || member == "" {
		return nil
	}
	if owner.IsArray() && member == "Length" {
		return typename.Named("System.Int32")
	}
	if decl := w.findTypeDecl(w.tree.RootNode(), owner.Name); decl != nil {
		if body := decl.ChildByFieldName("body"); body != nil {
			for i := uint(0); i < body.NamedChildCount(); i++ {
				m := body.NamedChild(i)
				if m == nil {
					continue
				}
				if sym, ok := w.memberSymbol(m, member); ok {
					return sym.Type
				}
			}
		}
	}
	if w.members != nil {
		return w.members(owner, member)
	}
	return nil
}

// findTypeDecl finds a type declaration by simple name anywhere in the tree
func (w *Workspace) findTypeDecl(node *tree_sitter.Node, name string) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	if isTypeDecl(node.Kind()) && w.text(node.ChildByFieldName("name")) == name {
		return node
	}
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if found := w.findTypeDecl(node.NamedChild(i), name); found != nil {
			return found
		}
	}
	return nil
}

// enclosingType returns the descriptor of the innermost type around node
func (w *Workspace) enclosingType(node *tree_sitter.Node) *typename.Descriptor {
	for n := node; n != nil; n = n.Parent() {
		if isTypeDecl(n.Kind()) {
			return w.declDescriptor(n)
		}
	}
	return nil
}

func (w *Workspace) declDescriptor(decl *tree_sitter.Node) *typename.Descriptor {
	var parts []string
	for n := decl.Parent(); n != nil; n = n.Parent() {
		switch n.Kind() {
		case "namespace_declaration":
			parts = append([]string{w.text(n.ChildByFieldName("name"))}, parts...)
		case "compilation_unit":
			if fs := findKind(n, "file_scoped_namespace_declaration"); fs != nil {
				parts = append([]string{w.text(fs.ChildByFieldName("name"))}, parts...)
			}
		}
	}
	name := w.text(decl.ChildByFieldName("name"))
	if len(parts) == 0 {
		return &typename.Descriptor{Name: name}
	}
	return &typename.Descriptor{Namespace: strings.Join(parts, "."), Name: name}
}

func (w *Workspace) parseType(node *tree_sitter.Node) *typename.Descriptor {
	text := strings.TrimSpace(w.text(node))
	if text == "" || text == "var" {
		return nil
	}
	d, err := w.mapper.Parse(text)
	if err != nil {
		return &typename.Descriptor{Name: text}
	}
	return d
}

func (w *Workspace) text(node *tree_sitter.Node) string {
	if node == nil {
		return ""
	}
	start, end := node.StartByte(), node.EndByte()
	if start > end || end > uint(len(w.src)) {
		return ""
	}
	return string(w.src[start:end])
}

func isTypeDecl(kind string) bool {
	switch kind {
	case "class_declaration", "struct_declaration", "interface_declaration",
		"record_declaration", "record_struct_declaration", "enum_declaration":
		return true
	}
	return false
}

func findKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < node.NamedChildCount(); i++ {
		if c := node.NamedChild(i); c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

func firstNamed(node *tree_sitter.Node) *tree_sitter.Node {
	if node == nil || node.NamedChildCount() == 0 {
		return nil
	}
	return node.NamedChild(0)
}

func integerType(lit string) *typename.Descriptor {
	lower := strings.ToLower(lit)
	switch {
	case strings.HasSuffix(lower, "ul") || strings.HasSuffix(lower, "lu"):
		return typename.Named("System.UInt64")
	case strings.HasSuffix(lower, "l"):
		return typename.Named("System.Int64")
	case strings.HasSuffix(lower, "u"):
		return typename.Named("System.UInt32")
	}
	return typename.Named("System.Int32")
}

func realType(lit string) *typename.Descriptor {
	switch strings.ToLower(lit[len(lit)-1:]) {
	case "f":
		return typename.Named("System.Single")
	case "m":
		return typename.Named("System.Decimal")
	}
	return typename.Named("System.Double")
}

// unwrapTask turns Task<T> into T
func unwrapTask(d *typename.Descriptor) *typename.Descriptor {
	if d != nil && (d.Name == "Task" || d.Name == "ValueTask") && len(d.Args) == 1 {
		return d.Args[0]
	}
	return d
}
