package library

import (
	"fmt"
	"strconv"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// enumValues reads the members of an enum body. Members without an
// initializer take the previous value plus one, starting at zero.
func (w *declWalker) enumValues(body *tree_sitter.Node) []EnumValue {
	if body == nil {
		return nil
	}
	var out []EnumValue
	known := make(map[string]int64)
	next := int64(0)
	for i := uint(0); i < body.NamedChildCount(); i++ {
		m := body.NamedChild(i)
		if m == nil || m.Kind() != "enum_member_declaration" {
			continue
		}
		name := w.text(m.ChildByFieldName("name"))
		if name == "" {
			name = w.text(findChild(m, "identifier"))
		}
		value := next
		if expr := m.ChildByFieldName("value"); expr != nil {
			if v, err := w.evalConst(expr, known); err == nil {
				value = v
			}
		}
		known[name] = value
		out = append(out, EnumValue{Name: name, Value: value})
		next = value + 1
	}
	return out
}

// evalConst evaluates the integer constant expressions enum initializers use:
// literals, earlier members, casts, unary and binary arithmetic.
func (w *declWalker) evalConst(node *tree_sitter.Node, known map[string]int64) (int64, error) {
	switch node.Kind() {
	case "integer_literal":
		return parseIntLiteral(w.text(node))
	case "character_literal":
		s := strings.Trim(w.text(node), "'")
		if r := []rune(s); len(r) == 1 {
			return int64(r[0]), nil
		}
		return 0, fmt.Errorf("unsupported character literal %q", s)
	case "identifier":
		if v, ok := known[w.text(node)]; ok {
			return v, nil
		}
		return 0, fmt.Errorf("unknown constant %q", w.text(node))
	case "member_access_expression":
		return w.evalConst(node.ChildByFieldName("name"), known)
	case "parenthesized_expression":
		if inner := firstNamedChild(node); inner != nil {
			return w.evalConst(inner, known)
		}
	case "cast_expression":
		if v := node.ChildByFieldName("value"); v != nil {
			return w.evalConst(v, known)
		}
	case "prefix_unary_expression":
		operand := firstNamedChild(node)
		if operand == nil {
			break
		}
		v, err := w.evalConst(operand, known)
		if err != nil {
			return 0, err
		}
		switch op := strings.TrimSpace(strings.TrimSuffix(w.text(node), w.text(operand))); op {
		case "-":
			return -v, nil
		case "~":
			return ^v, nil
		case "+":
			return v, nil
		}
	case "binary_expression":
		l, err := w.evalConst(node.ChildByFieldName("left"), known)
		if err != nil {
			return 0, err
		}
		r, err := w.evalConst(node.ChildByFieldName("right"), known)
		if err != nil {
			return 0, err
		}
		switch w.text(node.ChildByFieldName("operator")) {
		case "|":
			return l | r, nil
		case "&":
			return l & r, nil
		case "^":
			return l ^ r, nil
		case "<<":
			return l << uint64(r), nil
		case ">>":
			return l >> uint64(r), nil
		case "+":
			return l + r, nil
		case "-":
			return l - r, nil
		case "*":
			return l * r, nil
		}
	}
	return 0, fmt.Errorf("unsupported constant expression %q", w.text(node))
}

// parseIntLiteral reads decimal, hex and binary C# integer literals with
// optional digit separators and type suffixes.
func parseIntLiteral(text string) (int64, error) {
	s := strings.ReplaceAll(strings.ToLower(text), "_", "")
	s = strings.TrimRight(s, "ul")
	base := 10
	switch {
	case strings.HasPrefix(s, "0x"):
		base, s = 16, s[2:]
	case strings.HasPrefix(s, "0b"):
		base, s = 2, s[2:]
	}
	u, err := strconv.ParseUint(s, base, 64)
	if err != nil {
		return 0, fmt.Errorf("integer literal %q: %w", text, err)
	}
	return int64(u), nil
}
