package types

import (
	"fmt"
	"strings"
)

// ConstructKind tags what a catalog entry or completion word represents.
// The numeric values are sent to the editor as icon ordinals and must not change.
type ConstructKind int

const (
	KindUndefined ConstructKind = iota
	KindKeyword
	KindBuiltinType
	KindClass
	KindStaticClass
	KindProperty
	KindMethod
	KindField
	KindVariable
	KindLocalVariable
	KindStruct
	KindTuple
	KindEnum
	KindInterface
	KindConstructor
	KindTypeParameter
	KindConstant
	KindEvent
	KindOperator
	KindModule
	KindAttribute
	KindValue
	KindReference
	KindUnit
	KindSnippet
	KindString
	KindChar
)

var constructKindNames = [...]string{
	KindUndefined:     "undefined",
	KindKeyword:       "keyword",
	KindBuiltinType:   "builtin_type",
	KindClass:         "class",
	KindStaticClass:   "static_class",
	KindProperty:      "property",
	KindMethod:        "method",
	KindField:         "field",
	KindVariable:      "variable",
	KindLocalVariable: "local_variable",
	KindStruct:        "struct",
	KindTuple:         "tuple",
	KindEnum:          "enum",
	KindInterface:     "interface",
	KindConstructor:   "constructor",
	KindTypeParameter: "type_parameter",
	KindConstant:      "constant",
	KindEvent:         "event",
	KindOperator:      "operator",
	KindModule:        "module",
	KindAttribute:     "attribute",
	KindValue:         "value",
	KindReference:     "reference",
	KindUnit:          "unit",
	KindSnippet:       "snippet",
	KindString:        "string",
	KindChar:          "char",
}

// String returns the lowercase name of the kind
func (k ConstructKind) String() string {
	if k < 0 || int(k) >= len(constructKindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return constructKindNames[k]
}

// Valid reports whether k is one of the known kinds
func (k ConstructKind) Valid() bool {
	return k >= 0 && int(k) < len(constructKindNames)
}

// IsType reports whether entries of this kind describe a type rather than a member
func (k ConstructKind) IsType() bool {
	switch k {
	case KindClass, KindStaticClass, KindStruct, KindInterface, KindEnum, KindBuiltinType:
		return true
	}
	return false
}

// AllConstructKinds returns every kind in ordinal order
func AllConstructKinds() []ConstructKind {
	out := make([]ConstructKind, len(constructKindNames))
	for i := range constructKindNames {
		out[i] = ConstructKind(i)
	}
	return out
}

// ParseConstructKind accepts the lowercase name, the Go-style name without the
// Kind prefix ("StaticClass") or the ordinal as a decimal string.
func ParseConstructKind(s string) (ConstructKind, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for i, name := range constructKindNames {
		if norm == name || norm == strings.ReplaceAll(name, "_", "") {
			return ConstructKind(i), nil
		}
	}
	var ordinal int
	if _, err := fmt.Sscanf(norm, "%d", &ordinal); err == nil && ConstructKind(ordinal).Valid() {
		return ConstructKind(ordinal), nil
	}
	return KindUndefined, fmt.Errorf("unknown construct kind %q", s)
}

// Modifiers is a bit set of declaration modifiers carried by catalog entries
type Modifiers uint16

const (
	ModPublic Modifiers = 1 << iota
	ModPrivate
	ModProtected
	ModInternal
	ModStatic
	ModInstance
	ModAbstract
	ModSealed
	ModReadonly
)

var modifierNames = []struct {
	mod  Modifiers
	name string
}{
	{ModPublic, "public"},
	{ModPrivate, "private"},
	{ModProtected, "protected"},
	{ModInternal, "internal"},
	{ModStatic, "static"},
	{ModInstance, "instance"},
	{ModAbstract, "abstract"},
	{ModSealed, "sealed"},
	{ModReadonly, "readonly"},
}

// Has reports whether every bit of m2 is set in m
func (m Modifiers) Has(m2 Modifiers) bool {
	return m&m2 == m2
}

func (m Modifiers) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	for _, mn := range modifierNames {
		if m&mn.mod != 0 {
			parts = append(parts, mn.name)
		}
	}
	return strings.Join(parts, "|")
}

// HighlightStyle tags a span of call-tip body text for rendering.
// HighlightNone is used for gap fill.
type HighlightStyle int

const (
	HighlightNone HighlightStyle = iota
	HighlightType
	HighlightReturnValueType
	HighlightArgumentName
	HighlightOpeningBracket
	HighlightClosingBracket
	HighlightBodyName
)

var highlightStyleNames = [...]string{
	HighlightNone:            "None",
	HighlightType:            "Type",
	HighlightReturnValueType: "ReturnValueType",
	HighlightArgumentName:    "ArgumentName",
	HighlightOpeningBracket:  "OpeningBracket",
	HighlightClosingBracket:  "ClosingBracket",
	HighlightBodyName:        "BodyName",
}

func (s HighlightStyle) String() string {
	if s < 0 || int(s) >= len(highlightStyleNames) {
		return fmt.Sprintf("style(%d)", int(s))
	}
	return highlightStyleNames[s]
}

// AllHighlightStyles returns every style in ordinal order
func AllHighlightStyles() []HighlightStyle {
	out := make([]HighlightStyle, len(highlightStyleNames))
	for i := range highlightStyleNames {
		out[i] = HighlightStyle(i)
	}
	return out
}

// ParseHighlightStyle matches a style name case-insensitively
func ParseHighlightStyle(s string) (HighlightStyle, error) {
	for i, name := range highlightStyleNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return HighlightStyle(i), nil
		}
	}
	return HighlightNone, fmt.Errorf("unknown highlight style %q", s)
}

// MarshalText renders the kind by name in JSON and YAML output
func (k ConstructKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ConstructKind) UnmarshalText(text []byte) error {
	parsed, err := ParseConstructKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (m Modifiers) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText reads the "|"-joined form produced by String
func (m *Modifiers) UnmarshalText(text []byte) error {
	var out Modifiers
	for _, part := range strings.Split(string(text), "|") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || part == "none" {
			continue
		}
		found := false
		for _, mn := range modifierNames {
			if mn.name == part {
				out |= mn.mod
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown modifier %q", part)
		}
	}
	*m = out
	return nil
}

func (s HighlightStyle) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *HighlightStyle) UnmarshalText(text []byte) error {
	parsed, err := ParseHighlightStyle(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
