package calltip

import (
	"strings"

	"github.com/standardbeagle/csac/internal/catalog"
	"github.com/standardbeagle/csac/internal/typename"
	"github.com/standardbeagle/csac/internal/types"
)

// Assemble formats the members of owner: methods, then properties, then
// fields, each in catalog order. Enum owners list their constants as
// fields. Methods from libraries that are not loaded and non-public
// members are kept but marked Unavailable. withReturnType prefixes method
// bodies with the return type, as the navigable popup shows them.
func Assemble(owner *catalog.Entry, mapper *typename.Mapper, withReturnType bool) []*Entry {
	if owner == nil {
		return nil
	}
	if mapper == nil {
		mapper = typename.Default()
	}

	var out []*Entry
	for _, m := range owner.Methods {
		e := Method(m, mapper, withReturnType)
		e.Unavailable = !m.IsUsable || m.IsPrivate
		out = append(out, e)
	}
	for _, p := range owner.Properties {
		e := Member(p, mapper)
		e.Unavailable = p.Modifiers.Has(types.ModPrivate)
		out = append(out, e)
	}
	for _, f := range owner.Fields {
		e := Member(f, mapper)
		e.Unavailable = f.Modifiers.Has(types.ModPrivate)
		out = append(out, e)
	}
	if owner.Enum != nil {
		for _, v := range owner.Enum.Values {
			e := NewEntry(v.Name, v.Name, owner.Name, types.KindField)
			e.AddSpan(0, len(v.Name), types.HighlightBodyName)
			out = append(out, e)
		}
	}
	return out
}

// Method formats one method as "[ret ]Name(T a, U b)"
func Method(m *catalog.MethodDescription, mapper *typename.Mapper, withReturnType bool) *Entry {
	var (
		sb    strings.Builder
		spans []Span
	)
	mark := func(text string, style types.HighlightStyle) {
		spans = append(spans, Span{Start: sb.Len(), Length: len(text), Style: style})
		sb.WriteString(text)
	}

	returnType := mapper.ShortName(m.ReturnType)
	if withReturnType && !m.IsConstructor && returnType != "" {
		mark(returnType, types.HighlightReturnValueType)
		sb.WriteByte(' ')
	}
	mark(m.Name, types.HighlightBodyName)
	mark("(", types.HighlightOpeningBracket)
	for i, a := range m.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		mark(mapper.ShortName(a.Type), types.HighlightType)
		sb.WriteByte(' ')
		mark(a.Name, types.HighlightArgumentName)
	}
	mark(")", types.HighlightClosingBracket)

	kind := types.KindMethod
	if m.IsConstructor {
		kind = types.KindConstructor
	}
	e := &Entry{
		BodyText:             sb.String(),
		BodyTextNoParameters: m.Name,
		TypeText:             returnType,
		Kind:                 kind,
		added:                spans,
	}
	e.fill()
	return e
}

// Member formats a property or field by its bare name
func Member(member *catalog.Entry, mapper *typename.Mapper) *Entry {
	name := member.Name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	e := NewEntry(name, name, mapper.ShortName(member.ReturnType), member.Kind)
	e.AddSpan(0, len(name), types.HighlightBodyName)
	return e
}
