package catalog

import (
	"context"
	"fmt"

	"github.com/standardbeagle/csac/internal/debug"
	csacerrors "github.com/standardbeagle/csac/internal/errors"
	"github.com/standardbeagle/csac/internal/library"
	"github.com/standardbeagle/csac/internal/typename"
	"github.com/standardbeagle/csac/internal/types"
)

// Report summarizes one populate pass
type Report struct {
	Libraries int     `json:"libraries" yaml:"libraries"`
	Types     int     `json:"types" yaml:"types"`
	Skipped   int     `json:"skipped" yaml:"skipped"`
	Failed    []error `json:"-" yaml:"-"`
}

// Merge adds the counts and failures of o to r
func (r *Report) Merge(o Report) {
	r.Libraries += o.Libraries
	r.Types += o.Types
	r.Skipped += o.Skipped
	r.Failed = append(r.Failed, o.Failed...)
}

// Err aggregates the recorded failures, or nil
func (r Report) Err() error {
	return csacerrors.NewMultiError(r.Failed).ErrorOrNil()
}

// Populate catalogs the public types of every library not yet present.
// loaded holds the paths of the libraries loaded in the session; methods
// declared elsewhere are marked unusable. Types that cannot be read are
// skipped and reported. The only error returned is cancellation.
func (c *Catalog) Populate(ctx context.Context, libs []*library.Library, loaded map[string]bool) (Report, error) {
	var report Report

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, lib := range libs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if lib == nil || c.libraries[lib.Path] || library.IsExecutable(lib.Path) {
			continue
		}
		c.populateLocked(lib, loaded, &report)
	}

	debug.LogCatalog("%s: populated %d libraries, %d types, %d skipped\n",
		c.name, report.Libraries, report.Types, report.Skipped)
	return report, nil
}

// Refresh catalogs the types of a library that was harvested again.
// Entries already present stay as they are; new types are appended.
func (c *Catalog) Refresh(lib *library.Library, loaded map[string]bool) Report {
	var report Report
	if lib == nil || library.IsExecutable(lib.Path) {
		return report
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.populateLocked(lib, loaded, &report)
	debug.LogCatalog("%s: refreshed %s, %d new types\n", c.name, lib.Name, report.Types)
	return report
}

func (c *Catalog) populateLocked(lib *library.Library, loaded map[string]bool, report *Report) {
	for _, t := range lib.Types {
		if !t.IsPublic || t.IsGenericDefinition {
			continue
		}
		if t.Err != nil {
			report.Skipped++
			report.Failed = append(report.Failed, csacerrors.NewTypeError(t.FullName(), lib.Name, t.Err))
			continue
		}
		entry, isStatic := c.buildEntry(t, lib, loaded)
		if c.addEntryLocked(entry, isStatic) {
			report.Types++
		}
	}
	c.libraries[lib.Path] = true
	report.Libraries++
}

// classify picks the construct kind of a type. System.Decimal is neither
// a struct nor a primitive, so it falls through to Class.
func classify(t *library.TypeInfo) types.ConstructKind {
	switch {
	case t.IsEnum:
		return types.KindEnum
	case t.IsInterface:
		return types.KindInterface
	case t.IsPrimitive:
		return types.KindBuiltinType
	case t.IsValueType && t.FullName() != "System.Decimal":
		return types.KindStruct
	case t.IsStaticClass():
		return types.KindStaticClass
	}
	return types.KindClass
}

func (c *Catalog) buildEntry(t *library.TypeInfo, lib *library.Library, loaded map[string]bool) (*Entry, bool) {
	kind := classify(t)
	entry := NewEntry(t.Name, lib.Path, t.Namespace, kind)
	entry.ConstructType = t.Descriptor()
	entry.Modifiers = types.ModPublic
	if t.IsAbstract && kind != types.KindStaticClass && kind != types.KindInterface {
		entry.Modifiers |= types.ModAbstract
	}
	if t.IsSealed && kind == types.KindClass {
		entry.Modifiers |= types.ModSealed
	}

	if kind == types.KindEnum {
		entry.Enum = enumDescription(t)
		return entry, false
	}

	for _, f := range t.Fields {
		if !f.IsPublic {
			continue
		}
		field := NewEntry(f.Name, lib.Path, t.FullName(), types.KindField)
		field.ReturnType = f.Type
		field.Modifiers = types.ModPublic | scope(f.IsStatic)
		if f.IsReadonly {
			field.Modifiers |= types.ModReadonly
		}
		field.CanWrite = !f.IsConst && !f.IsReadonly
		entry.AddField(field)
	}

	// public instance, then public static, then non-public interface members
	for _, pass := range []struct {
		match  func(*library.PropertyInfo) bool
		access types.Modifiers
	}{
		{func(p *library.PropertyInfo) bool { return p.IsPublic && !p.IsStatic }, types.ModPublic},
		{func(p *library.PropertyInfo) bool { return p.IsPublic && p.IsStatic }, types.ModPublic},
		{func(p *library.PropertyInfo) bool { return t.IsInterface && !p.IsPublic }, types.ModPrivate},
	} {
		for _, p := range t.Properties {
			if !pass.match(p) {
				continue
			}
			prop := NewEntry(p.Name, lib.Path, t.FullName(), types.KindProperty)
			prop.ReturnType = p.Type
			prop.Modifiers = pass.access | scope(p.IsStatic)
			prop.CanRead = p.CanRead
			prop.CanWrite = p.CanWrite
			entry.AddProperty(prop)
		}
	}

	for _, m := range t.Methods {
		if !m.IsPublic || m.IsSpecialName {
			continue
		}
		entry.AddMethod(methodDescription(m, loaded))
	}
	if t.IsInterface {
		for _, m := range t.Methods {
			if m.IsPublic || m.IsSpecialName {
				continue
			}
			md := methodDescription(m, loaded)
			md.IsPrivate = true
			entry.AddMethod(md)
		}
	}

	for _, ctor := range t.Constructors {
		if !ctor.IsPublic {
			continue
		}
		md := methodDescription(ctor, loaded)
		md.Name = t.Name
		md.ReturnType = t.Descriptor()
		md.IsConstructor = true
		entry.AddMethod(md)
	}

	return entry, kind == types.KindStaticClass
}

func scope(static bool) types.Modifiers {
	if static {
		return types.ModStatic
	}
	return types.ModInstance
}

func methodDescription(m *library.MethodInfo, loaded map[string]bool) *MethodDescription {
	md := &MethodDescription{
		Name:       m.Name,
		ReturnType: m.ReturnType,
		IsStatic:   m.IsStatic,
		IsPrivate:  !m.IsPublic,
		IsUsable:   loaded[m.Library],
	}
	for _, p := range m.Params {
		md.Args = append(md.Args, Argument{Name: p.Name, Type: p.Type})
	}
	return md
}

func enumDescription(t *library.TypeInfo) *EnumDescription {
	base := t.EnumUnderlying
	if base == nil {
		base = typename.Named("System.Int32")
	}
	d := &EnumDescription{Name: t.Name, BaseType: base, Flags: t.IsFlags}
	for _, v := range t.EnumValues {
		// compiler-emitted backing field
		if v.Name == "value__" {
			continue
		}
		d.Values = append(d.Values, EnumValue{Name: v.Name, Value: v.Value})
	}
	return d
}

// String renders a one-line summary of the report
func (r Report) String() string {
	return fmt.Sprintf("%d libraries, %d types, %d skipped, %d failed",
		r.Libraries, r.Types, r.Skipped, len(r.Failed))
}
