// Package library loads C# libraries from declaration sources and exposes
// their public surface as a small reflection model (types, members,
// parameters) for the completion catalog.
package library

import (
	"path/filepath"
	"strings"

	"github.com/standardbeagle/csac/internal/typename"
)

// Library is a loaded set of declaration files sharing one name.
type Library struct {
	Name  string   `json:"name" yaml:"name"`
	Path  string   `json:"path" yaml:"path"`
	Files []string `json:"files" yaml:"files"`
	Hash  uint64   `json:"hash" yaml:"hash"`
	Types []*TypeInfo
}

// TypeInfo describes one declared type.
type TypeInfo struct {
	Name      string
	Namespace string
	File      string
	Library   string

	IsPublic            bool
	IsClass             bool
	IsInterface         bool
	IsValueType         bool
	IsEnum              bool
	IsAbstract          bool
	IsSealed            bool
	IsPrimitive         bool
	IsGenericDefinition bool
	IsFlags             bool

	// EnumUnderlying is nil for enums declared without a base type (int).
	EnumUnderlying *typename.Descriptor

	Fields       []*FieldInfo
	Properties   []*PropertyInfo
	Methods      []*MethodInfo
	Constructors []*MethodInfo
	EnumValues   []EnumValue

	// Err is set when the declaration could not be read cleanly. Member
	// lists of such a type must not be trusted.
	Err error
}

// FullName returns Namespace.Name, or Name for the global namespace.
func (t *TypeInfo) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// Descriptor returns the type descriptor naming this type.
func (t *TypeInfo) Descriptor() *typename.Descriptor {
	return &typename.Descriptor{Namespace: t.Namespace, Name: t.Name}
}

// IsStaticClass reports the abstract+sealed pair the compiler emits for
// static classes.
func (t *TypeInfo) IsStaticClass() bool {
	return t.IsClass && t.IsAbstract && t.IsSealed
}

// FieldInfo describes a field or constant.
type FieldInfo struct {
	Name       string
	Type       *typename.Descriptor
	IsPublic   bool
	IsStatic   bool
	IsConst    bool
	IsReadonly bool
}

// PropertyInfo describes a property. CanRead and CanWrite only count
// accessors visible to callers.
type PropertyInfo struct {
	Name     string
	Type     *typename.Descriptor
	IsPublic bool
	IsStatic bool
	CanRead  bool
	CanWrite bool
}

// ParamInfo is one method parameter.
type ParamInfo struct {
	Name string
	Type *typename.Descriptor
}

// MethodInfo describes a method, constructor or compiler-generated accessor.
type MethodInfo struct {
	Name                string
	ReturnType          *typename.Descriptor
	Params              []ParamInfo
	IsPublic            bool
	IsStatic            bool
	IsSpecialName       bool
	IsGenericDefinition bool
	// Library is the path of the library declaring the method.
	Library string
}

// EnumValue is one named enum constant.
type EnumValue struct {
	Name  string `json:"name" yaml:"name"`
	Value int64  `json:"value" yaml:"value"`
}

// IsExecutable reports whether path names an executable image. Executables
// are never harvested as libraries.
func IsExecutable(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".exe")
}
