// Package typename maps library type descriptors to the short names a C#
// developer expects to read in completion popups, and back.
package typename

import (
	"strconv"
	"strings"
)

// Descriptor identifies a type the way a reflection pass would expose it.
// Exactly one of the shapes applies: array (Elem != nil), generic
// (len(Args) > 0) or plain.
type Descriptor struct {
	Namespace string        `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Name      string        `json:"name" yaml:"name"`
	Args      []*Descriptor `json:"args,omitempty" yaml:"args,omitempty"`
	Elem      *Descriptor   `json:"elem,omitempty" yaml:"elem,omitempty"`
	Rank      int           `json:"rank,omitempty" yaml:"rank,omitempty"`
}

// Named builds a plain descriptor from a dotted full name
func Named(fullName string) *Descriptor {
	if i := strings.LastIndex(fullName, "."); i >= 0 {
		return &Descriptor{Namespace: fullName[:i], Name: fullName[i+1:]}
	}
	return &Descriptor{Name: fullName}
}

// Generic builds a generic instantiation of def with the given arguments
func Generic(def *Descriptor, args ...*Descriptor) *Descriptor {
	return &Descriptor{Namespace: def.Namespace, Name: def.Name, Args: args}
}

// ArrayOf wraps elem in an array of the given rank
func ArrayOf(elem *Descriptor, rank int) *Descriptor {
	if rank < 1 {
		rank = 1
	}
	return &Descriptor{Elem: elem, Rank: rank}
}

func (d *Descriptor) IsArray() bool {
	return d != nil && d.Elem != nil
}

func (d *Descriptor) IsGeneric() bool {
	return d != nil && len(d.Args) > 0
}

// FullName returns the namespace-qualified name. Generic types carry their
// arity the way runtime names do ("System.Collections.Generic.List`1") so that
// a mapping registered for the definition applies to every instantiation.
func (d *Descriptor) FullName() string {
	if d == nil {
		return ""
	}
	if d.IsArray() {
		return d.Elem.FullName() + rankSuffix(d.Rank)
	}
	name := d.Name
	if len(d.Args) > 0 {
		name += "`" + strconv.Itoa(len(d.Args))
	}
	if d.Namespace == "" {
		return name
	}
	return d.Namespace + "." + name
}

// String renders the descriptor in fully qualified C# syntax
func (d *Descriptor) String() string {
	if d == nil {
		return ""
	}
	if d.IsArray() {
		base, ranks := d.arrayParts()
		var sb strings.Builder
		sb.WriteString(base.String())
		for _, r := range ranks {
			sb.WriteString(rankSuffix(r))
		}
		return sb.String()
	}
	name := d.Name
	if d.Namespace != "" {
		name = d.Namespace + "." + d.Name
	}
	if len(d.Args) == 0 {
		return name
	}
	args := make([]string, len(d.Args))
	for i, a := range d.Args {
		args[i] = a.String()
	}
	return name + "<" + strings.Join(args, ", ") + ">"
}

// Equal compares descriptors structurally
func (d *Descriptor) Equal(o *Descriptor) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Namespace != o.Namespace || d.Name != o.Name || d.Rank != o.Rank {
		return false
	}
	if !d.Elem.Equal(o.Elem) {
		return false
	}
	if len(d.Args) != len(o.Args) {
		return false
	}
	for i := range d.Args {
		if !d.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	c := &Descriptor{Namespace: d.Namespace, Name: d.Name, Rank: d.Rank, Elem: d.Elem.Clone()}
	if len(d.Args) > 0 {
		c.Args = make([]*Descriptor, len(d.Args))
		for i, a := range d.Args {
			c.Args[i] = a.Clone()
		}
	}
	return c
}

// arrayParts walks nested arrays and returns the innermost element type plus
// the ranks in outer-to-inner order.
func (d *Descriptor) arrayParts() (*Descriptor, []int) {
	var ranks []int
	cur := d
	for cur.IsArray() {
		ranks = append(ranks, cur.Rank)
		cur = cur.Elem
	}
	return cur, ranks
}

func rankSuffix(rank int) string {
	if rank < 1 {
		rank = 1
	}
	return "[" + strings.Repeat(",", rank-1) + "]"
}
