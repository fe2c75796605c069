// Package analysis answers the two questions completion asks of a
// document: which names are in scope at an offset, and what type an
// expression has.
package analysis

import (
	"context"
	"errors"

	"github.com/standardbeagle/csac/internal/typename"
)

// SymbolKind classifies a name in scope
type SymbolKind int

const (
	SymbolLocal SymbolKind = iota
	SymbolParameter
	SymbolProperty
	SymbolField
	SymbolMethod
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolLocal:
		return "local"
	case SymbolParameter:
		return "parameter"
	case SymbolProperty:
		return "property"
	case SymbolField:
		return "field"
	case SymbolMethod:
		return "method"
	}
	return "unknown"
}

// Symbol is a name visible at some offset. Type is nil when it could not
// be inferred.
type Symbol struct {
	Name   string               `json:"name"`
	Kind   SymbolKind           `json:"kind"`
	Type   *typename.Descriptor `json:"type,omitempty"`
	Offset int                  `json:"offset"`
}

// Engine is the semantic analysis backend of a session. Update re-binds
// the engine to new text; the queries answer against the last bound text.
// Implementations must be safe for concurrent use.
type Engine interface {
	Update(ctx context.Context, text string) error
	RecommendedSymbols(ctx context.Context, offset int) ([]Symbol, error)
	TypeOfExpression(ctx context.Context, start, end int) (*typename.Descriptor, error)
}

// ErrNotAnalyzed is returned by queries made before the first Update
var ErrNotAnalyzed = errors.New("no document analyzed")

// FilterKinds keeps the symbols of the given kinds
func FilterKinds(symbols []Symbol, kinds ...SymbolKind) []Symbol {
	var out []Symbol
	for _, s := range symbols {
		for _, k := range kinds {
			if s.Kind == k {
				out = append(out, s)
				break
			}
		}
	}
	return out
}
