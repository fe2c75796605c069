// Package theme reads call-tip colors, fonts and icons from a TOML file.
//
//	[styles.BodyName]
//	fore = "#da70d6"
//	back = "#000000"
//	font = "Consolas 9"
//
//	[icons]
//	class = "icons/class.png"
package theme

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/csac/internal/calltip"
	csacerrors "github.com/standardbeagle/csac/internal/errors"
	"github.com/standardbeagle/csac/internal/types"
)

// Theme is the file form of a style registry. Style keys are highlight
// style names; icon keys are construct kind names.
type Theme struct {
	Styles map[string]calltip.Style `toml:"styles"`
	Icons  map[string]string        `toml:"icons"`
}

const defaultFont = "Consolas 9"

// Default returns the built-in dark theme
func Default() *Theme {
	return &Theme{
		Styles: map[string]calltip.Style{
			types.HighlightOpeningBracket.String():  {Fore: "#ffffff", Back: "#000000", Font: defaultFont},
			types.HighlightClosingBracket.String():  {Fore: "#ffffff", Back: "#000000", Font: defaultFont},
			types.HighlightArgumentName.String():    {Fore: "#008b8b", Back: "#000000", Font: defaultFont},
			types.HighlightBodyName.String():        {Fore: "#da70d6", Back: "#000000", Font: defaultFont},
			types.HighlightReturnValueType.String(): {Fore: "#569cd6", Back: "#000000", Font: defaultFont},
			types.HighlightType.String():            {Fore: "#569cd6", Back: "#000000", Font: defaultFont},
			types.HighlightNone.String():            {Fore: "#ffffff", Back: "#424242", Font: defaultFont},
		},
		Icons: map[string]string{},
	}
}

// Load reads a theme file. Relative icon paths resolve against the file's
// directory.
func Load(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, csacerrors.NewConfigError("theme", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, csacerrors.NewConfigError("theme", path, err)
	}
	dir := filepath.Dir(path)
	for k, icon := range t.Icons {
		if icon != "" && !filepath.IsAbs(icon) {
			t.Icons[k] = filepath.Join(dir, icon)
		}
	}
	return t, nil
}

// Parse decodes a theme. Unknown top-level tables are rejected.
func Parse(data []byte) (*Theme, error) {
	var t Theme
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("invalid theme: %w", err)
	}
	if t.Styles == nil {
		t.Styles = map[string]calltip.Style{}
	}
	if t.Icons == nil {
		t.Icons = map[string]string{}
	}
	return &t, nil
}

// Apply copies the theme into st. Every entry with a known name is
// applied; the unknown names are returned as one error.
func (t *Theme) Apply(st *calltip.Styles) error {
	var errs []error
	for _, name := range sortedKeys(t.Styles) {
		style, err := types.ParseHighlightStyle(name)
		if err != nil {
			errs = append(errs, csacerrors.NewConfigError("styles", name, err))
			continue
		}
		st.SetStyle(style, t.Styles[name])
	}
	for _, name := range sortedKeys(t.Icons) {
		kind, err := types.ParseConstructKind(name)
		if err != nil {
			errs = append(errs, csacerrors.NewConfigError("icons", name, err))
			continue
		}
		st.SetIcon(kind, t.Icons[name])
	}
	return csacerrors.NewMultiError(errs).ErrorOrNil()
}

// Merge lays o over t; entries in o win
func (t *Theme) Merge(o *Theme) *Theme {
	out := &Theme{Styles: map[string]calltip.Style{}, Icons: map[string]string{}}
	for _, src := range []*Theme{t, o} {
		if src == nil {
			continue
		}
		for k, v := range src.Styles {
			out.Styles[k] = v
		}
		for k, v := range src.Icons {
			out.Icons[k] = v
		}
	}
	return out
}

// Encode writes the theme as TOML
func (t *Theme) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(t)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
