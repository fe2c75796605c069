package theme

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/csac/internal/calltip"
	"github.com/standardbeagle/csac/internal/types"
)

const sample = `
[styles.BodyName]
fore = "#1f4e79"
back = "#ffffff"
font = "Consolas 10"

[styles.argumentname]
fore = "#008080"

[icons]
class = "icons/class.png"
static_class = "/abs/static.png"
`

func TestParseAndApply(t *testing.T) {
	th, err := Parse([]byte(sample))
	require.NoError(t, err)

	st := calltip.NewStyles()
	require.NoError(t, th.Apply(st))

	body, ok := st.Style(types.HighlightBodyName)
	require.True(t, ok)
	assert.Equal(t, calltip.Style{Fore: "#1f4e79", Back: "#ffffff", Font: "Consolas 10"}, body)

	arg, ok := st.Style(types.HighlightArgumentName)
	require.True(t, ok, "style names match case-insensitively")
	assert.Equal(t, "#008080", arg.Fore)
	assert.Empty(t, arg.Back)

	_, ok = st.Style(types.HighlightType)
	assert.False(t, ok)

	assert.Equal(t, "icons/class.png", st.Icon(types.KindClass))
	assert.Equal(t, "/abs/static.png", st.Icon(types.KindStaticClass))
}

func TestLoadResolvesIcons(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "theme.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	th, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "icons/class.png"), th.Icons["class"])
	assert.Equal(t, "/abs/static.png", th.Icons["static_class"])
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	assert.Error(t, err)
}

func TestParseRejectsUnknownTables(t *testing.T) {
	_, err := Parse([]byte("[colours]\nfore = \"#fff\"\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("styles = 3"))
	assert.Error(t, err)
}

func TestApplyReportsUnknownNames(t *testing.T) {
	th := &Theme{
		Styles: map[string]calltip.Style{"Sparkle": {Fore: "#fff"}, "BodyName": {Fore: "#000"}},
		Icons:  map[string]string{"gizmo": "g.png", "method": "m.png"},
	}
	st := calltip.NewStyles()

	err := th.Apply(st)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sparkle")

	// known entries still apply
	body, ok := st.Style(types.HighlightBodyName)
	assert.True(t, ok)
	assert.Equal(t, "#000", body.Fore)
	assert.Equal(t, "m.png", st.Icon(types.KindMethod))
}

func TestDefaultCoversEveryStyle(t *testing.T) {
	st := calltip.NewStyles()
	require.NoError(t, Default().Apply(st))
	for _, s := range types.AllHighlightStyles() {
		_, ok := st.Style(s)
		assert.True(t, ok, s.String())
	}
}

func TestMergeAndEncode(t *testing.T) {
	custom, err := Parse([]byte(sample))
	require.NoError(t, err)

	merged := Default().Merge(custom)
	assert.Equal(t, "#1f4e79", merged.Styles["BodyName"].Fore)
	assert.Equal(t, "#569cd6", merged.Styles["ReturnValueType"].Fore)

	var buf bytes.Buffer
	require.NoError(t, merged.Encode(&buf))
	back, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, merged.Styles["BodyName"], back.Styles["BodyName"])
	assert.Equal(t, merged.Icons, back.Icons)
}
