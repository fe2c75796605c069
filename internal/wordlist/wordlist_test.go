package wordlist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/csac/internal/catalog"
	"github.com/standardbeagle/csac/internal/types"
)

func TestBuilder_Serialization(t *testing.T) {
	b := New().
		Add("if", types.KindKeyword).
		Add("int", types.KindBuiltinType)

	assert.Equal(t, "if?1 int?2", b.String())
}

func TestBuilder_RoundTrip(t *testing.T) {
	b := New().
		Add("if", types.KindKeyword).
		Add("int", types.KindBuiltinType).
		Add("Foo", types.KindClass).
		Add("count", types.KindLocalVariable)

	parsed := Parse(b.String())
	assert.ElementsMatch(t, b.Words(), parsed.Words())
	assert.Equal(t, b.String(), parsed.String())
}

func TestBuilder_SetSemantics(t *testing.T) {
	b := New().
		Add("value", types.KindKeyword).
		Add("value", types.KindKeyword).
		Add("value", types.KindLocalVariable)

	assert.Equal(t, 2, b.Len())
	assert.True(t, b.Contains("value", types.KindKeyword))
	assert.True(t, b.Contains("value", types.KindLocalVariable))
	assert.Equal(t, "value?1 value?9", b.String())
}

func TestBuilder_RejectsUnsafeNames(t *testing.T) {
	b := New().
		Add("", types.KindKeyword).
		Add("a b", types.KindKeyword).
		Add("a?b", types.KindKeyword)
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, "", b.String())
}

func TestBuilder_AddKeywordsFilter(t *testing.T) {
	b := New().AddKeywords(Keywords, types.KindKeyword, "WH")
	assert.Equal(t, []string{"where", "while"}, b.Names(types.KindKeyword))

	all := New().AddKeywords(Keywords, types.KindKeyword, "  ")
	assert.Equal(t, len(Keywords), all.Len())
}

func TestBuilder_RemoveKind(t *testing.T) {
	b := New().
		AddKeywordText("if else", types.KindKeyword, "").
		Add("x", types.KindLocalVariable).
		Add("y", types.KindLocalVariable).
		Add("Name", types.KindProperty)

	b.RemoveKind(types.KindLocalVariable).RemoveKind(types.KindProperty)
	assert.Equal(t, "else?1 if?1", b.String())
}

func TestBuilder_AddFromCatalog(t *testing.T) {
	entries := []*catalog.Entry{
		catalog.NewEntry("Math", "/libs/System", "System", types.KindStaticClass),
		catalog.NewEntry("Widget", "/libs/Demo", "Demo", types.KindClass),
		catalog.NewEntry("Colors", "/libs/Demo", "Demo", types.KindEnum),
		nil,
	}

	own := New().AddFromCatalog(entries, nil, "")
	assert.Equal(t, "Colors?12 Math?4 Widget?3", own.String())

	class := types.KindClass
	classes := New().AddFromCatalog(entries, &class, "")
	assert.Equal(t, "Widget?3", classes.String())

	filtered := New().AddFromCatalog(entries, nil, "at")
	assert.Equal(t, "Math?4", filtered.String())
}

func TestBuilder_WithWordList(t *testing.T) {
	b := New().WithWordList("alpha beta?3 gamma?x delta?999  epsilon?9")

	assert.True(t, b.Contains("alpha", types.KindKeyword), "bare tokens are keywords")
	assert.True(t, b.Contains("beta", types.KindClass))
	assert.True(t, b.Contains("epsilon", types.KindLocalVariable))
	assert.Equal(t, 3, b.Len(), "malformed ordinals are skipped")
}

func TestBuilder_BuildMergesExisting(t *testing.T) {
	b := New().Add("Foo", types.KindClass)
	out := b.Build("if?1 Foo?3")
	assert.Equal(t, "Foo?3 if?1", out)

	assert.Equal(t, "Foo?3 if?1", b.Build(""))
}

func TestBuilder_Clone(t *testing.T) {
	b := New().Add("x", types.KindLocalVariable)
	c := b.Clone().Add("y", types.KindLocalVariable)
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 2, c.Len())
}

func TestDefaults(t *testing.T) {
	b := Defaults()
	require.Equal(t, len(Keywords)+len(TypeWords), b.Len())
	assert.True(t, b.Contains("foreach", types.KindKeyword))
	assert.True(t, b.Contains("int", types.KindBuiltinType))
	assert.False(t, b.Contains("int", types.KindKeyword))

	for _, token := range strings.Fields(b.String()) {
		assert.Contains(t, token, "?")
	}
}

func TestKeywordString(t *testing.T) {
	assert.Equal(t, "yield?1", KeywordString("yie"))
	assert.Equal(t, "", KeywordString("zzz"))
}
