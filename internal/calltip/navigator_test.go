package calltip

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	csacerrors "github.com/standardbeagle/csac/internal/errors"
	"github.com/standardbeagle/csac/internal/types"
)

func entries(names ...string) []*Entry {
	out := make([]*Entry, len(names))
	for i, n := range names {
		out[i] = NewEntry(n+"()", n, "void", types.KindMethod)
	}
	return out
}

func names(list []*Entry) []string {
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.BodyTextNoParameters
	}
	return out
}

func TestNavigator_ShowEmptyStaysHidden(t *testing.T) {
	n := NewNavigator()
	assert.False(t, n.Show(nil))
	assert.False(t, n.Visible())
	assert.Nil(t, n.Current())
	assert.Equal(t, "", n.Position())
}

func TestNavigator_ShowResets(t *testing.T) {
	n := NewNavigator()
	require.True(t, n.Show(entries("Add", "Append", "Clear")))
	n.TypeChar('a')
	n.Next()

	require.True(t, n.Show(entries("Add", "Append", "Clear")))
	assert.Equal(t, "", n.Filter())
	assert.Equal(t, 0, n.Index())
	assert.Len(t, n.Filtered(), 3)
	assert.Equal(t, "1 of 3", n.Position())
}

func TestNavigator_Wraparound(t *testing.T) {
	n := NewNavigator()
	n.Show(entries("A", "B", "C"))

	require.NoError(t, n.SetIndex(2))
	n.Next()
	assert.Equal(t, 0, n.Index())

	n.Previous()
	assert.Equal(t, 2, n.Index())
	assert.Equal(t, "C", n.Current().BodyTextNoParameters)
	assert.Equal(t, "3 of 3", n.Position())
}

func TestNavigator_FilterPrefix(t *testing.T) {
	n := NewNavigator()
	n.Show(entries("Add", "Append", "Clear", "ReadAll"))

	n.TypeChar('A')
	assert.Equal(t, []string{"Add", "Append"}, names(n.Filtered()))
	n.Next()
	assert.Equal(t, 1, n.Index())

	// filter change resets the index
	n.TypeChar('p')
	assert.Equal(t, []string{"Append"}, names(n.Filtered()))
	assert.Equal(t, 0, n.Index())

	n.Backspace()
	assert.Equal(t, "A", n.Filter())
	assert.Equal(t, []string{"Add", "Append"}, names(n.Filtered()))
}

func TestNavigator_FilterAnywhere(t *testing.T) {
	n := NewNavigator(WithMatchAnywhere(true))
	n.Show(entries("Add", "Append", "Clear", "ReadAll"))

	n.TypeChar('a')
	assert.Equal(t, []string{"Add", "Append", "Clear", "ReadAll"}, names(n.Filtered()))
	n.TypeChar('l')
	assert.Equal(t, []string{"ReadAll"}, names(n.Filtered()))

	n.SetMatchAnywhere(false)
	assert.False(t, n.Visible(), "no name starts with \"al\"")
}

func TestNavigator_FilterToEmptyHides(t *testing.T) {
	hidden := 0
	n := NewNavigator()
	n.OnHidden(func() { hidden++ })
	n.Show(entries("Add", "Clear"))

	n.TypeChar('z')
	assert.False(t, n.Visible())
	assert.Equal(t, 1, hidden)
	assert.Equal(t, "", n.Filter())

	// hidden navigator ignores input
	n.TypeChar('a')
	n.Next()
	n.Previous()
	n.Backspace()
	assert.Nil(t, n.Commit())
	assert.False(t, n.Visible())
	assert.Equal(t, 1, hidden)
}

func TestNavigator_BackspaceOnEmptyFilterHides(t *testing.T) {
	n := NewNavigator()
	n.Show(entries("Add"))
	n.Backspace()
	assert.False(t, n.Visible())
}

func TestNavigator_Commit(t *testing.T) {
	var selected *Entry
	n := NewNavigator()
	n.OnSelected(func(e *Entry) { selected = e })
	n.Show(entries("Add", "Append"))
	n.Next()

	got := n.Commit()
	require.NotNil(t, got)
	assert.Equal(t, "Append", got.BodyTextNoParameters)
	assert.Same(t, got, selected)
	assert.False(t, n.Visible())
	assert.Equal(t, "", n.Filter())
}

func TestNavigator_EscapeAndFocusLost(t *testing.T) {
	selections := 0
	n := NewNavigator()
	n.OnSelected(func(*Entry) { selections++ })

	n.Show(entries("Add"))
	n.Escape()
	assert.False(t, n.Visible())

	n.Show(entries("Add"))
	n.FocusLost()
	assert.False(t, n.Visible())
	assert.Equal(t, 0, selections)
}

func TestNavigator_SetIndexOutOfRange(t *testing.T) {
	n := NewNavigator()
	require.NoError(t, n.SetIndex(5), "empty list is not an error")

	n.Show(entries("A", "B"))
	err := n.SetIndex(2)
	assert.ErrorIs(t, err, csacerrors.ErrIndexOutOfRange)
	assert.ErrorIs(t, n.SetIndex(-1), csacerrors.ErrIndexOutOfRange)
	assert.Equal(t, 0, n.Index())
}
