package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/csac/internal/calltip"
	"github.com/standardbeagle/csac/internal/types"
)

func TestWordStart(t *testing.T) {
	tests := []struct {
		text string
		pos  int
		want int
	}{
		{"foo.Bar", 7, 4},
		{"foo.Bar", 3, 0},
		{"foo.", 4, 4},
		{"  my_var1", 9, 2},
		{"", 0, 0},
		{"abc", 10, 0},
		{"x = größe", 11, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WordStart(tt.text, tt.pos), "%q at %d", tt.text, tt.pos)
	}
}

func TestBuffer_TypeFiresEvents(t *testing.T) {
	b := New("Math")
	var chars []rune
	changes := 0
	b.OnCharAdded(func(r rune) {
		// the character is already in the text
		assert.Equal(t, "Math"+string(r), b.Text())
		chars = append(chars, r)
	})
	b.OnTextChanged(func() { changes++ })

	b.Type('.')
	assert.Equal(t, []rune{'.'}, chars)
	assert.Equal(t, 1, changes)
	assert.Equal(t, 5, b.CaretPosition())
}

func TestBuffer_Unsubscribe(t *testing.T) {
	b := New("")
	calls := 0
	off := b.OnCharAdded(func(rune) { calls++ })
	offText := b.OnTextChanged(func() {})
	assert.Equal(t, 2, b.Handlers())

	b.Type('a')
	off()
	off()
	offText()
	b.Type('b')

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.Handlers())
	assert.Equal(t, "ab", b.Text())
}

func TestBuffer_InsertTextMovesCaretAfterPosition(t *testing.T) {
	b := New("ab")
	b.SetCaret(1)

	b.InsertText(1, "XY")
	assert.Equal(t, "aXYb", b.Text())
	assert.Equal(t, 1, b.CaretPosition(), "caret at the insertion point stays")

	b.InsertText(0, "_")
	assert.Equal(t, "_aXYb", b.Text())
	assert.Equal(t, 2, b.CaretPosition())

	b.InsertText(99, "!")
	assert.Equal(t, "_aXYb!", b.Text())
}

func TestBuffer_AutoComplete(t *testing.T) {
	b := New("")
	assert.False(t, b.AutoCompleteActive())

	b.ShowAutoComplete(2, "if?1 int?2")
	require.True(t, b.AutoCompleteActive())
	n, list := b.AutoComplete()
	assert.Equal(t, 2, n)
	assert.Equal(t, "if?1 int?2", list)
	assert.Equal(t, 1, b.AutoCompleteShown())

	b.CancelAutoComplete()
	assert.False(t, b.AutoCompleteActive())
}

func TestBuffer_CallTip(t *testing.T) {
	b := New("")
	nav := calltip.NewNavigator()
	nav.Show([]*calltip.Entry{calltip.NewEntry("Abs()", "Abs", "int", types.KindMethod)})

	b.ShowCallTip(nav)
	assert.Same(t, nav, b.CallTip())

	nav.Escape()
	assert.Nil(t, b.CallTip(), "hidden navigator is not on display")

	b.HideCallTip()
	assert.Nil(t, b.CallTip())
}

func TestBuffer_SetCaretClamps(t *testing.T) {
	b := New("abc")
	b.SetCaret(-4)
	assert.Equal(t, 0, b.CaretPosition())
	b.SetCaret(40)
	assert.Equal(t, 3, b.CaretPosition())
}
