// Package editor provides an in-memory editor control for hosts without a
// widget: the CLI, the MCP server and tests.
package editor

import (
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/standardbeagle/csac/internal/calltip"
)

// Buffer is a text buffer with a caret, an autocomplete popup and a call-tip
// overlay. Offsets are byte offsets into the text. Event handlers run on the
// goroutine that made the edit, after the buffer lock is released.
type Buffer struct {
	mu    sync.Mutex
	text  string
	caret int

	acActive   bool
	acEntered  int
	acList     string
	acShown    int
	callTip    *calltip.Navigator
	tipShown   int
	invokeMu   sync.Mutex
	nextID     int
	charAdded  map[int]func(rune)
	textChange map[int]func()
}

func New(text string) *Buffer {
	return &Buffer{
		text:       text,
		caret:      len(text),
		charAdded:  make(map[int]func(rune)),
		textChange: make(map[int]func()),
	}
}

func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// SetText replaces the whole text and moves the caret to the end
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	b.text = text
	b.caret = len(text)
	b.mu.Unlock()
	b.fireTextChanged()
}

func (b *Buffer) CaretPosition() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.caret
}

// SetCaret moves the caret, clamped to the text
func (b *Buffer) SetCaret(pos int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caret = clamp(pos, len(b.text))
}

// WordStartPosition returns the start of the identifier that ends at pos
func (b *Buffer) WordStartPosition(pos int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return WordStart(b.text, pos)
}

// InsertText inserts text at pos. A caret after pos moves with its text.
func (b *Buffer) InsertText(pos int, text string) {
	if text == "" {
		return
	}
	b.mu.Lock()
	pos = clamp(pos, len(b.text))
	b.text = b.text[:pos] + text + b.text[pos:]
	if b.caret > pos {
		b.caret += len(text)
	}
	b.mu.Unlock()
	b.fireTextChanged()
}

// Type inserts r at the caret as if typed: the caret advances, then
// TextChanged and CharAdded fire.
func (b *Buffer) Type(r rune) {
	b.mu.Lock()
	s := string(r)
	b.text = b.text[:b.caret] + s + b.text[b.caret:]
	b.caret += len(s)
	b.mu.Unlock()

	b.fireTextChanged()
	b.fireCharAdded(r)
}

// TypeString types every rune of s
func (b *Buffer) TypeString(s string) {
	for _, r := range s {
		b.Type(r)
	}
}

func (b *Buffer) ShowAutoComplete(lenEntered int, list string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acActive = true
	b.acEntered = lenEntered
	b.acList = list
	b.acShown++
}

func (b *Buffer) AutoCompleteActive() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acActive
}

// CancelAutoComplete closes the autocomplete popup
func (b *Buffer) CancelAutoComplete() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.acActive = false
}

// AutoComplete returns the last list shown and the typed length it was
// shown for
func (b *Buffer) AutoComplete() (lenEntered int, list string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acEntered, b.acList
}

// AutoCompleteShown counts ShowAutoComplete calls
func (b *Buffer) AutoCompleteShown() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acShown
}

func (b *Buffer) ShowCallTip(nav *calltip.Navigator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callTip = nav
	b.tipShown++
}

func (b *Buffer) HideCallTip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callTip = nil
}

// CallTip returns the navigator on display, or nil
func (b *Buffer) CallTip() *calltip.Navigator {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.callTip == nil || !b.callTip.Visible() {
		return nil
	}
	return b.callTip
}

// Invoke runs fn as the owner of the buffer. Calls are serialized.
func (b *Buffer) Invoke(fn func()) {
	b.invokeMu.Lock()
	defer b.invokeMu.Unlock()
	fn()
}

// OnCharAdded registers fn and returns its unsubscribe function
func (b *Buffer) OnCharAdded(fn func(rune)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.charAdded[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.charAdded, id)
	}
}

// OnTextChanged registers fn and returns its unsubscribe function
func (b *Buffer) OnTextChanged(fn func()) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.textChange[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.textChange, id)
	}
}

// Handlers returns the number of registered event handlers
func (b *Buffer) Handlers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.charAdded) + len(b.textChange)
}

func (b *Buffer) fireCharAdded(r rune) {
	b.mu.Lock()
	handlers := make([]func(rune), 0, len(b.charAdded))
	for _, fn := range b.charAdded {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()
	for _, fn := range handlers {
		fn(r)
	}
}

func (b *Buffer) fireTextChanged() {
	b.mu.Lock()
	handlers := make([]func(), 0, len(b.textChange))
	for _, fn := range b.textChange {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

// WordStart returns the offset where the identifier ending at pos begins.
// It returns pos when the character before pos is not a word character.
func WordStart(text string, pos int) int {
	pos = clamp(pos, len(text))
	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:pos])
		if !isWordRune(r) {
			break
		}
		pos -= size
	}
	return pos
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func clamp(pos, max int) int {
	if pos < 0 {
		return 0
	}
	if pos > max {
		return max
	}
	return pos
}
