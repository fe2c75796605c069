package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/csac/internal/analysis"
	"github.com/standardbeagle/csac/internal/calltip"
	"github.com/standardbeagle/csac/internal/catalog"
	"github.com/standardbeagle/csac/internal/editor"
	"github.com/standardbeagle/csac/internal/library"
	"github.com/standardbeagle/csac/internal/typename"
	"github.com/standardbeagle/csac/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

const demoLibrary = `namespace Demo
{
    public class Foo
    {
        public int Add(int a, int b) { return a + b; }
        public string Name { get; set; }
    }

    public static class Util
    {
        public static int Twice(int x) { return x * 2; }
    }
}
`

const programHead = `using Demo;

class Program
{
    void Run()
    {
        var foo = new Foo();
        int total = 1;
        `

const programTail = `
    }
}
`

func libraryDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Demo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Demo", "Foo.cs"), []byte(demoLibrary), 0o644))
	return dir
}

func newLoader(dir string) *library.Loader {
	return library.NewLoader(library.NewResolver([]string{dir}, false, nil), library.NewHarvester())
}

// program returns a buffer with the caret on the empty line of Run
func program() *editor.Buffer {
	buf := editor.New(programHead + programTail)
	buf.SetCaret(len(programHead))
	return buf
}

func newSession(t *testing.T, buf *editor.Buffer, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithLoader(newLoader(libraryDir(t))), WithInterval(time.Hour)}, opts...)
	s := New(buf, nil, catalog.NewShared(), opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// ownedEditor is a buffer owned by a dedicated goroutine. Invoke marshals
// onto that goroutine and waits, as a UI toolkit does.
type ownedEditor struct {
	*editor.Buffer
	jobs chan func()
	stop chan struct{}
	done chan struct{}
}

func newOwnedEditor(t *testing.T, buf *editor.Buffer) *ownedEditor {
	t.Helper()
	e := &ownedEditor{
		Buffer: buf,
		jobs:   make(chan func()),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go e.loop()
	t.Cleanup(func() {
		close(e.stop)
		<-e.done
	})
	return e
}

func (e *ownedEditor) loop() {
	defer close(e.done)
	for {
		select {
		case fn := <-e.jobs:
			fn()
		case <-e.stop:
			return
		}
	}
}

func (e *ownedEditor) Invoke(fn func()) {
	finished := make(chan struct{})
	e.jobs <- func() {
		defer close(finished)
		fn()
	}
	<-finished
}

// run runs fn on the owner goroutine and fails the test if the owner
// does not finish it in time
func (e *ownedEditor) run(t *testing.T, fn func()) {
	t.Helper()
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		fn()
	}
	select {
	case e.jobs <- job:
	case <-time.After(2 * time.Second):
		t.Fatal("owner goroutine busy")
	}
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("owner goroutine stuck")
	}
}

func bodies(entries []*calltip.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.BodyText
	}
	return out
}

func TestSession_CacheLibraries(t *testing.T) {
	buf := program()
	s := newSession(t, buf)

	report, err := s.CacheLibraries(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Libraries)
	assert.Equal(t, 2, report.Types)
	assert.Empty(t, report.Failed)

	assert.Equal(t, 2, s.Shared().Len())
	assert.Equal(t, 0, s.Instance().Len())

	words := s.Words()
	assert.True(t, words.Contains("Foo", types.KindClass))
	assert.True(t, words.Contains("Util", types.KindStaticClass))
	assert.True(t, words.Contains("if", types.KindKeyword))
	assert.True(t, words.Contains("int", types.KindBuiltinType))
	assert.Contains(t, s.WordList(), "Foo?3")
}

func TestSession_CacheLibrariesPerInstance(t *testing.T) {
	s := newSession(t, program())

	_, err := s.CacheLibraries(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Shared().Len())
	assert.Equal(t, 2, s.Instance().Len())
	assert.True(t, s.Words().Contains("Foo", types.KindClass))
}

func TestSession_CacheLibrariesReportsMissing(t *testing.T) {
	buf := program()
	buf.SetText("using Demo;\nusing Missing.Lib;\n" + programHead[len("using Demo;\n"):] + programTail)
	s := newSession(t, buf)

	report, err := s.CacheLibraries(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Libraries)
	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed[0].Error(), "Missing.Lib")
}

func TestSession_CacheLibrariesWithoutLoader(t *testing.T) {
	s := New(program(), nil, nil, WithInterval(time.Hour))
	defer s.Close()

	_, err := s.CacheLibraries(context.Background(), true)
	assert.ErrorIs(t, err, ErrNoLoader)
}

func TestSession_TypingSuggestsLocals(t *testing.T) {
	buf := program()
	s := newSession(t, buf)
	_, err := s.CacheLibraries(context.Background(), true)
	require.NoError(t, err)

	buf.Type('f')

	require.True(t, buf.AutoCompleteActive())
	n, list := buf.AutoComplete()
	assert.Equal(t, 1, n)
	assert.Contains(t, strings.Fields(list), "foo?9")
	assert.Contains(t, strings.Fields(list), "total?9")
	assert.Contains(t, strings.Fields(list), "Foo?3")
}

func TestSession_Complete(t *testing.T) {
	buf := editor.New(programHead + "to" + programTail)
	buf.SetCaret(len(programHead) + 2)
	s := newSession(t, buf)
	_, err := s.CacheLibraries(context.Background(), true)
	require.NoError(t, err)

	n, words := s.Complete()
	assert.Equal(t, 2, n)
	assert.True(t, words.Contains("total", types.KindLocalVariable))
	assert.True(t, words.Contains("Foo", types.KindClass))
	assert.False(t, buf.AutoCompleteActive(), "no popup is opened")
}

func TestSession_DotOnInstanceShowsMembers(t *testing.T) {
	buf := program()
	s := newSession(t, buf)
	_, err := s.CacheLibraries(context.Background(), true)
	require.NoError(t, err)

	buf.TypeString("foo.")

	nav := buf.CallTip()
	require.NotNil(t, nav, "call tip shown")
	assert.Equal(t, []string{"Add(int a, int b)", "Foo()", "Name"}, bodies(nav.Filtered()))
	assert.Equal(t, "1 of 3", nav.Position())

	nav.TypeChar('N')
	require.Len(t, nav.Filtered(), 1)
	nav.Commit()

	assert.Contains(t, buf.Text(), "foo.Name\n")
	assert.Nil(t, buf.CallTip())
}

func TestSession_DotOnStaticClass(t *testing.T) {
	buf := program()
	s := newSession(t, buf, WithReturnTypes(true))
	_, err := s.CacheLibraries(context.Background(), true)
	require.NoError(t, err)

	buf.TypeString("Util.")

	nav := buf.CallTip()
	require.NotNil(t, nav)
	assert.Equal(t, []string{"int Twice(int x)"}, bodies(nav.Filtered()))

	// methods are inserted with their parentheses, caret inside
	nav.Commit()
	text := buf.Text()
	assert.Contains(t, text, "Util.Twice()")
	assert.Equal(t, strings.Index(text, "Twice()")+len("Twice("), buf.CaretPosition())
}

func TestSession_DotOnUnknownWordHides(t *testing.T) {
	buf := program()
	s := newSession(t, buf)
	_, err := s.CacheLibraries(context.Background(), true)
	require.NoError(t, err)

	buf.TypeString("nothing.")
	assert.Nil(t, buf.CallTip())
	assert.False(t, s.Navigator().Visible())
}

func TestSession_NothingInsideStrings(t *testing.T) {
	buf := program()
	s := newSession(t, buf)
	_, err := s.CacheLibraries(context.Background(), true)
	require.NoError(t, err)

	buf.TypeString(`var s = "`)
	buf.CancelAutoComplete()

	buf.TypeString("Util.")
	assert.Nil(t, buf.CallTip())
	assert.False(t, buf.AutoCompleteActive(), "no suggestions inside a literal")
}

func TestSession_FilterAnywhere(t *testing.T) {
	buf := program()
	s := newSession(t, buf, WithMatchAnywhere(true))
	_, err := s.CacheLibraries(context.Background(), true)
	require.NoError(t, err)

	buf.TypeString("foo.")
	nav := buf.CallTip()
	require.NotNil(t, nav)
	nav.TypeChar('m')
	assert.Equal(t, []string{"Name"}, bodies(nav.Filtered()))

	s.SetFilterAnywhere(false)
	assert.False(t, nav.Visible())
}

type failingEngine struct{}

func (failingEngine) Update(context.Context, string) error { return nil }

func (failingEngine) RecommendedSymbols(context.Context, int) ([]analysis.Symbol, error) {
	return nil, errors.New("semantic model unavailable")
}

func (failingEngine) TypeOfExpression(context.Context, int, int) (*typename.Descriptor, error) {
	return nil, errors.New("semantic model unavailable")
}

func TestSession_EngineErrorsAreSwallowed(t *testing.T) {
	buf := program()
	s := New(buf, failingEngine{}, nil, WithInterval(time.Hour))
	defer s.Close()

	buf.Type('w')
	require.True(t, buf.AutoCompleteActive())
	_, list := buf.AutoComplete()
	assert.Contains(t, strings.Fields(list), "while?1")

	buf.Type('.')
	assert.Nil(t, buf.CallTip())
}

func TestSession_EditsReanalyzeAfterQuiet(t *testing.T) {
	buf := program()
	s := New(buf, nil, nil, WithInterval(80*time.Millisecond), WithPostpone(20*time.Millisecond))
	defer s.Close()

	buf.TypeString("total")
	assert.Eventually(t, func() bool {
		return s.Reanalyzer().LastAnalyzed() == buf.Text()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_DotWhileTimerWaitsForOwner(t *testing.T) {
	buf := program()
	ed := newOwnedEditor(t, buf)
	s := New(ed, nil, catalog.NewShared(),
		WithLoader(newLoader(libraryDir(t))), WithInterval(20*time.Millisecond))
	t.Cleanup(func() { _ = s.Close() })

	_, err := s.CacheLibraries(context.Background(), true)
	require.NoError(t, err)

	ed.run(t, func() {
		// the timer fires meanwhile and waits in Invoke for this goroutine
		time.Sleep(60 * time.Millisecond)
		buf.TypeString("foo.")
	})

	nav := buf.CallTip()
	require.NotNil(t, nav, "call tip shown")
	assert.Equal(t, []string{"Add(int a, int b)", "Foo()", "Name"}, bodies(nav.Filtered()))
	assert.Eventually(t, func() bool {
		return s.Reanalyzer().LastAnalyzed() == buf.Text()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_OffOwnerCallsMarshalText(t *testing.T) {
	buf := program()
	ed := newOwnedEditor(t, buf)
	s := New(ed, nil, catalog.NewShared(),
		WithLoader(newLoader(libraryDir(t))), WithInterval(time.Hour))
	t.Cleanup(func() { _ = s.Close() })

	_, err := s.CacheLibraries(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, buf.Text(), s.Reanalyzer().LastAnalyzed())

	ed.run(t, func() { buf.TypeString("total") })
	assert.True(t, s.Reanalyze())
	assert.Equal(t, buf.Text(), s.Reanalyzer().LastAnalyzed())
	assert.False(t, s.Reanalyze(), "unchanged text")
}

func TestSession_CloseIsIdempotent(t *testing.T) {
	buf := program()
	s := New(buf, nil, nil, WithInterval(time.Hour))
	require.Equal(t, 2, buf.Handlers())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 0, buf.Handlers())

	// detached: typing does nothing
	buf.TypeString("foo.")
	assert.False(t, buf.AutoCompleteActive())
	assert.False(t, s.Reanalyze())
}

func TestSession_MemberTypeFromCatalog(t *testing.T) {
	s := newSession(t, program())
	_, err := s.CacheLibraries(context.Background(), false)
	require.NoError(t, err)

	got := s.MemberType(&typename.Descriptor{Namespace: "Demo", Name: "Foo"}, "Name")
	require.NotNil(t, got)
	assert.Equal(t, "System.String", got.FullName())
	assert.Nil(t, s.MemberType(&typename.Descriptor{Name: "Foo"}, "Nope"))
}

func TestInString(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"plain code", `x.`, false},
		{"open literal", `x = "ab.`, true},
		{"closed literal", `x = "ab".`, false},
		{"escaped quote", `x = "a\"b.`, true},
		{"doubled quote", `x = "";.`, false},
		{"typed quote not counted", `x = "ab"`, true},
		{"empty", ``, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InString(tt.text, len(tt.text)))
		})
	}
	assert.False(t, InString(`"abc"`, -1))
}
