// Package session binds the completion core to one editor: it listens to
// typed characters and edits, keeps the analysis of the document fresh and
// drives the autocomplete list and the member call tip.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/standardbeagle/csac/internal/analysis"
	"github.com/standardbeagle/csac/internal/calltip"
	"github.com/standardbeagle/csac/internal/catalog"
	"github.com/standardbeagle/csac/internal/debug"
	csacerrors "github.com/standardbeagle/csac/internal/errors"
	"github.com/standardbeagle/csac/internal/library"
	"github.com/standardbeagle/csac/internal/reanalyze"
	"github.com/standardbeagle/csac/internal/typename"
	"github.com/standardbeagle/csac/internal/types"
	"github.com/standardbeagle/csac/internal/wordlist"
	"github.com/standardbeagle/csac/pkg/logger"
)

// ErrNoLoader is returned by CacheLibraries on a session without a library loader
var ErrNoLoader = errors.New("session has no library loader")

// Editor is the editor control a session drives. Event registrations
// return their unsubscribe function.
type Editor interface {
	Text() string
	CaretPosition() int
	SetCaret(pos int)
	WordStartPosition(pos int) int
	InsertText(pos int, text string)
	ShowAutoComplete(lenEntered int, list string)
	AutoCompleteActive() bool
	ShowCallTip(nav *calltip.Navigator)
	HideCallTip()
	// Invoke runs fn on the goroutine that owns the editor and waits for it
	Invoke(fn func())
	OnCharAdded(fn func(rune)) func()
	OnTextChanged(fn func()) func()
}

// Session is the completion state of one editor
type Session struct {
	ed       Editor
	engine   analysis.Engine
	shared   *catalog.Catalog
	instance *catalog.Catalog
	loader   *library.Loader
	log      *logr.Logger

	interval       time.Duration
	postpone       time.Duration
	disposeTimeout time.Duration
	returnTypes    bool

	reanalyzer *reanalyze.Reanalyzer
	nav        *calltip.Navigator
	styles     *calltip.Styles
	workspace  *analysis.Workspace

	mu    sync.Mutex
	words *wordlist.Builder

	unsubscribe []func()
	closeOnce   sync.Once
	closeErr    error
	closedMu    sync.RWMutex
	closed      bool
}

type Option func(*Session)

// WithLoader sets the loader CacheLibraries resolves imports with
func WithLoader(l *library.Loader) Option {
	return func(s *Session) { s.loader = l }
}

// WithInterval sets the quiet interval before a re-analysis
func WithInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithPostpone sets how far each edit pushes the pending re-analysis back
func WithPostpone(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.postpone = d
		}
	}
}

// WithDisposeTimeout bounds how long Close waits for a running analysis
func WithDisposeTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.disposeTimeout = d
		}
	}
}

// WithReturnTypes prefixes method call tips with their return type
func WithReturnTypes(on bool) Option {
	return func(s *Session) { s.returnTypes = on }
}

// WithMatchAnywhere lets the call-tip filter match inside member names
func WithMatchAnywhere(on bool) Option {
	return func(s *Session) { s.nav.SetMatchAnywhere(on) }
}

func WithStyles(st *calltip.Styles) Option {
	return func(s *Session) {
		if st != nil {
			s.styles = st
		}
	}
}

func WithLogger(l *logr.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New attaches a session to ed. shared is the process-wide catalog; a nil
// shared catalog gives the session a private one. A nil engine selects the
// tree-sitter workspace, resolving library members through the catalogs.
func New(ed Editor, engine analysis.Engine, shared *catalog.Catalog, opts ...Option) *Session {
	if shared == nil {
		shared = catalog.NewShared()
	}
	s := &Session{
		ed:             ed,
		engine:         engine,
		shared:         shared,
		instance:       catalog.New("instance", catalog.WithMapper(shared.Mapper())),
		log:            logger.GetNoopLogger(),
		interval:       reanalyze.DefaultInterval,
		postpone:       reanalyze.DefaultPostpone,
		disposeTimeout: reanalyze.DefaultCloseTimeout,
		nav:            calltip.NewNavigator(),
		styles:         calltip.NewStyles(),
		words:          wordlist.Defaults(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.workspace = analysis.NewWorkspace(
			analysis.WithMapper(shared.Mapper()),
			analysis.WithMemberResolver(s.MemberType),
		)
		s.engine = s.workspace
	}

	s.reanalyzer = reanalyze.New(s.fetchText, s.engine.Update,
		reanalyze.WithInterval(s.interval),
		reanalyze.WithLogger(s.log),
	)
	s.nav.OnSelected(s.insertSelection)
	s.nav.OnHidden(s.ed.HideCallTip)
	s.unsubscribe = append(s.unsubscribe,
		ed.OnCharAdded(s.HandleCharAdded),
		ed.OnTextChanged(s.HandleTextChanged),
	)
	s.reanalyzer.Start()
	debug.LogSession("session attached, interval %v postpone %v\n", s.interval, s.postpone)
	return s
}

func (s *Session) fetchText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var text string
	s.ed.Invoke(func() { text = s.ed.Text() })
	return text, nil
}

func (s *Session) isClosed() bool {
	s.closedMu.RLock()
	defer s.closedMu.RUnlock()
	return s.closed
}

// Shared returns the process-wide catalog the session reads
func (s *Session) Shared() *catalog.Catalog { return s.shared }

// Instance returns the catalog owned by this session
func (s *Session) Instance() *catalog.Catalog { return s.instance }

func (s *Session) Navigator() *calltip.Navigator { return s.nav }

func (s *Session) Styles() *calltip.Styles { return s.styles }

func (s *Session) Reanalyzer() *reanalyze.Reanalyzer { return s.reanalyzer }

// SetFilterAnywhere switches the call-tip filter between prefix and
// substring matching
func (s *Session) SetFilterAnywhere(on bool) { s.nav.SetMatchAnywhere(on) }

// WordList returns the current autocomplete word list in wire format
func (s *Session) WordList() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.words.String()
}

// Words returns a copy of the current word list
func (s *Session) Words() *wordlist.Builder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.words.Clone()
}

// Reanalyze analyzes the current text now. It reports whether an analysis
// ran; unchanged text is not analyzed again. Like CacheLibraries it reads
// the text through Invoke.
func (s *Session) Reanalyze() bool {
	if s.isClosed() {
		return false
	}
	return s.reanalyzer.Trigger()
}

// MemberType resolves a member of a library type through the instance
// catalog, then the shared one
func (s *Session) MemberType(owner *typename.Descriptor, member string) *typename.Descriptor {
	if t := s.instance.MemberType(owner, member); t != nil {
		return t
	}
	return s.shared.MemberType(owner, member)
}

func (s *Session) catalogs() []*catalog.Catalog {
	return []*catalog.Catalog{s.instance, s.shared}
}

// CacheLibraries catalogs the libraries named by the using directives of
// the document, into the shared catalog when asStatic is set and into the
// session catalog otherwise, then rebuilds the word list. Libraries that
// fail to load are recorded in the report; only cancellation is returned
// as an error. The text is read through Invoke, so CacheLibraries must not
// be called from the goroutine that owns the editor.
func (s *Session) CacheLibraries(ctx context.Context, asStatic bool) (catalog.Report, error) {
	if s.loader == nil {
		return catalog.Report{}, ErrNoLoader
	}
	var text string
	s.ed.Invoke(func() { text = s.ed.Text() })

	names := library.DetectImports(text)
	libs, loadErr := s.loader.LoadAll(ctx, names)
	if err := ctx.Err(); err != nil {
		return catalog.Report{}, err
	}

	target := s.instance
	if asStatic {
		target = s.shared
	}
	report, err := target.Populate(ctx, libs, s.loader.LoadedPaths())
	if err != nil {
		return report, err
	}
	var multi *csacerrors.MultiError
	if errors.As(loadErr, &multi) {
		report.Failed = append(report.Failed, multi.Errors...)
	} else if loadErr != nil {
		report.Failed = append(report.Failed, loadErr)
	}

	s.reanalyzer.TriggerText(text)
	s.rebuildWordList()
	s.log.Info("libraries cached", "imports", len(names), "catalog", target.Name(), "report", report.String())
	return report, nil
}

// rebuildWordList starts the word list over from the cataloged types and
// the language keywords
func (s *Session) rebuildWordList() {
	b := wordlist.New()
	for _, c := range s.catalogs() {
		b.AddFromCatalog(c.Entries(), nil, "")
	}
	b.AddKeywords(wordlist.Keywords, types.KindKeyword, "")
	b.AddKeywords(wordlist.TypeWords, types.KindBuiltinType, "")

	s.mu.Lock()
	s.words = b
	s.mu.Unlock()
}

// HandleTextChanged pushes the pending re-analysis back
func (s *Session) HandleTextChanged() {
	if s.isClosed() {
		return
	}
	s.reanalyzer.Postpone(s.postpone)
}

// HandleCharAdded reacts to a typed character. Nothing happens inside
// string literals. A dot opens the member call tip of the expression
// before it; any other character refreshes the local names and suggests
// completions.
func (s *Session) HandleCharAdded(r rune) {
	if s.isClosed() {
		return
	}
	pos := s.ed.CaretPosition()
	if InString(s.ed.Text(), pos) {
		return
	}
	if r == '.' {
		s.memberAccess(pos)
		return
	}
	s.refreshLocals(pos)
	s.AutoCompleteSuggest()
}

// AutoCompleteSuggest shows the word list for the word being typed unless
// the popup is already open
func (s *Session) AutoCompleteSuggest() {
	pos := s.ed.CaretPosition()
	lenEntered := pos - s.ed.WordStartPosition(pos)
	if lenEntered > 0 && !s.ed.AutoCompleteActive() {
		s.ed.ShowAutoComplete(lenEntered, s.WordList())
	}
}

// Complete refreshes the local names at the caret and returns the length
// of the word being typed with a copy of the word list. Hosts without an
// autocomplete popup call it instead of waiting for typed characters.
func (s *Session) Complete() (int, *wordlist.Builder) {
	pos := s.ed.CaretPosition()
	if !s.isClosed() && !InString(s.ed.Text(), pos) {
		s.refreshLocals(pos)
	}
	return pos - s.ed.WordStartPosition(pos), s.Words()
}

// refreshLocals replaces the local variables and properties of the word
// list with the names in scope at pos. Analysis errors leave the list as is.
func (s *Session) refreshLocals(pos int) {
	ctx := context.Background()
	symbols, err := s.engine.RecommendedSymbols(ctx, pos)
	if err != nil {
		s.log.V(1).Info("no symbols at caret", "offset", pos, "error", err.Error())
		return
	}
	var locals, props []string
	for _, sym := range symbols {
		switch sym.Kind {
		case analysis.SymbolLocal, analysis.SymbolParameter:
			locals = append(locals, sym.Name)
		case analysis.SymbolProperty:
			props = append(props, sym.Name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.words.RemoveKind(types.KindLocalVariable).
		RemoveKind(types.KindProperty).
		AddKeywords(locals, types.KindLocalVariable, "").
		AddKeywords(props, types.KindProperty, "")
}

// memberAccess opens the call tip for the members of the word before the
// dot at pos-1
func (s *Session) memberAccess(pos int) {
	// already on the owner goroutine, so no Invoke
	text := s.ed.Text()
	s.reanalyzer.TriggerText(text)

	dot := pos - 1
	start := s.ed.WordStartPosition(dot)
	if start >= dot || dot > len(text) {
		s.nav.Escape()
		return
	}
	word := text[start:dot]

	owner := s.findOwner(word, start, dot)
	s.ed.HideCallTip()
	if owner == nil {
		debug.LogSession("no members for %q\n", word)
		s.nav.Escape()
		return
	}
	entries := calltip.Assemble(owner, s.shared.Mapper(), s.returnTypes)
	if s.nav.Show(entries) {
		s.ed.ShowCallTip(s.nav)
	}
}

// findOwner picks the catalog entry whose members follow word: a static
// class of that name, a type of that name, or the type of the expression
// itself
func (s *Session) findOwner(word string, start, end int) *catalog.Entry {
	for _, c := range s.catalogs() {
		if e := c.FindStaticClass(word); e != nil {
			return e
		}
	}
	for _, c := range s.catalogs() {
		for _, e := range c.Lookup(word) {
			if e.ConstructType != nil && e.ConstructType.Name == word {
				return e
			}
		}
	}
	t, err := s.engine.TypeOfExpression(context.Background(), start, end)
	if err != nil || t == nil {
		if err != nil {
			s.log.V(1).Info("expression type unknown", "word", word, "error", err.Error())
		}
		return nil
	}
	for _, c := range s.catalogs() {
		if e := c.FindByType(t); e != nil {
			return e
		}
	}
	return nil
}

// insertSelection writes the chosen call-tip entry at the caret. Methods
// get their parentheses with the caret between them.
func (s *Session) insertSelection(e *calltip.Entry) {
	insert := e.BodyTextNoParameters
	method := e.Kind == types.KindMethod
	if method {
		insert += "("
	}
	pos := s.ed.CaretPosition()
	s.ed.InsertText(pos, insert)
	pos += len(insert)
	s.ed.SetCaret(pos)
	if method {
		s.ed.InsertText(pos, ")")
	}
}

// Close detaches the session from the editor and stops re-analysis. It is
// safe to call more than once; every call returns the first result. An
// analysis still running after the dispose timeout is abandoned and
// reported, never waited for.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closedMu.Lock()
		s.closed = true
		s.closedMu.Unlock()

		for _, off := range s.unsubscribe {
			off()
		}
		s.nav.Escape()
		s.closeErr = s.reanalyzer.Close(s.disposeTimeout)
		if s.closeErr != nil {
			s.log.Info("reanalysis abandoned on close", "error", s.closeErr.Error())
		}
		if s.workspace != nil {
			s.workspace.Close()
		}
		debug.LogSession("session closed\n")
	})
	return s.closeErr
}
