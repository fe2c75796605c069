// Package reanalyze re-runs document analysis once edits go quiet.
package reanalyze

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/standardbeagle/csac/internal/debug"
	csacerrors "github.com/standardbeagle/csac/internal/errors"
	"github.com/standardbeagle/csac/pkg/logger"
)

const (
	DefaultInterval     = 1000 * time.Millisecond
	DefaultPostpone     = 500 * time.Millisecond
	DefaultCloseTimeout = 3 * time.Second
)

// FetchFunc returns the current document text. Implementations hop onto the
// goroutine that owns the editor.
type FetchFunc func(ctx context.Context) (string, error)

// AnalyzeFunc re-binds the analysis workspace to text
type AnalyzeFunc func(ctx context.Context, text string) error

// Reanalyzer runs an analysis after a quiet interval. Each postponement
// reschedules the pending timer; it never brings the run forward. At most
// one analysis runs at a time, and unchanged text is not analyzed twice.
type Reanalyzer struct {
	fetch    FetchFunc
	analyze  AnalyzeFunc
	interval time.Duration
	log      *logr.Logger

	mu         sync.Mutex
	timer      *time.Timer
	gen        uint64
	deadline   time.Time
	started    bool
	closed     bool
	onComplete func()
	lastText   string
	analyzed   bool
	runs       int
	// texts are stamped when read; an analysis never replaces a newer one
	fetchSeq    uint64
	analyzedSeq uint64

	// serializes analyses
	runMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Reanalyzer
type Option func(*Reanalyzer)

// WithInterval sets the quiet interval. Non-positive values keep the default.
func WithInterval(d time.Duration) Option {
	return func(r *Reanalyzer) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithLogger(l *logr.Logger) Option {
	return func(r *Reanalyzer) {
		if l != nil {
			r.log = l
		}
	}
}

func New(fetch FetchFunc, analyze AnalyzeFunc, opts ...Option) *Reanalyzer {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reanalyzer{
		fetch:    fetch,
		analyze:  analyze,
		interval: DefaultInterval,
		log:      logger.GetNoopLogger(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start arms the first run one interval from now. Calling it again is a no-op.
func (r *Reanalyzer) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true
	r.armLocked(time.Now().Add(r.interval))
}

// Postpone pushes the pending run back by d, capped at one interval from
// now. The run is never moved earlier.
func (r *Reanalyzer) Postpone(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started || r.closed {
		return
	}
	now := time.Now()
	next := r.deadline.Add(d)
	if limit := now.Add(r.interval); next.After(limit) {
		next = limit
	}
	if floor := now.Add(min(d, r.interval)); next.Before(floor) {
		next = floor
	}
	if next.Before(r.deadline) {
		next = r.deadline
	}
	r.armLocked(next)
}

// armLocked replaces the pending timer. The generation check in fire drops
// a timer that already fired but lost the race for the lock.
func (r *Reanalyzer) armLocked(at time.Time) {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.gen++
	gen := r.gen
	r.deadline = at
	r.timer = time.AfterFunc(time.Until(at), func() { r.fire(gen) })
}

func (r *Reanalyzer) fire(gen uint64) {
	r.mu.Lock()
	if r.closed || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	ran := r.run()

	r.mu.Lock()
	// a postponement during the run has already re-armed the timer
	if !r.closed && gen == r.gen {
		r.armLocked(time.Now().Add(r.interval))
	}
	cb := r.onComplete
	r.mu.Unlock()

	if ran && cb != nil {
		cb()
	}
}

// Trigger runs an analysis now, on the calling goroutine. It reports
// whether analyze was called. Trigger fetches the text, so it must not be
// called from the goroutine that owns the editor; use TriggerText there.
func (r *Reanalyzer) Trigger() bool {
	if !r.enter() {
		return false
	}
	defer r.wg.Done()
	return r.complete(r.run())
}

// TriggerText analyzes text now without fetching it. The owner goroutine
// calls it with text it read directly.
func (r *Reanalyzer) TriggerText(text string) bool {
	if !r.enter() {
		return false
	}
	defer r.wg.Done()
	return r.complete(r.runText(r.nextSeq(), text))
}

func (r *Reanalyzer) enter() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.wg.Add(1)
	return true
}

func (r *Reanalyzer) complete(ran bool) bool {
	if !ran {
		return false
	}
	r.mu.Lock()
	cb := r.onComplete
	r.mu.Unlock()
	if cb != nil {
		cb()
	}
	return true
}

func (r *Reanalyzer) nextSeq() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchSeq++
	return r.fetchSeq
}

// run fetches outside runMu: the fetch may wait on the owner goroutine,
// which may itself be waiting for runMu in TriggerText.
func (r *Reanalyzer) run() bool {
	seq := r.nextSeq()
	text, err := r.fetch(r.ctx)
	if err != nil {
		r.log.V(1).Info("fetch failed, skipping analysis", "error", err.Error())
		return false
	}
	return r.runText(seq, text)
}

func (r *Reanalyzer) runText(seq uint64, text string) bool {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	r.mu.Lock()
	stale := seq < r.analyzedSeq
	unchanged := r.analyzed && text == r.lastText
	r.mu.Unlock()
	if stale || unchanged {
		return false
	}

	start := time.Now()
	if err := r.analyze(r.ctx, text); err != nil {
		// incomplete documents routinely fail to bind
		aerr := csacerrors.NewAnalysisError("reanalyze", len(text), err)
		r.log.V(1).Info("analysis failed", "error", aerr.Error())
	}
	debug.LogAnalysis("reanalyzed %d bytes in %v\n", len(text), time.Since(start))

	r.mu.Lock()
	r.lastText = text
	r.analyzed = true
	r.analyzedSeq = seq
	r.runs++
	r.mu.Unlock()
	return true
}

// SetOnComplete sets a hook called after every analysis that ran
func (r *Reanalyzer) SetOnComplete(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onComplete = fn
}

// Deadline returns the time of the pending run, zero before Start
func (r *Reanalyzer) Deadline() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deadline
}

// LastAnalyzed returns the text of the most recent analysis
func (r *Reanalyzer) LastAnalyzed() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastText
}

// Runs returns how many analyses have run
func (r *Reanalyzer) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

func (r *Reanalyzer) Interval() time.Duration {
	return r.interval
}

// Close stops the timer and waits up to timeout for an in-flight analysis.
// An analysis still running after the timeout is abandoned and keeps running
// in the background; the returned error wraps ErrAbandoned and is only worth
// logging. Close is idempotent and returns the first result on every call.
func (r *Reanalyzer) Close(timeout time.Duration) error {
	r.closeOnce.Do(func() {
		if timeout <= 0 {
			timeout = DefaultCloseTimeout
		}
		r.mu.Lock()
		r.closed = true
		if r.timer != nil {
			r.timer.Stop()
		}
		r.mu.Unlock()
		r.cancel()

		done := make(chan struct{})
		go func() {
			r.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(timeout):
			r.closeErr = fmt.Errorf("reanalyzer did not stop within %v: %w", timeout, csacerrors.ErrAbandoned)
			r.log.Info("abandoning in-flight analysis", "timeout", timeout.String())
		}
	})
	return r.closeErr
}
