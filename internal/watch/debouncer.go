package watch

import (
	"context"
	"sync"
	"time"
)

// eventDebouncer batches file events until no new event arrived for the
// debounce period. The latest event per path wins.
type eventDebouncer struct {
	mu       sync.Mutex
	events   map[string]EventType
	debounce time.Duration
	kick     chan struct{}
	flushFn  func(map[string]EventType)
}

func newEventDebouncer(debounce time.Duration) *eventDebouncer {
	return &eventDebouncer{
		events:   make(map[string]EventType),
		debounce: debounce,
		kick:     make(chan struct{}, 1),
	}
}

func (d *eventDebouncer) addEvent(path string, eventType EventType) {
	d.mu.Lock()
	d.events[path] = eventType
	d.mu.Unlock()

	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// pending returns the number of events waiting for a flush
func (d *eventDebouncer) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}

// run owns the timer. Pending events are not flushed on shutdown.
func (d *eventDebouncer) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	timer := time.NewTimer(d.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(d.debounce)
		case <-timer.C:
			d.flush()
		}
	}
}

func (d *eventDebouncer) flush() {
	d.mu.Lock()
	events := d.events
	d.events = make(map[string]EventType)
	d.mu.Unlock()

	if len(events) == 0 || d.flushFn == nil {
		return
	}
	d.flushFn(events)
}
