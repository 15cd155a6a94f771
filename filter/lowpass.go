// Package filter provides rate-limiting middleware for high-frequency
// engine signals. Consumers wrap a raw status stream with a [LowPass] (or the
// channel form, [Throttle]) to get a stream that never changes faster than a
// perceptible rate but never hides an urgent transition.
package filter

import (
	"sync"
	"time"
)

// DefaultWindow is the minimum interval between two non-urgent emissions.
const DefaultWindow = 300 * time.Millisecond

// LowPass turns a high-frequency stream of values into a low-frequency one.
//
// Within one window only the first value is emitted immediately; later
// values are buffered and the most recent one is emitted once when the
// window ends. Urgent values bypass the window: they are emitted at once,
// drop any buffered value and start a new window.
//
// emit runs while LowPass holds its lock, so emissions are delivered in the
// order they were decided. emit must not call Input.
type LowPass[T any] struct {
	window time.Duration
	emit   func(T)
	clock  clock

	mu         sync.Mutex
	emitted    bool
	lastEmit   time.Time
	pending    T
	hasPending bool
	timer      stopper
	gen        uint64 // invalidates armed timers
	closed     bool
}

// NewLowPass returns a filter that calls emit for every value it lets
// through. Windows <= 0 use DefaultWindow.
func NewLowPass[T any](window time.Duration, emit func(T)) *LowPass[T] {
	return newLowPass(window, emit, realClock{})
}

func newLowPass[T any](window time.Duration, emit func(T), c clock) *LowPass[T] {
	if window <= 0 {
		window = DefaultWindow
	}
	return &LowPass[T]{window: window, emit: emit, clock: c}
}

// Input offers v to the filter. Urgent values are never delayed or dropped.
// Input after Close is a no-op.
func (f *LowPass[T]) Input(v T, urgent bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	now := f.clock.Now()
	switch {
	case urgent:
		f.cancelPending()
		f.fire(v, now)
	case !f.hasPending && f.windowOpen(now):
		f.fire(v, now)
	default:
		f.pending = v
		if !f.hasPending {
			f.hasPending = true
			f.arm(now)
		}
	}
}

// Flush emits the buffered value now, if there is one, without waiting for
// the window to end.
func (f *LowPass[T]) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || !f.hasPending {
		return
	}
	v := f.pending
	f.cancelPending()
	f.fire(v, f.clock.Now())
}

// Close revokes any armed timer and drops the buffered value.
// No emission happens after Close returns. Safe to call multiple times.
func (f *LowPass[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cancelPending()
}

func (f *LowPass[T]) windowOpen(now time.Time) bool {
	return !f.emitted || now.Sub(f.lastEmit) >= f.window
}

// arm schedules the buffered value for the end of the current window.
// Caller must hold f.mu.
func (f *LowPass[T]) arm(now time.Time) {
	delay := max(f.lastEmit.Add(f.window).Sub(now), 0)
	gen := f.gen
	f.timer = f.clock.AfterFunc(delay, func() { f.expire(gen) })
}

// expire emits the buffered value when its window ends, unless the timer
// was revoked in the meantime.
func (f *LowPass[T]) expire(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || gen != f.gen || !f.hasPending {
		return
	}
	v := f.pending
	f.clearPending()
	f.timer = nil
	f.fire(v, f.clock.Now())
}

// cancelPending stops the armed timer and drops the buffered value.
// Caller must hold f.mu.
func (f *LowPass[T]) cancelPending() {
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	f.clearPending()
}

func (f *LowPass[T]) clearPending() {
	var zero T
	f.pending = zero
	f.hasPending = false
}

// fire records the emission time and delivers v. Caller must hold f.mu.
func (f *LowPass[T]) fire(v T, now time.Time) {
	f.emitted = true
	f.lastEmit = now
	f.emit(v)
}
