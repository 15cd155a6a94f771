package filter

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeClock is a manually advanced clock. Timers fire synchronously inside
// Advance, in deadline order.
type fakeClock struct {
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) stopper {
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	target := c.now.Add(d)
	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			break
		}
		c.now = next.at
		next.fired = true
		next.f()
	}
	c.now = target
}

type emission[T any] struct {
	v  T
	at time.Time
}

// recorder collects emissions with the fake time they happened at.
type recorder[T any] struct {
	clock *fakeClock
	got   []emission[T]
}

func (r *recorder[T]) emit(v T) {
	r.got = append(r.got, emission[T]{v: v, at: r.clock.Now()})
}

func (r *recorder[T]) values() []T {
	out := make([]T, 0, len(r.got))
	for _, e := range r.got {
		out = append(out, e.v)
	}
	return out
}

func newTestLowPass[T any](window time.Duration) (*LowPass[T], *fakeClock, *recorder[T]) {
	c := newFakeClock()
	r := &recorder[T]{clock: c}
	return newLowPass(window, r.emit, c), c, r
}

const ms = time.Millisecond

// ---------------------------------------------------------------------------
// Behavior
// ---------------------------------------------------------------------------

func TestLowPass_FirstValueImmediate(t *testing.T) {
	lp, _, r := newTestLowPass[string](300 * ms)
	lp.Input("a", false)
	if !slices.Equal(r.values(), []string{"a"}) {
		t.Fatalf("emissions = %v, want [a]", r.values())
	}
}

func TestLowPass_DefaultWindow(t *testing.T) {
	lp := NewLowPass(0, func(int) {})
	defer lp.Close()
	if lp.window != DefaultWindow {
		t.Errorf("window = %v, want %v", lp.window, DefaultWindow)
	}
}

func TestLowPass_BuffersLatestUntilWindowEnds(t *testing.T) {
	lp, c, r := newTestLowPass[string](300 * ms)

	lp.Input("a", false) // t=0
	c.Advance(50 * ms)
	lp.Input("b", false) // t=50, buffered
	c.Advance(50 * ms)
	lp.Input("c", false) // t=100, replaces b
	c.Advance(199 * ms)
	if !slices.Equal(r.values(), []string{"a"}) {
		t.Fatalf("before window end: emissions = %v, want [a]", r.values())
	}

	c.Advance(1 * ms) // t=300
	if !slices.Equal(r.values(), []string{"a", "c"}) {
		t.Fatalf("after window end: emissions = %v, want [a c]", r.values())
	}
	if got := r.got[1].at.Sub(r.got[0].at); got != 300*ms {
		t.Errorf("buffered value emitted after %v, want 300ms", got)
	}

	c.Advance(time.Second)
	if len(r.got) != 2 {
		t.Errorf("buffered value emitted more than once: %v", r.values())
	}
}

func TestLowPass_WindowReopensAfterQuietPeriod(t *testing.T) {
	lp, c, r := newTestLowPass[int](300 * ms)
	lp.Input(1, false)
	c.Advance(300 * ms)
	lp.Input(2, false)
	if !slices.Equal(r.values(), []int{1, 2}) {
		t.Fatalf("emissions = %v, want [1 2]", r.values())
	}
}

// Tasks [t1] at 0ms, [t1 t2] at 50ms, [] at 80ms (urgent): the idle snapshot
// goes out at once and the intermediate value is never emitted.
func TestLowPass_UrgentIdleBypassesWindow(t *testing.T) {
	lp, c, r := newTestLowPass[[]string](300 * ms)

	lp.Input([]string{"t1"}, false)
	c.Advance(50 * ms)
	lp.Input([]string{"t1", "t2"}, false)
	c.Advance(30 * ms)
	lp.Input([]string{}, true)

	if len(r.got) != 2 {
		t.Fatalf("got %d emissions, want 2: %v", len(r.got), r.values())
	}
	if !slices.Equal(r.got[0].v, []string{"t1"}) {
		t.Errorf("first emission = %v, want [t1]", r.got[0].v)
	}
	if len(r.got[1].v) != 0 {
		t.Errorf("second emission = %v, want []", r.got[1].v)
	}
	if got := r.got[1].at.Sub(r.got[0].at); got != 80*ms {
		t.Errorf("urgent emission at +%v, want +80ms", got)
	}

	c.Advance(time.Second)
	if len(r.got) != 2 {
		t.Errorf("intermediate value leaked after urgent input: %v", r.values())
	}
}

func TestLowPass_UrgentRestartsWindow(t *testing.T) {
	lp, c, r := newTestLowPass[string](300 * ms)
	lp.Input("a", false)
	c.Advance(250 * ms)
	lp.Input("idle", true) // t=250
	c.Advance(100 * ms)
	lp.Input("b", false) // t=350, inside the window opened at 250

	if !slices.Equal(r.values(), []string{"a", "idle"}) {
		t.Fatalf("emissions = %v, want [a idle]", r.values())
	}
	c.Advance(200 * ms) // t=550
	if !slices.Equal(r.values(), []string{"a", "idle", "b"}) {
		t.Fatalf("emissions = %v, want [a idle b]", r.values())
	}
	if got := r.got[2].at.Sub(r.got[1].at); got != 300*ms {
		t.Errorf("b emitted %v after urgent, want 300ms", got)
	}
}

func TestLowPass_ConsecutiveUrgentAllEmitted(t *testing.T) {
	lp, _, r := newTestLowPass[int](300 * ms)
	for i := range 5 {
		lp.Input(i, true)
	}
	if !slices.Equal(r.values(), []int{0, 1, 2, 3, 4}) {
		t.Errorf("emissions = %v, want all urgent inputs", r.values())
	}
}

func TestLowPass_CloseRevokesTimer(t *testing.T) {
	lp, c, r := newTestLowPass[string](300 * ms)
	lp.Input("a", false)
	lp.Input("b", false) // buffered, timer armed
	lp.Close()
	c.Advance(time.Second)
	lp.Input("c", true)

	if !slices.Equal(r.values(), []string{"a"}) {
		t.Errorf("emissions after Close = %v, want [a]", r.values())
	}
	lp.Close() // idempotent
}

func TestLowPass_Flush(t *testing.T) {
	lp, c, r := newTestLowPass[string](300 * ms)
	lp.Input("a", false)
	lp.Input("b", false)
	lp.Flush()
	lp.Flush() // nothing pending
	c.Advance(time.Second)

	if !slices.Equal(r.values(), []string{"a", "b"}) {
		t.Errorf("emissions = %v, want [a b]", r.values())
	}
}

// ---------------------------------------------------------------------------
// Properties over random input sequences
// ---------------------------------------------------------------------------

type input struct {
	id     int
	urgent bool
	at     time.Duration
}

func TestLowPass_RandomSequences(t *testing.T) {
	const window = 300 * ms
	rng := rand.New(rand.NewPCG(1, 2))

	for round := range 200 {
		var inputs []input
		var at time.Duration
		n := 1 + rng.IntN(40)
		for id := range n {
			at += time.Duration(rng.IntN(200)) * ms
			inputs = append(inputs, input{id: id, urgent: rng.IntN(5) == 0, at: at})
		}

		lp, c, r := newTestLowPass[int](window)
		start := c.Now()
		for _, in := range inputs {
			c.Advance(start.Add(in.at).Sub(c.Now()))
			lp.Input(in.id, in.urgent)
		}
		c.Advance(2 * window)

		checkSubsequence(t, round, inputs, r.values())
		checkUrgentEmitted(t, round, inputs, r.values())
		checkSpacing(t, round, inputs, r.got, window)
		checkLastValueEmitted(t, round, inputs, r.values())
	}
}

func checkSubsequence(t *testing.T, round int, inputs []input, got []int) {
	t.Helper()
	last := -1
	for _, id := range got {
		if id <= last || id >= len(inputs) {
			t.Fatalf("round %d: emissions %v are not an ordered subsequence of inputs", round, got)
		}
		last = id
	}
}

func checkUrgentEmitted(t *testing.T, round int, inputs []input, got []int) {
	t.Helper()
	for _, in := range inputs {
		if in.urgent && !slices.Contains(got, in.id) {
			t.Fatalf("round %d: urgent input %d not emitted (emissions %v)", round, in.id, got)
		}
	}
}

func checkSpacing(t *testing.T, round int, inputs []input, got []emission[int], window time.Duration) {
	t.Helper()
	for i := 1; i < len(got); i++ {
		if inputs[got[i].v].urgent {
			continue
		}
		if gap := got[i].at.Sub(got[i-1].at); gap < window {
			t.Fatalf("round %d: non-urgent emission %d only %v after previous", round, got[i].v, gap)
		}
	}
}

// The final input is never lost: it is either emitted directly or flushed
// when its window ends.
func checkLastValueEmitted(t *testing.T, round int, inputs []input, got []int) {
	t.Helper()
	if len(got) == 0 || got[len(got)-1] != inputs[len(inputs)-1].id {
		t.Fatalf("round %d: last input %d not emitted last (emissions %v)", round, inputs[len(inputs)-1].id, got)
	}
}
