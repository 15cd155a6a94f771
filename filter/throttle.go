package filter

import (
	"context"
	"time"
)

// Throttle returns a channel carrying the values of in, rate limited by a
// LowPass with the given window. Values for which urgent returns true bypass
// the window. When in closes, any buffered value is flushed before the
// returned channel is closed.
//
// Spawns a goroutine that exits when ctx is cancelled or in is closed.
// Callers must either drain the returned channel or cancel ctx to avoid
// goroutine leaks. Values may be dropped if ctx is cancelled mid-send.
func Throttle[T any](ctx context.Context, in <-chan T, window time.Duration, urgent func(T) bool) <-chan T {
	out := make(chan T)
	lp := NewLowPass(window, func(v T) { trySend(ctx, out, v) })
	go func() {
		defer close(out)
		defer lp.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					lp.Flush()
					return
				}
				lp.Input(v, urgent != nil && urgent(v))
			}
		}
	}()
	return out
}

// trySend sends v on out, returning true on success.
// Returns false if ctx is cancelled before the send completes.
func trySend[T any](ctx context.Context, out chan<- T, v T) bool {
	select {
	case out <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
