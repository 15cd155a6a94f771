// Package event provides a minimal typed publish/subscribe primitive.
package event

import "sync"

// Emitter delivers values to registered handlers.
//
// Handlers run synchronously on the goroutine that calls Fire, in
// registration order. Subscribing or unsubscribing from inside a handler is
// allowed; the change takes effect on the next Fire.
type Emitter[T any] struct {
	mu       sync.Mutex
	nextID   uint64
	handlers []subscription[T]
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// New returns an empty Emitter.
func New[T any]() *Emitter[T] {
	return &Emitter[T]{}
}

// Subscribe registers fn and returns a function that removes it.
// The returned function is safe to call multiple times.
func (e *Emitter[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.handlers = append(e.handlers, subscription[T]{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(id) })
	}
}

func (e *Emitter[T]) remove(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.handlers {
		if s.id == id {
			// Copy-on-write: Fire may be iterating over the old slice.
			next := make([]subscription[T], 0, len(e.handlers)-1)
			next = append(next, e.handlers[:i]...)
			e.handlers = append(next, e.handlers[i+1:]...)
			return
		}
	}
}

// Fire delivers v to every handler registered at the time of the call.
func (e *Emitter[T]) Fire(v T) {
	e.mu.Lock()
	handlers := e.handlers
	e.mu.Unlock()
	for _, s := range handlers {
		s.fn(v)
	}
}

// Len returns the number of registered handlers.
func (e *Emitter[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handlers)
}
