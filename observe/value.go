// Package observe holds last-value cells with change subscriptions.
//
// Subscribers run synchronously on the goroutine that publishes, in
// subscription order, so publishers that are serialized deliver their
// notifications in publish order.
package observe

import "sync"

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Event fans a value out to its subscribers without retaining it.
type Event[T any] struct {
	mu     sync.Mutex
	subs   []subscriber[T]
	nextID uint64
}

// Subscribe registers fn and returns a function that removes it.
func (e *Event[T]) Subscribe(fn func(T)) (cancel func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.subs = append(e.subs, subscriber[T]{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.subs {
			if s.id == id {
				e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit calls every subscriber with x.
func (e *Event[T]) Emit(x T) {
	e.mu.Lock()
	subs := e.subs
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(x)
	}
}

// Value is the latest published T plus a version that increases on every
// Set. The zero value is ready to use.
type Value[T any] struct {
	Event[T]

	mu      sync.RWMutex
	v       T
	version uint64
}

// Get returns the latest value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v
}

// Load returns the latest value and its version. Version 0 means nothing
// has been published yet.
func (v *Value[T]) Load() (T, uint64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.v, v.version
}

// Version returns the number of Set calls so far.
func (v *Value[T]) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Set stores x and notifies subscribers.
func (v *Value[T]) Set(x T) {
	v.mu.Lock()
	v.v = x
	v.version++
	v.mu.Unlock()

	v.Emit(x)
}

// Reset clears the value without notifying anyone. The version keeps
// counting.
func (v *Value[T]) Reset() {
	var zero T
	v.mu.Lock()
	v.v = zero
	v.mu.Unlock()
}

// Sample is a decoded value stamped with the device time in milliseconds.
type Sample[T any] struct {
	Timestamp uint64 `json:"timestamp"`
	Value     T      `json:"value"`
}
