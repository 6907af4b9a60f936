// Package state provides an observable value holder.
package state

import "sync"

// Store holds a value and notifies subscribers synchronously every time it is
// replaced. Notifications are delivered in update order. Subscribers may read
// the store but must not update it from inside the callback.
type Store[T any] struct {
	mu     sync.RWMutex
	value  T
	subs   map[int]func(T)
	nextID int

	// serializes update+notify so subscribers observe updates in order
	notifyMu sync.Mutex
}

// NewStore creates a store holding initial
func NewStore[T any](initial T) *Store[T] {
	return &Store[T]{
		value: initial,
		subs:  make(map[int]func(T)),
	}
}

// Get returns the current value
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value
func (s *Store[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update replaces the value with fn(current) and returns the new value
func (s *Store[T]) Update(fn func(T) T) T {
	v, _ := s.TryUpdate(func(cur T) (T, error) { return fn(cur), nil })
	return v
}

// TryUpdate is like Update but leaves the value untouched, and notifies nobody,
// when fn returns an error.
func (s *Store[T]) TryUpdate(fn func(T) (T, error)) (T, error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next, err := fn(s.value)
	if err != nil {
		cur := s.value
		s.mu.Unlock()
		return cur, err
	}
	s.value = next
	subs := make([]func(T), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if sub, ok := s.subs[id]; ok {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(next)
	}
	return next, nil
}

// Subscribe registers fn for future updates and returns a function removing it
func (s *Store[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}
