package concurrency

import (
	"sync"
)

// Registry is a thread-safe, insertion-ordered collection of items of type T
type Registry[T any] struct {
	mu       sync.RWMutex
	items    []T
	equalsFn func(a, b T) bool
}

// NewRegistry creates a new thread-safe registry with a custom equals function
func NewRegistry[T any](equalsFn func(a, b T) bool) *Registry[T] {
	return &Registry[T]{
		items:    make([]T, 0),
		equalsFn: equalsFn,
	}
}

// Add appends an item unless an equal one is already registered
func (r *Registry[T]) Add(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if r.equalsFn(existing, item) {
			return false
		}
	}
	r.items = append(r.items, item)
	return true
}

// Remove removes an item from the registry
func (r *Registry[T]) Remove(item T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, existing := range r.items {
		if r.equalsFn(existing, item) {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return true
		}
	}
	return false
}

// Contains checks if an item exists in the registry
func (r *Registry[T]) Contains(item T) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, existing := range r.items {
		if r.equalsFn(existing, item) {
			return true
		}
	}
	return false
}

// GetAll returns a copy of all items in insertion order
func (r *Registry[T]) GetAll() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]T, len(r.items))
	copy(result, r.items)
	return result
}

// DrainReverse empties the registry and returns its items newest first, the
// order dependents must be released in.
func (r *Registry[T]) DrainReverse() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]T, len(r.items))
	for i, item := range r.items {
		result[len(r.items)-1-i] = item
	}
	r.items = make([]T, 0)
	return result
}

// Len returns the number of items in the registry
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
