package maps

import "sync"

// RWLocked is a map guarded by a sync.RWMutex. The zero value is empty and
// ready to use.
type RWLocked[K comparable, V any] struct {
	inner map[K]V
	mu    sync.RWMutex
}

func (T *RWLocked[K, V]) Delete(key K) {
	T.mu.Lock()
	defer T.mu.Unlock()
	delete(T.inner, key)
}

func (T *RWLocked[K, V]) Load(key K) (value V, ok bool) {
	T.mu.RLock()
	defer T.mu.RUnlock()
	value, ok = T.inner[key]
	return
}

func (T *RWLocked[K, V]) LoadAndDelete(key K) (value V, loaded bool) {
	T.mu.Lock()
	defer T.mu.Unlock()
	value, loaded = T.inner[key]
	delete(T.inner, key)
	return
}

func (T *RWLocked[K, V]) LoadOrStore(key K, value V) (actual V, loaded bool) {
	T.mu.Lock()
	defer T.mu.Unlock()
	actual, loaded = T.inner[key]
	if !loaded {
		if T.inner == nil {
			T.inner = make(map[K]V)
		}
		T.inner[key] = value
		actual = value
	}
	return
}

func (T *RWLocked[K, V]) Store(key K, value V) {
	T.mu.Lock()
	defer T.mu.Unlock()
	if T.inner == nil {
		T.inner = make(map[K]V)
	}
	T.inner[key] = value
}

// Update atomically replaces the value at key with fn's result. fn sees the
// current value and whether one is present; returning false leaves the map
// unchanged. Update reports whether a store happened.
func (T *RWLocked[K, V]) Update(key K, fn func(value V, ok bool) (V, bool)) bool {
	T.mu.Lock()
	defer T.mu.Unlock()
	value, ok := T.inner[key]
	next, store := fn(value, ok)
	if !store {
		return false
	}
	if T.inner == nil {
		T.inner = make(map[K]V)
	}
	T.inner[key] = next
	return true
}

func (T *RWLocked[K, V]) Len() int {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return len(T.inner)
}

func (T *RWLocked[K, V]) Range(fn func(key K, value V) bool) bool {
	// this is ok because if fn panics the map will be unlocked
	T.mu.RLock()
	for k, v := range T.inner {
		T.mu.RUnlock()
		if !fn(k, v) {
			return false
		}
		T.mu.RLock()
	}
	T.mu.RUnlock()
	return true
}
