// Package level implements a single bounded cache level.
package level

import (
	"errors"
	"fmt"

	"github.com/discochess/tiercache/internal/policy"
)

var (
	// ErrInvalidCapacity is returned when a level is created with a
	// capacity below one.
	ErrInvalidCapacity = errors.New("level: capacity must be positive")

	// ErrInconsistent indicates that a level's entries and its policy
	// disagree. It always points at a bug.
	ErrInconsistent = errors.New("level: inconsistent state")
)

// Entry is a resident key and its value.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

// Eviction describes the victim of a Put, if any.
type Eviction[K comparable, V any] struct {
	Entry[K, V]
	Evicted bool
}

// Level is a bounded key/value store whose eviction order is decided by a
// policy. A Level is not safe for concurrent use.
type Level[K comparable, V any] struct {
	capacity int
	entries  map[K]V
	policy   policy.Policy[K]
}

// New creates an empty level.
func New[K comparable, V any](capacity int, kind policy.Kind) (*Level[K, V], error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	p, err := policy.New[K](kind, capacity)
	if err != nil {
		return nil, err
	}
	return &Level[K, V]{
		capacity: capacity,
		entries:  make(map[K]V, capacity),
		policy:   p,
	}, nil
}

// Get returns the value for key and records the access with the policy.
func (l *Level[K, V]) Get(key K) (V, bool) {
	v, ok := l.entries[key]
	if ok {
		l.policy.Access(key)
	}
	return v, ok
}

// Peek returns the value for key without touching the policy.
func (l *Level[K, V]) Peek(key K) (V, bool) {
	v, ok := l.entries[key]
	return v, ok
}

// Contains reports whether key is resident.
func (l *Level[K, V]) Contains(key K) bool {
	_, ok := l.entries[key]
	return ok
}

// Put stores value under key. Overwriting a resident key counts as an
// access. Inserting into a full level first evicts the policy's victim,
// which is returned.
//
// If the policy cannot produce a victim the level is left unchanged and the
// returned error wraps ErrInconsistent.
func (l *Level[K, V]) Put(key K, value V) (Eviction[K, V], error) {
	var ev Eviction[K, V]

	if _, ok := l.entries[key]; ok {
		l.entries[key] = value
		l.policy.Access(key)
		return ev, nil
	}

	if len(l.entries) >= l.capacity {
		victim, err := l.policy.Evict()
		if err != nil {
			return ev, fmt.Errorf("%w: evicting from full level (%d/%d): %w",
				ErrInconsistent, len(l.entries), l.capacity, err)
		}
		victimValue, ok := l.entries[victim]
		if !ok {
			return ev, fmt.Errorf("%w: policy evicted non-resident key %v", ErrInconsistent, victim)
		}
		delete(l.entries, victim)
		ev = Eviction[K, V]{Entry: Entry[K, V]{Key: victim, Value: victimValue}, Evicted: true}
	}

	l.entries[key] = value
	l.policy.Insert(key)
	return ev, nil
}

// Remove deletes key and its tracking state, returning the removed value.
func (l *Level[K, V]) Remove(key K) (V, bool) {
	v, ok := l.entries[key]
	if !ok {
		return v, false
	}
	delete(l.entries, key)
	l.policy.Remove(key)
	return v, true
}

// Snapshot returns the resident entries in eviction order, next victim
// first. It does not count as an access.
func (l *Level[K, V]) Snapshot() []Entry[K, V] {
	keys := l.policy.Keys()
	out := make([]Entry[K, V], 0, len(keys))
	for _, k := range keys {
		if v, ok := l.entries[k]; ok {
			out = append(out, Entry[K, V]{Key: k, Value: v})
		}
	}
	return out
}

// Len returns the number of resident entries.
func (l *Level[K, V]) Len() int {
	return len(l.entries)
}

// Capacity returns the maximum number of resident entries.
func (l *Level[K, V]) Capacity() int {
	return l.capacity
}

// Kind returns the level's eviction policy kind.
func (l *Level[K, V]) Kind() policy.Kind {
	return l.policy.Kind()
}

// Verify checks the capacity bound and that the policy tracks exactly the
// resident keys.
func (l *Level[K, V]) Verify() error {
	if len(l.entries) > l.capacity {
		return fmt.Errorf("%w: %d entries exceed capacity %d", ErrInconsistent, len(l.entries), l.capacity)
	}
	if l.policy.Len() != len(l.entries) {
		return fmt.Errorf("%w: policy tracks %d keys, level holds %d", ErrInconsistent, l.policy.Len(), len(l.entries))
	}
	for k := range l.entries {
		if !l.policy.Contains(k) {
			return fmt.Errorf("%w: key %v is not tracked by the policy", ErrInconsistent, k)
		}
	}
	return nil
}
