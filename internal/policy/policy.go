// Package policy implements the eviction policies attached to a cache level.
//
// A Policy only tracks keys; the owning level holds the values. Every key the
// level stores must be tracked by exactly one policy record and vice versa.
// Policies are not safe for concurrent use.
package policy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmpty is returned by Evict when no keys are tracked.
	ErrEmpty = errors.New("policy: no keys tracked")

	// ErrUnsupported is returned for policy kinds other than LRU and LFU.
	ErrUnsupported = errors.New("policy: unsupported kind")
)

// Kind names an eviction policy.
type Kind string

const (
	// KindLRU evicts the least recently used key.
	KindLRU Kind = "LRU"

	// KindLFU evicts the least frequently used key, breaking ties by the
	// earliest insertion.
	KindLFU Kind = "LFU"
)

// Kinds returns every supported kind.
func Kinds() []Kind {
	return []Kind{KindLRU, KindLFU}
}

// ParseKind parses a policy name, ignoring case and surrounding space.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindLRU:
		return KindLRU, nil
	case KindLFU:
		return KindLFU, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
}

// Policy tracks the keys resident in one cache level and picks eviction
// victims among them.
type Policy[K comparable] interface {
	// Insert starts tracking a key that is not tracked yet.
	// Inserting a tracked key counts as an Access.
	Insert(key K)

	// Access records a read or overwrite of a tracked key.
	// It is a no-op for untracked keys.
	Access(key K)

	// Evict selects a victim, stops tracking it and returns it.
	// It returns ErrEmpty if no keys are tracked.
	Evict() (K, error)

	// Remove stops tracking a key. It is a no-op for untracked keys.
	Remove(key K)

	// Contains reports whether key is tracked.
	Contains(key K) bool

	// Len returns the number of tracked keys.
	Len() int

	// Keys returns the tracked keys in eviction order, next victim first.
	// It does not change any tracking state.
	Keys() []K

	// Kind returns the policy kind.
	Kind() Kind
}

// New creates an empty policy of the given kind. Capacity is the maximum
// number of keys the owning level will hold.
func New[K comparable](kind Kind, capacity int) (Policy[K], error) {
	switch kind {
	case KindLRU:
		return NewLRU[K](capacity)
	case KindLFU:
		return NewLFU[K](), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, string(kind))
	}
}
