package policy

import (
	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// Compile-time check that LRU implements Policy.
var _ Policy[string] = (*LRU[string])(nil)

// LRU orders keys by recency of use.
type LRU[K comparable] struct {
	list *simplelru.LRU[K, struct{}]
}

// NewLRU creates an LRU policy for a level holding at most capacity keys.
func NewLRU[K comparable](capacity int) (*LRU[K], error) {
	l, err := simplelru.NewLRU[K, struct{}](capacity, nil)
	if err != nil {
		return nil, err
	}
	return &LRU[K]{list: l}, nil
}

// Insert makes key the most recently used.
func (p *LRU[K]) Insert(key K) {
	// The level evicts before inserting, so Add never drops a key here.
	p.list.Add(key, struct{}{})
}

// Access moves a tracked key to the most recently used position.
func (p *LRU[K]) Access(key K) {
	p.list.Get(key)
}

// Evict removes and returns the least recently used key.
func (p *LRU[K]) Evict() (K, error) {
	key, _, ok := p.list.RemoveOldest()
	if !ok {
		var zero K
		return zero, ErrEmpty
	}
	return key, nil
}

// Remove stops tracking key.
func (p *LRU[K]) Remove(key K) {
	p.list.Remove(key)
}

// Contains reports whether key is tracked.
func (p *LRU[K]) Contains(key K) bool {
	return p.list.Contains(key)
}

// Len returns the number of tracked keys.
func (p *LRU[K]) Len() int {
	return p.list.Len()
}

// Keys returns keys from least to most recently used.
func (p *LRU[K]) Keys() []K {
	return p.list.Keys()
}

// Kind returns KindLRU.
func (p *LRU[K]) Kind() Kind {
	return KindLRU
}
