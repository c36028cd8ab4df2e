package policy

import (
	"container/heap"
	"sort"
)

// Compile-time check that LFU implements Policy.
var _ Policy[string] = (*LFU[string])(nil)

// compactSlack is the number of stale heap entries tolerated on top of
// twice the tracked set before the heap is rebuilt.
const compactSlack = 64

// LFU orders keys by access count. Keys with equal counts are evicted in
// insertion order.
//
// The counts map is authoritative. The heap receives a new entry on every
// Insert and Access and is never updated in place, so it may hold stale
// entries; Evict discards any entry that no longer matches its key's record.
type LFU[K comparable] struct {
	records map[K]lfuRecord
	heap    lfuHeap[K]
	nextSeq uint64
}

type lfuRecord struct {
	count uint64
	seq   uint64
}

type lfuEntry[K comparable] struct {
	key   K
	count uint64
	seq   uint64
}

// NewLFU creates an empty LFU policy.
func NewLFU[K comparable]() *LFU[K] {
	return &LFU[K]{records: make(map[K]lfuRecord)}
}

// Insert tracks key with a count of one.
func (p *LFU[K]) Insert(key K) {
	if _, ok := p.records[key]; ok {
		p.Access(key)
		return
	}
	p.nextSeq++
	rec := lfuRecord{count: 1, seq: p.nextSeq}
	p.records[key] = rec
	p.push(key, rec)
}

// Access increments the count of a tracked key.
func (p *LFU[K]) Access(key K) {
	rec, ok := p.records[key]
	if !ok {
		return
	}
	rec.count++
	p.records[key] = rec
	p.push(key, rec)
}

// Evict removes and returns the key with the lowest count.
func (p *LFU[K]) Evict() (K, error) {
	for p.heap.Len() > 0 {
		e := heap.Pop(&p.heap).(lfuEntry[K])
		if !p.valid(e) {
			continue
		}
		delete(p.records, e.key)
		return e.key, nil
	}
	var zero K
	return zero, ErrEmpty
}

// Remove stops tracking key. Its heap entries become stale.
func (p *LFU[K]) Remove(key K) {
	delete(p.records, key)
	if len(p.records) == 0 {
		p.heap = p.heap[:0]
	}
}

// Contains reports whether key is tracked.
func (p *LFU[K]) Contains(key K) bool {
	_, ok := p.records[key]
	return ok
}

// Len returns the number of tracked keys.
func (p *LFU[K]) Len() int {
	return len(p.records)
}

// Count returns the access count of key, or zero if it is not tracked.
func (p *LFU[K]) Count(key K) uint64 {
	return p.records[key].count
}

// Keys returns keys in eviction order: lowest count first, then earliest
// insertion.
func (p *LFU[K]) Keys() []K {
	entries := make([]lfuEntry[K], 0, len(p.records))
	for k, rec := range p.records {
		entries = append(entries, lfuEntry[K]{key: k, count: rec.count, seq: rec.seq})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].less(entries[j])
	})
	keys := make([]K, len(entries))
	for i, e := range entries {
		keys[i] = e.key
	}
	return keys
}

// Kind returns KindLFU.
func (p *LFU[K]) Kind() Kind {
	return KindLFU
}

func (p *LFU[K]) push(key K, rec lfuRecord) {
	heap.Push(&p.heap, lfuEntry[K]{key: key, count: rec.count, seq: rec.seq})
	if p.heap.Len() > 2*len(p.records)+compactSlack {
		p.compact()
	}
}

// compact rebuilds the heap with exactly one entry per tracked key.
func (p *LFU[K]) compact() {
	h := make(lfuHeap[K], 0, len(p.records))
	for k, rec := range p.records {
		h = append(h, lfuEntry[K]{key: k, count: rec.count, seq: rec.seq})
	}
	heap.Init(&h)
	p.heap = h
}

func (p *LFU[K]) valid(e lfuEntry[K]) bool {
	rec, ok := p.records[e.key]
	return ok && rec.count == e.count && rec.seq == e.seq
}

func (e lfuEntry[K]) less(o lfuEntry[K]) bool {
	if e.count != o.count {
		return e.count < o.count
	}
	return e.seq < o.seq
}

// lfuHeap is a min-heap of entries ordered by (count, seq).
type lfuHeap[K comparable] []lfuEntry[K]

func (h lfuHeap[K]) Len() int           { return len(h) }
func (h lfuHeap[K]) Less(i, j int) bool { return h[i].less(h[j]) }
func (h lfuHeap[K]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *lfuHeap[K]) Push(x any) {
	*h = append(*h, x.(lfuEntry[K]))
}

func (h *lfuHeap[K]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
