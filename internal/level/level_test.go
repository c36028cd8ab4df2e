package level

import (
	"errors"
	"testing"

	"github.com/discochess/tiercache/internal/policy"
)

func newLevel(t *testing.T, capacity int, kind policy.Kind) *Level[string, int] {
	t.Helper()
	l, err := New[string, int](capacity, kind)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l
}

func keysOf(entries []Entry[string, int]) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

func TestNew_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		if _, err := New[string, int](capacity, policy.KindLRU); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("New(%d) error = %v, want ErrInvalidCapacity", capacity, err)
		}
	}
}

func TestNew_UnsupportedPolicy(t *testing.T) {
	if _, err := New[string, int](2, "FIFO"); !errors.Is(err, policy.ErrUnsupported) {
		t.Errorf("New(FIFO) error = %v, want policy.ErrUnsupported", err)
	}
}

func TestLevel_GetPut(t *testing.T) {
	l := newLevel(t, 2, policy.KindLRU)

	if _, ok := l.Get("a"); ok {
		t.Error("Get() should return false for missing key")
	}

	if _, err := l.Put("a", 1); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	v, ok := l.Get("a")
	if !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v, want 1, true", v, ok)
	}
}

func TestLevel_PutOverwriteIsAccess(t *testing.T) {
	l := newLevel(t, 2, policy.KindLRU)
	l.Put("a", 1)
	l.Put("b", 2)

	ev, err := l.Put("a", 10)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if ev.Evicted {
		t.Error("overwrite should not evict")
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}

	// a was touched last, so b goes first.
	ev, err = l.Put("c", 3)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if !ev.Evicted || ev.Key != "b" || ev.Value != 2 {
		t.Errorf("Put(c) eviction = %+v, want b=2", ev)
	}
	if v, _ := l.Peek("a"); v != 10 {
		t.Errorf("Peek(a) = %d, want 10", v)
	}
}

func TestLevel_LRUOrdering(t *testing.T) {
	l := newLevel(t, 2, policy.KindLRU)
	l.Put("A", 1)
	l.Put("B", 2)
	l.Get("A")
	l.Put("C", 3)

	if l.Contains("B") {
		t.Error("B should have been evicted")
	}
	if !l.Contains("A") || !l.Contains("C") {
		t.Error("A and C should be resident")
	}
}

func TestLevel_LFUTieBreak(t *testing.T) {
	l := newLevel(t, 2, policy.KindLFU)
	l.Put("A", 1)
	l.Put("B", 2)
	ev, err := l.Put("C", 3)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	if ev.Key != "A" {
		t.Errorf("evicted %q, want A", ev.Key)
	}
	if !l.Contains("B") || !l.Contains("C") {
		t.Error("B and C should be resident")
	}
}

func TestLevel_Remove(t *testing.T) {
	l := newLevel(t, 2, policy.KindLFU)
	l.Put("a", 1)

	v, ok := l.Remove("a")
	if !ok || v != 1 {
		t.Errorf("Remove(a) = %d, %v, want 1, true", v, ok)
	}
	if _, ok := l.Remove("a"); ok {
		t.Error("second Remove(a) should return false")
	}
	if err := l.Verify(); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestLevel_SnapshotDoesNotTouchPolicy(t *testing.T) {
	l := newLevel(t, 3, policy.KindLRU)
	l.Put("a", 1)
	l.Put("b", 2)
	l.Put("c", 3)

	first := keysOf(l.Snapshot())
	second := keysOf(l.Snapshot())
	want := []string{"a", "b", "c"}
	for i := range want {
		if first[i] != want[i] || second[i] != want[i] {
			t.Fatalf("Snapshot() = %v then %v, want %v", first, second, want)
		}
	}

	// Peek must not reorder either.
	l.Peek("a")
	ev, _ := l.Put("d", 4)
	if ev.Key != "a" {
		t.Errorf("evicted %q, want a", ev.Key)
	}
}

func TestLevel_CapacityAndConsistency(t *testing.T) {
	for _, kind := range policy.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			l := newLevel(t, 3, kind)
			for i := 0; i < 100; i++ {
				key := string(rune('a' + i%7))
				if i%3 == 0 {
					l.Get(key)
				}
				if i%5 == 0 {
					l.Remove(key)
				}
				if _, err := l.Put(key, i); err != nil {
					t.Fatalf("Put() error = %v", err)
				}
				if l.Len() > l.Capacity() {
					t.Fatalf("Len() = %d exceeds capacity %d", l.Len(), l.Capacity())
				}
				if err := l.Verify(); err != nil {
					t.Fatalf("Verify() error = %v", err)
				}
			}
		})
	}
}

// brokenPolicy claims to be empty while the level is full.
type brokenPolicy struct {
	policy.Policy[string]
}

func (brokenPolicy) Evict() (string, error) { return "", policy.ErrEmpty }

func TestLevel_PutInconsistentPolicy(t *testing.T) {
	l := newLevel(t, 1, policy.KindLRU)
	l.Put("a", 1)
	l.policy = brokenPolicy{Policy: l.policy}

	_, err := l.Put("b", 2)
	if !errors.Is(err, ErrInconsistent) {
		t.Fatalf("Put() error = %v, want ErrInconsistent", err)
	}
	if !errors.Is(err, policy.ErrEmpty) {
		t.Errorf("Put() error = %v, want to wrap policy.ErrEmpty", err)
	}
	if l.Contains("b") || !l.Contains("a") {
		t.Error("failed Put must leave the level unchanged")
	}
}

func TestLevel_VerifyDetectsOrphans(t *testing.T) {
	l := newLevel(t, 2, policy.KindLRU)
	l.Put("a", 1)
	l.policy.Remove("a")

	if err := l.Verify(); !errors.Is(err, ErrInconsistent) {
		t.Errorf("Verify() error = %v, want ErrInconsistent", err)
	}
}
