package tiercache

import (
	"context"
	"errors"
	"fmt"

	"github.com/discochess/tiercache/internal/store"
)

// Fetcher is the backing store consulted on a full miss. Fetch may block
// and is called without the cache lock held.
type Fetcher[K comparable, V any] interface {
	Fetch(ctx context.Context, key K) (V, error)
}

// FetcherFunc adapts a function to a Fetcher.
type FetcherFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Fetch calls f(ctx, key).
func (f FetcherFunc[K, V]) Fetch(ctx context.Context, key K) (V, error) {
	return f(ctx, key)
}

// StoreFetcher serves misses from an object store. Missing objects are
// reported as ErrNotFound.
type StoreFetcher struct {
	store store.Store
}

// Compile-time check that StoreFetcher implements Fetcher.
var _ Fetcher[string, []byte] = (*StoreFetcher)(nil)

// NewStoreFetcher wraps st. Closing the cache closes st.
func NewStoreFetcher(st store.Store) *StoreFetcher {
	return &StoreFetcher{store: st}
}

// Fetch reads the object stored under key.
func (f *StoreFetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	data, err := f.store.Read(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	return data, nil
}

// Close closes the underlying store.
func (f *StoreFetcher) Close() error {
	return f.store.Close()
}
