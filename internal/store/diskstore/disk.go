// Package diskstore implements a filesystem object store.
//
// Objects live under <root>/objects, one file per key, named by
// store.ObjectName and encoded with the store's codec.
package diskstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/discochess/tiercache/internal/codec"
	"github.com/discochess/tiercache/internal/store"
)

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)

const objectsDir = "objects"

// Store is a disk-based object store.
type Store struct {
	root  string
	codec codec.Codec
}

// New creates a new disk store rooted at the given directory.
// The directory must exist. The codec handles compression/decompression.
func New(root string, c codec.Codec) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	return &Store{
		root:  root,
		codec: c,
	}, nil
}

// Read reads and decodes the object stored under key.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	// Check for cancellation before starting I/O.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := s.objectPath(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("opening object: %w", err)
	}
	defer f.Close()

	data, err := codec.Decode(s.codec, f)
	if err != nil {
		return nil, fmt.Errorf("reading object %q: %w", key, err)
	}
	return data, nil
}

// Write encodes data and stores it under key, replacing any previous
// object atomically.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating objects directory: %w", err)
	}

	encoded, err := codec.Encode(s.codec, data)
	if err != nil {
		return fmt.Errorf("encoding object %q: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return fmt.Errorf("writing object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing object: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming object: %w", err)
	}
	return nil
}

// Keys lists the keys of all stored objects.
func (s *Store) Keys() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, objectsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading objects directory: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		key, err := store.KeyFromObjectName(e.Name(), s.codec.Extension())
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Close releases any resources held by the store.
func (s *Store) Close() error {
	return nil
}

// objectPath returns the filesystem path for a key.
func (s *Store) objectPath(key string) (string, error) {
	name, err := store.ObjectName(key, s.codec.Extension())
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, objectsDir, name), nil
}
