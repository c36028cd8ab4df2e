// Package store defines the object stores a cache can fall back to on a
// full miss.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrNotFound is returned when an object does not exist in the store.
	ErrNotFound = errors.New("store: object not found")

	// ErrInvalidKey is returned for keys that cannot name an object.
	ErrInvalidKey = errors.New("store: invalid key")
)

// Store is a read-only source of objects addressed by string keys.
type Store interface {
	// Read returns the decoded content stored under key.
	Read(ctx context.Context, key string) ([]byte, error)

	// Close releases any resources held by the store.
	Close() error
}

// ObjectName maps a key to a single path segment, escaping separators so
// every key stays inside the store's namespace. ext is appended after a dot
// when non-empty.
func ObjectName(key, ext string) (string, error) {
	if key == "" || key == "." || key == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	name := url.PathEscape(key)
	if ext != "" {
		name += "." + ext
	}
	return name, nil
}

// KeyFromObjectName reverses ObjectName.
func KeyFromObjectName(name, ext string) (string, error) {
	if ext != "" {
		suffix := "." + ext
		if len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
			return "", fmt.Errorf("%w: %q lacks extension %q", ErrInvalidKey, name, ext)
		}
		name = name[:len(name)-len(suffix)]
	}
	return url.PathUnescape(name)
}
