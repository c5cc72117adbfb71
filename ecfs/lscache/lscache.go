// Package lscache provides the storage below the directory listing cache.
//
// The stores are simple key/value stores: keys are listed directory paths,
// values are the serialized listing. The caller decides on the serialization
// format, the stores only see bytes. Two implementations exist: a process
// local memory store and a persistent badger store that keeps listings
// around between runs.
package lscache

import "errors"

var (
	// ErrNoSuchKey is returned when Get() was passed a non-existent key.
	ErrNoSuchKey = errors.New("This key does not exist")
)

// Store is a key/value store for cached directory listings.
type Store interface {
	// Get retrieves the listing stored at `key`.
	// If no such key exists, it will return (nil, ErrNoSuchKey).
	Get(key string) ([]byte, error)

	// Put stores `data` at `key`, overwriting any previous value.
	Put(key string, data []byte) error

	// Keys returns all keys starting with `prefix` in lexical order.
	Keys(prefix string) ([]string, error)

	// Invalidate removes all keys starting with `prefix`.
	Invalidate(prefix string) error

	// Close closes the store. Since I/O may happen, an error is returned.
	Close() error
}
