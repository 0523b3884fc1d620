// Package storage abstracts the durable key-value store behind the local
// cache. Implementations: in-memory (tests), single JSON file, SQLite.
package storage

import "errors"

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("key not found")

// KV is the persistence contract. SetMany must make the whole batch visible
// atomically: after a failure a reader sees either all previous values or
// all new ones, never a mix. That is what lets the cache persist its five
// slots as one snapshot.
type KV interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	SetMany(items map[string][]byte) error
	Close() error
}
