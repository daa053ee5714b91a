// Package archive defines the keyed blob archive used as both the raw-page
// store and the resumability ledger. Presence of a key is the sole signal
// that the unit of work behind it has completed, so implementations must
// only ever expose fully written entries.
package archive

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("archive: key not found")

// Archive is a durable mapping from a slash-separated key to a blob.
type Archive interface {
	// Contains reports whether the key has been written.
	Contains(ctx context.Context, key string) (bool, error)
	// Get returns the blob stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores data under key, creating any intermediate structure.
	Put(ctx context.Context, key string, data []byte) error
	// Keys enumerates every stored key in lexical order.
	Keys(ctx context.Context) ([]string, error)
}
