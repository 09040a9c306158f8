// Package store persists view-state and snapshots in an app-group scoped
// key/value namespace shared by the report extension and the host app.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Backend when a key has no value.
var ErrNotFound = errors.New("key not found")

// Backend is the raw key/value namespace of one app group. Implementations
// are safe for concurrent use within a process. Across processes the last
// write wins.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
