// Package storage provides the blob backends reference photos are kept in:
// flat files on local disk (the default) or a MinIO bucket.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports a key with no stored object.
var ErrNotFound = errors.New("object not found")

// Entry describes one stored object.
type Entry struct {
	Key     string
	ModTime time.Time
}

// BlobStore is the persistence contract for reference photos. Put overwrites
// atomically with respect to concurrent Gets; Delete of a missing key
// returns ErrNotFound.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) ([]Entry, error)
}
