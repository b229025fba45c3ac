package storage

import "context"

// Entry is a stored key and its value.
type Entry struct {
	Key   string
	Value []byte
}

// Storage is an ordered key-value store. List returns entries in ascending
// key order.
type Storage interface {
	Create(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, offset, limit uint64) ([]Entry, uint64, error)
	Delete(ctx context.Context, key string) error
	Close() error
}
