// Package storage abstracts the remote object store holding uploaded CV
// files and generated documents.
package storage

import "context"

// ObjectStore is the remote file store. Put returns a time-limited URL
// for the stored object; callers must not assume the URL outlives the
// configured expiry window.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
