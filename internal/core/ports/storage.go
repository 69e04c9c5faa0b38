package ports

import "context"

// BlobCache stores opaque byte blobs by key. Implementations return
// domain.ErrCacheMiss for absent keys. Concurrent writers to the same key
// are last-write-wins; entries persist until deleted.
type BlobCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key beginning with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
