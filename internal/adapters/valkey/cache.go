package valkey

import (
	"context"
	"fmt"
	"strings"

	"github.com/valkey-io/valkey-go"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/pkg/metrics"
)

// Cache implements ports.BlobCache using Valkey (Redis-compatible), for
// deployments where several viewers share one cache.
type Cache struct {
	client valkey.Client
}

// New creates a new Valkey cache client.
func New(addr string) (*Cache, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Cache{client: client}, nil
}

// Get retrieves a blob by key.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if err := cmd.Error(); err != nil {
		if valkey.IsValkeyNil(err) {
			metrics.CacheMisses.WithLabelValues("valkey").Inc()
			return nil, domain.ErrCacheMiss
		}
		return nil, err
	}
	b, err := cmd.AsBytes()
	if err != nil {
		return nil, err
	}
	metrics.CacheHits.WithLabelValues("valkey").Inc()
	return b, nil
}

// Set stores a blob without expiry. Cached resources stay usable offline
// until explicitly replaced or deleted.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	cmd := c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(value)).Build())
	return cmd.Error()
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	cmd := c.client.Do(ctx, c.client.B().Del().Key(key).Build())
	return cmd.Error()
}

// Keys lists every stored key beginning with prefix using SCAN, so large
// caches are walked without blocking the server.
func (c *Cache) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		cmd := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(prefix+"*").Count(256).Build())
		entry, err := cmd.AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for _, k := range entry.Elements {
			// MATCH treats ? * [ as globs, so filter literally
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		cursor = entry.Cursor
		if cursor == 0 {
			return keys, nil
		}
	}
}

// Close releases the client.
func (c *Cache) Close() {
	c.client.Close()
}
