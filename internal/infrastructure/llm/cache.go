package llm

import (
	"context"
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kirillkom/code-context-engine/internal/core/ports"
)

// CachedEmbedder memoizes query embeddings by content hash. Repeated queries
// from editors and agents then skip the provider round trip.
type CachedEmbedder struct {
	next  ports.QueryEmbedder
	cache *lru.Cache[[32]byte, []float32]
}

func NewCachedEmbedder(next ports.QueryEmbedder, size int) *CachedEmbedder {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[[32]byte, []float32](size)
	if err != nil {
		cache, _ = lru.New[[32]byte, []float32](1024)
	}
	return &CachedEmbedder{next: next, cache: cache}
}

func (c *CachedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	key := sha256.Sum256([]byte(text))
	if vector, ok := c.cache.Get(key); ok {
		return append([]float32(nil), vector...), nil
	}
	vector, err := c.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, append([]float32(nil), vector...))
	return vector, nil
}
