package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const embeddingTTL = 24 * time.Hour

// CachedEmbedder memoizes embeddings in redis, keyed by a hash of the raw
// text. Cache trouble is never fatal: a miss or a redis error just falls
// through to the wrapped embedder.
type CachedEmbedder struct {
	next Embedder
	rdb  *redis.Client
	log  *zap.Logger
}

func NewCachedEmbedder(next Embedder, rdb *redis.Client, log *zap.Logger) *CachedEmbedder {
	return &CachedEmbedder{next: next, rdb: rdb, log: log}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := embeddingKey(text)

	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var vector []float32
		if jerr := json.Unmarshal([]byte(raw), &vector); jerr == nil {
			return vector, nil
		}
		c.log.Debug("discarding undecodable cached embedding", zap.String("key", key))
	} else if err != redis.Nil {
		c.log.Debug("embedding cache read failed", zap.Error(err))
	}

	vector, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if raw, jerr := json.Marshal(vector); jerr == nil {
		if serr := c.rdb.Set(ctx, key, raw, embeddingTTL).Err(); serr != nil {
			c.log.Debug("embedding cache write failed", zap.Error(serr))
		}
	}
	return vector, nil
}

func embeddingKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + hex.EncodeToString(sum[:])
}
