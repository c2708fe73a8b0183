package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"listening-quiz-service/internal/domain"
	"listening-quiz-service/internal/infra/memory"
)

const catalogKey = "catalog:questions"

// CatalogCache keeps the question catalog in Redis so every instance serves the same
// ordered list, and falls back to a loader on cache miss.
type CatalogCache struct {
	client *redis.Client
	loader memory.CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewCatalogCache(client *redis.Client, loader memory.CatalogLoader, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) Questions(ctx context.Context) ([]domain.Question, error) {
	if questions, ok := c.cached(ctx); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(catalogKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if questions, ok := c.cached(ctx); ok {
			return questions, nil
		}

		questions, err := c.loader.LoadCatalog(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(questions); err == nil {
			_ = c.client.Set(ctx, catalogKey, data, c.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached catalog so the next read goes to the loader.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return InvalidateCatalog(ctx, c.client)
}

// InvalidateCatalog drops the catalog cached for every instance sharing client's Redis.
// Run it whenever the catalog source is rewritten.
func InvalidateCatalog(ctx context.Context, client *redis.Client) error {
	return client.Del(ctx, catalogKey).Err()
}

func (c *CatalogCache) cached(ctx context.Context) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		// redis.Nil or a transient error both fall through to the loader
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, false
	}
	return questions, true
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
