package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mitchellrust/Hubletix-sub002/internal/entities"
)

// Cache keeps the latest ProcessingResult per source key so operators can
// inspect the outcome of the most recent invocation without replaying it.
type Cache struct {
	Redis     redis.UniversalClient
	Namespace string
	TTL       time.Duration
}

func NewCache(namespace string, ttl time.Duration, redisCl redis.UniversalClient) *Cache {
	return &Cache{
		Namespace: namespace,
		TTL:       ttl,
		Redis:     redisCl,
	}
}

// StoreResult serializes the result summary under the source key.
func (c *Cache) StoreResult(ctx context.Context, imageKey string, res *entities.ProcessingResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.Redis.Set(ctx, c.Namespace+":"+imageKey, raw, c.TTL).Err()
}

// GetResult returns the cached result for the source key, or redis.Nil when
// no invocation has been recorded within the TTL.
func (c *Cache) GetResult(ctx context.Context, imageKey string) (*entities.ProcessingResult, error) {
	raw, err := c.Redis.Get(ctx, c.Namespace+":"+imageKey).Bytes()
	if err != nil {
		return nil, err
	}
	var res entities.ProcessingResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Remove drops the cached result for the source key.
func (c *Cache) Remove(ctx context.Context, imageKey string) error {
	return c.Redis.Del(ctx, c.Namespace+":"+imageKey).Err()
}
