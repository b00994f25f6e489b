package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lky8/entries-shop/backend/pkg/cache"
)

// EstimatesCache keeps processor estimates in Redis for ttl.
type EstimatesCache struct {
	redis *cache.Redis
	ttl   time.Duration
}

func NewEstimatesCache(redis *cache.Redis, ttl time.Duration) *EstimatesCache {
	return &EstimatesCache{redis: redis, ttl: ttl}
}

func (c *EstimatesCache) GetEstimate(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	raw, err := c.redis.GetString(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("corrupt cached estimate %q: %w", key, err)
	}

	return amount, true, nil
}

func (c *EstimatesCache) SetEstimate(ctx context.Context, key string, amount decimal.Decimal) error {
	return c.redis.SetString(ctx, key, amount.String(), c.ttl)
}
