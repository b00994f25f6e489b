package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

type EstimatesCache interface {
	GetEstimate(ctx context.Context, key string) (decimal.Decimal, bool, error)
	SetEstimate(ctx context.Context, key string, amount decimal.Decimal) error
}

// CachingEstimator serves repeated estimates from a short-lived cache so
// catalog reads do not run into the processor's rate limit. Cache failures
// fall through to the processor.
type CachingEstimator struct {
	logger *slog.Logger
	next   PriceEstimator
	cache  EstimatesCache
}

func NewCachingEstimator(logger *slog.Logger, next PriceEstimator, cache EstimatesCache) *CachingEstimator {
	return &CachingEstimator{logger: logger, next: next, cache: cache}
}

func (e *CachingEstimator) Estimate(ctx context.Context, amount decimal.Decimal, currencyFrom, currencyTo string) (decimal.Decimal, error) {
	key := estimateKey(amount, currencyFrom, currencyTo)

	cached, ok, err := e.cache.GetEstimate(ctx, key)
	if err != nil {
		e.logger.WarnContext(ctx, "Estimate cache read failed", "key", key, "error", err)
	} else if ok {
		return cached, nil
	}

	estimated, err := e.next.Estimate(ctx, amount, currencyFrom, currencyTo)
	if err != nil {
		return decimal.Zero, err
	}

	if err = e.cache.SetEstimate(ctx, key, estimated); err != nil {
		e.logger.WarnContext(ctx, "Estimate cache write failed", "key", key, "error", err)
	}

	return estimated, nil
}

func estimateKey(amount decimal.Decimal, currencyFrom, currencyTo string) string {
	return fmt.Sprintf("estimate:%s:%s:%s", strings.ToLower(currencyFrom), strings.ToLower(currencyTo), amount.String())
}
