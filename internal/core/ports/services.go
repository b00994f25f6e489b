package ports

import "context"

// PriceRefresher rewrites the stored crypto price of every package.
type PriceRefresher interface {
	RefreshCachedPrices(ctx context.Context) (int, error)
}
