package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/lky8/entries-shop/backend/internal/core/ports"
)

// PriceRefresher worker periodically stores fresh crypto prices on packages,
// keeping the catalog fallback close to the market when estimates fail.
type PriceRefresher struct {
	logger   *slog.Logger
	packages ports.PriceRefresher

	// How often to refresh the stored prices
	refreshInterval time.Duration
}

// NewPriceRefresher creates a new price refresher worker
func NewPriceRefresher(logger *slog.Logger, packages ports.PriceRefresher, refreshInterval time.Duration) *PriceRefresher {
	return &PriceRefresher{
		logger:          logger,
		packages:        packages,
		refreshInterval: refreshInterval,
	}
}

// Start refreshes once immediately, then on every tick until ctx is done.
func (pr *PriceRefresher) Start(ctx context.Context) {
	pr.logger.Info("Starting price refresher worker", "refresh_interval", pr.refreshInterval.String())

	pr.refresh(ctx)

	ticker := time.NewTicker(pr.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			pr.logger.Info("Price refresher worker stopped")
			return
		case <-ticker.C:
			pr.refresh(ctx)
		}
	}
}

func (pr *PriceRefresher) refresh(ctx context.Context) {
	count, err := pr.packages.RefreshCachedPrices(ctx)
	if err != nil {
		pr.logger.Error("Package price refresh failed", "error", err)
		return
	}

	pr.logger.Debug("Refreshed package prices", "count", count)
}
