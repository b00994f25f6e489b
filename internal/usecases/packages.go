package usecases

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/lky8/entries-shop/backend/internal/entities"
)

type PackagesRepository interface {
	ListPackages(ctx context.Context) ([]entities.Package, error)
	FindPackageByID(ctx context.Context, id int64) (*entities.Package, error)
	UpdateCachedPrice(ctx context.Context, id int64, cryptoAmount decimal.Decimal, message string) error
}

type PackageService struct {
	logger    *slog.Logger
	repo      PackagesRepository
	estimator PriceEstimator
}

func NewPackageService(logger *slog.Logger, repo PackagesRepository, estimator PriceEstimator) *PackageService {
	return &PackageService{logger: logger, repo: repo, estimator: estimator}
}

// ListPackages returns the catalog priced at live estimates. A package whose
// estimate fails keeps its stored crypto amount and message.
func (ps *PackageService) ListPackages(ctx context.Context) ([]entities.Package, error) {
	packages, err := ps.repo.ListPackages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}

	for i := range packages {
		pkg := &packages[i]

		amount, err := ps.estimate(ctx, pkg)
		if err != nil {
			ps.logger.WarnContext(ctx, "Using stored crypto amount for package",
				"package_id", pkg.ID,
				"error", err)
			amount = pkg.CryptoAmount
		}

		pkg.CryptoAmount = amount
		if msg, ok := promoMessage(pkg); ok {
			pkg.Message = msg
		}
	}

	return packages, nil
}

// RefreshCachedPrices writes a fresh estimate and message into every package
// row so that the listing fallback stays recent.
func (ps *PackageService) RefreshCachedPrices(ctx context.Context) (int, error) {
	packages, err := ps.repo.ListPackages(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list packages: %w", err)
	}

	var refreshed int
	for i := range packages {
		pkg := &packages[i]

		amount, err := ps.estimate(ctx, pkg)
		if err != nil {
			ps.logger.WarnContext(ctx, "Failed to refresh package price", "package_id", pkg.ID, "error", err)
			continue
		}

		pkg.CryptoAmount = amount
		msg, ok := promoMessage(pkg)
		if !ok {
			msg = pkg.Message
		}

		if err = ps.repo.UpdateCachedPrice(ctx, pkg.ID, amount.Decimal, msg); err != nil {
			ps.logger.ErrorContext(ctx, "Failed to store package price", "package_id", pkg.ID, "error", err)
			continue
		}
		refreshed++
	}

	return refreshed, nil
}

func (ps *PackageService) estimate(ctx context.Context, pkg *entities.Package) (decimal.NullDecimal, error) {
	if !pkg.FiatAmount.Valid || pkg.FiatCurrency == nil || pkg.CryptoCurrency == nil {
		return decimal.NullDecimal{}, fmt.Errorf("package %d has no pricing currencies", pkg.ID)
	}

	amount, err := ps.estimator.Estimate(ctx, pkg.FiatAmount.Decimal, *pkg.FiatCurrency, *pkg.CryptoCurrency)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(amount), nil
}

func promoMessage(pkg *entities.Package) (string, bool) {
	if pkg.Entries == nil || !pkg.CryptoAmount.Valid || pkg.CryptoCurrency == nil {
		return "", false
	}
	return fmt.Sprintf("Get %d entries for just %s %s!", *pkg.Entries, pkg.CryptoAmount.Decimal.String(), *pkg.CryptoCurrency), true
}
