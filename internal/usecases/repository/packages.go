package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/lky8/entries-shop/backend/internal/entities"
	"github.com/lky8/entries-shop/backend/pkg/database"
)

var packageColumns = []string{
	"id", "name", "img", "entries", "description", "crypto_amount",
	"fiat_amount", "crypto_currency", "fiat_currency", "discount", "message",
}

type PackagesRepository struct {
	logger *slog.Logger

	db      tx.DBGetter
	builder sq.StatementBuilderType
}

func NewPackagesRepository(logger *slog.Logger, pg *database.Postgres) *PackagesRepository {
	return &PackagesRepository{logger: logger, db: pg.DBGetter, builder: pg.Builder}
}

func (r *PackagesRepository) ListPackages(ctx context.Context) ([]entities.Package, error) {
	query, args, err := r.builder.Select(packageColumns...).From("packages").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build packages query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query packages: %w", err)
	}

	packages, err := pgx.CollectRows(rows, pgx.RowToStructByName[entities.Package])
	if err != nil {
		r.logger.Error("failed to collect packages rows", "error", err)
		return nil, err
	}

	return packages, nil
}

func (r *PackagesRepository) FindPackageByID(ctx context.Context, id int64) (*entities.Package, error) {
	query, args, err := r.builder.Select(packageColumns...).From("packages").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build package query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query package %d: %w", id, err)
	}

	pkg, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[entities.Package])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect package %d: %w", id, err)
	}

	return pkg, nil
}

// UpdateCachedPrice stores the last known crypto price and promo message.
func (r *PackagesRepository) UpdateCachedPrice(ctx context.Context, id int64, cryptoAmount decimal.Decimal, message string) error {
	query, args, err := r.builder.Update("packages").
		Set("crypto_amount", cryptoAmount).
		Set("message", message).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build package update: %w", err)
	}

	_, err = r.db(ctx).Exec(ctx, query, args...)
	return err
}
