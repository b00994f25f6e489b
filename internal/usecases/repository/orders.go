package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"

	"github.com/lky8/entries-shop/backend/internal/entities"
	"github.com/lky8/entries-shop/backend/pkg/database"
)

var orderColumns = []string{
	"id", "order_id", "user_id", "package_id", "entries", "crypto_amount", "fiat_amount",
	"crypto_currency", "fiat_currency", "status", "date_and_time",
}

type OrdersRepository struct {
	logger *slog.Logger

	db      tx.DBGetter
	builder sq.StatementBuilderType
}

func NewOrdersRepository(logger *slog.Logger, pg *database.Postgres) *OrdersRepository {
	return &OrdersRepository{logger: logger, db: pg.DBGetter, builder: pg.Builder}
}

func (r *OrdersRepository) FindUserOrders(ctx context.Context, userID int64) ([]entities.Order, error) {
	query, args, err := r.builder.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build orders query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	orders, err := pgx.CollectRows(rows, pgx.RowToStructByName[entities.Order])
	if err != nil {
		r.logger.Error("failed to collect orders rows", "error", err)
		return nil, err
	}

	return orders, nil
}

func (r *OrdersRepository) FindOrderByPublicID(ctx context.Context, orderID string) (*entities.Order, error) {
	query, args, err := r.builder.Select(orderColumns...).From("orders").Where(sq.Eq{"order_id": orderID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build order query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order %s: %w", orderID, err)
	}

	order, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[entities.Order])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect order %s: %w", orderID, err)
	}

	return order, nil
}

// InsertOrder stores the snapshot with its initial status and fills in the
// generated id and creation time.
func (r *OrdersRepository) InsertOrder(ctx context.Context, order *entities.Order) error {
	query, args, err := r.builder.Insert("orders").
		Columns(orderColumns[1:10]...).
		Values(order.OrderID, order.UserID, order.PackageID, order.Entries, order.CryptoAmount,
			order.FiatAmount, order.CryptoCurrency, order.FiatCurrency, order.Status).
		Suffix("RETURNING id, date_and_time").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build order insert: %w", err)
	}

	return r.db(ctx).QueryRow(ctx, query, args...).Scan(&order.ID, &order.DateAndTime)
}

// CompleteOrder marks the order completed. It reports false when the order
// was already completed.
func (r *OrdersRepository) CompleteOrder(ctx context.Context, id int64) (bool, error) {
	query, args, err := r.builder.Update("orders").
		Set("status", entities.OrderStatusCompleted).
		Where(sq.Eq{"id": id}).
		Where(sq.Or{
			sq.Eq{"status": nil},
			sq.NotEq{"status": entities.OrderStatusCompleted},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build order completion: %w", err)
	}

	tag, err := r.db(ctx).Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}
