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

var paymentColumns = []string{
	"id", "order_id", "status", "currency", "network", "pay_currency",
	"initiated_crypto_amount", "paid_crypto_amount", "price_amount", "price_currency",
	"wallet_address", "payment_id", "order_description", "ipn_callback_url", "invoice_url",
	"success_url", "cancel_url", "payin_address", "payout_address", "payin_tx_hash",
	"payout_tx_hash", "created_at", "updated_at",
}

type PaymentsRepository struct {
	logger *slog.Logger

	db      tx.DBGetter
	builder sq.StatementBuilderType
}

func NewPaymentsRepository(logger *slog.Logger, pg *database.Postgres) *PaymentsRepository {
	return &PaymentsRepository{logger: logger, db: pg.DBGetter, builder: pg.Builder}
}

func (r *PaymentsRepository) InsertPayment(ctx context.Context, p *entities.CryptoPayment) error {
	query, args, err := r.builder.Insert("crypto_payments").
		Columns(paymentColumns[1:21]...).
		Values(p.OrderID, p.Status, p.Currency, p.Network, p.PayCurrency,
			p.InitiatedCryptoAmount, p.PaidCryptoAmount, p.PriceAmount, p.PriceCurrency,
			p.WalletAddress, p.PaymentID, p.OrderDescription, p.IPNCallbackURL, p.InvoiceURL,
			p.SuccessURL, p.CancelURL, p.PayinAddress, p.PayoutAddress, p.PayinTxHash,
			p.PayoutTxHash).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build payment insert: %w", err)
	}

	return r.db(ctx).QueryRow(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PaymentsRepository) FindPaymentByOrderID(ctx context.Context, orderID int64) (*entities.CryptoPayment, error) {
	query, args, err := r.builder.Select(paymentColumns...).
		From("crypto_payments").
		Where(sq.Eq{"order_id": orderID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build payment query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment of order %d: %w", orderID, err)
	}

	payment, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[entities.CryptoPayment])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect payment of order %d: %w", orderID, err)
	}

	return payment, nil
}

// ApplyUpdate overwrites the notification-driven fields of a payment.
func (r *PaymentsRepository) ApplyUpdate(ctx context.Context, id int64, u entities.PaymentUpdate) error {
	query, args, err := r.builder.Update("crypto_payments").
		SetMap(map[string]any{
			"payment_id":         u.PaymentID,
			"order_description":  u.OrderDescription,
			"payin_address":      u.PayinAddress,
			"payout_address":     u.PayoutAddress,
			"payin_tx_hash":      u.PayinTxHash,
			"payout_tx_hash":     u.PayoutTxHash,
			"pay_currency":       u.PayCurrency,
			"status":             u.Status,
			"price_amount":       u.PriceAmount,
			"price_currency":     u.PriceCurrency,
			"paid_crypto_amount": u.PaidCryptoAmount,
			"updated_at":         sq.Expr("NOW()"),
		}).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build payment update: %w", err)
	}

	_, err = r.db(ctx).Exec(ctx, query, args...)
	return err
}
