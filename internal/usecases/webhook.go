package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lky8/entries-shop/backend/internal/entities"
	"github.com/lky8/entries-shop/backend/internal/payments/clients"
)

type SignatureVerifier interface {
	Verify(payload []byte, signature string) error
}

// WebhookService applies signed payment-status callbacks.
//
// Order.status only moves pending -> completed on "finished". Failed, expired
// and refunded payments are recorded on the payment row and leave the order
// pending.
type WebhookService struct {
	logger     *slog.Logger
	verifier   SignatureVerifier
	transactor Transactor
	orders     OrdersRepository
	payments   PaymentsRepository
}

func NewWebhookService(
	logger *slog.Logger,
	verifier SignatureVerifier,
	transactor Transactor,
	orders OrdersRepository,
	payments PaymentsRepository,
) *WebhookService {
	return &WebhookService{
		logger:     logger,
		verifier:   verifier,
		transactor: transactor,
		orders:     orders,
		payments:   payments,
	}
}

// Process authenticates payload and overwrites the payment with it, last
// writer wins. Redelivering the same notification is harmless.
func (ws *WebhookService) Process(ctx context.Context, payload []byte, signature string) error {
	if !json.Valid(payload) {
		return clients.ErrMalformedPayload
	}

	ws.logger.DebugContext(ctx, "Webhook received", "payload", string(payload))

	if signature == "" {
		return ErrMissingSignature
	}

	if err := ws.verifier.Verify(payload, signature); err != nil {
		return err
	}

	notification, err := clients.ParseNotification(payload)
	if err != nil {
		return err
	}

	orderID := notification.OrderID.String()
	status := notification.PaymentStatus

	ws.logger.DebugContext(ctx, "Processing payment", "order_id", orderID, "status", status)

	if orderID == "" {
		ws.logger.DebugContext(ctx, "Notification carries no order_id")
		return ErrOrderNotFound
	}

	return ws.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := ws.orders.FindOrderByPublicID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to find order %s: %w", orderID, err)
		}
		if order == nil {
			ws.logger.DebugContext(ctx, "No order found", "order_id", orderID)
			return ErrOrderNotFound
		}

		payment, err := ws.payments.FindPaymentByOrderID(ctx, order.ID)
		if err != nil {
			return fmt.Errorf("failed to find payment of order %s: %w", orderID, err)
		}
		if payment == nil {
			ws.logger.DebugContext(ctx, "No payment record found", "order_id", orderID)
			return ErrPaymentNotFound
		}

		if err = ws.payments.ApplyUpdate(ctx, payment.ID, notification.PaymentUpdate()); err != nil {
			return fmt.Errorf("failed to update payment %d: %w", payment.ID, err)
		}

		switch status {
		case entities.PaymentStatusFinished:
			changed, err := ws.orders.CompleteOrder(ctx, order.ID)
			if err != nil {
				return fmt.Errorf("failed to complete order %s: %w", orderID, err)
			}
			ws.logger.InfoContext(ctx, "Payment completed successfully", "order_id", orderID, "changed", changed)
		case entities.PaymentStatusFailed, entities.PaymentStatusExpired:
			ws.logger.InfoContext(ctx, "Payment failed or expired", "order_id", orderID, "status", status)
		case entities.PaymentStatusWaiting, entities.PaymentStatusConfirming,
			entities.PaymentStatusConfirmed, entities.PaymentStatusSending, entities.PaymentStatusPartiallyPaid:
			ws.logger.InfoContext(ctx, "Payment is still pending", "order_id", orderID, "status", status)
		case entities.PaymentStatusRefunded:
			ws.logger.InfoContext(ctx, "Payment has been refunded", "order_id", orderID)
		default:
			ws.logger.WarnContext(ctx, "Unknown payment status", "order_id", orderID, "status", status)
		}

		return nil
	})
}
