package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// Processor payment statuses as reported in IPN callbacks.
const (
	PaymentStatusPending       = "pending"
	PaymentStatusWaiting       = "waiting"
	PaymentStatusConfirming    = "confirming"
	PaymentStatusConfirmed     = "confirmed"
	PaymentStatusSending       = "sending"
	PaymentStatusPartiallyPaid = "partially_paid"
	PaymentStatusFinished      = "finished"
	PaymentStatusFailed        = "failed"
	PaymentStatusRefunded      = "refunded"
	PaymentStatusExpired       = "expired"
)

// CryptoPayment tracks the processor invoice of an order and its lifecycle.
type CryptoPayment struct {
	ID                    int64               `json:"id"                      db:"id"`
	OrderID               int64               `json:"order_id"                db:"order_id"`
	Status                *string             `json:"status"                  db:"status"`
	Currency              string              `json:"currency"                db:"currency"`
	Network               *string             `json:"network"                 db:"network"`
	PayCurrency           *string             `json:"pay_currency"            db:"pay_currency"`
	InitiatedCryptoAmount decimal.NullDecimal `json:"initiated_crypto_amount" db:"initiated_crypto_amount"`
	PaidCryptoAmount      decimal.NullDecimal `json:"paid_crypto_amount"      db:"paid_crypto_amount"`
	PriceAmount           decimal.NullDecimal `json:"price_amount"            db:"price_amount"`
	PriceCurrency         *string             `json:"price_currency"          db:"price_currency"`
	WalletAddress         *string             `json:"wallet_address"          db:"wallet_address"`
	PaymentID             *string             `json:"payment_id"              db:"payment_id"`
	OrderDescription      *string             `json:"order_description"       db:"order_description"`
	IPNCallbackURL        *string             `json:"ipn_callback_url"        db:"ipn_callback_url"`
	InvoiceURL            *string             `json:"invoice_url"             db:"invoice_url"`
	SuccessURL            *string             `json:"success_url"             db:"success_url"`
	CancelURL             *string             `json:"cancel_url"              db:"cancel_url"`
	PayinAddress          *string             `json:"payin_address"           db:"payin_address"`
	PayoutAddress         *string             `json:"payout_address"          db:"payout_address"`
	PayinTxHash           *string             `json:"payin_tx_hash"           db:"payin_tx_hash"`
	PayoutTxHash          *string             `json:"payout_tx_hash"          db:"payout_tx_hash"`
	CreatedAt             time.Time           `json:"created_at"              db:"created_at"`
	UpdatedAt             time.Time           `json:"updated_at"              db:"updated_at"`
}

// PaymentUpdate is the set of payment fields a processor notification overwrites.
type PaymentUpdate struct {
	PaymentID        *string
	OrderDescription *string
	PayinAddress     *string
	PayoutAddress    *string
	PayinTxHash      *string
	PayoutTxHash     *string
	PayCurrency      *string
	Status           string
	PriceAmount      decimal.NullDecimal
	PriceCurrency    *string
	PaidCryptoAmount decimal.NullDecimal
}
