package clients

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lky8/entries-shop/backend/internal/entities"
)

// PaymentNotification is the body of an IPN callback. Unknown fields are
// ignored since the processor adds fields over time.
type PaymentNotification struct {
	PaymentID        FlexString          `json:"payment_id"`
	InvoiceID        FlexString          `json:"invoice_id"`
	PaymentStatus    string              `json:"payment_status"`
	PayAddress       *string             `json:"pay_address"`
	PayinAddress     *string             `json:"payin_address"`
	PayoutAddress    *string             `json:"payout_address"`
	PayinHash        *string             `json:"payin_hash"`
	PayoutHash       *string             `json:"payout_hash"`
	PriceAmount      decimal.NullDecimal `json:"price_amount"`
	PriceCurrency    *string             `json:"price_currency"`
	PayAmount        decimal.NullDecimal `json:"pay_amount"`
	ActuallyPaid     decimal.NullDecimal `json:"actually_paid"`
	PayCurrency      *string             `json:"pay_currency"`
	OrderID          FlexString          `json:"order_id"`
	OrderDescription *string             `json:"order_description"`
	OutcomeAmount    decimal.NullDecimal `json:"outcome_amount"`
	OutcomeCurrency  *string             `json:"outcome_currency"`
}

// ParseNotification decodes an IPN body. A missing order_id is left empty;
// it matches no order.
func ParseNotification(payload []byte) (*PaymentNotification, error) {
	var n PaymentNotification
	if err := json.Unmarshal(payload, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	n.PaymentStatus = strings.ToLower(n.PaymentStatus)
	return &n, nil
}

// PaymentUpdate maps the notification onto the payment fields it overwrites.
// Fields absent from the payload are cleared.
func (n *PaymentNotification) PaymentUpdate() entities.PaymentUpdate {
	return entities.PaymentUpdate{
		PaymentID:        n.PaymentID.Ptr(),
		OrderDescription: n.OrderDescription,
		PayinAddress:     n.PayinAddress,
		PayoutAddress:    n.PayoutAddress,
		PayinTxHash:      n.PayinHash,
		PayoutTxHash:     n.PayoutHash,
		PayCurrency:      n.PayCurrency,
		Status:           n.PaymentStatus,
		PriceAmount:      n.PriceAmount,
		PriceCurrency:    n.PriceCurrency,
		PaidCryptoAmount: n.ActuallyPaid,
	}
}
