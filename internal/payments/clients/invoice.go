package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
)

// ErrInvoiceNotCreated means the processor did not return a usable invoice.
var ErrInvoiceNotCreated = errors.New("invoice not created")

type invoiceRequest struct {
	PriceAmount      float64 `json:"price_amount"`
	PriceCurrency    string  `json:"price_currency"`
	PayCurrency      string  `json:"pay_currency"`
	IPNCallbackURL   string  `json:"ipn_callback_url"`
	SuccessURL       string  `json:"success_url"`
	CancelURL        string  `json:"cancel_url"`
	OrderID          string  `json:"order_id"`
	OrderDescription string  `json:"order_description"`
	IsFixedRate      bool    `json:"is_fixed_rate"`
}

// Invoice is the processor-hosted payment page and its metadata.
type Invoice struct {
	ID               FlexString          `json:"id"`
	OrderID          string              `json:"order_id"`
	OrderDescription string              `json:"order_description"`
	PriceAmount      decimal.NullDecimal `json:"price_amount"`
	PriceCurrency    string              `json:"price_currency"`
	PayAmount        decimal.NullDecimal `json:"pay_amount"`
	PayCurrency      string              `json:"pay_currency"`
	IPNCallbackURL   string              `json:"ipn_callback_url"`
	InvoiceURL       string              `json:"invoice_url"`
	SuccessURL       string              `json:"success_url"`
	CancelURL        string              `json:"cancel_url"`
}

// CreateInvoice opens a fixed-rate invoice for orderID. It is never retried.
func (s *NowPaymentsService) CreateInvoice(ctx context.Context, fiatAmount decimal.Decimal, fiatCurrency, cryptoCurrency, orderID string) (*Invoice, error) {
	payload := invoiceRequest{
		PriceAmount:      fiatAmount.InexactFloat64(),
		PriceCurrency:    fiatCurrency,
		PayCurrency:      cryptoCurrency,
		IPNCallbackURL:   s.urls.CallbackURL,
		SuccessURL:       s.urls.SuccessURL + orderID,
		CancelURL:        s.urls.CancelURL,
		OrderID:          orderID,
		OrderDescription: fmt.Sprintf("Payment for booking %s", orderID),
		IsFixedRate:      true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"/invoice", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice request: %w", err)
	}
	req.Header.Set(apiKeyHeader, s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send invoice request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read invoice response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.ErrorContext(ctx, "NOWPayments invoice API error",
			"status", resp.StatusCode,
			"body", string(respBody),
			"order_id", orderID)
		return nil, fmt.Errorf("%w: status %d", ErrInvoiceNotCreated, resp.StatusCode)
	}

	var invoice Invoice
	if err = json.Unmarshal(respBody, &invoice); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvoiceNotCreated, err)
	}

	if invoice.InvoiceURL == "" {
		s.logger.ErrorContext(ctx, "NOWPayments invoice response without invoice_url",
			"body", string(respBody),
			"order_id", orderID)
		return nil, fmt.Errorf("%w: missing invoice_url", ErrInvoiceNotCreated)
	}

	s.logger.InfoContext(ctx, "Invoice created",
		"order_id", orderID,
		"invoice_id", invoice.ID.String(),
		"pay_currency", cryptoCurrency)

	return &invoice, nil
}
