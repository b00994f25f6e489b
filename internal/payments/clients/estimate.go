package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// ErrMaxRetriesExceeded is returned when the processor kept rate limiting every attempt.
var ErrMaxRetriesExceeded = errors.New("exceeded maximum retries for conversion")

// ConversionError is a non-200, non-429 answer from the estimate endpoint.
type ConversionError struct {
	StatusCode int
	Body       string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("error in conversion: %d - %s", e.StatusCode, e.Body)
}

type estimateResponse struct {
	CurrencyFrom    string          `json:"currency_from"`
	CurrencyTo      string          `json:"currency_to"`
	EstimatedAmount decimal.Decimal `json:"estimated_amount"`
}

// Estimate converts amount of currencyFrom into currencyTo. Rate limited
// attempts are retried after retryDelay * 2^attempt.
func (s *NowPaymentsService) Estimate(ctx context.Context, amount decimal.Decimal, currencyFrom, currencyTo string) (decimal.Decimal, error) {
	query := url.Values{}
	query.Set("amount", amount.String())
	query.Set("currency_from", currencyFrom)
	query.Set("currency_to", currencyTo)

	endpoint := fmt.Sprintf("%s/estimate?%s", s.apiURL, query.Encode())

	for attempt := 0; attempt < s.retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to create estimate request: %w", err)
		}
		req.Header.Set(apiKeyHeader, s.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to send estimate request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to read estimate response: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var result estimateResponse
			if err = json.Unmarshal(body, &result); err != nil {
				return decimal.Zero, fmt.Errorf("failed to decode estimate response: %w", err)
			}

			s.logger.DebugContext(ctx, "Estimate received",
				"amount", amount.String(),
				"from", currencyFrom,
				"to", currencyTo,
				"estimated", result.EstimatedAmount.String())

			return result.EstimatedAmount, nil
		case http.StatusTooManyRequests:
			delay := s.retryDelay * (1 << attempt)
			s.logger.WarnContext(ctx, "Estimate rate limited, backing off",
				"attempt", attempt+1,
				"delay", delay)

			if err = s.sleep(ctx, delay); err != nil {
				return decimal.Zero, err
			}
		default:
			return decimal.Zero, &ConversionError{StatusCode: resp.StatusCode, Body: string(body)}
		}
	}

	return decimal.Zero, ErrMaxRetriesExceeded
}
