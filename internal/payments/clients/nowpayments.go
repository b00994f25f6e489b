package clients

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAPIURL     = "https://api.nowpayments.io/v1"
	defaultTimeout    = 10 * time.Second
	defaultRetries    = 3
	defaultRetryDelay = 2 * time.Second

	apiKeyHeader = "x-api-key"
)

// InvoiceURLs are the callback and redirect targets attached to every invoice.
type InvoiceURLs struct {
	CallbackURL string
	// SuccessURL is a prefix, the order id is appended to it.
	SuccessURL string
	CancelURL  string
}

// NowPaymentsService talks to the NOWPayments REST API.
type NowPaymentsService struct {
	logger *slog.Logger
	apiKey string
	apiURL string
	client *http.Client
	urls   InvoiceURLs

	retries    int
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

type Option func(*NowPaymentsService)

// WithRetries sets how many estimate attempts are made while rate limited.
func WithRetries(retries int) Option {
	return func(s *NowPaymentsService) {
		if retries > 0 {
			s.retries = retries
		}
	}
}

// WithRetryDelay sets the base of the exponential backoff.
func WithRetryDelay(delay time.Duration) Option {
	return func(s *NowPaymentsService) {
		if delay >= 0 {
			s.retryDelay = delay
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(s *NowPaymentsService) {
		if timeout > 0 {
			s.client.Timeout = timeout
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *NowPaymentsService) {
		if client != nil {
			s.client = client
		}
	}
}

func WithInvoiceURLs(urls InvoiceURLs) Option {
	return func(s *NowPaymentsService) {
		s.urls = urls
	}
}

// NewNowPaymentsService creates a client for the payment processor.
func NewNowPaymentsService(logger *slog.Logger, apiKey, apiURL string, opts ...Option) *NowPaymentsService {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}

	s := &NowPaymentsService{
		logger:     logger,
		apiKey:     apiKey,
		apiURL:     strings.TrimRight(apiURL, "/"),
		client:     &http.Client{Timeout: defaultTimeout},
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
		sleep:      sleepContext,
	}

	for _, opt := range opts {
		opt(s)
	}

	logger.Info("NOWPayments service initialized", "api_url", s.apiURL, "timeout", s.client.Timeout)

	return s
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
