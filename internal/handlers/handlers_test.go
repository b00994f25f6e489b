package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.openly.dev/pointy"

	"github.com/lky8/entries-shop/backend/internal/entities"
	"github.com/lky8/entries-shop/backend/internal/payments/clients"
	"github.com/lky8/entries-shop/backend/internal/usecases"
)

type fakePackages struct {
	packages []entities.Package
	err      error
}

func (f *fakePackages) ListPackages(context.Context) ([]entities.Package, error) {
	return f.packages, f.err
}

type fakeOrders struct {
	placeErr error
	lastReq  usecases.CreateOrderRequest
	details  map[string]*entities.OrderDetails
}

func (f *fakeOrders) PlaceOrder(_ context.Context, req usecases.CreateOrderRequest) (*usecases.PlacedOrder, error) {
	f.lastReq = req
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	return &usecases.PlacedOrder{
		User:       &entities.UserInfo{ID: 7, Email: req.UserInfo.Email},
		OrderID:    "0b6f1c7e-1f0e-4a0a-9d59-2b1f0f4a9a11",
		PaymentURL: "https://nowpayments.io/payment/?iid=1",
	}, nil
}

func (f *fakeOrders) GetOrder(_ context.Context, orderID string) (*entities.OrderDetails, error) {
	d, ok := f.details[orderID]
	if !ok {
		return nil, usecases.ErrOrderNotFound
	}
	return d, nil
}

type fakeWebhooks struct {
	err       error
	panicWith any
	payload   []byte
	signature string
}

func (f *fakeWebhooks) Process(_ context.Context, payload []byte, signature string) error {
	f.payload, f.signature = payload, signature
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) Ping(context.Context) error { return f.err }

type testServer struct {
	packages *fakePackages
	orders   *fakeOrders
	webhooks *fakeWebhooks
	health   *fakeHealth
	router   *mux.Router
}

func newTestServer() *testServer {
	s := &testServer{
		packages: &fakePackages{},
		orders:   &fakeOrders{details: map[string]*entities.OrderDetails{}},
		webhooks: &fakeWebhooks{},
		health:   &fakeHealth{},
		router:   mux.NewRouter(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	NewHTTPHandler(logger, s.packages, s.orders, s.webhooks, s.health).RegisterRoutes(s.router)
	return s
}

func (s *testServer) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestGetPackages(t *testing.T) {
	s := newTestServer()
	s.packages.packages = []entities.Package{{
		ID:             1,
		Name:           "Gold",
		Entries:        pointy.Int32(10),
		CryptoAmount:   decimal.NewNullDecimal(decimal.RequireFromString("0.00079")),
		CryptoCurrency: pointy.String("btc"),
		Message:        "Get 10 entries for just 0.00079 btc!",
	}}

	rec := s.do(http.MethodGet, "/packages/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var packages []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &packages))
	require.Len(t, packages, 1)
	assert.Equal(t, "0.00079", packages[0]["crypto_amount"])
	assert.Equal(t, "Get 10 entries for just 0.00079 btc!", packages[0]["message"])

	s.packages.err = errors.New("db down")
	rec = s.do(http.MethodGet, "/packages/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCreateOrder(t *testing.T) {
	body := `{"user_info":{"email":"a@b.com","first_name":"Ada"},"order":{"package":1,"crypto_currency":"btc"}}`

	t.Run("created", func(t *testing.T) {
		s := newTestServer()

		rec := s.do(http.MethodPost, "/create-order/", body)
		require.Equal(t, http.StatusCreated, rec.Code)

		out := decode(t, rec)
		assert.EqualValues(t, http.StatusCreated, out["status_code"])
		assert.Equal(t, usecases.MsgPaymentInitiated, out["message"])

		data := out["data"].(map[string]any)
		assert.Equal(t, "0b6f1c7e-1f0e-4a0a-9d59-2b1f0f4a9a11", data["order_id"])
		assert.Equal(t, "https://nowpayments.io/payment/?iid=1", data["payment_url"])

		user := data["user_info"].(map[string]any)
		assert.Equal(t, "a@b.com", user["email"])
		assert.Equal(t, []any{}, user["orders"])

		assert.Equal(t, usecases.PackageRef(1), s.orders.lastReq.Order.Package)
		assert.Equal(t, "Ada", *s.orders.lastReq.UserInfo.FirstName)
	})

	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "missing email",
			err:     &usecases.ValidationError{Message: usecases.MsgEmailRequired, Fields: map[string]string{}},
			status:  http.StatusBadRequest,
			message: usecases.MsgEmailRequired,
		},
		{
			name: "unknown package",
			err: fmt.Errorf("wrapped: %w", &usecases.ValidationError{
				Message: usecases.MsgOrderDetails,
				Fields:  map[string]string{"package": "Selected package does not exist."},
				Err:     usecases.ErrPackageNotFound,
			}),
			status:  http.StatusBadRequest,
			message: usecases.MsgOrderDetails,
		},
		{
			name:    "conversion failure",
			err:     fmt.Errorf("%w: %w", usecases.ErrConversionFailed, clients.ErrMaxRetriesExceeded),
			status:  http.StatusInternalServerError,
			message: usecases.MsgConversionFailed,
		},
		{
			name:    "invoice failure",
			err:     fmt.Errorf("%w: %w", usecases.ErrPaymentInitiation, clients.ErrInvoiceNotCreated),
			status:  http.StatusInternalServerError,
			message: usecases.MsgPaymentFailed,
		},
		{
			name:    "unexpected",
			err:     errors.New("deadlock detected"),
			status:  http.StatusInternalServerError,
			message: "Internal server error",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer()
			s.orders.placeErr = tc.err

			rec := s.do(http.MethodPost, "/create-order/", body)
			require.Equal(t, tc.status, rec.Code)

			out := decode(t, rec)
			assert.EqualValues(t, tc.status, out["status_code"])
			assert.Equal(t, tc.message, out["message"])
			assert.NotContains(t, rec.Body.String(), "deadlock")
			assert.NotContains(t, rec.Body.String(), "exceeded")
		})
	}

	t.Run("field errors are returned as data", func(t *testing.T) {
		s := newTestServer()
		s.orders.placeErr = &usecases.ValidationError{
			Message: usecases.MsgUserDetails,
			Fields:  map[string]string{"email": "Enter a valid email address."},
		}

		rec := s.do(http.MethodPost, "/create-order/", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		data := decode(t, rec)["data"].(map[string]any)
		assert.Equal(t, "Enter a valid email address.", data["email"])
	})

	t.Run("malformed body", func(t *testing.T) {
		s := newTestServer()
		rec := s.do(http.MethodPost, "/create-order/", "{")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("package id as string", func(t *testing.T) {
		s := newTestServer()
		rec := s.do(http.MethodPost, "/create-order/",
			`{"user_info":{"email":"a@b.com"},"order":{"package":"1","crypto_currency":"btc"}}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, usecases.PackageRef(1), s.orders.lastReq.Order.Package)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		for _, body := range []string{
			`{"user_info":{"email":"a@b.com","is_admin":true},"order":{"package":1,"crypto_currency":"btc"}}`,
			`{"user_info":{"email":"a@b.com"},"order":{"package":1,"crypto_currency":"btc","discount":90}}`,
			`{"user_info":{"email":"a@b.com"},"order":{"package":1,"crypto_currency":"btc"},"coupon":"x"}`,
		} {
			s := newTestServer()
			rec := s.do(http.MethodPost, "/create-order/", body)
			require.Equal(t, http.StatusBadRequest, rec.Code, body)

			out := decode(t, rec)
			assert.Equal(t, usecases.MsgOrderDetails, out["message"])
			assert.Equal(t, usecases.CreateOrderRequest{}, s.orders.lastReq)
		}
	})
}

func TestGetOrderDetails(t *testing.T) {
	const orderID = "0b6f1c7e-1f0e-4a0a-9d59-2b1f0f4a9a11"
	status := entities.OrderStatusCompleted

	s := newTestServer()
	s.orders.details[orderID] = &entities.OrderDetails{
		OrderID: orderID,
		User:    entities.UserInfo{ID: 7, Email: "a@b.com"},
		Package: entities.Package{ID: 1, Name: "Gold"},
		Entries: 10,
		Status:  &status,
	}

	t.Run("get by path", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/orders/"+orderID+"/", "")
		require.Equal(t, http.StatusOK, rec.Code)

		order := decode(t, rec)["order"].(map[string]any)
		assert.Equal(t, orderID, order["order_id"])
		assert.Equal(t, "completed", order["status"])
		assert.Equal(t, "Gold", order["package"].(map[string]any)["name"])
		assert.Equal(t, "a@b.com", order["user"].(map[string]any)["email"])
	})

	t.Run("post with body id", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/orders/ignored/", `{"order_id":"`+orderID+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("post without body uses path", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/orders/"+orderID+"/", "")
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		rec := s.do(http.MethodGet, "/orders/unknown/", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Not found.", decode(t, rec)["detail"])
	})

	t.Run("blank id", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/orders/ignored/", `{"order_id":"   "}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Order ID is required", decode(t, rec)["error"])
	})
}

func TestPaymentWebhook(t *testing.T) {
	const path = "/lky8/webhook/check-payment-status/"

	t.Run("success passes body and signature through", func(t *testing.T) {
		s := newTestServer()
		rec := s.do(http.MethodPost, path, `{"order_id":"x"}`, "X-NowPayments-Sig", "abc123")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decode(t, rec)["success"])
		assert.Equal(t, `{"order_id":"x"}`, string(s.webhooks.payload))
		assert.Equal(t, "abc123", s.webhooks.signature)
	})

	t.Run("wrong method", func(t *testing.T) {
		s := newTestServer()
		rec := s.do(http.MethodGet, path, "")
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "Invalid request method", decode(t, rec)["error"])
		assert.Nil(t, s.webhooks.payload)
	})

	cases := []struct {
		err     error
		status  int
		message string
	}{
		{fmt.Errorf("%w: unexpected end of JSON input", clients.ErrMalformedPayload), http.StatusBadRequest, "Invalid JSON payload"},
		{usecases.ErrMissingSignature, http.StatusBadRequest, "Missing signature"},
		{clients.ErrInvalidSignature, http.StatusBadRequest, "Invalid signature"},
		{usecases.ErrOrderNotFound, http.StatusNotFound, "Order not found"},
		{usecases.ErrPaymentNotFound, http.StatusNotFound, "Payment record not found"},
		{errors.New("connection reset"), http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.message, func(t *testing.T) {
			s := newTestServer()
			s.webhooks.err = tc.err

			rec := s.do(http.MethodPost, path, `{}`)
			require.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.message, decode(t, rec)["error"])
		})
	}
}

func TestHandlerPanicBecomes500(t *testing.T) {
	s := newTestServer()
	s.webhooks.panicWith = "nil map write"

	var rec *httptest.ResponseRecorder
	require.NotPanics(t, func() {
		rec = s.do(http.MethodPost, "/lky8/webhook/check-payment-status/", `{"order_id":"x"}`, "x-nowpayments-sig", "abc")
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode(t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "nil map")

	// The server keeps answering afterwards.
	s.webhooks.panicWith = nil
	rec = s.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer()
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "").Code)

	s.health.err = errors.New("pool closed")
	assert.Equal(t, http.StatusServiceUnavailable, s.do(http.MethodGet, "/healthz", "").Code)
}
