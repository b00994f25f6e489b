package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lky8/entries-shop/backend/internal/entities"
	"github.com/lky8/entries-shop/backend/internal/usecases"
)

var (
	_ PackageService = (*usecases.PackageService)(nil)
	_ OrderService   = (*usecases.OrderService)(nil)
	_ WebhookService = (*usecases.WebhookService)(nil)
)

type PackageService interface {
	ListPackages(ctx context.Context) ([]entities.Package, error)
}

type OrderService interface {
	PlaceOrder(ctx context.Context, req usecases.CreateOrderRequest) (*usecases.PlacedOrder, error)
	GetOrder(ctx context.Context, orderID string) (*entities.OrderDetails, error)
}

type WebhookService interface {
	Process(ctx context.Context, payload []byte, signature string) error
}

// HealthChecker is satisfied by the database handle.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	logger         *slog.Logger
	packageService PackageService
	orderService   OrderService
	webhookService WebhookService
	health         HealthChecker
}

func NewHTTPHandler(
	logger *slog.Logger,
	packageService PackageService,
	orderService OrderService,
	webhookService WebhookService,
	health HealthChecker,
) *HTTPHandler {
	return &HTTPHandler{
		logger:         logger,
		packageService: packageService,
		orderService:   orderService,
		webhookService: webhookService,
		health:         health,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	router.Use(h.recoverPanics)

	// Catalog
	router.HandleFunc("/packages/", h.GetPackages).Methods(http.MethodGet)

	// Orders
	router.HandleFunc("/create-order/", h.CreateOrder).Methods(http.MethodPost)
	router.HandleFunc("/orders/{orderId}/", h.GetOrderDetails).Methods(http.MethodGet, http.MethodPost)

	// Processor callbacks answer every method themselves.
	router.HandleFunc("/lky8/webhook/check-payment-status/", h.PaymentWebhook)

	router.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
}

func (h *HTTPHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.health.Ping(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
