package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/lky8/entries-shop/backend/internal/entities"
	"github.com/lky8/entries-shop/backend/internal/usecases"
)

type envelope struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

type userInfoResponse struct {
	*entities.UserInfo
	Orders []entities.Order `json:"orders"`
}

type placedOrderResponse struct {
	UserInfo   userInfoResponse `json:"user_info"`
	OrderID    string           `json:"order_id"`
	PaymentURL string           `json:"payment_url"`
}

func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	if data == nil {
		data = struct{}{}
	}
	writeJSON(w, status, envelope{StatusCode: status, Message: message, Data: data})
}

// CreateOrder upserts the buyer, places the order and returns the invoice URL.
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req usecases.CreateOrderRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.logger.WarnContext(r.Context(), "[Create Order] Malformed body", "error", err)
		writeEnvelope(w, http.StatusBadRequest, usecases.MsgOrderDetails, map[string]string{"non_field_errors": "Malformed JSON body."})
		return
	}

	placed, err := h.orderService.PlaceOrder(r.Context(), req)
	if err != nil {
		h.writePlaceOrderError(w, r, err)
		return
	}

	orders := placed.UserOrders
	if orders == nil {
		orders = []entities.Order{}
	}

	h.logger.InfoContext(r.Context(), "[Create Order] Order created successfully", "order_id", placed.OrderID, "user_id", placed.User.ID)

	writeEnvelope(w, http.StatusCreated, usecases.MsgPaymentInitiated, placedOrderResponse{
		UserInfo:   userInfoResponse{UserInfo: placed.User, Orders: orders},
		OrderID:    placed.OrderID,
		PaymentURL: placed.PaymentURL,
	})
}

func (h *HTTPHandler) writePlaceOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *usecases.ValidationError

	switch {
	case errors.As(err, &validationErr):
		h.logger.InfoContext(r.Context(), "[Create Order] Rejected", "error", err)
		writeEnvelope(w, http.StatusBadRequest, validationErr.Message, validationErr.Fields)
	case errors.Is(err, usecases.ErrConversionFailed):
		h.logger.ErrorContext(r.Context(), "[Create Order] Conversion failed", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, usecases.MsgConversionFailed, nil)
	case errors.Is(err, usecases.ErrPaymentInitiation):
		h.logger.ErrorContext(r.Context(), "[Create Order] Payment initiation failed", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, usecases.MsgPaymentFailed, nil)
	default:
		h.logger.ErrorContext(r.Context(), "[Create Order] Error creating order", "error", err)
		writeEnvelope(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// GetOrderDetails resolves an order by public id. POST callers may pass the
// id in the body as {"order_id": "..."}, which takes precedence over the path.
func (h *HTTPHandler) GetOrderDetails(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["orderId"]

	if r.Method == http.MethodPost && r.ContentLength != 0 {
		var body struct {
			OrderID string `json:"order_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON payload")
			return
		}
		if body.OrderID != "" {
			orderID = body.OrderID
		}
	}

	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "Order ID is required")
		return
	}

	details, err := h.orderService.GetOrder(r.Context(), orderID)
	if errors.Is(err, usecases.ErrOrderNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error getting order", "error", err, "order_id", orderID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": details})
}
