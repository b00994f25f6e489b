package usecases

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.openly.dev/pointy"

	"github.com/lky8/entries-shop/backend/internal/entities"
	"github.com/lky8/entries-shop/backend/internal/payments/clients"
)

type OrdersRepository interface {
	InsertOrder(ctx context.Context, order *entities.Order) error
	FindOrderByPublicID(ctx context.Context, orderID string) (*entities.Order, error)
	FindUserOrders(ctx context.Context, userID int64) ([]entities.Order, error)
	CompleteOrder(ctx context.Context, id int64) (bool, error)
}

type PaymentsRepository interface {
	InsertPayment(ctx context.Context, payment *entities.CryptoPayment) error
	FindPaymentByOrderID(ctx context.Context, orderID int64) (*entities.CryptoPayment, error)
	ApplyUpdate(ctx context.Context, id int64, update entities.PaymentUpdate) error
}

type PriceEstimator interface {
	Estimate(ctx context.Context, amount decimal.Decimal, currencyFrom, currencyTo string) (decimal.Decimal, error)
}

type InvoiceCreator interface {
	CreateInvoice(ctx context.Context, fiatAmount decimal.Decimal, fiatCurrency, cryptoCurrency, orderID string) (*clients.Invoice, error)
}

// Transactor runs fn in a transaction carried by the context.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// CreateOrderRequest is the body of POST /create-order/.
type CreateOrderRequest struct {
	UserInfo UserInfoInput `json:"user_info"`
	Order    OrderInput    `json:"order"`
}

type OrderInput struct {
	Package        PackageRef `json:"package"`
	CryptoCurrency string     `json:"crypto_currency"`
}

// PackageRef is a package primary key. Clients send it either as a JSON
// number or as a numeric string.
type PackageRef int64

var errPackageRef = errors.New("package must be an integer id")

func (r *PackageRef) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if raw == "null" {
		*r = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %s", errPackageRef, data)
	}
	*r = PackageRef(id)
	return nil
}

func (in OrderInput) validate() map[string]string {
	errs := make(map[string]string)
	if in.Package <= 0 {
		errs["package"] = "A valid package ID must be provided."
	}
	if strings.TrimSpace(in.CryptoCurrency) == "" {
		errs["crypto_currency"] = msgRequired
	}
	return errs
}

// PlacedOrder is what the buyer needs to continue to the payment page.
type PlacedOrder struct {
	User       *entities.UserInfo
	UserOrders []entities.Order
	OrderID    string
	PaymentURL string
}

type OrderService struct {
	logger     *slog.Logger
	transactor Transactor

	users    *UserService
	userRepo UsersRepository
	packages PackagesRepository
	orders   OrdersRepository
	payments PaymentsRepository

	estimator PriceEstimator
	invoices  InvoiceCreator
}

func NewOrderService(
	logger *slog.Logger,
	transactor Transactor,
	users UsersRepository,
	packages PackagesRepository,
	orders OrdersRepository,
	payments PaymentsRepository,
	estimator PriceEstimator,
	invoices InvoiceCreator,
) *OrderService {
	return &OrderService{
		logger:     logger,
		transactor: transactor,
		users:      NewUserService(logger, users),
		userRepo:   users,
		packages:   packages,
		orders:     orders,
		payments:   payments,
		estimator:  estimator,
		invoices:   invoices,
	}
}

// PlaceOrder upserts the buyer, snapshots the package into a pending order
// priced at a fresh estimate, opens an invoice and records the payment.
// Every write is rolled back if any step fails.
func (os *OrderService) PlaceOrder(ctx context.Context, req CreateOrderRequest) (*PlacedOrder, error) {
	if strings.TrimSpace(req.UserInfo.Email) == "" {
		return nil, &ValidationError{Message: MsgEmailRequired, Fields: map[string]string{}}
	}
	if errs := req.Order.validate(); len(errs) > 0 {
		return nil, &ValidationError{Message: MsgOrderDetails, Fields: errs}
	}

	var placed *PlacedOrder
	err := os.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		upsert, err := os.users.Upsert(ctx, req.UserInfo)
		if err != nil {
			return err
		}
		if upsert.Outcome == UpsertValidationFailed {
			return &ValidationError{Message: MsgUserDetails, Fields: upsert.Errors}
		}
		user := upsert.User

		order, err := os.createOrder(ctx, user.ID, req.Order)
		if err != nil {
			return err
		}

		invoice, err := os.invoices.CreateInvoice(ctx, order.FiatAmount, order.FiatCurrency, order.CryptoCurrency, order.OrderID)
		if err != nil {
			os.logger.ErrorContext(ctx, "Invoice creation failed", "error", err, "order_id", order.OrderID)
			return fmt.Errorf("%w: %w", ErrPaymentInitiation, err)
		}

		payment := &entities.CryptoPayment{
			OrderID:               order.ID,
			Status:                pointy.String(entities.PaymentStatusPending),
			Currency:              order.CryptoCurrency,
			InitiatedCryptoAmount: decimal.NewNullDecimal(order.CryptoAmount),
			PriceAmount:           invoice.PriceAmount,
			PriceCurrency:         nonEmpty(invoice.PriceCurrency),
			PaymentID:             invoice.ID.Ptr(),
			OrderDescription:      nonEmpty(invoice.OrderDescription),
			IPNCallbackURL:        nonEmpty(invoice.IPNCallbackURL),
			InvoiceURL:            pointy.String(invoice.InvoiceURL),
			SuccessURL:            nonEmpty(invoice.SuccessURL),
			CancelURL:             nonEmpty(invoice.CancelURL),
		}
		if err = os.payments.InsertPayment(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment for order %s: %w", order.OrderID, err)
		}

		userOrders, err := os.orders.FindUserOrders(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("failed to load orders of user %d: %w", user.ID, err)
		}

		placed = &PlacedOrder{
			User:       user,
			UserOrders: userOrders,
			OrderID:    order.OrderID,
			PaymentURL: invoice.InvoiceURL,
		}

		os.logger.InfoContext(ctx, "Order placed",
			"order_id", order.OrderID,
			"user_id", user.ID,
			"buyer", upsert.Outcome.String(),
			"package_id", order.PackageID,
			"crypto_amount", order.CryptoAmount.String(),
			"crypto_currency", order.CryptoCurrency)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return placed, nil
}

func (os *OrderService) createOrder(ctx context.Context, userID int64, in OrderInput) (*entities.Order, error) {
	pkg, err := os.packages.FindPackageByID(ctx, int64(in.Package))
	if err != nil {
		return nil, fmt.Errorf("failed to find package %d: %w", in.Package, err)
	}
	if pkg == nil {
		return nil, &ValidationError{
			Message: MsgOrderDetails,
			Fields:  map[string]string{"package": "Selected package does not exist."},
			Err:     ErrPackageNotFound,
		}
	}
	if !pkg.Purchasable() {
		return nil, &ValidationError{
			Message: MsgOrderDetails,
			Fields:  map[string]string{"package": "Selected package is not available for purchase."},
		}
	}

	cryptoAmount, err := os.estimator.Estimate(ctx, pkg.FiatAmount.Decimal, *pkg.FiatCurrency, in.CryptoCurrency)
	if err != nil {
		os.logger.ErrorContext(ctx, "Fiat to crypto conversion failed",
			"error", err,
			"package_id", pkg.ID,
			"crypto_currency", in.CryptoCurrency)
		return nil, fmt.Errorf("%w: %s to %s: %w", ErrConversionFailed, *pkg.FiatCurrency, in.CryptoCurrency, err)
	}

	status := entities.OrderStatusPending
	order := &entities.Order{
		OrderID:        uuid.NewString(),
		UserID:         userID,
		PackageID:      pkg.ID,
		Entries:        *pkg.Entries,
		CryptoAmount:   cryptoAmount,
		FiatAmount:     pkg.FiatAmount.Decimal,
		CryptoCurrency: in.CryptoCurrency,
		FiatCurrency:   *pkg.FiatCurrency,
		Status:         &status,
	}

	if err = os.orders.InsertOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	return order, nil
}

// GetOrder resolves an order with its buyer and package by public id.
func (os *OrderService) GetOrder(ctx context.Context, orderID string) (*entities.OrderDetails, error) {
	order, err := os.orders.FindOrderByPublicID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	pkg, err := os.packages.FindPackageByID(ctx, order.PackageID)
	if err != nil {
		return nil, fmt.Errorf("failed to find package %d: %w", order.PackageID, err)
	}
	if pkg == nil {
		return nil, fmt.Errorf("%w: package %d of order %s", ErrPackageNotFound, order.PackageID, orderID)
	}

	user, err := os.userRepo.FindUserByID(ctx, order.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user %d: %w", order.UserID, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %d of order %s not found", order.UserID, orderID)
	}

	return &entities.OrderDetails{
		OrderID:        order.OrderID,
		User:           *user,
		Package:        *pkg,
		Entries:        order.Entries,
		CryptoCurrency: order.CryptoCurrency,
		CryptoAmount:   order.CryptoAmount,
		FiatCurrency:   order.FiatCurrency,
		FiatAmount:     order.FiatAmount,
		Status:         order.Status,
		DateAndTime:    order.DateAndTime,
	}, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return pointy.String(s)
}
