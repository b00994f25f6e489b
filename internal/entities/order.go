package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
)

// Order is a purchase intent. Entries and amounts are a snapshot of the
// package taken at creation time and are never rewritten.
type Order struct {
	ID             int64           `json:"-"               db:"id"`
	OrderID        string          `json:"order_id"        db:"order_id"`
	UserID         int64           `json:"-"               db:"user_id"`
	PackageID      int64           `json:"package"         db:"package_id"`
	Entries        int32           `json:"entries"         db:"entries"`
	CryptoAmount   decimal.Decimal `json:"crypto_amount"   db:"crypto_amount"`
	FiatAmount     decimal.Decimal `json:"fiat_amount"     db:"fiat_amount"`
	CryptoCurrency string          `json:"crypto_currency" db:"crypto_currency"`
	FiatCurrency   string          `json:"fiat_currency"   db:"fiat_currency"`
	Status         *OrderStatus    `json:"status"          db:"status"`
	DateAndTime    time.Time       `json:"date_and_time"   db:"date_and_time"`
}

// OrderDetails is an order with its buyer and package resolved.
type OrderDetails struct {
	OrderID        string          `json:"order_id"`
	User           UserInfo        `json:"user"`
	Package        Package         `json:"package"`
	Entries        int32           `json:"entries"`
	CryptoCurrency string          `json:"crypto_currency"`
	CryptoAmount   decimal.Decimal `json:"crypto_amount"`
	FiatCurrency   string          `json:"fiat_currency"`
	FiatAmount     decimal.Decimal `json:"fiat_amount"`
	Status         *OrderStatus    `json:"status"`
	DateAndTime    time.Time       `json:"date_and_time"`
}
