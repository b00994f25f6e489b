package entities

import "github.com/shopspring/decimal"

// Package is a purchasable catalog offering.
type Package struct {
	ID             int64               `json:"id"              db:"id"`
	Name           string              `json:"name"            db:"name"`
	Img            string              `json:"img"             db:"img"`
	Entries        *int32              `json:"entries"         db:"entries"`
	Description    *string             `json:"description"     db:"description"`
	CryptoAmount   decimal.NullDecimal `json:"crypto_amount"   db:"crypto_amount"`
	FiatAmount     decimal.NullDecimal `json:"fiat_amount"     db:"fiat_amount"`
	CryptoCurrency *string             `json:"crypto_currency" db:"crypto_currency"`
	FiatCurrency   *string             `json:"fiat_currency"   db:"fiat_currency"`
	Discount       string              `json:"discount"        db:"discount"`
	Message        string              `json:"message"         db:"message"`
}

// Purchasable reports whether the package carries everything an order snapshot needs.
func (p *Package) Purchasable() bool {
	return p.Entries != nil && p.FiatAmount.Valid && p.FiatCurrency != nil && *p.FiatCurrency != ""
}
