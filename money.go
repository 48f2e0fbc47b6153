// Copyright (c) 2025 Neomantra Corp

package backtest

import (
	"github.com/shopspring/decimal"
)

// Currency is an ISO-4217-style currency or crypto asset code.
type Currency string

func (c Currency) String() string { return string(c) }

// Money is an exact decimal amount tagged with a Currency.
// Arithmetic between two Money values requires currency equality.
type Money struct {
	Amount   decimal.Decimal
	Currency Currency
}

// NewMoney returns a Money for the given amount and currency.
func NewMoney(amount decimal.Decimal, currency Currency) Money {
	return Money{Amount: amount, Currency: currency}
}

// ZeroMoney returns a zero amount in the given currency.
func ZeroMoney(currency Currency) Money {
	return Money{Amount: decimal.Zero, Currency: currency}
}

// MoneyFromString parses a decimal string into a Money of the given currency.
func MoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: d, Currency: currency}, nil
}

// Add returns m + other, failing with ErrCurrencyMismatch across currencies.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, currencyError("add", m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub returns m - other, failing with ErrCurrencyMismatch across currencies.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, currencyError("subtract", m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// Neg returns the negated amount in the same currency.
func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// IsZero returns true if the amount is exactly zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) String() string {
	return m.Amount.String() + " " + string(m.Currency)
}
