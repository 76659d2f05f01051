package service

import (
	"fmt"

	"campusbank/models"

	"github.com/shopspring/decimal"
)

// parseAmount parses a positive currency amount with at most two decimal
// places from its wire representation.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("malformed amount %q: %w", raw, models.ErrInvalidOperation)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("amount must be greater than zero: %w", models.ErrInvalidOperation)
	}
	if amount.Exponent() < -2 {
		return decimal.Decimal{}, fmt.Errorf("amount has more than two decimal places: %w", models.ErrInvalidOperation)
	}
	return amount, nil
}

// parseNonNegativeAmount is parseAmount but allowing zero, for opening
// balances and limits.
func parseNonNegativeAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("malformed amount %q: %w", raw, models.ErrInvalidOperation)
	}
	if amount.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("amount must not be negative: %w", models.ErrInvalidOperation)
	}
	if amount.Exponent() < -2 {
		return decimal.Decimal{}, fmt.Errorf("amount has more than two decimal places: %w", models.ErrInvalidOperation)
	}
	return amount, nil
}
