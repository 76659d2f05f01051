// Package fees computes the tiered service fee a business is shown when
// reviewing a purchase. The fee is informational: settlement moves only the
// raw purchase amount, and whether a fee is ever collected into a house
// account is an integration decision taken outside this package.
package fees

import "github.com/shopspring/decimal"

var (
	tierThreshold = decimal.NewFromInt(50)
	lowRate       = decimal.NewFromFloat(0.05)
	highRate      = decimal.NewFromFloat(0.10)
)

// ServiceFee returns 5% of the amount for purchases up to 50, otherwise 10%,
// rounded to 2 decimal places.
func ServiceFee(amount decimal.Decimal) decimal.Decimal {
	rate := highRate
	if amount.LessThanOrEqual(tierThreshold) {
		rate = lowRate
	}
	return amount.Mul(rate).Round(2)
}
