// Package cardgen produces the card details attached to a newly issued
// account: a Luhn-valid card number, a CVV, an expiry date one year out,
// and an 8-digit barcode.
package cardgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

type Details struct {
	CardNumber string
	CVV        string
	ExpiryDate string // MM/YY
	Barcode    string
}

// Generator is the external card-detail collaborator. Implementations may
// call out over the network and must be treated as fallible: callers abort
// issuance on error without creating partial state.
type Generator interface {
	Generate(ctx context.Context, holderName string) (*Details, error)
}

type localGenerator struct{}

// NewLocalGenerator returns an in-process generator backed by crypto/rand.
func NewLocalGenerator() Generator {
	return &localGenerator{}
}

func (g *localGenerator) Generate(ctx context.Context, holderName string) (*Details, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	partial, err := randomDigits(15)
	if err != nil {
		return nil, fmt.Errorf("failed to generate card number: %w", err)
	}
	// Prefix 4 keeps the number in the familiar consumer-card range.
	partial = "4" + partial[1:]

	cvv, err := randomDigits(3)
	if err != nil {
		return nil, fmt.Errorf("failed to generate cvv: %w", err)
	}

	barcode, err := randomDigits(8)
	if err != nil {
		return nil, fmt.Errorf("failed to generate barcode: %w", err)
	}

	return &Details{
		CardNumber: partial + luhnCheckDigit(partial),
		CVV:        cvv,
		ExpiryDate: time.Now().AddDate(1, 0, 0).Format("01/06"),
		Barcode:    barcode,
	}, nil
}

func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}

// luhnCheckDigit returns the digit that makes partial+digit pass the Luhn
// check.
func luhnCheckDigit(partial string) string {
	sum := 0
	double := true
	for i := len(partial) - 1; i >= 0; i-- {
		d := int(partial[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		double = !double
		sum += d
	}
	return string(byte('0' + (10-sum%10)%10))
}

// LuhnValid reports whether a numeric string passes the Luhn check.
func LuhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		double = !double
		sum += d
	}
	return len(number) > 1 && sum%10 == 0
}
