package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vitwit/payrails/types"
)

// ValidateAmount checks that an amount carries a non-negative decimal value
// and a three letter currency.
func ValidateAmount(amount types.Amount) (*decimal.Decimal, error) {
	if amount.Value == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := amount.Decimal()
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	if len(amount.Currency) != 3 {
		return nil, fmt.Errorf("invalid currency %q", amount.Currency)
	}

	return &dec, nil
}

// NormalizeAmount returns the amount in its wire form: the value keeps the
// scale the merchant supplied ("10.00" stays "10.00", "5" stays "5") and the
// currency is upper-cased.
func NormalizeAmount(amount types.Amount) (types.Amount, error) {
	dec, err := ValidateAmount(amount)
	if err != nil {
		return types.Amount{}, types.NewInvalidDataFormat("invalid amount", err)
	}

	places := int32(0)
	if exp := dec.Exponent(); exp < 0 {
		places = -exp
	}

	return types.Amount{
		Value:    dec.StringFixed(places),
		Currency: strings.ToUpper(amount.Currency),
	}, nil
}
