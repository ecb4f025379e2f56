package model

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Dnum is an 18-decimal fixed point amount.
type Dnum = decimal.Decimal

const dnumDecimals = 18

// Dnum18 scales a raw uint256 amount by 1e-18. A nil value is zero.
func Dnum18(raw *big.Int) Dnum {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -dnumDecimals)
}

// ParseDnum18 parses a raw integer amount in its decimal string form.
func ParseDnum18(s string) (Dnum, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	raw, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid integer amount %q", s)
	}
	return Dnum18(raw), nil
}
