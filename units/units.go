// Package units converts between human readable decimal amounts and integer
// base units. All arithmetic is exact; binary floating point is never used.
package units

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/nando-os/ghost-wallet/errno"
	"github.com/shopspring/decimal"
)

// EtherDecimals is the scale of the native asset (wei per ether = 10^18).
const EtherDecimals = 18

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// maxUint256Digits is the number of decimal digits in 2^256-1.
const maxUint256Digits = 78

// maxExponent bounds the exponent ParseAmount accepts. Anything beyond it
// overflows uint256 or has more fractional digits than any token supports.
const maxExponent = 1000

// ToBaseUnits returns amount × 10^decimals as an integer.
//
// The conversion is exact: an amount carrying more fractional digits than
// decimals cannot be represented in base units and is rejected rather than
// silently rounded.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, errno.New(errno.InvalidAmount, "amount %s is negative", amount.String())
	}
	if amount.IsZero() {
		return new(big.Int), nil
	}

	// Size checks run on the mantissa and exponent so that nothing is
	// materialised for inputs like 1e100000000 or 1e-100000000.
	digits := int64(amount.NumDigits())
	exp := int64(amount.Exponent()) + int64(decimals)
	if exp >= 0 && digits+exp > maxUint256Digits {
		return nil, errno.New(errno.InvalidAmount, "amount %s overflows uint256", amount.String())
	}
	if exp < 0 && -exp > digits {
		return nil, errno.New(errno.InvalidAmount,
			"amount %s has more than %d fractional digits", amount.String(), decimals)
	}

	scaled := amount.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, errno.New(errno.InvalidAmount,
			"amount %s has more than %d fractional digits", amount.String(), decimals)
	}

	raw := scaled.BigInt()
	if raw.Cmp(maxUint256) > 0 {
		return nil, errno.New(errno.InvalidAmount, "amount %s overflows uint256", amount.String())
	}
	return raw, nil
}

// FromBaseUnits is the exact inverse of ToBaseUnits.
func FromBaseUnits(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// ToWei converts an ether-denominated amount to wei.
func ToWei(amount decimal.Decimal) (*big.Int, error) {
	return ToBaseUnits(amount, EtherDecimals)
}

// FromWei converts wei to ether.
func FromWei(wei *big.Int) decimal.Decimal {
	return FromBaseUnits(wei, EtherDecimals)
}

// ParseAmount parses user input such as "0.25" or "1e-3".
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errno.New(errno.InvalidAmount, "empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errno.Wrap(errno.InvalidAmount, err, fmt.Sprintf("parse %q", s))
	}
	if d.IsNegative() {
		return decimal.Zero, errno.New(errno.InvalidAmount, "amount %s is negative", s)
	}
	if d.IsZero() {
		return decimal.Zero, nil
	}
	if e := d.Exponent(); e > maxExponent || e < -maxExponent {
		return decimal.Zero, errno.New(errno.InvalidAmount, "amount %s is out of range", s)
	}
	return d, nil
}

// Format renders raw base units with trailing zeros trimmed.
func Format(raw *big.Int, decimals uint8) string {
	return FromBaseUnits(raw, decimals).String()
}
