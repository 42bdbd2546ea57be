// Package units converts between human amount strings, token base units and
// the ether denominations used for display.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is a power-of-ten denomination of wei.
type Unit int32

const (
	Wei   Unit = 0
	GWei  Unit = 9
	Ether Unit = 18
)

// MaxAmountDigits bounds the digits of an amount string; a uint256 has 78.
const MaxAmountDigits = 78

var (
	ErrNegativeAmount = errors.New("units: negative amount")
	ErrInvalidAmount  = errors.New("units: invalid amount")
)

var plainDecimal = regexp.MustCompile(`^[0-9]*\.?[0-9]*$`)

// IsPlainDecimal reports whether s is digits with at most one point, holding
// between one and MaxAmountDigits digits. Signs and exponents are rejected.
func IsPlainDecimal(s string) bool {
	if !plainDecimal.MatchString(s) {
		return false
	}
	digits := len(s) - strings.Count(s, ".")
	return digits > 0 && digits <= MaxAmountDigits
}

// ToTokenDecimals parses a decimal amount into token base units, truncating
// fraction digits beyond decimals.
func ToTokenDecimals(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("units: empty amount")
	}
	if strings.HasPrefix(amount, "-") {
		return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	if !IsPlainDecimal(amount) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("units: parse %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, amount)
	}
	return d.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// FromTokenDecimals formats base units with exactly decimals fraction digits.
func FromTokenDecimals(v *big.Int, decimals int) string {
	return decimal.NewFromBigInt(v, -int32(decimals)).StringFixed(int32(decimals))
}

// RemoveExtraZeros drops trailing fraction zeros, and the point if nothing is left.
func RemoveExtraZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// FixDecimals cuts the fraction part of s down to decimals digits.
// Anything that is not a plain decimal string is returned untouched.
func FixDecimals(s string, decimals int) string {
	i := strings.IndexByte(s, '.')
	if i < 0 || !IsPlainDecimal(s) {
		return s
	}
	if decimals <= 0 {
		return s[:i]
	}
	if len(s)-i-1 <= decimals {
		return s
	}
	return s[:i+1+decimals]
}

// ToWei converts an amount in unit to wei, truncating below one wei.
func ToWei(v float64, unit Unit) *big.Int {
	return decimal.NewFromFloat(v).Shift(int32(unit)).Truncate(0).BigInt()
}

// FromWei renders wei in unit with no trailing zeros.
func FromWei(v *big.Int, unit Unit) string {
	return decimal.NewFromBigInt(v, -int32(unit)).String()
}

// FromWeiFixed renders wei in unit rounded to places fraction digits.
func FromWeiFixed(v *big.Int, unit Unit, places int) string {
	return decimal.NewFromBigInt(v, -int32(unit)).StringFixed(int32(places))
}

// Percentage returns floor(v * p).
func Percentage(p float64, v *big.Int) *big.Int {
	return decimal.NewFromBigInt(v, 0).Mul(decimal.NewFromFloat(p)).Truncate(0).BigInt()
}
