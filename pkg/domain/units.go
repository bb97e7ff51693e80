package domain

import (
	"math/big"
	"strings"

	dErrors "rwaledger/pkg/domain-errors"
)

// MaxDecimals bounds the fixed-point scale accepted for presentation.
const MaxDecimals = 36

// ParseAmount parses a non-negative decimal integer in smallest units.
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "amount is required")
	}
	if !isDigits(s) {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "amount must be a non-negative integer")
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "amount must be a non-negative integer")
	}
	return v, nil
}

// ParseUnits converts a human-readable decimal ("1000", "12.5") into smallest
// units scaled by 10^decimals. Fractional digits beyond the scale are rejected
// rather than rounded.
func ParseUnits(value string, decimals uint8) (*big.Int, error) {
	if decimals > MaxDecimals {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "decimals out of range")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "value is required")
	}
	whole, frac, hasDot := strings.Cut(value, ".")
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (hasDot && !isDigits(frac)) {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "value must be a non-negative decimal")
	}
	if len(frac) > int(decimals) {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "value has more fractional digits than the token supports")
	}
	frac += strings.Repeat("0", int(decimals)-len(frac))

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidAmount, "value must be a non-negative decimal")
	}
	return v, nil
}

// FormatUnits renders smallest units as a decimal string with trailing zeros trimmed.
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	digits := new(big.Int).Abs(amount).String()
	if decimals > 0 {
		if pad := int(decimals) + 1 - len(digits); pad > 0 {
			digits = strings.Repeat("0", pad) + digits
		}
		cut := len(digits) - int(decimals)
		whole, frac := digits[:cut], strings.TrimRight(digits[cut:], "0")
		digits = whole
		if frac != "" {
			digits += "." + frac
		}
	}
	if amount.Sign() < 0 {
		return "-" + digits
	}
	return digits
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
