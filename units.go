package vaultflow

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// DefaultDecimals is the fixed scaling of token and vault quantities.
const DefaultDecimals = 18

var errInvalidAmount = errors.New("vaultflow: invalid decimal amount")

// FormatUnits renders amount / 10^decimals exactly, trimming trailing zeros
// but keeping at least one fractional digit.
//
//	amount=10000000000000000000000, decimals=18 -> "10000.0"
//	amount=1500000000000000000,     decimals=18 -> "1.5"
//	amount=1,                       decimals=18 -> "0.000000000000000001"
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		amount = new(big.Int)
	}

	neg := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)

	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	intPart, fracPart := new(big.Int).QuoRem(abs, base, new(big.Int))

	frac := "0"
	if decimals > 0 && fracPart.Sign() != 0 {
		frac = fracPart.String()
		if len(frac) < int(decimals) {
			frac = strings.Repeat("0", int(decimals)-len(frac)) + frac
		}
		frac = strings.TrimRight(frac, "0")
	}

	out := intPart.String() + "." + frac
	if neg {
		return "-" + out
	}
	return out
}

// ParseUnits parses a decimal string and scales it by 10^decimals.
func ParseUnits(value string, decimals uint8) (*big.Int, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", errInvalidAmount)
	}

	intStr, fracStr, _ := strings.Cut(s, ".")
	if intStr == "" {
		intStr = "0"
	}
	if len(fracStr) > int(decimals) {
		return nil, fmt.Errorf("%w: %q has more than %d fractional digits", errInvalidAmount, value, decimals)
	}
	fracStr += strings.Repeat("0", int(decimals)-len(fracStr))

	out, ok := new(big.Int).SetString(intStr+fracStr, 10)
	if !ok || strings.ContainsAny(intStr+fracStr, "+-") {
		return nil, fmt.Errorf("%w: %q", errInvalidAmount, value)
	}
	return out, nil
}

// MustParseUnits is like ParseUnits but panics on error.
func MustParseUnits(value string, decimals uint8) *big.Int {
	out, err := ParseUnits(value, decimals)
	if err != nil {
		panic(err)
	}
	return out
}
