// Package currency converts between card-processor minor units and major units.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

// zeroDecimal lists the currencies Stripe charges without a minor unit.
var zeroDecimal = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {},
	"mga": {}, "pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {},
	"xof": {}, "xpf": {},
}

// Normalize lowercases and trims a currency code.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// IsZeroDecimal reports whether code is charged in whole units.
func IsZeroDecimal(code string) bool {
	_, ok := zeroDecimal[Normalize(code)]
	return ok
}

// FromMinor converts a processor amount to major units.
func FromMinor(amount decimal.Decimal, code string) decimal.Decimal {
	if IsZeroDecimal(code) {
		return amount
	}
	return amount.Shift(-2)
}

// ToMinor converts a major-unit amount to the integer the processor expects.
func ToMinor(amount decimal.Decimal, code string) int64 {
	if IsZeroDecimal(code) {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}
