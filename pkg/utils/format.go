// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"

	"github.com/leekchan/accounting"
)

// CurrencySymbol prefixes every formatted money amount.
const CurrencySymbol = "$"

func money(precision int) *accounting.Accounting {
	return &accounting.Accounting{
		Symbol:         CurrencySymbol,
		Precision:      precision,
		Thousand:       ",",
		Decimal:        ".",
		Format:         "%s%v",
		FormatNegative: "-%s%v",
		FormatZero:     "%s%v",
	}
}

// FormatMoney formats an amount with thousands separators and two decimals,
// e.g. "$47,123.50" or "-$8,120.00".
func FormatMoney(amount float64) string {
	return money(2).FormatMoney(amount)
}

// FormatSignedMoney formats an amount with an explicit sign for gains.
func FormatSignedMoney(amount float64) string {
	formatted := FormatMoney(amount)
	if amount > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatPercent formats a fraction as a percentage, e.g. 0.125 as "12.50%".
func FormatPercent(fraction float64) string {
	return fmt.Sprintf("%.2f%%", fraction*100)
}

// FormatCount formats an integer with thousands separators.
func FormatCount(n int) string {
	return accounting.FormatNumber(n, 0, ",", ".")
}

// FormatCompact formats a money amount in compact form (K/M).
func FormatCompact(amount float64) string {
	abs := math.Abs(amount)
	switch {
	case abs >= 1e6:
		return money(2).FormatMoney(amount/1e6) + "M"
	case abs >= 1e4:
		return money(1).FormatMoney(amount/1e3) + "K"
	default:
		return FormatMoney(amount)
	}
}
