package services

import (
	"math"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes every amount rendered by FormatCurrency.
var CurrencySymbol = "$"

// FormatCurrency formats an amount with the configured currency symbol,
// thousands separators and exactly two decimals, e.g. $1,234.56.
func FormatCurrency(amount float64) string {
	return FormatMoney(CurrencySymbol, amount)
}

// FormatMoney is FormatCurrency with an explicit symbol. Negative amounts
// render as -$12.00; an amount that rounds to zero is never negative.
func FormatMoney(symbol string, amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	rounded := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}
	return sign + symbol + humanize.FormatFloat("#,###.##", rounded.InexactFloat64())
}
