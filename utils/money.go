package utils

import (
	"github.com/shopspring/decimal"
)

const moneyPrecision int32 = 2 // auction prices are quoted to the cent

// Money converts a float64 amount into a decimal rounded to money precision.
// All price comparison and arithmetic goes through decimals to avoid
// floating-point drift in increment math.
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(moneyPrecision)
}

// MoneyValue converts a decimal back to the float64 stored on entities.
func MoneyValue(d decimal.Decimal) float64 {
	f, _ := d.Round(moneyPrecision).Float64()
	return f
}

// FormatMoney renders an amount for user-facing messages.
func FormatMoney(v float64) string {
	return Money(v).StringFixed(moneyPrecision)
}
