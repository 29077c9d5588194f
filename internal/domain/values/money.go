package values

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatDollars renders an amount as whole US dollars with thousands
// separators ("$30,000"), the way the agent reads figures back to callers.
func FormatDollars(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(0)

	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	digits := d.StringFixed(0)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return sign + "$" + b.String()
}

// Numeric converts an optional float amount into a cent-precision decimal for
// NUMERIC columns. A nil amount maps to an invalid NullDecimal (SQL NULL).
func Numeric(amount *float64) decimal.NullDecimal {
	if amount == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(*amount).Round(2), Valid: true}
}

// FromNumeric is the inverse of Numeric.
func FromNumeric(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}
