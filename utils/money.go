package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUGX renders an amount as "UGX 1,234,567.00" for console output.
func FormatUGX(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, ch := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(ch)
	}

	out := "UGX " + b.String() + "." + frac
	if neg {
		out = "UGX -" + b.String() + "." + frac
	}
	return out
}
