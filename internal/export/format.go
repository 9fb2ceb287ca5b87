package export

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatNumber renders f in German notation with up to three fraction
// digits: 1234.5 -> "1.234,5".
func FormatNumber(f float64) string {
	return formatGerman(decimal.NewFromFloat(f).Round(3))
}

// FormatEuro renders a money amount rounded to cents: 12.5 -> "12,5€".
func FormatEuro(f float64) string {
	return formatGerman(decimal.NewFromFloat(f).Round(2)) + "€"
}

func formatGerman(d decimal.Decimal) string {
	s := d.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	frac = strings.TrimRight(frac, "0")

	var b strings.Builder
	if neg && (strings.Trim(intPart, "0") != "" || frac != "") {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	if frac != "" {
		b.WriteByte(',')
		b.WriteString(frac)
	}
	return b.String()
}
