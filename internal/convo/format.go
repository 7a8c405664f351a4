package convo

import (
	"fmt"
	"strings"

	"parchaoo-bot/internal/repo"
)

// FormatPrice renders the display price of a product: fixed, range,
// from-only, or a "ask for price" fallback.
func FormatPrice(p repo.Product) string {
	switch {
	case p.Precio != nil:
		return "$" + formatAmount(*p.Precio)
	case p.PrecioDesde != nil && p.PrecioHasta != nil:
		return fmt.Sprintf("$%s - $%s", formatAmount(*p.PrecioDesde), formatAmount(*p.PrecioHasta))
	case p.PrecioDesde != nil:
		return "Desde $" + formatAmount(*p.PrecioDesde)
	default:
		return "Consultar precio"
	}
}

// formatAmount renders a peso amount with thousands separators and no
// decimals.
func formatAmount(v float64) string {
	digits := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	var b strings.Builder
	pre := len(digits) % 3
	if pre > 0 {
		b.WriteString(digits[:pre])
	}
	for i := pre; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// truncate shortens a description for prompt context, cutting on runes so
// accented text never splits mid-character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
