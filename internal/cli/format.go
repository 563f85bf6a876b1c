package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/dreambuilder/internal/affordability"
	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount as dollars with thousands separators,
// rounded half away from zero to cents.
func FormatMoney(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}

	fixed := d.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + frac
}

// FormatPercent renders a ratio such as 0.35 as "35.0%".
func FormatPercent(ratio float64) string {
	return decimal.NewFromFloat(ratio).Mul(decimal.NewFromInt(100)).StringFixed(1) + "%"
}

// FormatDuration renders a months-to-save figure. The unachievable sentinel
// prints as "never"; a negative count means the goal is already reached.
func FormatDuration(months int) string {
	switch {
	case months == affordability.Unachievable:
		return "never"
	case months <= 0:
		return "now"
	}

	years, rest := months/12, months%12
	var parts []string
	if years > 0 {
		parts = append(parts, plural(years, "year"))
	}
	if rest > 0 {
		parts = append(parts, plural(rest, "month"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatMonth renders the calendar month a simulation step produced.
func FormatMonth(t time.Time) string {
	return t.Format("January 2006")
}
