package domain

import (
	"math"

	"github.com/dustin/go-humanize"
)

// FormatPrice renders a price as US dollars, e.g. "$1,234.50"
func FormatPrice(price float64) string {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return "-"
	}
	if price < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -price)
	}
	return "$" + humanize.FormatFloat("#,###.##", price)
}
