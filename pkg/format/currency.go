// Package format renders amounts for logs, reason strings and spoken replies.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency returns a currency string with a dollar sign and thousands separators (e.g., "-$1,234.56").
func Currency(amount float64) string {
	if amount < 0 {
		return "-$" + printer.Sprintf("%.2f", math.Abs(amount))
	}
	return "$" + printer.Sprintf("%.2f", amount)
}

// SpokenCurrency drops the cents on whole-dollar amounts ("$50", "$1,350.25")
// so the string reads naturally when spoken aloud.
func SpokenCurrency(amount float64) string {
	rounded := math.Round(amount*100) / 100
	if rounded == math.Trunc(rounded) {
		if rounded < 0 {
			return "-$" + printer.Sprintf("%d", int64(math.Abs(rounded)))
		}
		return "$" + printer.Sprintf("%d", int64(rounded))
	}
	return Currency(rounded)
}
