package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var vndPrinter = message.NewPrinter(language.Vietnamese)

// FormatVND formats a whole-number amount with Vietnamese digit grouping.
// Example: 90000 -> "90.000 ₫"
func FormatVND(amount int64) string {
	return vndPrinter.Sprintf("%d ₫", amount)
}
