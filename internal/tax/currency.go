package tax

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders an amount as US-locale currency, e.g. "$1,234.56".
// Display only; the engine itself never rounds. Dollars and cents are pulled
// from the decimal directly so large amounts never pass through float64.
func FormatCurrency(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}
	dollars := rounded.Truncate(0)
	cents := rounded.Sub(dollars).Mul(decimal.NewFromInt(100)).IntPart()
	if !dollars.BigInt().IsInt64() {
		return sign + "$" + rounded.StringFixed(2)
	}
	return sign + usPrinter.Sprintf("$%d", dollars.IntPart()) + fmt.Sprintf(".%02d", cents)
}
