// Package money renders integer minor-unit amounts as currency-aware display
// strings. Output is only ever used for human-readable order notes; amounts
// stay in minor units everywhere else.
package money

import (
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Format renders an amount in minor units (e.g. cents) for the given ISO 4217
// code, using the CLDR symbol and the currency's own fraction digits: cents
// render with two fraction digits, yen with none. The amount is split into
// whole and fractional parts as integers, so values beyond float64's exact
// range still render precisely. Unknown codes fall back to a plain
// "<minor> <CODE>" rendering rather than failing the caller.
func Format(amountMinor int64, code string) string {
	unit, err := currency.ParseISO(strings.ToUpper(code))
	if err != nil {
		return printer.Sprintf("%d %s", amountMinor, strings.ToUpper(code))
	}

	scale, _ := currency.Standard.Rounding(unit)
	sym := printer.Sprint(currency.Symbol(unit))
	if scale == 0 {
		return printer.Sprintf("%s %d", sym, amountMinor)
	}

	div := int64(1)
	for i := 0; i < scale; i++ {
		div *= 10
	}
	whole, frac := amountMinor/div, amountMinor%div
	if frac < 0 {
		frac = -frac
	}
	return printer.Sprintf("%s %d.%0*d", sym, whole, scale, frac)
}
