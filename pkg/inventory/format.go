package inventory

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WeightLevel buckets the weight bar color.
type WeightLevel string

const (
	WeightNormal   WeightLevel = ""
	WeightWarning  WeightLevel = "weight-warning"
	WeightCritical WeightLevel = "weight-critical"
)

// LevelFor returns the weight level for a capacity percentage.
func LevelFor(percent float64) WeightLevel {
	switch {
	case percent >= 100:
		return WeightCritical
	case percent >= 80:
		return WeightWarning
	default:
		return WeightNormal
	}
}

// FormatWeight renders grams as "850g" or "3.0kg".
func FormatWeight(w float64) string {
	if w >= 1000 {
		return fmt.Sprintf("%.1fkg", w/1000)
	}
	return fmt.Sprintf("%dg", int64(math.Round(w)))
}

// PriceFormatter renders shop prices with locale digit grouping.
type PriceFormatter struct {
	printer *message.Printer
	locale  *Locale
}

// NewPriceFormatter builds a formatter. Prices are grouped the en-US way
// regardless of the host locale table, which only supplies the symbol.
func NewPriceFormatter(locale *Locale) *PriceFormatter {
	return &PriceFormatter{
		printer: message.NewPrinter(language.AmericanEnglish),
		locale:  locale,
	}
}

// IsCashCurrency reports whether the currency is plain or dirty cash as
// opposed to an item used as currency.
func IsCashCurrency(currency string) bool {
	return currency == "" || currency == "money" || currency == "black_money"
}

// Format renders a price. Cash currencies get the locale "$" symbol; item
// currencies are rendered as the bare grouped number next to the item icon.
func (f *PriceFormatter) Format(price float64, currency string) string {
	var n string
	if price == math.Trunc(price) {
		n = f.printer.Sprintf("%d", int64(price))
	} else {
		n = f.printer.Sprintf("%.2f", price)
	}
	if IsCashCurrency(currency) {
		return f.locale.T("$", "$") + n
	}
	return n
}
