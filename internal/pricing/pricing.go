package pricing

import (
	"math"

	"github.com/John09278606492/pos-inventory-system-sub000/internal/domain"
)

// TaxConfig describes how the store applies its single sales tax. With
// Inclusive set the tax is already contained in shelf prices; otherwise it is
// added on top of the subtotal.
type TaxConfig struct {
	Name        string
	RatePercent float64
	Inclusive   bool
}

// Subtotal sums the rounded extended prices of the cart lines.
func Subtotal(lines []domain.CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += line.LineAmountCents()
	}
	return total
}

// CostTotal sums the rounded extended costs of the cart lines.
func CostTotal(lines []domain.CartLine) int64 {
	var total int64
	for _, line := range lines {
		total += int64(math.Round(float64(line.CostCents) * line.Qty))
	}
	return total
}

// Quote prices a subtotal under the store tax and, for store-credit sales,
// the markup of the chosen credit term. A nil term falls back to
// fallbackRatePercent. Quote is a pure function; callers recompute it on
// every cart change and once more at commit time, and both runs agree.
func Quote(subtotalCents int64, tax TaxConfig, paymentMethod string, term *domain.CreditTerm, fallbackRatePercent float64) domain.PriceQuote {
	quote := domain.PriceQuote{
		SubtotalCents:  subtotalCents,
		TaxName:        tax.Name,
		TaxRatePercent: tax.RatePercent,
		TaxInclusive:   tax.Inclusive,
	}

	if tax.Inclusive {
		base := int64(math.Round(float64(subtotalCents) / (1 + tax.RatePercent/100)))
		quote.TaxCents = subtotalCents - base
		quote.TotalCents = subtotalCents
	} else {
		quote.TaxCents = ratePart(subtotalCents, tax.RatePercent)
		quote.TotalCents = subtotalCents + quote.TaxCents
	}

	if paymentMethod == domain.PayStoreCredit {
		rate := fallbackRatePercent
		if term != nil {
			rate = term.RatePercent
			quote.CreditTermName = term.Name
		}
		quote.MarkupRatePercent = rate
		quote.MarkupCents = ratePart(quote.TotalCents, rate)
	}
	quote.PayableCents = quote.TotalCents + quote.MarkupCents

	return quote
}

func ratePart(baseCents int64, ratePercent float64) int64 {
	return int64(math.Round(float64(baseCents) * ratePercent / 100))
}
