package checkout

import "github.com/shopspring/decimal"

// Totals is the priced summary of a cart or order.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// QuoteShipping returns the shipping charge for a subtotal. Orders at or
// above the free-shipping threshold ship free; an empty cart carries no
// charge either.
func QuoteShipping(subtotal, freeThreshold, shippingCost decimal.Decimal) decimal.Decimal {
	if subtotal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	if subtotal.GreaterThanOrEqual(freeThreshold) {
		return decimal.Zero
	}
	return shippingCost
}

// ComputeTotals prices the subtotal with the configured shipping rules.
func ComputeTotals(subtotal, freeThreshold, shippingCost decimal.Decimal) Totals {
	shipping := QuoteShipping(subtotal, freeThreshold, shippingCost)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal.Add(shipping),
	}
}
