package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeTotals(t *testing.T) {
	threshold := decimal.RequireFromString("50.00")
	cost := decimal.RequireFromString("5.99")

	cases := []struct {
		name     string
		subtotal string
		shipping string
		total    string
	}{
		{name: "belowThreshold", subtotal: "25.00", shipping: "5.99", total: "30.99"},
		{name: "atThreshold", subtotal: "50.00", shipping: "0", total: "50.00"},
		{name: "aboveThreshold", subtotal: "62.50", shipping: "0", total: "62.50"},
		{name: "justBelowThreshold", subtotal: "49.99", shipping: "5.99", total: "55.98"},
		{name: "emptyCart", subtotal: "0", shipping: "0", total: "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totals := ComputeTotals(decimal.RequireFromString(tc.subtotal), threshold, cost)
			if !totals.Shipping.Equal(decimal.RequireFromString(tc.shipping)) {
				t.Fatalf("expected shipping %s, got %s", tc.shipping, totals.Shipping)
			}
			if !totals.Total.Equal(decimal.RequireFromString(tc.total)) {
				t.Fatalf("expected total %s, got %s", tc.total, totals.Total)
			}
		})
	}
}
