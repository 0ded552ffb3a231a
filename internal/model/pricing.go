package model

import "github.com/shopspring/decimal"

// Pricing constants for order placement.
var (
	FreeShippingThreshold = decimal.NewFromInt(500)
	StandardShippingFee   = decimal.NewFromInt(40)
	TaxRate               = decimal.RequireFromString("0.05")
)

// Totals holds the monetary summary of an order.
type Totals struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Tax         decimal.Decimal
	TotalAmount decimal.Decimal
}

// LineTotal returns price multiplied by quantity.
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// ComputeTotals derives shipping, tax and total from a subtotal. Shipping is
// free strictly above the threshold and tax is rounded to two decimals.
func ComputeTotals(subtotal decimal.Decimal) Totals {
	shipping := StandardShippingFee
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(TaxRate).Round(2)

	return Totals{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Tax:         tax,
		TotalAmount: subtotal.Add(shipping).Add(tax),
	}
}
