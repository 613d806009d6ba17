package pricing

import "math"

// Quote is the derived price of a single variant. Both the cart read path
// and the order assembler must go through Compute so the customer sees the
// same arithmetic at review time and at commit time.
type Quote struct {
	UnitPrice      float64 `json:"unitPrice"`
	DiscountPct    float64 `json:"discountPercent"`
	DiscountAmount float64 `json:"discountAmount"`
	FinalPrice     float64 `json:"finalPrice"`
}

// Breakdown is the order-level price snapshot quoted to the gateway.
type Breakdown struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shippingPrice"`
	Total    float64 `json:"grandPrice"`
}

// Line is a priced cart line fed into the breakdown.
type Line struct {
	Quote    Quote
	Quantity int
}

// Rates holds the injected pricing tunables.
type Rates struct {
	TaxRate         float64
	ShippingFee     float64
	FreeShippingMin float64
}

// Compute derives the quote for a variant. finalPrice is the unit price
// with the discount percentage applied, rounded to currency precision.
func Compute(unitPrice, discountPct float64) Quote {
	final := Round2(unitPrice * (1 - discountPct/100))
	return Quote{
		UnitPrice:      unitPrice,
		DiscountPct:    discountPct,
		DiscountAmount: Round2(unitPrice - final),
		FinalPrice:     final,
	}
}

// ComputeBreakdown folds priced lines into the order totals. Shipping is a
// flat fee waived once the subtotal clears the free-shipping threshold.
func ComputeBreakdown(lines []Line, rates Rates) Breakdown {
	var subtotal, discount float64
	for _, l := range lines {
		subtotal += l.Quote.FinalPrice * float64(l.Quantity)
		discount += l.Quote.DiscountAmount * float64(l.Quantity)
	}
	subtotal = Round2(subtotal)
	discount = Round2(discount)

	tax := Round2(subtotal * rates.TaxRate)
	shipping := rates.ShippingFee
	if subtotal >= rates.FreeShippingMin {
		shipping = 0
	}

	return Breakdown{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Shipping: shipping,
		Total:    Round2(subtotal + tax + shipping),
	}
}

// Round2 rounds to two decimal places (currency precision).
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
