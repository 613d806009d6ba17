package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		unit      float64
		discount  float64
		wantFinal float64
		wantOff   float64
	}{
		{"no discount", 100, 0, 100, 0},
		{"ten percent", 100, 10, 90, 10},
		{"rounds to currency precision", 99.99, 15, 84.99, 15},
		{"full discount", 250, 100, 0, 250},
		{"fractional unit price", 33.33, 33, 22.33, 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Compute(tt.unit, tt.discount)
			assert.Equal(t, tt.wantFinal, q.FinalPrice)
			assert.Equal(t, tt.wantOff, q.DiscountAmount)
			assert.Equal(t, tt.unit, q.UnitPrice)
		})
	}
}

func TestComputeBreakdown(t *testing.T) {
	rates := Rates{TaxRate: 0.07, ShippingFee: 50, FreeShippingMin: 500}

	t.Run("shipping charged below threshold", func(t *testing.T) {
		lines := []Line{{Quote: Compute(100, 10), Quantity: 2}}
		b := ComputeBreakdown(lines, rates)
		assert.Equal(t, 180.0, b.Subtotal)
		assert.Equal(t, 20.0, b.Discount)
		assert.Equal(t, 12.6, b.Tax)
		assert.Equal(t, 50.0, b.Shipping)
		assert.Equal(t, 242.6, b.Total)
	})

	t.Run("shipping waived at threshold", func(t *testing.T) {
		lines := []Line{{Quote: Compute(500, 0), Quantity: 1}}
		b := ComputeBreakdown(lines, rates)
		assert.Equal(t, 0.0, b.Shipping)
		assert.Equal(t, 535.0, b.Total)
	})

	t.Run("empty cart", func(t *testing.T) {
		b := ComputeBreakdown(nil, rates)
		assert.Equal(t, 0.0, b.Subtotal)
		assert.Equal(t, 50.0, b.Shipping)
	})
}
