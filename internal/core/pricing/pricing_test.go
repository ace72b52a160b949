package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeTeaAndCoffee(t *testing.T) {
	got, err := Compute([]Line{
		{UnitPrice: dec("120"), Quantity: 2},
		{UnitPrice: dec("150"), Quantity: 1},
	}, DefaultTaxRate)
	require.NoError(t, err)

	assert.Equal(t, "390.00", Display(got.Subtotal))
	assert.Equal(t, "19.50", Display(got.Tax))
	assert.Equal(t, "409.50", Display(got.GrandTotal))
}

func TestComputeEmpty(t *testing.T) {
	got, err := Compute(nil, DefaultTaxRate)
	require.NoError(t, err)
	assert.True(t, got.Subtotal.IsZero())
	assert.True(t, got.Tax.IsZero())
	assert.True(t, got.GrandTotal.IsZero())
}

func TestComputeIsLinear(t *testing.T) {
	lines := []Line{
		{UnitPrice: dec("33.33"), Quantity: 3},
		{UnitPrice: dec("0.07"), Quantity: 1},
		{UnitPrice: dec("199.99"), Quantity: 5},
	}
	doubled := make([]Line, len(lines))
	for i, l := range lines {
		doubled[i] = Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity * 2}
	}

	one, err := Compute(lines, DefaultTaxRate)
	require.NoError(t, err)
	two, err := Compute(doubled, DefaultTaxRate)
	require.NoError(t, err)

	two2 := decimal.NewFromInt(2)
	assert.True(t, one.Subtotal.Mul(two2).Equal(two.Subtotal))
	assert.True(t, one.Tax.Mul(two2).Equal(two.Tax))
	assert.True(t, one.GrandTotal.Mul(two2).Equal(two.GrandTotal))
}

func TestComputeKeepsPrecisionUntilDisplay(t *testing.T) {
	// 3 x 0.10 at 5% is 0.015 tax; rounding per line would lose it.
	got, err := Compute([]Line{{UnitPrice: dec("0.10"), Quantity: 3}}, DefaultTaxRate)
	require.NoError(t, err)
	assert.True(t, got.Tax.Equal(dec("0.015")))
	assert.Equal(t, "0.02", Display(got.Rounded().Tax))
	assert.Equal(t, "0.32", Display(got.Rounded().GrandTotal))
}

func TestComputeRejectsNegative(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		rate  decimal.Decimal
	}{
		{"negative quantity", []Line{{UnitPrice: dec("1"), Quantity: -1}}, DefaultTaxRate},
		{"negative price", []Line{{UnitPrice: dec("-1"), Quantity: 1}}, DefaultTaxRate},
		{"negative rate", nil, dec("-0.05")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(tt.lines, tt.rate)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
