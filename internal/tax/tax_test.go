package tax_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/tax"
)

func TestBreakdownGroupsByRate(t *testing.T) {
	lines := []tax.Line{
		{PriceCents: 220, Quantity: 3, Rate: 21},
		{PriceCents: 150, Quantity: 2, Rate: 6},
		{PriceCents: 500, Quantity: 1, Rate: 21},
	}

	brackets := tax.Breakdown(lines)
	require.Len(t, brackets, 2)

	assert.Equal(t, 21, brackets[0].Rate)
	assert.Equal(t, int64(1160), brackets[0].SubtotalCents)
	assert.Equal(t, int64(244), brackets[0].BTWCents)

	assert.Equal(t, 6, brackets[1].Rate)
	assert.Equal(t, int64(300), brackets[1].SubtotalCents)
	assert.Equal(t, int64(18), brackets[1].BTWCents)
}

func TestBreakdownDefaultsToStandardRate(t *testing.T) {
	brackets := tax.Breakdown([]tax.Line{{PriceCents: 1000, Quantity: 1}})
	require.Len(t, brackets, 1)
	assert.Equal(t, tax.DefaultRate, brackets[0].Rate)
	assert.Equal(t, int64(210), brackets[0].BTWCents)
}

func TestBreakdownZeroRated(t *testing.T) {
	brackets := tax.Breakdown([]tax.Line{{PriceCents: 1000, Quantity: 2, Rate: tax.ZeroRated}})
	require.Len(t, brackets, 1)
	assert.Equal(t, 0, brackets[0].Rate)
	assert.Equal(t, int64(2000), brackets[0].SubtotalCents)
	assert.Equal(t, int64(0), brackets[0].BTWCents)
}

func TestBreakdownSubtotalsPartitionTheItemSet(t *testing.T) {
	lines := []tax.Line{
		{PriceCents: 220, Quantity: 3, Rate: 21},
		{PriceCents: 150, Quantity: 2, Rate: 6},
		{PriceCents: 899, Quantity: 4, Rate: 12},
		{PriceCents: 75, Quantity: 10, Rate: tax.ZeroRated},
	}

	var want int64
	for _, line := range lines {
		want += line.PriceCents * int64(line.Quantity)
	}

	var got int64
	for _, bracket := range tax.Breakdown(lines) {
		got += bracket.SubtotalCents
		assert.Equal(t, tax.Amount(bracket.SubtotalCents, bracket.Rate), bracket.BTWCents)
	}
	assert.Equal(t, want, got)
}

func TestBreakdownIsOrderIndependent(t *testing.T) {
	lines := []tax.Line{
		{PriceCents: 220, Quantity: 3, Rate: 21},
		{PriceCents: 150, Quantity: 2, Rate: 6},
		{PriceCents: 899, Quantity: 4, Rate: 12},
		{PriceCents: 330, Quantity: 1, Rate: 21},
	}
	want := tax.Breakdown(lines)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := append([]tax.Line(nil), lines...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		assert.Equal(t, want, tax.Breakdown(shuffled))
	}
}

func TestBreakdownOrdersDescendingByRate(t *testing.T) {
	lines := []tax.Line{
		{PriceCents: 100, Quantity: 1, Rate: 6},
		{PriceCents: 100, Quantity: 1, Rate: tax.ZeroRated},
		{PriceCents: 100, Quantity: 1, Rate: 21},
		{PriceCents: 100, Quantity: 1, Rate: 12},
	}

	brackets := tax.Breakdown(lines)
	require.Len(t, brackets, 4)
	for i := 1; i < len(brackets); i++ {
		assert.Greater(t, brackets[i-1].Rate, brackets[i].Rate)
	}
}
