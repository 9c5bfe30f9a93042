package tax

import (
	"math"
	"sort"
)

// DefaultRate is the standard Belgian BTW category applied when a line
// carries no explicit rate.
const DefaultRate = 21

// Line is a priced quantity with a BTW category (0, 6, 12 or 21).
// A zero Rate on input means "unset" and falls back to DefaultRate;
// lines that are genuinely tax free must set Rate to -1 via ZeroRated.
type Line struct {
	PriceCents int64
	Quantity   int
	Rate       int
}

// ZeroRated marks a line as belonging to the 0% category explicitly.
const ZeroRated = -1

// Bracket is the subtotal and tax amount for one BTW category.
type Bracket struct {
	Rate          int
	SubtotalCents int64
	BTWCents      int64
}

// Breakdown groups lines by BTW category and computes per-category subtotal
// and tax, ordered by descending rate. It is a pure function: both the
// checkout summary and the invoice renderer call it, and identical input
// yields identical output.
func Breakdown(lines []Line) []Bracket {
	byRate := make(map[int]int64)
	for _, line := range lines {
		rate := line.Rate
		switch rate {
		case 0:
			rate = DefaultRate
		case ZeroRated:
			rate = 0
		}
		byRate[rate] += line.PriceCents * int64(line.Quantity)
	}

	brackets := make([]Bracket, 0, len(byRate))
	for rate, subtotal := range byRate {
		brackets = append(brackets, Bracket{
			Rate:          rate,
			SubtotalCents: subtotal,
			BTWCents:      Amount(subtotal, rate),
		})
	}

	sort.Slice(brackets, func(i, j int) bool {
		return brackets[i].Rate > brackets[j].Rate
	})

	return brackets
}

// Amount computes the BTW owed on a subtotal at the given rate, rounded
// half away from zero to whole cents.
func Amount(subtotalCents int64, rate int) int64 {
	return int64(math.Round(float64(subtotalCents) * float64(rate) / 100))
}
