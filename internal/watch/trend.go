package watch

import (
	"github.com/danphilibin/ticket-waitlist/internal/model"
	"github.com/shopspring/decimal"
)

// History is the append-only record of the lowest qualifying per-seat price
// observed on each tick that had at least one qualifying listing. Entries
// are never rewritten or truncated. Ticks with no qualifying listings
// record nothing.
type History struct {
	prices []decimal.Decimal
}

// NewHistory creates an empty price history.
func NewHistory() *History {
	return &History{}
}

// Len returns the number of recorded ticks.
func (h *History) Len() int {
	return len(h.prices)
}

// Prices returns a copy of the recorded prices in observation order.
func (h *History) Prices() []decimal.Decimal {
	out := make([]decimal.Decimal, len(h.prices))
	copy(out, h.prices)
	return out
}

// Classify compares the current lowest qualifying price against the
// history without recording it. On an empty history the bootstrap case
// applies: the first observation is always a new low.
func (h *History) Classify(current decimal.Decimal) model.Trend {
	if len(h.prices) == 0 {
		return model.TrendNewLow
	}

	min := h.prices[0]
	for _, p := range h.prices[1:] {
		if p.LessThan(min) {
			min = p
		}
	}
	last := h.prices[len(h.prices)-1]

	switch {
	case current.LessThan(min):
		return model.TrendNewLow
	case current.LessThan(last):
		return model.TrendDecreased
	case current.GreaterThan(last):
		return model.TrendIncreased
	default:
		return model.TrendUnchanged
	}
}

// Append records the current lowest qualifying price as this tick's entry.
func (h *History) Append(current decimal.Decimal) {
	h.prices = append(h.prices, current)
}
