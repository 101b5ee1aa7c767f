// Package model defines the core domain types shared across the seat watcher.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trend classifies the current lowest qualifying price against the
// recorded price history.
type Trend string

const (
	// TrendNewLow means the current lowest price is below every
	// previously recorded lowest price. The only notify-eligible trend.
	TrendNewLow Trend = "NEW_LOW"

	// TrendDecreased means the price dropped since the last tick but is
	// not below the historic minimum.
	TrendDecreased Trend = "DECREASED"

	// TrendIncreased means the price rose since the last tick.
	TrendIncreased Trend = "INCREASED"

	// TrendUnchanged means the price matches the last tick exactly.
	TrendUnchanged Trend = "UNCHANGED"
)

// PriceBreakdown holds the per-seat price components of a listing in minor
// currency units (cents). FaceValue is informational only and may be absent.
type PriceBreakdown struct {
	FaceValue *int64 `json:"face_value"`
	Prefee    int64  `json:"prefee"`
	Total     int64  `json:"total"`
	SalesTax  int64  `json:"sales_tax"`
}

// Listing is one purchasable ticket offer from an inventory snapshot.
// Listings are immutable once parsed — they are filtered, sorted, and
// discarded, never mutated.
type Listing struct {
	ID           string         `json:"id"`
	Prices       PriceBreakdown `json:"prices"`
	Lots         []int          `json:"lots"`
	Seats        []string       `json:"seats"`
	Row          string         `json:"row"`
	Section      string         `json:"section"`
	SectionGroup string         `json:"section_group"`
}

var centsPerUnit = decimal.NewFromInt(100)

// AllInPrice returns the canonical per-seat comparison price in major
// currency units: prefee + total + sales tax. Face value is excluded.
func (l Listing) AllInPrice() decimal.Decimal {
	cents := l.Prices.Prefee + l.Prices.Total + l.Prices.SalesTax
	return decimal.NewFromInt(cents).Div(centsPerUnit)
}

// SeatCount returns the number of seats the listing offers.
func (l Listing) SeatCount() int {
	return len(l.Seats)
}

// OffersLot reports whether n seats may be purchased together from this
// listing.
func (l Listing) OffersLot(n int) bool {
	for _, lot := range l.Lots {
		if lot == n {
			return true
		}
	}
	return false
}

// Tick outcomes recorded in the archive.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// TickRecord is an immutable record of one completed evaluation tick.
// Once created, these are never modified or deleted.
type TickRecord struct {
	ID              string           `json:"id" db:"id"`
	At              time.Time        `json:"at" db:"at"`
	Outcome         string           `json:"outcome" db:"outcome"` // "ok" or "error"
	QualifyingCount int              `json:"qualifying_count" db:"qualifying_count"`
	LowestPrice     *decimal.Decimal `json:"lowest_price,omitempty" db:"lowest_price"`
	Trend           Trend            `json:"trend,omitempty" db:"trend"`
	Notified        bool             `json:"notified" db:"notified"`
	Error           string           `json:"error,omitempty" db:"error"`
}
