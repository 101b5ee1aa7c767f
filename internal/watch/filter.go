// Package watch implements the listing evaluation pipeline: filtering and
// ranking qualifying listings, tracking the price trend across ticks,
// gating notifications, and reporting status to external surfaces.
//
// All monetary comparisons use shopspring/decimal — never float64 for money.
package watch

import (
	"regexp"
	"sort"

	"github.com/danphilibin/ticket-waitlist/internal/config"
	"github.com/danphilibin/ticket-waitlist/internal/inventory"
	"github.com/danphilibin/ticket-waitlist/internal/model"
)

// FilterListings selects the listings from a validated snapshot that pass
// every configured criterion, sorted ascending by per-seat all-in price and
// truncated to the configured result cap. Price ties keep the snapshot's
// canonical order (ascending listing ID). An empty result is valid.
func FilterListings(snap *inventory.Snapshot, cfg *config.Config) []model.Listing {
	qualifying := make([]model.Listing, 0, len(snap.Order))
	for _, id := range snap.Order {
		l := snap.Listings[id]
		if Qualifies(l, cfg) {
			qualifying = append(qualifying, l)
		}
	}

	sort.SliceStable(qualifying, func(i, j int) bool {
		return qualifying[i].AllInPrice().LessThan(qualifying[j].AllInPrice())
	})

	if len(qualifying) > cfg.MaxResults {
		qualifying = qualifying[:cfg.MaxResults]
	}
	return qualifying
}

// Qualifies reports whether a single listing passes all criteria: enough
// seats, the requested group size offered as a purchasable lot, a section
// match, and a per-seat all-in price at or under the ceiling.
func Qualifies(l model.Listing, cfg *config.Config) bool {
	if l.SeatCount() < cfg.SeatsTogether {
		return false
	}
	if !l.OffersLot(cfg.SeatsTogether) {
		return false
	}
	if !matchesSection(l, cfg.SectionPatterns, cfg.SectionGroupPatterns) {
		return false
	}
	return l.AllInPrice().LessThanOrEqual(cfg.MaxAllInPrice)
}

// matchesSection is a pure OR across both pattern families: the section
// code matching any section pattern, or the section-group name matching
// any group pattern, qualifies.
func matchesSection(l model.Listing, sections, groups []*regexp.Regexp) bool {
	for _, re := range sections {
		if re.MatchString(l.Section) {
			return true
		}
	}
	for _, re := range groups {
		if re.MatchString(l.SectionGroup) {
			return true
		}
	}
	return false
}
