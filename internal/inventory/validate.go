package inventory

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/danphilibin/ticket-waitlist/internal/model"
)

// ValidationError describes why a snapshot failed validation. A snapshot
// that fails validation counts as one soft-failed tick; validation never
// panics.
type ValidationError struct {
	ListingID string // empty for document-level problems
	Reason    string
}

func (e *ValidationError) Error() string {
	if e.ListingID == "" {
		return "inventory: invalid snapshot: " + e.Reason
	}
	return fmt.Sprintf("inventory: invalid snapshot: listing %s: %s", e.ListingID, e.Reason)
}

// Snapshot is a validated inventory document.
//
// Order fixes the canonical iteration order of Listings as ascending
// listing ID. The snapshot arrives as a JSON object, which has no inherent
// order, and downstream ranking needs a stable tiebreak for equal prices.
type Snapshot struct {
	Listings map[string]model.Listing
	Order    []string
}

// rawSnapshot mirrors the expected document shape with pointer fields so
// that missing and present-but-null values are distinguishable.
type rawSnapshot struct {
	Listings      map[string]rawListing `json:"listings"`
	DisplayGroups json.RawMessage       `json:"display_groups"` // carried by the feed, unused
}

type rawListing struct {
	Prices       *rawPrices `json:"prices"`
	Lots         *[]int     `json:"lots"`
	Seats        *[]string  `json:"seats"`
	Row          *string    `json:"row"`
	Section      *string    `json:"section"`
	SectionGroup *string    `json:"section_group"`
}

type rawPrices struct {
	FaceValue *int64 `json:"face_value"` // nullable by contract
	Prefee    *int64 `json:"prefee"`
	Total     *int64 `json:"total"`
	SalesTax  *int64 `json:"sales_tax"`
}

// ParseSnapshot validates a raw document against the expected shape: an
// object with a "listings" field mapping listing ID to listing object, plus
// a "display_groups" field that is accepted and ignored. On success it
// returns normalized Listing records; on any shape mismatch it returns a
// *ValidationError.
func ParseSnapshot(raw []byte) (*Snapshot, error) {
	var doc rawSnapshot
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ValidationError{Reason: "malformed JSON: " + err.Error()}
	}
	if doc.Listings == nil {
		return nil, &ValidationError{Reason: "missing listings field"}
	}

	listings := make(map[string]model.Listing, len(doc.Listings))
	order := make([]string, 0, len(doc.Listings))

	for id, rl := range doc.Listings {
		listing, err := normalizeListing(id, rl)
		if err != nil {
			return nil, err
		}
		listings[id] = listing
		order = append(order, id)
	}
	sort.Strings(order)

	return &Snapshot{Listings: listings, Order: order}, nil
}

func normalizeListing(id string, rl rawListing) (model.Listing, error) {
	var zero model.Listing

	if rl.Prices == nil {
		return zero, &ValidationError{ListingID: id, Reason: "missing prices"}
	}
	if rl.Prices.Prefee == nil {
		return zero, &ValidationError{ListingID: id, Reason: "missing prices.prefee"}
	}
	if rl.Prices.Total == nil {
		return zero, &ValidationError{ListingID: id, Reason: "missing prices.total"}
	}
	if rl.Prices.SalesTax == nil {
		return zero, &ValidationError{ListingID: id, Reason: "missing prices.sales_tax"}
	}
	if rl.Lots == nil {
		return zero, &ValidationError{ListingID: id, Reason: "missing lots"}
	}
	if rl.Seats == nil {
		return zero, &ValidationError{ListingID: id, Reason: "missing seats"}
	}
	if rl.Row == nil {
		return zero, &ValidationError{ListingID: id, Reason: "missing row"}
	}
	if rl.Section == nil {
		return zero, &ValidationError{ListingID: id, Reason: "missing section"}
	}
	if rl.SectionGroup == nil {
		return zero, &ValidationError{ListingID: id, Reason: "missing section_group"}
	}

	return model.Listing{
		ID: id,
		Prices: model.PriceBreakdown{
			FaceValue: rl.Prices.FaceValue,
			Prefee:    *rl.Prices.Prefee,
			Total:     *rl.Prices.Total,
			SalesTax:  *rl.Prices.SalesTax,
		},
		Lots:         *rl.Lots,
		Seats:        *rl.Seats,
		Row:          *rl.Row,
		Section:      *rl.Section,
		SectionGroup: *rl.SectionGroup,
	}, nil
}
