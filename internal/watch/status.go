package watch

import (
	"fmt"
	"strings"

	"github.com/danphilibin/ticket-waitlist/internal/config"
	"github.com/danphilibin/ticket-waitlist/internal/model"
	"github.com/shopspring/decimal"
)

// Canonical status values returned by the status accessor. Any other value
// is a multi-line summary of the current qualifying listings.
const (
	// StatusError is reported while the consecutive-error threshold is
	// tripped. It clears on the next successful tick.
	StatusError = "ERROR"

	// StatusNoSeats is reported after a successful tick with no
	// qualifying listings, and before the first tick completes.
	StatusNoSeats = "NO_SEATS"
)

// buildSummary renders the multi-line status for a non-empty qualifying
// set: a header naming the event and search parameters, a "new lowest
// price" callout on NEW_LOW ticks, then one line per listing. The same
// text is used as the notification body when a notification dispatches.
func buildSummary(cfg *config.Config, listings []model.Listing, trend model.Trend) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s — %d seats together on %s, max $%s/seat\n",
		cfg.EventName, cfg.SeatsTogether, cfg.Platform, cfg.MaxAllInPrice.StringFixed(2))

	if trend == model.TrendNewLow {
		fmt.Fprintf(&b, "New lowest price: $%s/seat\n", listings[0].AllInPrice().StringFixed(2))
	}

	seats := decimal.NewFromInt(int64(cfg.SeatsTogether))
	for _, l := range listings {
		perSeat := l.AllInPrice()
		fmt.Fprintf(&b, "Section %s row %s — $%s/seat, $%s for %d\n",
			l.Section, l.Row, perSeat.StringFixed(2), perSeat.Mul(seats).StringFixed(2), cfg.SeatsTogether)
	}

	return strings.TrimRight(b.String(), "\n")
}
