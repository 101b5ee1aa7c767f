// Package store defines the tick-archive interface: an immutable,
// append-only record of completed evaluation ticks for the HTTP read API
// and offline analysis. Implementations include PostgreSQL (durable),
// Redis (read-through cache wrapper), and in-memory (default; the archive
// is observability only, so losing it on restart is acceptable).
//
// The watcher's own run state (price history, error counters) is not kept
// here — it lives in memory for the current run only.
package store

import (
	"context"

	"github.com/danphilibin/ticket-waitlist/internal/model"
)

// Store is the tick-archive interface.
type Store interface {
	// AppendTick appends an immutable tick record.
	AppendTick(ctx context.Context, rec *model.TickRecord) error

	// RecentTicks returns up to limit records, newest first.
	RecentTicks(ctx context.Context, limit int) ([]model.TickRecord, error)

	// LatestTick returns the most recent record, or nil if none exist.
	LatestTick(ctx context.Context) (*model.TickRecord, error)
}
