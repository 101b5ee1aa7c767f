package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/danphilibin/ticket-waitlist/internal/config"
	"github.com/danphilibin/ticket-waitlist/internal/inventory"
	"github.com/danphilibin/ticket-waitlist/internal/metrics"
	"github.com/danphilibin/ticket-waitlist/internal/model"
	"github.com/danphilibin/ticket-waitlist/internal/notify"
	"github.com/danphilibin/ticket-waitlist/internal/store"
)

// Service owns the run state for one watched event and executes the
// evaluation pipeline once per tick: fetch, validate, filter, classify,
// gate, report. Ticks run strictly one at a time from a single loop; the
// read accessors may be called concurrently and observe only fully
// committed tick results.
type Service struct {
	cfg      *config.Config
	fetcher  inventory.Fetcher
	notifier notify.Notifier
	archive  store.Store
	hub      *Hub // optional live-update broadcasts

	now func() time.Time

	mu sync.RWMutex
	// Run state below is guarded by mu and replaced wholesale at the end
	// of each tick.
	qualifying        []model.Listing
	history           *History
	lastNotification  time.Time // zero = never notified
	consecutiveErrors int
	hardError         bool
	status            string
}

// NewService creates a watcher for the configured event. Pass nil for hub
// if WebSocket broadcasting is not needed.
func NewService(cfg *config.Config, fetcher inventory.Fetcher, notifier notify.Notifier, archive store.Store, hub *Hub) *Service {
	return &Service{
		cfg:      cfg,
		fetcher:  fetcher,
		notifier: notifier,
		archive:  archive,
		hub:      hub,
		now:      time.Now,
		history:  NewHistory(),
		status:   StatusNoSeats,
	}
}

// Tick runs one full evaluation pass. It never returns an error: fetch and
// validation failures are absorbed into the consecutive-error counter and
// surfaced only through the status accessor.
func (s *Service) Tick(ctx context.Context) {
	start := s.now()

	raw, err := s.fetcher.Fetch(ctx)
	metrics.FetchDuration.Observe(s.now().Sub(start).Seconds())

	var snap *inventory.Snapshot
	if err == nil {
		snap, err = inventory.ParseSnapshot(raw)
	}
	if err != nil {
		s.failTick(ctx, err)
		return
	}
	s.completeTick(ctx, snap)
}

// failTick absorbs a transport or validation failure. The visible status
// is left untouched until the consecutive-error threshold trips, at which
// point the accessor reports ERROR until a tick succeeds.
func (s *Service) failTick(ctx context.Context, err error) {
	s.mu.Lock()
	s.consecutiveErrors++
	s.hardError = s.consecutiveErrors >= s.cfg.MinErrorCount
	errs, hard := s.consecutiveErrors, s.hardError
	s.mu.Unlock()

	slog.Warn("tick failed",
		"event", s.cfg.EventID,
		"err", err,
		"consecutive_errors", errs,
		"hard_error", hard,
	)

	metrics.TicksTotal.WithLabelValues(model.OutcomeError).Inc()
	metrics.ConsecutiveErrors.Set(float64(errs))

	s.record(ctx, model.TickRecord{
		Outcome: model.OutcomeError,
		Error:   err.Error(),
	})
	s.broadcast(model.OutcomeError, "", 0, nil, false)
}

// completeTick filters the validated snapshot, classifies the price trend,
// decides whether to notify, and commits the new run state in one step.
func (s *Service) completeTick(ctx context.Context, snap *inventory.Snapshot) {
	now := s.now()
	qualifying := FilterListings(snap, s.cfg)

	var trend model.Trend
	var lowest *decimal.Decimal
	status := StatusNoSeats
	notified := false
	suppressed := false

	if len(qualifying) > 0 {
		price := qualifying[0].AllInPrice()
		lowest = &price
		trend = s.history.Classify(price)
		status = buildSummary(s.cfg, qualifying, trend)

		// Only a new all-time low is notification-worthy; dips above the
		// historic minimum are logged and counted only.
		if trend == model.TrendNewLow {
			if !s.lastNotification.IsZero() && now.Sub(s.lastNotification) < s.cfg.NotifyInterval {
				suppressed = true
			} else {
				notified = true
			}
		}
	}

	s.mu.Lock()
	if lowest != nil {
		s.history.Append(*lowest)
	}
	s.qualifying = qualifying
	s.consecutiveErrors = 0
	s.hardError = false
	s.status = status
	if notified {
		// Committed at dispatch time: a failed send does not roll this
		// back or trigger an early retry.
		s.lastNotification = now
	}
	historyLen := s.history.Len()
	s.mu.Unlock()

	logArgs := []any{
		"event", s.cfg.EventID,
		"listings", len(snap.Listings),
		"qualifying", len(qualifying),
	}
	if lowest != nil {
		logArgs = append(logArgs, "trend", trend, "lowest", lowest.StringFixed(2))
	}
	slog.Info("tick complete", logArgs...)

	metrics.TicksTotal.WithLabelValues(model.OutcomeOK).Inc()
	metrics.ConsecutiveErrors.Set(0)
	metrics.QualifyingListings.Set(float64(len(qualifying)))
	metrics.PriceHistoryLength.Set(float64(historyLen))
	if lowest != nil {
		metrics.LowestPrice.Set(lowest.InexactFloat64())
	}

	switch {
	case suppressed:
		slog.Info("notification suppressed",
			"event", s.cfg.EventID,
			"lowest", lowest.StringFixed(2),
			"since_last", now.Sub(s.lastNotification).String(),
			"min_interval", s.cfg.NotifyInterval.String(),
		)
		metrics.Notifications.WithLabelValues("suppressed").Inc()
	case notified:
		s.dispatch(ctx, status)
	}

	s.record(ctx, model.TickRecord{
		Outcome:         model.OutcomeOK,
		QualifyingCount: len(qualifying),
		LowestPrice:     lowest,
		Trend:           trend,
		Notified:        notified,
	})
	s.broadcast(model.OutcomeOK, trend, len(qualifying), lowest, notified)
}

// dispatch sends the notification body through the configured transport.
// Failures are logged and counted, never retried within the tick.
func (s *Service) dispatch(ctx context.Context, message string) {
	if err := s.notifier.Send(ctx, s.cfg.ChannelMode, message); err != nil {
		slog.Error("notification send failed", "event", s.cfg.EventID, "err", err)
		metrics.Notifications.WithLabelValues("failed").Inc()
		return
	}
	slog.Info("notification sent", "event", s.cfg.EventID)
	metrics.Notifications.WithLabelValues("sent").Inc()
}

// record appends a tick record to the archive. Archive failures must not
// affect the tick outcome.
func (s *Service) record(ctx context.Context, rec model.TickRecord) {
	if s.archive == nil {
		return
	}
	rec.ID = uuid.New().String()
	rec.At = s.now().UTC()
	if err := s.archive.AppendTick(ctx, &rec); err != nil {
		slog.Error("tick archive append failed", "err", err)
	}
}

func (s *Service) broadcast(outcome string, trend model.Trend, qualifying int, lowest *decimal.Decimal, notified bool) {
	if s.hub == nil {
		return
	}
	update := TickUpdate{
		Type:            "tick",
		Outcome:         outcome,
		Status:          s.Status(),
		Trend:           trend,
		QualifyingCount: qualifying,
		Notified:        notified,
	}
	if lowest != nil {
		update.LowestPrice = lowest.StringFixed(2)
	}
	s.hub.Broadcast(update)
}

// Status returns "ERROR" while the error threshold is tripped, otherwise
// the latest committed status message ("NO_SEATS" or a multi-line summary
// of the current qualifying listings). Safe to call at any time; it never
// observes a partially applied tick.
func (s *Service) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.hardError {
		return StatusError
	}
	return s.status
}

// Qualifying returns a copy of the current qualifying listings, ascending
// by per-seat all-in price.
func (s *Service) Qualifying() []model.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Listing, len(s.qualifying))
	copy(out, s.qualifying)
	return out
}

// PriceHistory returns a copy of the recorded lowest price per tick.
func (s *Service) PriceHistory() []decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history.Prices()
}

// LastNotifiedAt returns the time of the last dispatched notification and
// whether one has ever been dispatched.
func (s *Service) LastNotifiedAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastNotification, !s.lastNotification.IsZero()
}
