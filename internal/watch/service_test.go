package watch

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/danphilibin/ticket-waitlist/internal/store"
)

type fakeFetcher struct {
	payload []byte
	err     error
}

func (f *fakeFetcher) Fetch(_ context.Context) ([]byte, error) {
	return f.payload, f.err
}

type fakeNotifier struct {
	sent    []string
	sendErr error
}

func (f *fakeNotifier) Send(_ context.Context, _, message string) error {
	f.sent = append(f.sent, message)
	return f.sendErr
}

// listingDoc builds a raw 2-seat listing document with the given per-seat
// all-in price in cents.
func listingDoc(section, group string, priceCents int64) map[string]any {
	return map[string]any{
		"prices": map[string]any{
			"face_value": nil,
			"prefee":     priceCents - 700,
			"total":      500,
			"sales_tax":  200,
		},
		"lots":          []int{1, 2},
		"seats":         []string{"7", "8"},
		"row":           "D",
		"section":       section,
		"section_group": group,
	}
}

func payload(t *testing.T, listings map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"listings":       listings,
		"display_groups": []any{},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

// newTestWatcher wires a Service with fakes, an in-memory archive, and a
// controllable clock starting at a fixed instant.
func newTestWatcher(t *testing.T) (*Service, *fakeFetcher, *fakeNotifier, *store.MemoryStore, *time.Time) {
	t.Helper()
	fetcher := &fakeFetcher{}
	notifier := &fakeNotifier{}
	archive := store.NewMemoryStore()

	svc := NewService(testConfig(), fetcher, notifier, archive, nil)
	now := time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return svc, fetcher, notifier, archive, &now
}

func TestTick_FirstQualifyingTickNotifies(t *testing.T) {
	svc, fetcher, notifier, _, _ := newTestWatcher(t)
	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 42000),
	})

	svc.Tick(context.Background())

	if len(notifier.sent) != 1 {
		t.Fatalf("bootstrap NEW_LOW should notify, sent %d", len(notifier.sent))
	}
	if !strings.Contains(notifier.sent[0], "New lowest price: $420.00/seat") {
		t.Errorf("notification missing new-low callout:\n%s", notifier.sent[0])
	}
	if !strings.Contains(notifier.sent[0], "Section 101 row D") {
		t.Errorf("notification missing listing line:\n%s", notifier.sent[0])
	}
	if got := svc.Status(); got != notifier.sent[0] {
		t.Errorf("status should match the dispatched summary, got:\n%s", got)
	}
	if _, ok := svc.LastNotifiedAt(); !ok {
		t.Error("last notification time should be set")
	}
	if got := len(svc.PriceHistory()); got != 1 {
		t.Errorf("expected 1 history entry, got %d", got)
	}
}

func TestTick_EmptySnapshotIsNoSeats(t *testing.T) {
	svc, fetcher, notifier, _, _ := newTestWatcher(t)
	fetcher.payload = payload(t, map[string]any{})

	svc.Tick(context.Background())

	if got := svc.Status(); got != StatusNoSeats {
		t.Errorf("expected %q, got %q", StatusNoSeats, got)
	}
	if len(notifier.sent) != 0 {
		t.Errorf("no notification expected, sent %d", len(notifier.sent))
	}
	if got := len(svc.PriceHistory()); got != 0 {
		t.Errorf("empty tick must not append history, got %d entries", got)
	}
}

func TestTick_NoQualifyingDoesNotAppendHistory(t *testing.T) {
	svc, fetcher, _, _, _ := newTestWatcher(t)

	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 42000),
	})
	svc.Tick(context.Background())

	// All listings now too expensive: no qualifying set, no history entry.
	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 99000),
	})
	svc.Tick(context.Background())

	if got := svc.Status(); got != StatusNoSeats {
		t.Errorf("expected %q, got %q", StatusNoSeats, got)
	}
	if got := len(svc.PriceHistory()); got != 1 {
		t.Errorf("history should still have 1 entry, got %d", got)
	}
}

func TestTick_NewLowWithinIntervalSuppressed(t *testing.T) {
	svc, fetcher, notifier, _, now := newTestWatcher(t)

	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 42000),
	})
	svc.Tick(context.Background())

	firstAt, _ := svc.LastNotifiedAt()

	// A lower price 30 minutes later is a NEW_LOW but inside the
	// 60-minute re-notify window.
	*now = now.Add(30 * time.Minute)
	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 40000),
	})
	svc.Tick(context.Background())

	if len(notifier.sent) != 1 {
		t.Fatalf("second notification should be suppressed, sent %d", len(notifier.sent))
	}
	if at, _ := svc.LastNotifiedAt(); !at.Equal(firstAt) {
		t.Errorf("suppression must not update last notification time: %s != %s", at, firstAt)
	}
	if got := len(svc.PriceHistory()); got != 2 {
		t.Errorf("suppressed tick still records history, got %d entries", got)
	}
}

func TestTick_NewLowAfterIntervalNotifies(t *testing.T) {
	svc, fetcher, notifier, _, now := newTestWatcher(t)

	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 42000),
	})
	svc.Tick(context.Background())

	*now = now.Add(61 * time.Minute)
	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 40000),
	})
	svc.Tick(context.Background())

	if len(notifier.sent) != 2 {
		t.Fatalf("expected second notification after the interval, sent %d", len(notifier.sent))
	}
	if at, _ := svc.LastNotifiedAt(); !at.Equal(*now) {
		t.Errorf("last notification time should advance to the second dispatch")
	}
}

func TestTick_IncreasedUpdatesStatusWithoutNotifying(t *testing.T) {
	svc, fetcher, notifier, _, now := newTestWatcher(t)

	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 42000),
	})
	svc.Tick(context.Background())

	*now = now.Add(2 * time.Hour) // interval is no obstacle; the trend is
	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 45000),
	})
	svc.Tick(context.Background())

	if len(notifier.sent) != 1 {
		t.Fatalf("INCREASED must not notify, sent %d", len(notifier.sent))
	}
	status := svc.Status()
	if status == StatusNoSeats || status == StatusError {
		t.Fatalf("status should show the qualifying set, got %q", status)
	}
	if strings.Contains(status, "New lowest price") {
		t.Errorf("non-NEW_LOW status must not carry the new-low callout:\n%s", status)
	}
	if !strings.Contains(status, "$450.00/seat") {
		t.Errorf("status should reflect the current price:\n%s", status)
	}
}

func TestTick_ErrorHysteresis(t *testing.T) {
	svc, fetcher, _, _, _ := newTestWatcher(t)

	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 42000),
	})
	svc.Tick(context.Background())
	goodStatus := svc.Status()

	// Three consecutive failures stay below min_error_count = 4: the last
	// good status remains visible.
	fetcher.payload = nil
	fetcher.err = context.DeadlineExceeded
	for i := 0; i < 3; i++ {
		svc.Tick(context.Background())
		if got := svc.Status(); got != goodStatus {
			t.Fatalf("after %d failures status should be unchanged, got %q", i+1, got)
		}
	}

	// The fourth trips the threshold.
	svc.Tick(context.Background())
	if got := svc.Status(); got != StatusError {
		t.Fatalf("expected %q after 4 consecutive failures, got %q", StatusError, got)
	}

	// One successful tick clears the hard error, even with zero seats.
	fetcher.err = nil
	fetcher.payload = payload(t, map[string]any{})
	svc.Tick(context.Background())
	if got := svc.Status(); got != StatusNoSeats {
		t.Errorf("a single success should clear ERROR, got %q", got)
	}
}

func TestTick_ValidationFailureCountsAsError(t *testing.T) {
	svc, fetcher, _, _, _ := newTestWatcher(t)
	fetcher.payload = []byte(`{"listings": {"L1": {"row": "D"}}}`)

	for i := 0; i < 4; i++ {
		svc.Tick(context.Background())
	}
	if got := svc.Status(); got != StatusError {
		t.Errorf("malformed listings should trip ERROR like transport failures, got %q", got)
	}
}

func TestTick_ArchivesEveryTick(t *testing.T) {
	svc, fetcher, _, archive, _ := newTestWatcher(t)

	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 42000),
	})
	svc.Tick(context.Background())

	fetcher.err = context.DeadlineExceeded
	svc.Tick(context.Background())

	recs, err := archive.RecentTicks(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent ticks: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 archived ticks, got %d", len(recs))
	}
	// Newest first: the failed tick leads.
	if recs[0].Outcome != "error" || recs[1].Outcome != "ok" {
		t.Errorf("unexpected outcomes: %s, %s", recs[0].Outcome, recs[1].Outcome)
	}
	if !recs[1].Notified {
		t.Error("first tick should be recorded as notified")
	}
	if recs[1].LowestPrice == nil || recs[1].LowestPrice.StringFixed(2) != "420.00" {
		t.Errorf("archived lowest price wrong: %v", recs[1].LowestPrice)
	}
	if recs[0].Error == "" {
		t.Error("failed tick should record its error")
	}
}

func TestTick_SendFailureDoesNotRollBack(t *testing.T) {
	svc, fetcher, notifier, _, _ := newTestWatcher(t)
	notifier.sendErr = context.DeadlineExceeded

	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 42000),
	})
	svc.Tick(context.Background())

	if _, ok := svc.LastNotifiedAt(); !ok {
		t.Error("last notification time commits at dispatch even when the send fails")
	}
	if got := svc.Status(); got == StatusError {
		t.Errorf("a failed send is not a tick failure, got %q", got)
	}
}
