package watch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/danphilibin/ticket-waitlist/internal/model"
)

func newTestRouter(svc *Service) chi.Router {
	r := chi.NewRouter()
	r.Get("/api/v1/status", svc.GetStatus)
	r.Get("/api/v1/listings", svc.GetListings)
	r.Get("/api/v1/history", svc.GetHistory)
	r.Get("/api/v1/ticks", svc.GetTicks)
	return r
}

func get(t *testing.T, router chi.Router, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetStatus_BeforeFirstTick(t *testing.T) {
	svc, _, _, _, _ := newTestWatcher(t)
	w := get(t, newTestRouter(svc), "/api/v1/status")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp StatusResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != StatusNoSeats {
		t.Errorf("expected %q before the first tick, got %q", StatusNoSeats, resp.Status)
	}
	if resp.LastNotifiedAt != nil {
		t.Error("last_notified_at should be omitted before any notification")
	}
}

func TestGetListings_ReturnsQualifyingSet(t *testing.T) {
	svc, fetcher, _, _, _ := newTestWatcher(t)
	router := newTestRouter(svc)

	// Empty before any tick: an empty array, not null.
	w := get(t, router, "/api/v1/listings")
	if body := w.Body.String(); body != "[]\n" {
		t.Errorf("expected empty array, got %q", body)
	}

	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 42000),
		"L2": listingDoc("102", "Floor", 39000),
	})
	svc.Tick(context.Background())

	w = get(t, router, "/api/v1/listings")
	var listings []model.Listing
	json.Unmarshal(w.Body.Bytes(), &listings)
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(listings))
	}
	if listings[0].ID != "L2" {
		t.Errorf("listings should be ascending by price, got %s first", listings[0].ID)
	}
}

func TestGetHistory_ReturnsObservations(t *testing.T) {
	svc, fetcher, _, _, _ := newTestWatcher(t)

	fetcher.payload = payload(t, map[string]any{
		"L1": listingDoc("101", "Floor", 42000),
	})
	svc.Tick(context.Background())

	w := get(t, newTestRouter(svc), "/api/v1/history")
	var prices []string
	json.Unmarshal(w.Body.Bytes(), &prices)
	if len(prices) != 1 || prices[0] != "420.00" {
		t.Errorf("expected [420.00], got %v", prices)
	}
}

func TestGetTicks_LimitValidation(t *testing.T) {
	svc, _, _, _, _ := newTestWatcher(t)
	w := get(t, newTestRouter(svc), "/api/v1/ticks?limit=zero")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric limit, got %d", w.Code)
	}
}

func TestGetTicks_ReturnsArchive(t *testing.T) {
	svc, fetcher, _, _, _ := newTestWatcher(t)

	fetcher.payload = payload(t, map[string]any{})
	svc.Tick(context.Background())

	w := get(t, newTestRouter(svc), "/api/v1/ticks")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var recs []model.TickRecord
	json.Unmarshal(w.Body.Bytes(), &recs)
	if len(recs) != 1 {
		t.Fatalf("expected 1 tick record, got %d", len(recs))
	}
	if recs[0].Outcome != model.OutcomeOK || recs[0].QualifyingCount != 0 {
		t.Errorf("unexpected record: %+v", recs[0])
	}
}
