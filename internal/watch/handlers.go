package watch

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/danphilibin/ticket-waitlist/internal/model"
)

// StatusResponse is the JSON body returned from GET /api/v1/status.
type StatusResponse struct {
	Status         string     `json:"status"`
	Event          string     `json:"event"`
	Platform       string     `json:"platform"`
	LastNotifiedAt *time.Time `json:"last_notified_at,omitempty"`
}

// GetStatus handles GET /api/v1/status — the public status accessor.
func (s *Service) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:   s.Status(),
		Event:    s.cfg.EventName,
		Platform: s.cfg.Platform,
	}
	if at, ok := s.LastNotifiedAt(); ok {
		resp.LastNotifiedAt = &at
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetListings handles GET /api/v1/listings — the current qualifying set,
// ascending by per-seat all-in price.
func (s *Service) GetListings(w http.ResponseWriter, r *http.Request) {
	listings := s.Qualifying()
	if listings == nil {
		listings = []model.Listing{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listings)
}

// GetHistory handles GET /api/v1/history — the recorded lowest qualifying
// price per tick, in observation order, as decimal strings.
func (s *Service) GetHistory(w http.ResponseWriter, r *http.Request) {
	prices := s.PriceHistory()
	out := make([]string, len(prices))
	for i, p := range prices {
		out[i] = p.StringFixed(2)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// GetTicks handles GET /api/v1/ticks — recent tick records from the
// archive, newest first. Accepts ?limit=N (default 50).
func (s *Service) GetTicks(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeError(w, "tick archive not configured", http.StatusNotFound)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	ticks, err := s.archive.RecentTicks(r.Context(), limit)
	if err != nil {
		writeError(w, "failed to load tick records", http.StatusInternalServerError)
		return
	}
	if ticks == nil {
		ticks = []model.TickRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ticks)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
