package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testFile = `
event:
  id: "ev-9981"
  name: "The Big Show"
  platform: "vividseats"
criteria:
  seats_together: 2
  max_price: "450.50"
  sections: ["^1\\d\\d$"]
  section_groups: ["(?i)floor"]
  max_results: 5
watch:
  poll_interval: "90s"
  min_error_count: 3
  notify_interval_minutes: 45
inventory:
  url: "https://inventory.example.test/ev-9981"
  timeout: "5s"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "waitlist.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FromFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, testFile))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.EventID != "ev-9981" {
		t.Errorf("event id: got %q", cfg.EventID)
	}
	if cfg.SeatsTogether != 2 {
		t.Errorf("seats_together: got %d", cfg.SeatsTogether)
	}
	if cfg.MaxAllInPrice.StringFixed(2) != "450.50" {
		t.Errorf("max_price: got %s", cfg.MaxAllInPrice)
	}
	if cfg.PollInterval != 90*time.Second {
		t.Errorf("poll_interval: got %s", cfg.PollInterval)
	}
	if cfg.NotifyInterval != 45*time.Minute {
		t.Errorf("notify_interval: got %s", cfg.NotifyInterval)
	}
	if cfg.MinErrorCount != 3 {
		t.Errorf("min_error_count: got %d", cfg.MinErrorCount)
	}
	if len(cfg.SectionPatterns) != 1 || len(cfg.SectionGroupPatterns) != 1 {
		t.Fatalf("patterns not compiled: %d/%d", len(cfg.SectionPatterns), len(cfg.SectionGroupPatterns))
	}
	if !cfg.SectionPatterns[0].MatchString("104") || cfg.SectionPatterns[0].MatchString("204") {
		t.Error("section pattern compiled incorrectly")
	}
	if !cfg.SectionGroupPatterns[0].MatchString("FLOOR GA") {
		t.Error("section group pattern should be case-insensitive per the expression")
	}
}

func TestLoad_MissingEventID(t *testing.T) {
	raw := `
criteria:
  max_price: "100"
  sections: ["^1$"]
inventory:
  url: "https://inventory.example.test/x"
`
	_, err := Load(writeConfig(t, raw))
	if !errors.Is(err, ErrMissingEventID) {
		t.Errorf("expected ErrMissingEventID, got %v", err)
	}
}

func TestLoad_RequiresPatterns(t *testing.T) {
	raw := `
event:
  id: "ev-1"
criteria:
  max_price: "100"
inventory:
  url: "https://inventory.example.test/x"
`
	_, err := Load(writeConfig(t, raw))
	if !errors.Is(err, ErrNoSectionPatterns) {
		t.Errorf("expected ErrNoSectionPatterns, got %v", err)
	}
}

func TestLoad_BadPattern(t *testing.T) {
	raw := `
event:
  id: "ev-1"
criteria:
  max_price: "100"
  sections: ["([unclosed"]
inventory:
  url: "https://inventory.example.test/x"
`
	if _, err := Load(writeConfig(t, raw)); err == nil {
		t.Error("expected error for invalid regex")
	}
}

func TestLoad_BadPrice(t *testing.T) {
	raw := `
event:
  id: "ev-1"
criteria:
  max_price: "lots"
  sections: ["^1$"]
inventory:
  url: "https://inventory.example.test/x"
`
	if _, err := Load(writeConfig(t, raw)); err == nil {
		t.Error("expected error for unparseable max_price")
	}
}
