// Package config loads and validates the watcher configuration. The
// configuration is read once at startup and is immutable for the process
// lifetime.
//
// Values come from a config file (YAML/TOML/JSON, whatever viper can read)
// with TICKETW_-prefixed environment variables taking precedence, e.g.
// TICKETW_INVENTORY_URL overrides inventory.url.
package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

var (
	// ErrMissingEventID is returned when event.id is not configured.
	ErrMissingEventID = errors.New("config: event.id is required")

	// ErrMissingInventoryURL is returned when inventory.url is not configured.
	ErrMissingInventoryURL = errors.New("config: inventory.url is required")

	// ErrNoSectionPatterns is returned when neither section-code nor
	// section-group patterns are configured; the filter would match nothing.
	ErrNoSectionPatterns = errors.New("config: at least one of criteria.sections or criteria.section_groups is required")
)

// Config is the immutable watcher configuration.
type Config struct {
	// Event identity, used in status headers and notifications.
	EventID   string
	EventName string
	Platform  string

	// Seat criteria.
	SeatsTogether        int
	MaxAllInPrice        decimal.Decimal // per seat, major currency units
	SectionPatterns      []*regexp.Regexp
	SectionGroupPatterns []*regexp.Regexp
	MaxResults           int

	// Watch loop behavior.
	PollInterval   time.Duration
	MinErrorCount  int           // consecutive failures before ERROR status
	NotifyInterval time.Duration // minimum gap between notifications

	// Inventory endpoint.
	InventoryURL     string
	InventoryTimeout time.Duration

	// Notification transport. Empty token means dry-run (log only).
	PushoverToken string
	PushoverUser  string
	ChannelMode   string

	// HTTP status surface.
	Port string
}

// Load reads configuration from the given file path (or, if path is empty,
// from a "waitlist" config file in the working directory) merged with
// TICKETW_ environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("TICKETW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("event.platform", "vividseats")
	v.SetDefault("criteria.seats_together", 2)
	v.SetDefault("criteria.max_results", 10)
	v.SetDefault("watch.poll_interval", "1m")
	v.SetDefault("watch.min_error_count", 4)
	v.SetDefault("watch.notify_interval_minutes", 60)
	v.SetDefault("inventory.timeout", "20s")
	v.SetDefault("notify.channel_mode", "push")
	v.SetDefault("server.port", "8080")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		v.SetConfigName("waitlist")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// A missing default config file is fine; env vars may carry
			// the whole configuration.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	cfg := &Config{
		EventID:       v.GetString("event.id"),
		EventName:     v.GetString("event.name"),
		Platform:      v.GetString("event.platform"),
		SeatsTogether: v.GetInt("criteria.seats_together"),
		MaxResults:    v.GetInt("criteria.max_results"),
		MinErrorCount: v.GetInt("watch.min_error_count"),
		InventoryURL:  v.GetString("inventory.url"),
		PushoverToken: v.GetString("notify.pushover_token"),
		PushoverUser:  v.GetString("notify.pushover_user"),
		ChannelMode:   v.GetString("notify.channel_mode"),
		Port:          v.GetString("server.port"),
	}

	maxPrice, err := decimal.NewFromString(v.GetString("criteria.max_price"))
	if err != nil {
		return nil, fmt.Errorf("config: criteria.max_price %q: %w", v.GetString("criteria.max_price"), err)
	}
	cfg.MaxAllInPrice = maxPrice

	cfg.PollInterval = v.GetDuration("watch.poll_interval")
	cfg.InventoryTimeout = v.GetDuration("inventory.timeout")
	cfg.NotifyInterval = time.Duration(v.GetInt("watch.notify_interval_minutes")) * time.Minute

	cfg.SectionPatterns, err = compilePatterns("criteria.sections", v.GetStringSlice("criteria.sections"))
	if err != nil {
		return nil, err
	}
	cfg.SectionGroupPatterns, err = compilePatterns("criteria.section_groups", v.GetStringSlice("criteria.section_groups"))
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.EventID == "" {
		return ErrMissingEventID
	}
	if c.InventoryURL == "" {
		return ErrMissingInventoryURL
	}
	if len(c.SectionPatterns) == 0 && len(c.SectionGroupPatterns) == 0 {
		return ErrNoSectionPatterns
	}
	if c.SeatsTogether < 1 {
		return fmt.Errorf("config: criteria.seats_together must be >= 1, got %d", c.SeatsTogether)
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("config: criteria.max_results must be >= 1, got %d", c.MaxResults)
	}
	if !c.MaxAllInPrice.IsPositive() {
		return fmt.Errorf("config: criteria.max_price must be positive, got %s", c.MaxAllInPrice)
	}
	if c.MinErrorCount < 1 {
		return fmt.Errorf("config: watch.min_error_count must be >= 1, got %d", c.MinErrorCount)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("config: watch.poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.NotifyInterval <= 0 {
		return fmt.Errorf("config: watch.notify_interval_minutes must be positive, got %s", c.NotifyInterval)
	}
	return nil
}

// compilePatterns compiles user-supplied regular expressions up front so a
// bad pattern fails at startup, not mid-tick.
func compilePatterns(key string, raw []string) ([]*regexp.Regexp, error) {
	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, expr := range raw {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("config: %s pattern %q: %w", key, expr, err)
		}
		patterns = append(patterns, re)
	}
	return patterns, nil
}
