package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ScrapeConfig describes how raw reservation rows are obtained from the
// booking system.
type ScrapeConfig struct {
	// BaseURL is the root of the reservation web UI, e.g.
	// "https://example.book.3vrooms.app".
	BaseURL string `yaml:"base_url"`

	// FindPath is the path of the reservation search page.
	FindPath string `yaml:"find_path"`

	// UserDataDir is the persistent browser profile directory, so an
	// interactive login survives between runs.
	UserDataDir string `yaml:"user_data_dir"`

	// Headless controls whether the browser runs without a window.
	Headless bool `yaml:"headless"`

	// TimeoutSec bounds a full scrape attempt.
	TimeoutSec int `yaml:"timeout_sec"`

	// MaxPages caps grid pagination.
	MaxPages int `yaml:"max_pages"`

	// PreferGrid skips the CSV export and scrapes the grid directly.
	PreferGrid bool `yaml:"prefer_grid"`
}

// InferenceConfig holds the column-inference tuning knobs. The thresholds
// and sample size are empirically tuned; they are configurable rather than
// hard-coded so behavior can be validated across a range.
type InferenceConfig struct {
	SampleRows        int     `yaml:"sample_rows"`
	TimeThreshold     float64 `yaml:"time_threshold"`
	RoomThreshold     float64 `yaml:"room_threshold"`
	LocationThreshold float64 `yaml:"location_threshold"`
}

// Config is the top-level application configuration, loaded from a YAML
// file with env vars overriding secrets and addresses (see main).
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen"`

	// Timezone is the IANA zone reservations are interpreted in.
	Timezone string `yaml:"timezone"`

	// WindowDays is the forward sync window (today -> today+N).
	WindowDays int `yaml:"window_days"`

	// HorizonDays is the remote lookahead used when listing managed
	// events for reconciliation. Slightly wider than the window so
	// stale events just past the window edge still get cleaned up.
	HorizonDays int `yaml:"horizon_days"`

	// Chunk enables day splitting of multi-day reservations.
	Chunk *bool `yaml:"chunk"`

	// DayStartHour/DayEndHour bound the active-hours band used by the
	// day chunker.
	DayStartHour int `yaml:"day_start_hour"`
	DayEndHour   int `yaml:"day_end_hour"`

	// CalendarName is the base Google Calendar name.
	CalendarName string `yaml:"calendar_name"`

	// SplitBy partitions rows over multiple calendars:
	// "none", "by-location" or "by-building".
	SplitBy string `yaml:"split_by"`

	// Summary is the anonymized event title pushed to the calendar.
	Summary string `yaml:"summary"`

	// SourceTag marks calendar events as managed by this service.
	SourceTag string `yaml:"source_tag"`

	// Cron is the sync schedule ("@hourly", "*/30 * * * *", ...).
	// Empty disables scheduled runs; HTTP triggering still works.
	Cron string `yaml:"cron"`

	// HistoryPath is the SQLite file recording past runs.
	HistoryPath string `yaml:"history_path"`

	Scrape    ScrapeConfig    `yaml:"scrape"`
	Inference InferenceConfig `yaml:"inference"`

	loc *time.Location
}

// Default returns a config with all defaults applied and the timezone
// resolved.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.loc = time.UTC
	if loc, err := time.LoadLocation(cfg.Timezone); err == nil {
		cfg.loc = loc
	}
	return cfg
}

// Load reads the YAML config at path. A missing file is not an error:
// defaults are used so the service can start with env-only configuration.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid timezone %q: %w", cfg.Timezone, err)
	}
	cfg.loc = loc
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = "0.0.0.0:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "Europe/Zurich"
	}
	if c.WindowDays <= 0 {
		c.WindowDays = 7
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = c.WindowDays + 1
	}
	if c.Chunk == nil {
		enabled := true
		c.Chunk = &enabled
	}
	if c.DayStartHour == 0 && c.DayEndHour == 0 {
		c.DayStartHour = 6
		c.DayEndHour = 22
	}
	if c.CalendarName == "" {
		c.CalendarName = "Rooms"
	}
	if c.SplitBy == "" {
		c.SplitBy = "none"
	}
	if c.Summary == "" {
		c.Summary = "Belegt"
	}
	if c.SourceTag == "" {
		c.SourceTag = "roomsync"
	}
	if c.HistoryPath == "" {
		c.HistoryPath = "roomsync.sqlite"
	}

	if c.Scrape.FindPath == "" {
		c.Scrape.FindPath = "/Default/Lists/Reservation/FindReservation"
	}
	if c.Scrape.UserDataDir == "" {
		c.Scrape.UserDataDir = "browser_profile"
	}
	if c.Scrape.TimeoutSec <= 0 {
		c.Scrape.TimeoutSec = 180
	}
	if c.Scrape.MaxPages <= 0 {
		c.Scrape.MaxPages = 200
	}

	if c.Inference.SampleRows <= 0 {
		c.Inference.SampleRows = 80
	}
	if c.Inference.TimeThreshold <= 0 {
		c.Inference.TimeThreshold = 0.6
	}
	if c.Inference.RoomThreshold <= 0 {
		c.Inference.RoomThreshold = 0.4
	}
	if c.Inference.LocationThreshold <= 0 {
		c.Inference.LocationThreshold = 0.4
	}
}

func (c *Config) validate() error {
	switch c.SplitBy {
	case "none", "by-location", "by-building":
	default:
		return fmt.Errorf("config: split_by must be none, by-location or by-building, got %q", c.SplitBy)
	}
	if c.DayStartHour < 0 || c.DayEndHour > 24 || c.DayStartHour >= c.DayEndHour {
		return fmt.Errorf("config: invalid active-hours band %d-%d", c.DayStartHour, c.DayEndHour)
	}
	return nil
}

// Location returns the resolved reservation timezone.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// ChunkEnabled reports whether day chunking is on.
func (c *Config) ChunkEnabled() bool {
	return c.Chunk != nil && *c.Chunk
}

// Timeout returns the scrape timeout as a duration.
func (s ScrapeConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}
