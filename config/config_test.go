package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	require.Equal(t, "Europe/Zurich", cfg.Timezone)
	require.Equal(t, 7, cfg.WindowDays)
	require.Equal(t, 8, cfg.HorizonDays)
	require.Equal(t, 6, cfg.DayStartHour)
	require.Equal(t, 22, cfg.DayEndHour)
	require.True(t, cfg.ChunkEnabled())
	require.Equal(t, "none", cfg.SplitBy)
	require.Equal(t, "Belegt", cfg.Summary)
	require.Equal(t, "roomsync", cfg.SourceTag)
	require.Equal(t, 80, cfg.Inference.SampleRows)
	require.InDelta(t, 0.6, cfg.Inference.TimeThreshold, 0.001)
	require.Equal(t, "Europe/Zurich", cfg.Location().String())
}

func TestLoadOverridesAndValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomsync.yaml")
	data := `
timezone: UTC
window_days: 3
split_by: by-building
chunk: false
day_start_hour: 8
day_end_hour: 18
calendar_name: Campus Rooms
scrape:
  base_url: https://example.book.test
  timeout_sec: 30
inference:
  sample_rows: 40
  time_threshold: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.WindowDays)
	require.Equal(t, 4, cfg.HorizonDays)
	require.Equal(t, "by-building", cfg.SplitBy)
	require.False(t, cfg.ChunkEnabled())
	require.Equal(t, 8, cfg.DayStartHour)
	require.Equal(t, "Campus Rooms", cfg.CalendarName)
	require.Equal(t, "https://example.book.test", cfg.Scrape.BaseURL)
	require.Equal(t, 40, cfg.Inference.SampleRows)
	require.InDelta(t, 0.5, cfg.Inference.TimeThreshold, 0.001)
}

func TestLoadRejectsBadSplitMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("split_by: per-room\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "split_by")
}

func TestLoadRejectsInvertedBand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roomsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("day_start_hour: 22\nday_end_hour: 6\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
