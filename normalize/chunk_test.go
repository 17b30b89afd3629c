package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func makeRow(loc *time.Location, start, end time.Time, room, location string) CanonicalRow {
	return CanonicalRow{
		Start:         start,
		End:           end,
		RoomLabel:     room,
		RoomCode:      ExtractRoomCode(room),
		LocationLabel: location,
		Fingerprint:   Fingerprint(start, end, room, location),
	}
}

func TestChunkDaysOvernightSplit(t *testing.T) {
	loc := zurich(t)
	w := testWindow(t, loc)

	row := makeRow(loc,
		time.Date(2025, 1, 1, 20, 0, 0, 0, loc),
		time.Date(2025, 1, 2, 8, 0, 0, 0, loc),
		"A 101", "")

	out := ChunkDays([]CanonicalRow{row}, w, 6, 22)
	require.Len(t, out, 2)

	require.Equal(t, time.Date(2025, 1, 1, 20, 0, 0, 0, loc), out[0].Start)
	require.Equal(t, time.Date(2025, 1, 1, 22, 0, 0, 0, loc), out[0].End)
	require.Equal(t, time.Date(2025, 1, 2, 6, 0, 0, 0, loc), out[1].Start)
	require.Equal(t, time.Date(2025, 1, 2, 8, 0, 0, 0, loc), out[1].End)

	require.NotEqual(t, row.Fingerprint, out[0].Fingerprint)
	require.NotEqual(t, out[0].Fingerprint, out[1].Fingerprint)
	require.Equal(t, "A 101", out[0].RoomLabel)
}

func TestChunkDaysMultiDay(t *testing.T) {
	loc := zurich(t)
	w := testWindow(t, loc)

	row := makeRow(loc,
		time.Date(2025, 1, 1, 9, 0, 0, 0, loc),
		time.Date(2025, 1, 3, 17, 0, 0, 0, loc),
		"B 2", "")

	out := ChunkDays([]CanonicalRow{row}, w, 6, 22)
	require.Len(t, out, 3)
	require.Equal(t, time.Date(2025, 1, 1, 9, 0, 0, 0, loc), out[0].Start)
	require.Equal(t, time.Date(2025, 1, 1, 22, 0, 0, 0, loc), out[0].End)
	require.Equal(t, time.Date(2025, 1, 2, 6, 0, 0, 0, loc), out[1].Start)
	require.Equal(t, time.Date(2025, 1, 2, 22, 0, 0, 0, loc), out[1].End)
	require.Equal(t, time.Date(2025, 1, 3, 6, 0, 0, 0, loc), out[2].Start)
	require.Equal(t, time.Date(2025, 1, 3, 17, 0, 0, 0, loc), out[2].End)
}

func TestChunkDaysDropsOutsideBand(t *testing.T) {
	loc := zurich(t)
	w := testWindow(t, loc)

	// Entirely within the night gap.
	row := makeRow(loc,
		time.Date(2025, 1, 1, 23, 0, 0, 0, loc),
		time.Date(2025, 1, 2, 5, 0, 0, 0, loc),
		"C 3", "")

	out := ChunkDays([]CanonicalRow{row}, w, 6, 22)
	require.Empty(t, out)
}

func TestChunkDaysClipsToWindow(t *testing.T) {
	loc := zurich(t)
	w := testWindow(t, loc)

	row := makeRow(loc,
		w.Start.Add(-24*time.Hour),
		w.Start.Add(10*time.Hour), // 2025-01-01 10:00
		"D 4", "")

	out := ChunkDays([]CanonicalRow{row}, w, 6, 22)
	require.Len(t, out, 1)
	require.Equal(t, time.Date(2025, 1, 1, 6, 0, 0, 0, loc), out[0].Start)
	require.Equal(t, time.Date(2025, 1, 1, 10, 0, 0, 0, loc), out[0].End)
}

func TestChunkDaysResorts(t *testing.T) {
	loc := zurich(t)
	w := testWindow(t, loc)

	late := makeRow(loc,
		time.Date(2025, 1, 2, 9, 0, 0, 0, loc),
		time.Date(2025, 1, 2, 10, 0, 0, 0, loc),
		"A 1", "")
	overnight := makeRow(loc,
		time.Date(2025, 1, 1, 20, 0, 0, 0, loc),
		time.Date(2025, 1, 2, 8, 0, 0, 0, loc),
		"B 2", "")

	out := ChunkDays([]CanonicalRow{late, overnight}, w, 6, 22)
	require.Len(t, out, 3)
	require.Equal(t, "B 2", out[0].RoomLabel)
	require.Equal(t, "B 2", out[1].RoomLabel)
	require.Equal(t, "A 1", out[2].RoomLabel)
}
