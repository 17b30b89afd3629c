package icsfeed

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"roomsync/normalize"
)

func feedRow(t *testing.T, hour int, room, location string) normalize.CanonicalRow {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Zurich")
	require.NoError(t, err)
	start := time.Date(2025, 1, 1, hour, 0, 0, 0, loc)
	end := start.Add(time.Hour)
	return normalize.CanonicalRow{
		Start:         start,
		End:           end,
		RoomLabel:     room,
		RoomCode:      normalize.ExtractRoomCode(room),
		LocationLabel: location,
		Fingerprint:   normalize.Fingerprint(start, end, room, location),
	}
}

func TestRenderContainsEvents(t *testing.T) {
	f := New("Rooms", "Belegt")
	rows := []normalize.CanonicalRow{
		feedRow(t, 8, "A 101 Seminarraum", "Campus Nord - Weg 1"),
		feedRow(t, 10, "B 202", ""),
	}
	f.Update(rows)

	out := f.Render("")
	require.Contains(t, out, "BEGIN:VCALENDAR")
	require.Contains(t, out, "METHOD:PUBLISH")
	require.Contains(t, out, "SUMMARY:Belegt - A 101")
	require.Contains(t, out, "SUMMARY:Belegt - B 202")
	require.Contains(t, out, "UID:roomsync-"+rows[0].Fingerprint[:24])
	// 08:00 Zurich winter time is 07:00 UTC.
	require.Contains(t, out, "DTSTART:20250101T070000Z")
	require.Equal(t, 2, strings.Count(out, "BEGIN:VEVENT"))
}

func TestRenderBucketFilter(t *testing.T) {
	f := New("Rooms", "Belegt")
	f.Update([]normalize.CanonicalRow{
		feedRow(t, 8, "A 101", "Haus West - Weg 1"),
		feedRow(t, 9, "B 202", "Haus Ost - Gasse 2"),
	})

	out := f.Render("Haus West")
	require.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
	require.Contains(t, out, "A 101")
	require.NotContains(t, out, "B 202")
}

func TestRenderEmptyFeed(t *testing.T) {
	f := New("", "")
	out := f.Render("")
	require.Contains(t, out, "BEGIN:VCALENDAR")
	require.NotContains(t, out, "BEGIN:VEVENT")
}

func TestUpdateBumpsTimestamp(t *testing.T) {
	f := New("Rooms", "Belegt")
	require.True(t, f.UpdatedAt().IsZero())
	f.Update(nil)
	require.False(t, f.UpdatedAt().IsZero())
}
