// Package icsfeed serves the current canonical rows as a consolidated
// iCalendar feed, so the schedule can be subscribed to without Google
// Calendar access.
package icsfeed

import (
	"fmt"
	"strings"
	"sync"
	"time"

	ics "github.com/arran4/golang-ical"

	"roomsync/normalize"
)

// Feed holds the rows of the most recent successful sync.
type Feed struct {
	mu      sync.RWMutex
	rows    []normalize.CanonicalRow
	updated time.Time

	name    string
	summary string
}

// New creates a feed. name becomes the calendar's X-WR-CALNAME,
// summary the anonymized event title.
func New(name, summary string) *Feed {
	if name == "" {
		name = "Rooms"
	}
	if summary == "" {
		summary = "Belegt"
	}
	return &Feed{name: name, summary: summary}
}

// Update replaces the feed content. Called after each sync run.
func (f *Feed) Update(rows []normalize.CanonicalRow) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = rows
	f.updated = time.Now()
}

// UpdatedAt returns when the feed content last changed.
func (f *Feed) UpdatedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.updated
}

// Render serializes the feed as iCalendar text. A non-empty bucket
// keeps only rows whose location (or its building prefix) matches.
func (f *Feed) Render(bucket string) string {
	f.mu.RLock()
	rows := f.rows
	f.mu.RUnlock()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//roomsync//feed//DE")
	cal.SetName(f.name)
	cal.SetXWRCalName(f.name)

	for _, row := range rows {
		if bucket != "" && !matchesBucket(row, bucket) {
			continue
		}
		event := cal.AddEvent(eventUID(row))
		event.SetDtStampTime(row.Start.UTC())
		event.SetStartAt(row.Start.UTC())
		event.SetEndAt(row.End.UTC())
		event.SetSummary(f.eventSummary(row))
		event.SetLocation(eventLocation(row))
	}
	return cal.Serialize()
}

// eventUID derives a stable UID from the row fingerprint so feed
// consumers see the same event across refreshes.
func eventUID(row normalize.CanonicalRow) string {
	fp := row.Fingerprint
	if len(fp) > 24 {
		fp = fp[:24]
	}
	return fmt.Sprintf("roomsync-%s", fp)
}

func (f *Feed) eventSummary(row normalize.CanonicalRow) string {
	summary := f.summary
	if row.RoomCode != "" {
		summary += " - " + row.RoomCode
	}
	return summary
}

func eventLocation(row normalize.CanonicalRow) string {
	if row.LocationLabel == "" {
		return row.RoomLabel
	}
	return row.RoomLabel + " | " + row.LocationLabel
}

func matchesBucket(row normalize.CanonicalRow, bucket string) bool {
	location := row.LocationLabel
	if strings.EqualFold(location, bucket) {
		return true
	}
	if idx := strings.Index(location, " - "); idx >= 0 {
		return strings.EqualFold(strings.TrimSpace(location[:idx]), bucket)
	}
	return false
}
