// Package reconcile pushes canonical reservation rows into Google
// Calendar by fingerprint set-difference: only the delta between the
// remote managed events and the current rows is created or deleted,
// events that survive a run are never touched.
package reconcile

import (
	"context"
	"time"

	"roomsync/normalize"
)

// RemoteEvent is a managed calendar event as the reconciler sees it:
// an opaque ID plus the fingerprint stored in its private metadata.
type RemoteEvent struct {
	ID          string
	Fingerprint string
}

// CalendarClient is the remote calendar surface the reconciler needs.
// The production implementation wraps the Google Calendar API; tests
// use an in-memory fake.
type CalendarClient interface {
	// EnsureCalendar resolves a calendar by name, creating it when
	// absent, and returns its ID.
	EnsureCalendar(ctx context.Context, name string) (string, error)

	// ListManagedEvents returns the events in [from, to] that carry
	// this system's source tag. Events without a fingerprint are
	// skipped.
	ListManagedEvents(ctx context.Context, calendarID string, from, to time.Time) ([]RemoteEvent, error)

	// CreateEvent inserts an anonymized busy block for the row.
	CreateEvent(ctx context.Context, calendarID string, row normalize.CanonicalRow) error

	// DeleteEvent removes a managed event. Deleting an event that is
	// already gone is not an error.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
