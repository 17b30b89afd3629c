package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"roomsync/normalize"
)

// GoogleClientOptions configures the production calendar client.
type GoogleClientOptions struct {
	// SourceTag marks events as managed by this service.
	SourceTag string

	// Summary is the anonymized event title. Room code and location
	// are appended when present.
	Summary string

	// Timezone is used when creating calendars.
	Timezone string
}

// GoogleClient implements CalendarClient on the Google Calendar API.
type GoogleClient struct {
	svc       *calendar.Service
	sourceTag string
	summary   string
	timezone  string
}

// NewGoogleClient wraps an authenticated calendar service.
func NewGoogleClient(svc *calendar.Service, opts GoogleClientOptions) *GoogleClient {
	if opts.SourceTag == "" {
		opts.SourceTag = "roomsync"
	}
	if opts.Summary == "" {
		opts.Summary = "Belegt"
	}
	if opts.Timezone == "" {
		opts.Timezone = "Europe/Zurich"
	}
	return &GoogleClient{
		svc:       svc,
		sourceTag: opts.SourceTag,
		summary:   opts.Summary,
		timezone:  opts.Timezone,
	}
}

// EnsureCalendar finds the calendar with the given summary in the
// account's calendar list, creating it when missing.
func (c *GoogleClient) EnsureCalendar(ctx context.Context, name string) (string, error) {
	pageToken := ""
	for {
		call := c.svc.CalendarList.List().MaxResults(250).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return "", fmt.Errorf("list calendars: %w", err)
		}
		for _, entry := range list.Items {
			if entry.Summary == name {
				return entry.Id, nil
			}
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			break
		}
	}

	created, err := c.svc.Calendars.Insert(&calendar.Calendar{
		Summary:  name,
		TimeZone: c.timezone,
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create calendar %q: %w", name, err)
	}
	return created.Id, nil
}

// ListManagedEvents pages through the calendar's events in [from, to],
// restricted server-side to events carrying our source tag.
func (c *GoogleClient) ListManagedEvents(ctx context.Context, calendarID string, from, to time.Time) ([]RemoteEvent, error) {
	var events []RemoteEvent
	pageToken := ""
	for {
		call := c.svc.Events.List(calendarID).
			PrivateExtendedProperty("source=" + c.sourceTag).
			SingleEvents(true).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			MaxResults(2500).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		list, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		for _, item := range list.Items {
			if item.ExtendedProperties == nil {
				continue
			}
			fp := item.ExtendedProperties.Private["fp"]
			if fp == "" {
				continue
			}
			events = append(events, RemoteEvent{ID: item.Id, Fingerprint: fp})
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return events, nil
}

// CreateEvent inserts the anonymized busy block for a row. Times go
// out as absolute UTC instants; the room identity lives in summary and
// location, the fingerprint in private metadata.
func (c *GoogleClient) CreateEvent(ctx context.Context, calendarID string, row normalize.CanonicalRow) error {
	summary := c.summary
	if row.RoomCode != "" {
		summary += " - " + row.RoomCode
	}
	if row.LocationLabel != "" {
		summary += " - " + row.LocationLabel
	}

	location := row.RoomLabel
	if row.LocationLabel != "" {
		location += " | " + row.LocationLabel
	}

	event := &calendar.Event{
		Summary:  summary,
		Location: location,
		Start: &calendar.EventDateTime{
			DateTime: row.Start.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		End: &calendar.EventDateTime{
			DateTime: row.End.UTC().Format(time.RFC3339),
			TimeZone: "UTC",
		},
		Visibility:   "private",
		Transparency: "opaque",
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{
				"source": c.sourceTag,
				"fp":     row.Fingerprint,
			},
		},
	}

	_, err := c.svc.Events.Insert(calendarID, event).SendUpdates("none").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// DeleteEvent removes an event; an already-deleted event counts as
// success.
func (c *GoogleClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	err := c.svc.Events.Delete(calendarID, eventID).SendUpdates("none").Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return nil
		}
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}
