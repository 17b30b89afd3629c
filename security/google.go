package security

import (
	"context"
	"fmt"
	"log"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarService builds an authenticated Calendar service for the
// account, refreshing the stored token when needed.
func (ts *TokenStore) CalendarService(ctx context.Context, account string) (*calendar.Service, error) {
	token, err := ts.ValidToken(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("get valid calendar token for %s: %w", account, err)
	}
	if ts.config == nil {
		return nil, fmt.Errorf("calendar OAuth not configured")
	}

	client := ts.config.Client(ctx, token)
	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return svc, nil
}

// ValidateCalendarAccess checks that the stored token actually reaches
// the Calendar API.
func (ts *TokenStore) ValidateCalendarAccess(ctx context.Context, account string) error {
	svc, err := ts.CalendarService(ctx, account)
	if err != nil {
		return err
	}
	if _, err := svc.CalendarList.List().MaxResults(1).Context(ctx).Do(); err != nil {
		return fmt.Errorf("calendar access validation failed: %w", err)
	}
	log.Printf("security: calendar access validated for %s", account)
	return nil
}
