package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"roomsync/reconcile"
)

const lastReportKey = "roomsync:last_report"

// ReportStore keeps the most recent sync report in Redis.
type ReportStore struct {
	client *redis.Client
}

// NewReportStore creates a report store around a redis client.
func NewReportStore(client *redis.Client) *ReportStore {
	return &ReportStore{client: client}
}

// SaveLast overwrites the last report. Reports expire after a week; a
// service down longer than that has nothing current to show anyway.
func (rs *ReportStore) SaveLast(ctx context.Context, report reconcile.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := rs.client.Set(ctx, lastReportKey, data, 7*24*time.Hour).Err(); err != nil {
		return fmt.Errorf("store report: %w", err)
	}
	return nil
}

// Last returns the most recent report, or ok=false when none exists.
func (rs *ReportStore) Last(ctx context.Context) (reconcile.Report, bool, error) {
	data, err := rs.client.Get(ctx, lastReportKey).Result()
	if err == redis.Nil {
		return reconcile.Report{}, false, nil
	} else if err != nil {
		return reconcile.Report{}, false, fmt.Errorf("load report: %w", err)
	}

	var report reconcile.Report
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return reconcile.Report{}, false, fmt.Errorf("unmarshal report: %w", err)
	}
	return report, true, nil
}
