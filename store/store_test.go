package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"roomsync/reconcile"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sampleReport(runID string) reconcile.Report {
	started := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)
	return reconcile.Report{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
		Rows:       10,
		Created:    3,
		Deleted:    1,
		Unchanged:  6,
		Failed:     0,
		Buckets: []reconcile.BucketReport{
			{Bucket: "", Calendar: "Rooms", Rows: 10, Created: 3, Deleted: 1, Unchanged: 6},
		},
	}
}

func TestReportStoreRoundTrip(t *testing.T) {
	rs := NewReportStore(testRedis(t))
	ctx := context.Background()

	_, ok, err := rs.Last(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	want := sampleReport("run-1")
	require.NoError(t, rs.SaveLast(ctx, want))

	got, ok, err := rs.Last(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want.RunID, got.RunID)
	require.Equal(t, want.Created, got.Created)
	require.Len(t, got.Buckets, 1)
	require.Equal(t, "Rooms", got.Buckets[0].Calendar)
}

func TestRunStreamPublishAndTail(t *testing.T) {
	s := NewRunStream(testRedis(t))
	ctx := context.Background()

	id1, err := s.Publish(ctx, "started", "run-1", nil)
	require.NoError(t, err)
	_, err = s.Publish(ctx, "finished", "run-1", map[string]any{"created": "3"})
	require.NoError(t, err)

	events, nextID, err := s.Tail(ctx, "0")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "started", events[0].Phase)
	require.Equal(t, "run-1", events[0].RunID)
	require.Equal(t, id1, events[0].ID)
	require.Equal(t, "finished", events[1].Phase)
	require.Equal(t, "3", events[1].Values["created"])
	require.Equal(t, events[1].ID, nextID)
}

func TestHistoryRecordAndRecent(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "runs.sqlite"))
	require.NoError(t, err)
	defer h.Close()

	ctx := context.Background()
	first := sampleReport("run-1")
	second := sampleReport("run-2")
	second.StartedAt = first.StartedAt.Add(time.Hour)
	second.FinishedAt = second.StartedAt.Add(30 * time.Second)
	second.Created = 7

	require.NoError(t, h.Record(ctx, first))
	require.NoError(t, h.Record(ctx, second))

	recent, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "run-2", recent[0].RunID)
	require.Equal(t, 7, recent[0].Created)
	require.Equal(t, "run-1", recent[1].RunID)
	require.True(t, first.StartedAt.Equal(recent[1].StartedAt))
	require.Len(t, recent[1].Buckets, 1)
}

func TestHistoryRecordIsIdempotentPerRun(t *testing.T) {
	h, err := OpenHistory(filepath.Join(t.TempDir(), "runs.sqlite"))
	require.NoError(t, err)
	defer h.Close()

	ctx := context.Background()
	report := sampleReport("run-1")
	require.NoError(t, h.Record(ctx, report))
	report.Failed = 2
	require.NoError(t, h.Record(ctx, report))

	recent, err := h.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, 2, recent[0].Failed)
}
