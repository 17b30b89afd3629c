package reconcile

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"roomsync/normalize"
)

// SplitMode controls how target rows are partitioned over calendars.
type SplitMode string

const (
	SplitNone       SplitMode = "none"
	SplitByLocation SplitMode = "by-location"
	SplitByBuilding SplitMode = "by-building"
)

const unknownBucket = "Unbekannt"

// maxCalendarName bounds generated calendar names; Google truncates
// silently past this, which would break name-based lookup.
const maxCalendarName = 80

// ReconcilerOptions configures a Reconciler. Zero values get sensible
// defaults.
type ReconcilerOptions struct {
	// BaseCalendarName is the calendar name, or the prefix of each
	// bucket calendar when splitting.
	BaseCalendarName string

	// Split selects the partitioning mode.
	Split SplitMode

	// Horizon is the remote lookahead for listing managed events.
	Horizon time.Duration

	// BatchSize groups create/delete requests; BatchPause is slept
	// between batches to stay under remote rate limits.
	BatchSize  int
	BatchPause time.Duration

	// Now and Sleep exist for tests.
	Now   func() time.Time
	Sleep func(time.Duration)
}

// Reconciler drives the fingerprint delta-sync against a calendar
// backend.
type Reconciler struct {
	client     CalendarClient
	baseName   string
	split      SplitMode
	horizon    time.Duration
	batchSize  int
	batchPause time.Duration
	now        func() time.Time
	sleep      func(time.Duration)
}

// BucketReport is the outcome for one calendar.
type BucketReport struct {
	Bucket    string `json:"bucket"`
	Calendar  string `json:"calendar"`
	Rows      int    `json:"rows"`
	Created   int    `json:"created"`
	Deleted   int    `json:"deleted"`
	Unchanged int    `json:"unchanged"`
	Failed    int    `json:"failed"`
}

// Report is the outcome of one sync run.
type Report struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Rows       int            `json:"rows"`
	Created    int            `json:"created"`
	Deleted    int            `json:"deleted"`
	Unchanged  int            `json:"unchanged"`
	Failed     int            `json:"failed"`
	Buckets    []BucketReport `json:"buckets"`
}

// NewReconciler builds a Reconciler around a calendar client.
func NewReconciler(client CalendarClient, opts ReconcilerOptions) *Reconciler {
	r := &Reconciler{
		client:     client,
		baseName:   opts.BaseCalendarName,
		split:      opts.Split,
		horizon:    opts.Horizon,
		batchSize:  opts.BatchSize,
		batchPause: opts.BatchPause,
		now:        opts.Now,
		sleep:      opts.Sleep,
	}
	if r.baseName == "" {
		r.baseName = "Rooms"
	}
	if r.split == "" {
		r.split = SplitNone
	}
	if r.horizon <= 0 {
		r.horizon = 8 * 24 * time.Hour
	}
	if r.batchSize <= 0 {
		r.batchSize = 50
	}
	if r.batchPause < 0 {
		r.batchPause = 0
	} else if r.batchPause == 0 {
		r.batchPause = 500 * time.Millisecond
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.sleep == nil {
		r.sleep = time.Sleep
	}
	return r
}

// Sync reconciles the target rows against the remote calendar(s) and
// returns a per-bucket report. Request failures are counted in the
// report; only calendar resolution or listing failures abort a bucket.
func (r *Reconciler) Sync(ctx context.Context, rows []normalize.CanonicalRow) (Report, error) {
	report := Report{
		RunID:     uuid.NewString(),
		StartedAt: r.now(),
		Rows:      len(rows),
	}

	buckets := r.partition(rows)
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	var firstErr error
	for _, bucket := range names {
		br, err := r.syncBucket(ctx, bucket, buckets[bucket])
		if err != nil {
			log.Printf("sync: bucket %q failed: %v", bucket, err)
			if firstErr == nil {
				firstErr = err
			}
		}
		report.Buckets = append(report.Buckets, br)
		report.Created += br.Created
		report.Deleted += br.Deleted
		report.Unchanged += br.Unchanged
		report.Failed += br.Failed
	}

	report.FinishedAt = r.now()
	return report, firstErr
}

// partition groups rows by the configured bucket key and dedupes each
// group by fingerprint (a chunked multi-room export can repeat slots).
func (r *Reconciler) partition(rows []normalize.CanonicalRow) map[string][]normalize.CanonicalRow {
	buckets := make(map[string][]normalize.CanonicalRow)
	seen := make(map[string]bool)
	for _, row := range rows {
		if seen[row.Fingerprint] {
			continue
		}
		seen[row.Fingerprint] = true
		key := r.bucketKey(row)
		buckets[key] = append(buckets[key], row)
	}
	if len(buckets) == 0 {
		// An empty target set still reconciles the base calendar so
		// stale events get cleaned up.
		buckets[""] = nil
	}
	return buckets
}

func (r *Reconciler) bucketKey(row normalize.CanonicalRow) string {
	switch r.split {
	case SplitByLocation:
		if row.LocationLabel == "" {
			return unknownBucket
		}
		return row.LocationLabel
	case SplitByBuilding:
		return buildingOf(row.LocationLabel)
	default:
		return ""
	}
}

// buildingOf derives the coarse bucket from a location label, the
// prefix before the " - " separator.
func buildingOf(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return unknownBucket
	}
	if idx := strings.Index(location, " - "); idx >= 0 {
		prefix := strings.TrimSpace(location[:idx])
		if prefix != "" {
			return prefix
		}
		return unknownBucket
	}
	return location
}

// calendarName derives the deterministic per-bucket calendar name.
func (r *Reconciler) calendarName(bucket string) string {
	name := r.baseName
	if bucket != "" {
		name += " - " + bucket
	}
	if runes := []rune(name); len(runes) > maxCalendarName {
		name = string(runes[:maxCalendarName])
	}
	return name
}

func (r *Reconciler) syncBucket(ctx context.Context, bucket string, rows []normalize.CanonicalRow) (BucketReport, error) {
	name := r.calendarName(bucket)
	br := BucketReport{Bucket: bucket, Calendar: name, Rows: len(rows)}

	calendarID, err := r.client.EnsureCalendar(ctx, name)
	if err != nil {
		return br, fmt.Errorf("ensure calendar %q: %w", name, err)
	}

	now := r.now()
	remote, err := r.client.ListManagedEvents(ctx, calendarID, now, now.Add(r.horizon))
	if err != nil {
		return br, fmt.Errorf("list managed events: %w", err)
	}

	// Remote duplicates of one fingerprint collapse to the first
	// event; the extras are scheduled for deletion.
	existing := make(map[string]string, len(remote))
	var extras []string
	for _, evt := range remote {
		if _, ok := existing[evt.Fingerprint]; ok {
			extras = append(extras, evt.ID)
			continue
		}
		existing[evt.Fingerprint] = evt.ID
	}

	var toCreate []normalize.CanonicalRow
	unchanged := 0
	for _, row := range rows {
		if _, ok := existing[row.Fingerprint]; ok {
			unchanged++
			delete(existing, row.Fingerprint)
			continue
		}
		toCreate = append(toCreate, row)
	}
	br.Unchanged = unchanged

	toDelete := extras
	for _, id := range existing {
		toDelete = append(toDelete, id)
	}
	sort.Strings(toDelete)

	r.inBatches(len(toCreate), func(i int) {
		if err := r.client.CreateEvent(ctx, calendarID, toCreate[i]); err != nil {
			log.Printf("sync: create %s in %q: %v", toCreate[i].Fingerprint, name, err)
			br.Failed++
			return
		}
		br.Created++
	})

	r.inBatches(len(toDelete), func(i int) {
		if err := r.client.DeleteEvent(ctx, calendarID, toDelete[i]); err != nil {
			log.Printf("sync: delete %s in %q: %v", toDelete[i], name, err)
			br.Failed++
			return
		}
		br.Deleted++
	})

	return br, nil
}

// inBatches runs fn for each index, pausing between fixed-size groups.
func (r *Reconciler) inBatches(n int, fn func(int)) {
	for i := 0; i < n; i++ {
		if i > 0 && i%r.batchSize == 0 {
			r.sleep(r.batchPause)
		}
		fn(i)
	}
}
