package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"roomsync/config"
	"roomsync/icsfeed"
	"roomsync/normalize"
	"roomsync/reconcile"
	"roomsync/scrape"
	"roomsync/security"
	"roomsync/store"
)

// ErrRunInProgress is returned when a run is triggered while another
// one is still going.
var ErrRunInProgress = errors.New("sync run already in progress")

// SyncRunner orchestrates a full sync: scrape, normalize, chunk,
// reconcile, persist. Runs are serialized; the cron schedule and the
// HTTP trigger share the same entry point.
type SyncRunner struct {
	cfg     *config.Config
	scraper *scrape.Scraper
	tokens  *security.TokenStore
	account string
	reports *store.ReportStore
	stream  *store.RunStream
	history *store.History
	feed    *icsfeed.Feed

	mu      sync.Mutex
	running bool
	cron    *cron.Cron
}

// NewSyncRunner wires the pipeline together.
func NewSyncRunner(cfg *config.Config, scraper *scrape.Scraper, tokens *security.TokenStore, account string,
	reports *store.ReportStore, stream *store.RunStream, history *store.History, feed *icsfeed.Feed) *SyncRunner {
	return &SyncRunner{
		cfg:     cfg,
		scraper: scraper,
		tokens:  tokens,
		account: account,
		reports: reports,
		stream:  stream,
		history: history,
		feed:    feed,
	}
}

// Running reports whether a sync run is in flight.
func (s *SyncRunner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TriggerRun executes one sync run now. A second trigger while one is
// in flight fails with ErrRunInProgress.
func (s *SyncRunner) TriggerRun(ctx context.Context) (reconcile.Report, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return reconcile.Report{}, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	return s.runOnce(ctx)
}

// StartSchedule begins cron-driven runs. A missing cron spec disables
// scheduling; HTTP triggering still works.
func (s *SyncRunner) StartSchedule(ctx context.Context) error {
	if s.cfg.Cron == "" {
		log.Println("sync: no cron schedule configured, manual runs only")
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(s.cfg.Cron, func() {
		if _, err := s.TriggerRun(ctx); err != nil {
			if errors.Is(err, ErrRunInProgress) {
				log.Println("sync: scheduled run skipped, previous run still going")
				return
			}
			log.Printf("sync: scheduled run failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.cfg.Cron, err)
	}
	c.Start()
	s.cron = c
	log.Printf("sync: scheduled runs with spec %q", s.cfg.Cron)
	return nil
}

// Stop halts scheduled runs.
func (s *SyncRunner) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *SyncRunner) runOnce(ctx context.Context) (reconcile.Report, error) {
	started := time.Now()
	s.publish(ctx, "started", "", nil)

	window := normalize.ComputeWindow(started, s.cfg.WindowDays, s.cfg.Location())
	log.Printf("sync: window %s -> %s", window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))

	batch, err := s.scraper.Fetch(ctx, window)
	if err != nil {
		s.publish(ctx, "failed", "", map[string]any{"error": err.Error()})
		return reconcile.Report{}, fmt.Errorf("scrape: %w", err)
	}
	log.Printf("sync: scraped %d rows, %d columns", len(batch.Rows), len(batch.Columns))

	normalizer := normalize.NewNormalizer(normalize.NormalizerOptions{
		Location:          s.cfg.Location(),
		SampleRows:        s.cfg.Inference.SampleRows,
		TimeThreshold:     s.cfg.Inference.TimeThreshold,
		RoomThreshold:     s.cfg.Inference.RoomThreshold,
		LocationThreshold: s.cfg.Inference.LocationThreshold,
	})
	rows, diag := normalizer.Normalize(batch, window)
	log.Printf("sync: normalized %d/%d rows (dropped %d)", diag.RowsOut, diag.RowsIn, diag.Dropped)
	for _, note := range diag.Notes {
		log.Printf("sync: normalize: %s", note)
	}

	if s.cfg.ChunkEnabled() {
		rows = normalize.ChunkDays(rows, window, s.cfg.DayStartHour, s.cfg.DayEndHour)
		log.Printf("sync: chunked to %d day slices", len(rows))
	}

	svc, err := s.tokens.CalendarService(ctx, s.account)
	if err != nil {
		s.publish(ctx, "failed", "", map[string]any{"error": err.Error()})
		return reconcile.Report{}, fmt.Errorf("calendar auth: %w", err)
	}

	client := reconcile.NewGoogleClient(svc, reconcile.GoogleClientOptions{
		SourceTag: s.cfg.SourceTag,
		Summary:   s.cfg.Summary,
		Timezone:  s.cfg.Timezone,
	})
	reconciler := reconcile.NewReconciler(client, reconcile.ReconcilerOptions{
		BaseCalendarName: s.cfg.CalendarName,
		Split:            reconcile.SplitMode(s.cfg.SplitBy),
		Horizon:          time.Duration(s.cfg.HorizonDays) * 24 * time.Hour,
	})

	report, err := reconciler.Sync(ctx, rows)
	if err != nil {
		s.publish(ctx, "failed", report.RunID, map[string]any{"error": err.Error()})
		return report, fmt.Errorf("reconcile: %w", err)
	}

	s.feed.Update(rows)
	if err := s.reports.SaveLast(ctx, report); err != nil {
		log.Printf("sync: save report: %v", err)
	}
	if s.history != nil {
		if err := s.history.Record(ctx, report); err != nil {
			log.Printf("sync: record history: %v", err)
		}
	}
	s.publish(ctx, "finished", report.RunID, map[string]any{
		"created":   fmt.Sprint(report.Created),
		"deleted":   fmt.Sprint(report.Deleted),
		"unchanged": fmt.Sprint(report.Unchanged),
		"failed":    fmt.Sprint(report.Failed),
	})

	log.Printf("sync: run %s done in %s: +%d -%d =%d !%d",
		report.RunID, time.Since(started).Round(time.Millisecond),
		report.Created, report.Deleted, report.Unchanged, report.Failed)
	return report, nil
}

func (s *SyncRunner) publish(ctx context.Context, phase, runID string, values map[string]any) {
	if s.stream == nil {
		return
	}
	if _, err := s.stream.Publish(ctx, phase, runID, values); err != nil {
		log.Printf("sync: publish %s event: %v", phase, err)
	}
}
