// Package scrape pulls raw reservation tables out of the booking web
// UI. The primary path drives a Chromium instance against the Kendo
// result grid; a CSV export through the message center and a plain
// HTML table snapshot serve as fallbacks.
package scrape

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"

	"roomsync/normalize"
)

// Options configures a Scraper.
type Options struct {
	// BaseURL is the root of the booking UI.
	BaseURL string

	// FindPath is the reservation search page.
	FindPath string

	// UserDataDir is a persistent browser profile so an interactive
	// login survives between runs.
	UserDataDir string

	// Headless toggles the browser window. First-time login needs a
	// visible window.
	Headless bool

	// Timeout bounds a full fetch attempt.
	Timeout time.Duration

	// MaxPages caps grid pagination.
	MaxPages int

	// PreferGrid skips the CSV export attempt.
	PreferGrid bool
}

// Scraper fetches raw reservation batches.
type Scraper struct {
	opts Options
}

// New builds a Scraper, filling unset options with defaults.
func New(opts Options) *Scraper {
	if opts.FindPath == "" {
		opts.FindPath = "/Default/Lists/Reservation/FindReservation"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 180 * time.Second
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 200
	}
	return &Scraper{opts: opts}
}

func (s *Scraper) findURL() string {
	return s.opts.BaseURL + s.opts.FindPath
}

// Fetch navigates the booking UI, applies the window filter and
// returns the scraped batch. The CSV export is tried first unless
// PreferGrid is set; the grid and a raw HTML snapshot are the
// fallbacks.
func (s *Scraper) Fetch(ctx context.Context, window normalize.Window) (normalize.RawBatch, error) {
	if s.opts.BaseURL == "" {
		return normalize.RawBatch{}, fmt.Errorf("scrape: base URL not configured")
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(s.opts.UserDataDir),
		chromedp.Flag("headless", s.opts.Headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	runCtx, cancelRun := context.WithTimeout(browserCtx, s.opts.Timeout)
	defer cancelRun()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(s.findURL()),
		chromedp.Sleep(1500*time.Millisecond),
	); err != nil {
		return normalize.RawBatch{}, fmt.Errorf("scrape: open %s: %w", s.findURL(), err)
	}

	if err := applyWindowFilter(runCtx, window); err != nil {
		return normalize.RawBatch{}, fmt.Errorf("scrape: apply filter: %w", err)
	}

	if !s.opts.PreferGrid {
		batch, err := s.fetchExport(runCtx)
		if err == nil && len(batch.Rows) > 0 {
			return batch, nil
		}
		if err != nil {
			log.Printf("scrape: export path failed, falling back to grid: %v", err)
		}
	}

	batch, err := s.collectGrid(runCtx)
	if err == nil && len(batch.Rows) > 0 {
		return cleanBatch(batch), nil
	}
	if err != nil {
		log.Printf("scrape: grid extraction failed, falling back to snapshot: %v", err)
	}

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return normalize.RawBatch{}, fmt.Errorf("scrape: snapshot page: %w", err)
	}
	snap, err := BestTable(html)
	if err != nil {
		return normalize.RawBatch{}, fmt.Errorf("scrape: no usable table: %w", err)
	}
	return cleanBatch(snap), nil
}

// applyWindowFilter fills the date/time filter form in page JS and
// presses the search button. The inputs are readonly Kendo widgets, so
// values are set directly and change events dispatched by hand.
func applyWindowFilter(ctx context.Context, window normalize.Window) error {
	script := fmt.Sprintf(`(() => {
		const valVon = %q, valBis = %q;

		const manual = document.querySelector('#ReservationFilter_ManualDateTimeSelection');
		if (manual && !manual.checked) {
			manual.checked = true;
			manual.dispatchEvent(new Event('change', {bubbles: true}));
		}

		const alt = document.querySelector('#ReservationFilter_Reservationszeitpunkt');
		if (alt && alt.value !== '0') {
			alt.value = '0';
			alt.dispatchEvent(new Event('change', {bubbles: true}));
		}

		const setVal = (sel, val) => {
			const el = document.querySelector(sel);
			if (!el) return false;
			el.removeAttribute('readonly');
			el.value = val;
			el.dispatchEvent(new Event('input', {bubbles: true}));
			el.dispatchEvent(new Event('change', {bubbles: true}));
			return true;
		};
		const vonOk = setVal('#dtpReservationDateFrom', valVon);
		const bisOk = setVal('#dtpReservationDateTo', valBis);
		setVal('#dtpReservationTimeFrom', '06:00');
		setVal('#dtpReservationTimeTo', '22:00');

		let searched = false;
		const btn = Array.from(document.querySelectorAll('button,input[type="button"],input[type="submit"]'))
			.find(b => /finden|suchen/i.test(b.textContent || b.value || ''));
		if (btn) { btn.click(); searched = true; }
		return vonOk && bisOk && searched;
	})()`,
		window.Start.Format("02.01.2006"),
		window.End.Format("02.01.2006"))

	var ok bool
	if err := chromedp.Run(ctx,
		chromedp.Evaluate(script, &ok),
		chromedp.Sleep(1200*time.Millisecond),
	); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("filter form not found")
	}
	return nil
}
