package scrape

import (
	"context"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"roomsync/normalize"
)

const gridHeadersJS = `Array.from(document.querySelectorAll("div.k-grid-header thead tr th"))
	.map(th => th.innerText.trim())`

const gridRowsJS = `(() => {
	let trs = document.querySelectorAll("div.k-grid-content table tbody tr");
	if (trs.length === 0) trs = document.querySelectorAll("table tbody tr");
	return Array.from(trs).map(tr => Array.from(tr.children).map(td => td.innerText.trim()));
})()`

// gridNextJS clicks the pager's next control, reporting false when it
// is missing or disabled.
const gridNextJS = `(() => {
	const sels = [
		"a[aria-label*='next' i]",
		"a[title*='Weiter' i]",
		"a.k-pager-next",
		"a.k-link.k-pager-next",
		"button.k-pager-next",
	];
	for (const sel of sels) {
		const el = document.querySelector(sel);
		if (!el) continue;
		const cls = el.getAttribute("class") || "";
		if (el.getAttribute("aria-disabled") === "true" ||
			cls.includes("k-disabled") || cls.includes("k-state-disabled")) {
			return false;
		}
		el.click();
		return true;
	}
	return false;
})()`

// gridPageSizeJS bumps the pager page size so fewer pages need walking.
const gridPageSizeJS = `(() => {
	const sel = document.querySelector("select.k-pager-sizes");
	if (!sel) return false;
	sel.value = "200";
	sel.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
})()`

// collectGrid walks the paginated result grid and concatenates all
// pages into one batch. Pagination stops when the next control is gone
// or a page repeats its first row (some pager skins keep a clickable
// next on the last page).
func (s *Scraper) collectGrid(ctx context.Context) (normalize.RawBatch, error) {
	var sizeSet bool
	if err := chromedp.Run(ctx,
		chromedp.Evaluate(gridPageSizeJS, &sizeSet),
		chromedp.Sleep(600*time.Millisecond),
	); err != nil {
		return normalize.RawBatch{}, err
	}

	var batch normalize.RawBatch
	seenFirst := make(map[string]bool)

	for page := 0; page < s.opts.MaxPages; page++ {
		headers, rows, err := extractGridPage(ctx)
		if err != nil {
			return normalize.RawBatch{}, err
		}
		if len(rows) == 0 {
			break
		}

		first := strings.Join(rows[0], "|")
		if seenFirst[first] {
			break
		}
		seenFirst[first] = true

		if len(batch.Columns) == 0 {
			batch.Columns = headers
		}
		batch.Rows = append(batch.Rows, padRows(rows, len(batch.Columns))...)

		var clicked bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(gridNextJS, &clicked)); err != nil {
			return normalize.RawBatch{}, err
		}
		if !clicked {
			break
		}
		if err := chromedp.Run(ctx, chromedp.Sleep(600*time.Millisecond)); err != nil {
			return normalize.RawBatch{}, err
		}
	}

	if len(batch.Columns) == 0 && len(batch.Rows) > 0 {
		batch.Columns = numberedColumns(widest(batch.Rows))
	}
	return batch, nil
}

func extractGridPage(ctx context.Context) ([]string, [][]string, error) {
	var headers []string
	var rows [][]string
	if err := chromedp.Run(ctx,
		chromedp.Evaluate(gridHeadersJS, &headers),
		chromedp.Evaluate(gridRowsJS, &rows),
	); err != nil {
		return nil, nil, err
	}
	if len(headers) == 0 && len(rows) > 0 {
		headers = numberedColumns(widest(rows))
	}
	return headers, rows, nil
}

// padRows forces every row to the header width, padding short rows and
// truncating long ones.
func padRows(rows [][]string, width int) [][]string {
	if width <= 0 {
		return rows
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		switch {
		case len(row) < width:
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		case len(row) > width:
			row = row[:width]
		}
		out = append(out, row)
	}
	return out
}

func widest(rows [][]string) int {
	max := 0
	for _, row := range rows {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}
