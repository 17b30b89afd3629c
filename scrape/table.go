package scrape

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"roomsync/normalize"
)

// wantedHeaderWords identify a reservation table. The table whose
// header matches the most words wins.
var wantedHeaderWords = []string{
	"von", "bis", "organisator", "buchungs", "firma", "ressource", "titel", "raum",
}

// BestTable scores every <table> in the document by how many wanted
// words its header row contains and parses the winner into a batch.
func BestTable(html string) (normalize.RawBatch, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return normalize.RawBatch{}, fmt.Errorf("parse html: %w", err)
	}

	var best *goquery.Selection
	bestScore := 0
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		score := scoreTable(table)
		if score > bestScore {
			bestScore = score
			best = table
		}
	})
	if best == nil {
		return normalize.RawBatch{}, fmt.Errorf("no table matched reservation headers")
	}
	return parseTable(best), nil
}

func scoreTable(table *goquery.Selection) int {
	header := headerCells(table)
	score := 0
	for _, cell := range header {
		lower := strings.ToLower(cell)
		for _, word := range wantedHeaderWords {
			if strings.Contains(lower, word) {
				score++
				break
			}
		}
	}
	return score
}

func headerCells(table *goquery.Selection) []string {
	var cells []string
	row := table.Find("thead tr").First()
	if row.Length() == 0 {
		row = table.Find("tr").First()
	}
	row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(cell.Text()))
	})
	return cells
}

func parseTable(table *goquery.Selection) normalize.RawBatch {
	batch := normalize.RawBatch{Columns: headerCells(table)}

	body := table.Find("tbody tr")
	if body.Length() == 0 {
		body = table.Find("tr").Slice(1, goquery.ToEnd)
	}
	body.Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			row = append(row, strings.TrimSpace(cell.Text()))
		})
		if len(row) > 0 {
			batch.Rows = append(batch.Rows, row)
		}
	})

	if len(batch.Columns) == 0 && len(batch.Rows) > 0 {
		batch.Columns = numberedColumns(widest(batch.Rows))
	}
	batch.Rows = padRows(batch.Rows, len(batch.Columns))
	return batch
}

func numberedColumns(n int) []string {
	cols := make([]string, n)
	for i := range cols {
		cols[i] = fmt.Sprintf("%d", i)
	}
	return cols
}

// cleanBatch strips scraping artifacts: repeated header rows, pager
// summary rows ("1 - 50 von 120 Einträgen") and columns that carry no
// data at all (selection checkboxes render as an empty or "R" column).
func cleanBatch(batch normalize.RawBatch) normalize.RawBatch {
	rows := make([][]string, 0, len(batch.Rows))
	for _, row := range batch.Rows {
		if isHeaderEcho(row, batch.Columns) || isPagerRow(row) {
			continue
		}
		rows = append(rows, row)
	}

	keep := make([]int, 0, len(batch.Columns))
	for c := range batch.Columns {
		if columnHasData(rows, c) {
			keep = append(keep, c)
		}
	}
	if len(keep) == len(batch.Columns) {
		batch.Rows = rows
		return batch
	}

	out := normalize.RawBatch{Columns: make([]string, 0, len(keep))}
	for _, c := range keep {
		out.Columns = append(out.Columns, batch.Columns[c])
	}
	for _, row := range rows {
		slim := make([]string, 0, len(keep))
		for _, c := range keep {
			if c < len(row) {
				slim = append(slim, row[c])
			} else {
				slim = append(slim, "")
			}
		}
		out.Rows = append(out.Rows, slim)
	}
	return out
}

func isHeaderEcho(row, columns []string) bool {
	if len(columns) == 0 || len(row) != len(columns) {
		return false
	}
	for i := range row {
		if !strings.EqualFold(strings.TrimSpace(row[i]), strings.TrimSpace(columns[i])) {
			return false
		}
	}
	return true
}

func isPagerRow(row []string) bool {
	for _, cell := range row {
		if strings.Contains(strings.ToLower(cell), "einträgen") {
			return true
		}
	}
	return false
}

func columnHasData(rows [][]string, c int) bool {
	for _, row := range rows {
		if c >= len(row) {
			continue
		}
		cell := strings.TrimSpace(row[c])
		if cell != "" && cell != "R" {
			return true
		}
	}
	return false
}
