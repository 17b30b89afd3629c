package scrape

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"roomsync/normalize"
)

// ParseCSV decodes an exported reservation report. The booking system
// has shipped these as UTF-8 with BOM, UTF-16 and cp1252 over time,
// with either ";" or "," as separator, sometimes without a header row.
func ParseCSV(data []byte) (normalize.RawBatch, error) {
	text, err := decodeCSVBytes(data)
	if err != nil {
		return normalize.RawBatch{}, err
	}
	text = strings.TrimPrefix(text, "\uFEFF")
	if strings.TrimSpace(text) == "" {
		return normalize.RawBatch{}, fmt.Errorf("csv: empty export")
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffSeparator(text)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return normalize.RawBatch{}, fmt.Errorf("csv: parse: %w", err)
	}
	if len(records) == 0 {
		return normalize.RawBatch{}, fmt.Errorf("csv: no records")
	}

	batch := normalize.RawBatch{}
	if looksLikeHeader(records[0]) {
		batch.Columns = records[0]
		batch.Rows = records[1:]
	} else {
		batch.Columns = numberedColumns(widest(records))
		batch.Rows = records
	}
	batch.Rows = padRows(batch.Rows, len(batch.Columns))
	return batch, nil
}

func decodeCSVBytes(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return string(data[3:]), nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		out, err := dec.Bytes(data)
		if err != nil {
			return "", fmt.Errorf("csv: decode utf-16: %w", err)
		}
		return string(out), nil
	case utf8.Valid(data):
		return string(data), nil
	default:
		out, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("csv: decode cp1252: %w", err)
		}
		return string(out), nil
	}
}

// sniffSeparator picks the separator by counting candidates in the
// first line; the exports use ";" far more often than ",".
func sniffSeparator(text string) rune {
	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	counts := map[rune]int{
		';':  strings.Count(line, ";"),
		',':  strings.Count(line, ","),
		'\t': strings.Count(line, "\t"),
	}
	best, bestCount := ';', 0
	for sep, count := range counts {
		if count > bestCount {
			best, bestCount = sep, count
		}
	}
	return best
}

func looksLikeHeader(row []string) bool {
	for _, cell := range row {
		lower := strings.ToLower(strings.TrimSpace(cell))
		for _, word := range wantedHeaderWords {
			if strings.Contains(lower, word) {
				return true
			}
		}
	}
	return false
}
