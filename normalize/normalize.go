package normalize

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// NormalizerOptions tunes column inference. Zero values fall back to
// the defaults the engine has been validated with.
type NormalizerOptions struct {
	Location          *time.Location
	SampleRows        int
	TimeThreshold     float64
	RoomThreshold     float64
	LocationThreshold float64
}

// Normalizer turns raw scraped tables into canonical reservation rows.
type Normalizer struct {
	loc               *time.Location
	sampleRows        int
	timeThreshold     float64
	roomThreshold     float64
	locationThreshold float64
}

// NewNormalizer builds a Normalizer, filling unset options with
// defaults.
func NewNormalizer(opts NormalizerOptions) *Normalizer {
	n := &Normalizer{
		loc:               opts.Location,
		sampleRows:        opts.SampleRows,
		timeThreshold:     opts.TimeThreshold,
		roomThreshold:     opts.RoomThreshold,
		locationThreshold: opts.LocationThreshold,
	}
	if n.loc == nil {
		n.loc = time.UTC
	}
	if n.sampleRows <= 0 {
		n.sampleRows = 80
	}
	if n.timeThreshold <= 0 {
		n.timeThreshold = 0.6
	}
	if n.roomThreshold <= 0 {
		n.roomThreshold = 0.4
	}
	if n.locationThreshold <= 0 {
		n.locationThreshold = 0.4
	}
	return n
}

// Normalize maps a scraped batch to canonical rows intersecting the
// window. It never returns an error: when the table cannot be
// interpreted the result is empty and Diagnostics says why.
func (n *Normalizer) Normalize(batch RawBatch, window Window) ([]CanonicalRow, Diagnostics) {
	diag := Diagnostics{
		RowsIn:  len(batch.Rows),
		Columns: make(map[Role]ResolvedColumn),
	}

	if len(batch.Columns) == 0 || len(batch.Rows) == 0 {
		diag.Notes = append(diag.Notes, "empty batch")
		return nil, diag
	}

	resolved, unresolved := n.resolveColumns(batch)
	diag.Columns = resolved
	diag.Unresolved = unresolved
	for _, role := range unresolved {
		if role == RoleStart || role == RoleEnd || role == RoleRoom {
			diag.Notes = append(diag.Notes, fmt.Sprintf("required column %q not resolved", role))
			return nil, diag
		}
	}

	startIdx := resolved[RoleStart].Index
	endIdx := resolved[RoleEnd].Index
	roomIdx := resolved[RoleRoom].Index
	locIdx := -1
	if col, ok := resolved[RoleLocation]; ok {
		locIdx = col.Index
	}

	cell := func(row []string, idx int) string {
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	rows := make([]CanonicalRow, 0, len(batch.Rows))
	for _, raw := range batch.Rows {
		start, okStart := parseTimestamp(cell(raw, startIdx), n.loc)
		end, okEnd := parseTimestamp(cell(raw, endIdx), n.loc)
		if !okStart || !okEnd || !end.After(start) {
			continue
		}

		if diag.EarliestRaw.IsZero() || start.Before(diag.EarliestRaw) {
			diag.EarliestRaw = start
		}
		if diag.LatestRaw.IsZero() || end.After(diag.LatestRaw) {
			diag.LatestRaw = end
		}

		if !window.Contains(start, end) {
			continue
		}

		room := cell(raw, roomIdx)
		if room == "" {
			continue
		}
		location := ""
		if locIdx >= 0 {
			location = cell(raw, locIdx)
		}

		rows = append(rows, CanonicalRow{
			Start:         start,
			End:           end,
			RoomLabel:     room,
			RoomCode:      ExtractRoomCode(room),
			LocationLabel: location,
			Fingerprint:   Fingerprint(start, end, room, location),
		})
	}

	sortRows(rows)
	diag.RowsOut = len(rows)
	diag.Dropped = diag.RowsIn - diag.RowsOut
	return rows, diag
}

func sortRows(rows []CanonicalRow) {
	sort.SliceStable(rows, func(a, b int) bool {
		if !rows[a].Start.Equal(rows[b].Start) {
			return rows[a].Start.Before(rows[b].Start)
		}
		return rows[a].RoomLabel < rows[b].RoomLabel
	})
}
