package normalize

import "time"

// ChunkDays splits rows into per-day slices bounded by the daily
// active-hours band [startHour:00, endHour:00]. A reservation from
// 20:00 to 08:00 the next morning becomes two rows, 20:00-22:00 and
// 06:00-08:00, with a default 06-22 band. Fingerprints are recomputed
// for the emitted slices. Output is re-sorted by (start, room label).
func ChunkDays(rows []CanonicalRow, window Window, startHour, endHour int) []CanonicalRow {
	out := make([]CanonicalRow, 0, len(rows))
	for _, row := range rows {
		start, end := row.Start, row.End
		if start.Before(window.Start) {
			start = window.Start
		}
		if end.After(window.End) {
			end = window.End
		}
		if !end.After(start) {
			continue
		}

		loc := start.Location()
		for day := dayOf(start, loc); day.Before(end); day = day.AddDate(0, 0, 1) {
			bandStart := day.Add(time.Duration(startHour) * time.Hour)
			bandEnd := day.Add(time.Duration(endHour) * time.Hour)
			if start.After(bandStart) {
				bandStart = start
			}
			if end.Before(bandEnd) {
				bandEnd = end
			}
			if !bandEnd.After(bandStart) {
				continue
			}
			chunk := row
			chunk.Start = bandStart
			chunk.End = bandEnd
			chunk.Fingerprint = Fingerprint(bandStart, bandEnd, row.RoomLabel, row.LocationLabel)
			out = append(out, chunk)
		}
	}
	sortRows(out)
	return out
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
