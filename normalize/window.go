package normalize

import "time"

// Window is the closed sync interval reservations must intersect.
type Window struct {
	Start time.Time
	End   time.Time
}

// ComputeWindow builds the forward window [today 00:00:00, today+days
// 23:59:59] in loc. The end is inclusive so a reservation ending at
// midnight of the last day still counts.
func ComputeWindow(now time.Time, days int, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	last := start.AddDate(0, 0, days)
	end := time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 0, loc)
	return Window{Start: start, End: end}
}

// Contains reports whether the interval [start, end] intersects the
// window. Touching an edge counts.
func (w Window) Contains(start, end time.Time) bool {
	return !start.After(w.End) && !end.Before(w.Start)
}
