package normalize

import (
	"regexp"
	"strings"
	"time"
)

var (
	weekdayPrefix = regexp.MustCompile(`^[A-Za-zÄÖÜäöüß]+\s*,\s*`)
	multiSpace    = regexp.MustCompile(`\s+`)
)

// cleanCell normalizes the whitespace oddities the booking UI produces:
// non-breaking and narrow non-breaking spaces inside dates, trailing
// "Uhr", a leading weekday name.
func cleanCell(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.TrimSpace(s)
	s = weekdayPrefix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " Uhr", "")
	s = strings.ReplaceAll(s, ",", " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// dayFirstLayouts are tried in order against a cleaned cell. The
// booking UI writes day-first German dates, with or without seconds.
var dayFirstLayouts = []string{
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"2.1.2006 15:04:05",
	"2.1.2006 15:04",
	"02.01.2006",
	"2.1.2006",
}

var naiveISOLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseTimestamp parses a raw cell into a time in loc. Naive values are
// interpreted as wall time in loc; values carrying an offset are
// converted into loc.
func parseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	s := cleanCell(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dayFirstLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), true
	}
	for _, layout := range naiveISOLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
