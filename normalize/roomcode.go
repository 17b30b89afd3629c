package normalize

import (
	"strings"
	"unicode"
)

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// ExtractRoomCode pulls the short room identifier out of a full room
// label. "B 101 Seminarraum" yields "B 101", "205 Sitzungszimmer"
// yields "205", a label without a numbered token yields its first
// token.
func ExtractRoomCode(label string) string {
	fields := strings.Fields(strings.TrimSpace(label))
	if len(fields) == 0 {
		return ""
	}
	if hasDigit(fields[0]) {
		return fields[0]
	}
	if len(fields) > 1 && hasDigit(fields[1]) {
		return fields[0] + " " + fields[1]
	}
	return fields[0]
}
