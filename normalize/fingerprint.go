package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

// isoOffset renders a time like 2025-01-01T08:00:00+01:00, the exact
// string the fingerprint has always been computed over. Changing this
// layout would orphan every previously pushed event.
const isoOffset = "2006-01-02T15:04:05-07:00"

// Fingerprint returns the stable identity of a reservation slot as a
// 40-char hex SHA-1 over start, end, room label and location label.
// Organizer and title are deliberately excluded: pushed events are
// anonymized, so those fields carry no identity.
func Fingerprint(start, end time.Time, roomLabel, locationLabel string) string {
	payload := fmt.Sprintf("%s|%s|%s|%s",
		start.Format(isoOffset), end.Format(isoOffset), roomLabel, locationLabel)
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
