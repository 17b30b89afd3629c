package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFingerprintStable(t *testing.T) {
	loc := zurich(t)
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, loc)
	end := time.Date(2025, 1, 1, 10, 0, 0, 0, loc)

	a := Fingerprint(start, end, "A 101", "Campus Nord")
	b := Fingerprint(start, end, "A 101", "Campus Nord")
	require.Equal(t, a, b)
	require.Len(t, a, 40)

	sum := sha1.Sum([]byte("2025-01-01T08:00:00+01:00|2025-01-01T10:00:00+01:00|A 101|Campus Nord"))
	require.Equal(t, hex.EncodeToString(sum[:]), a)
}

func TestFingerprintSensitivity(t *testing.T) {
	loc := zurich(t)
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, loc)
	end := time.Date(2025, 1, 1, 10, 0, 0, 0, loc)

	base := Fingerprint(start, end, "A 101", "Campus Nord")
	require.NotEqual(t, base, Fingerprint(start.Add(time.Minute), end, "A 101", "Campus Nord"))
	require.NotEqual(t, base, Fingerprint(start, end.Add(time.Minute), "A 101", "Campus Nord"))
	require.NotEqual(t, base, Fingerprint(start, end, "A 102", "Campus Nord"))
	require.NotEqual(t, base, Fingerprint(start, end, "A 101", "Campus Sued"))
	// Empty location is still part of the identity.
	require.NotEqual(t, base, Fingerprint(start, end, "A 101", ""))
}

func TestExtractRoomCode(t *testing.T) {
	cases := map[string]string{
		"B 101 Seminarraum":    "B 101",
		"205":                  "205",
		"":                     "",
		"A 7":                  "A 7",
		"205 Sitzungszimmer":   "205",
		"EG12 Besprechung":     "EG12",
		"Aula":                 "Aula",
		"Foyer Haupteingang":   "Foyer",
		"  B 101 Seminarraum ": "B 101",
	}
	for label, want := range cases {
		require.Equal(t, want, ExtractRoomCode(label), "label %q", label)
	}
}
