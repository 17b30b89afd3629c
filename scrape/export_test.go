package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReportLinksFromDataArray(t *testing.T) {
	payload := `{"data":[
		{"Message":"<div>Ihr Bericht ist bereit: <a href='/Default/Reports/Environment/Report/abc123'>Export_Reservation.csv</a></div>"},
		{"Message":"<div>Unrelated <a href='/Default/Help'>Hilfe</a></div>"}
	]}`

	links := ReportLinks(payload, "https://example.book.test")
	require.Equal(t, []string{"https://example.book.test/Default/Reports/Environment/Report/abc123"}, links)
}

func TestReportLinksAbsoluteAndAlternateKeys(t *testing.T) {
	payload := `{"Messages":[
		{"message":"<a href=\"https://cdn.example.test/Default/Reports/Environment/Report/xyz\">csv</a>"}
	]}`

	links := ReportLinks(payload, "https://example.book.test")
	require.Equal(t, []string{"https://cdn.example.test/Default/Reports/Environment/Report/xyz"}, links)
}

func TestReportLinksEmptyPayload(t *testing.T) {
	require.Empty(t, ReportLinks("", "https://example.book.test"))
	require.Empty(t, ReportLinks("not json", "https://example.book.test"))
	require.Empty(t, ReportLinks(`{"data":[]}`, "https://example.book.test"))
}
