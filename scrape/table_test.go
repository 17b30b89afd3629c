package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"

	"roomsync/normalize"
)

const snapshotHTML = `
<html><body>
<table id="nav">
  <tr><th>Home</th><th>Logout</th></tr>
  <tr><td>a</td><td>b</td></tr>
</table>
<table id="results">
  <thead><tr><th>Von</th><th>Bis</th><th>Ressource Bezeichnung</th><th>Standort</th></tr></thead>
  <tbody>
    <tr><td>01.01.2025 08:00</td><td>01.01.2025 10:00</td><td>A 101</td><td>Campus Nord - Weg 1</td></tr>
    <tr><td>02.01.2025 09:00</td><td>02.01.2025 11:00</td><td>B 202</td><td>Campus Nord - Weg 1</td></tr>
  </tbody>
</table>
</body></html>`

func TestBestTablePicksReservationTable(t *testing.T) {
	batch, err := BestTable(snapshotHTML)
	require.NoError(t, err)

	require.Equal(t, []string{"Von", "Bis", "Ressource Bezeichnung", "Standort"}, batch.Columns)
	require.Len(t, batch.Rows, 2)
	require.Equal(t, "A 101", batch.Rows[0][2])
}

func TestBestTableNoMatch(t *testing.T) {
	_, err := BestTable("<html><body><p>nichts</p></body></html>")
	require.Error(t, err)
}

func TestCleanBatchDropsArtifacts(t *testing.T) {
	batch := normalize.RawBatch{
		Columns: []string{"R", "Von", "Bis", "Raum", "Leer"},
		Rows: [][]string{
			{"R", "Von", "Bis", "Raum", "Leer"}, // header echo
			{"", "01.01.2025 08:00", "01.01.2025 10:00", "A 101", ""},
			{"", "1 - 50 von 120 Einträgen", "", "", ""}, // pager row
			{"R", "02.01.2025 09:00", "02.01.2025 11:00", "B 202", ""},
		},
	}

	out := cleanBatch(batch)
	require.Equal(t, []string{"Von", "Bis", "Raum"}, out.Columns)
	require.Len(t, out.Rows, 2)
	require.Equal(t, []string{"01.01.2025 08:00", "01.01.2025 10:00", "A 101"}, out.Rows[0])
}

func TestPadRows(t *testing.T) {
	rows := padRows([][]string{{"a"}, {"a", "b", "c"}}, 2)
	require.Equal(t, [][]string{{"a", ""}, {"a", "b"}}, rows)
}
