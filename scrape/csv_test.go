package scrape

import (
	"testing"

	"github.com/stretchr/testify/require"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestParseCSVSemicolon(t *testing.T) {
	data := []byte("Von;Bis;Raum\n01.01.2025 08:00;01.01.2025 10:00;A 101\n")

	batch, err := ParseCSV(data)
	require.NoError(t, err)
	require.Equal(t, []string{"Von", "Bis", "Raum"}, batch.Columns)
	require.Equal(t, [][]string{{"01.01.2025 08:00", "01.01.2025 10:00", "A 101"}}, batch.Rows)
}

func TestParseCSVCommaWithBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Von,Bis,Raum\n01.01.2025 08:00,01.01.2025 10:00,A 101\n")...)

	batch, err := ParseCSV(data)
	require.NoError(t, err)
	require.Equal(t, "Von", batch.Columns[0])
	require.Len(t, batch.Rows, 1)
}

func TestParseCSVUTF16(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	data, err := enc.Bytes([]byte("Von;Bis;Raum\n01.01.2025 08:00;01.01.2025 10:00;A 101\n"))
	require.NoError(t, err)

	batch, err := ParseCSV(data)
	require.NoError(t, err)
	require.Equal(t, []string{"Von", "Bis", "Raum"}, batch.Columns)
	require.Len(t, batch.Rows, 1)
}

func TestParseCSVWindows1252(t *testing.T) {
	enc := charmap.Windows1252.NewEncoder()
	data, err := enc.Bytes([]byte("Von;Bis;Raum\n01.01.2025 08:00;01.01.2025 10:00;Hörsaal Müller\n"))
	require.NoError(t, err)

	batch, err := ParseCSV(data)
	require.NoError(t, err)
	require.Equal(t, "Hörsaal Müller", batch.Rows[0][2])
}

func TestParseCSVHeaderless(t *testing.T) {
	data := []byte("x;01.01.2025 08:00;01.01.2025 10:00\ny;02.01.2025 09:00;02.01.2025 11:00\n")

	batch, err := ParseCSV(data)
	require.NoError(t, err)
	require.Equal(t, []string{"0", "1", "2"}, batch.Columns)
	require.Len(t, batch.Rows, 2)
}

func TestParseCSVEmpty(t *testing.T) {
	_, err := ParseCSV([]byte("  \n"))
	require.Error(t, err)
}
