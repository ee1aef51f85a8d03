package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadCSVPadsShortRows(t *testing.T) {
	path := writeCSV(t, "ISBN,Title,Author/Editor\n978-0261103344,The Hobbit\n")

	ds, err := ReadCSV(path)
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	require.Len(t, ds.Rows[0], 3)
	require.Equal(t, "", ds.Rows[0][2])
}

func TestCSVRoundTrip(t *testing.T) {
	path := writeCSV(t, "ISBN,Title\n123,Foo\n456,\"Bar, Baz\"\n")

	ds, err := ReadCSV(path)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, ds.WriteCSV(out))

	again, err := ReadCSV(out)
	require.NoError(t, err)
	require.Equal(t, ds.Header, again.Header)
	require.Equal(t, ds.Rows, again.Rows)
}

func TestEnsureColumnWidensRows(t *testing.T) {
	ds := &Dataset{
		Header: []string{"ISBN"},
		Rows:   [][]string{{"123"}, {"456"}},
	}

	idx := ds.EnsureColumn("description")
	require.Equal(t, 1, idx)
	require.Len(t, ds.Rows[0], 2)

	// Asking again returns the same index without growing the header.
	require.Equal(t, 1, ds.EnsureColumn("description"))
	require.Len(t, ds.Header, 2)
}

func TestToRecords(t *testing.T) {
	ds := &Dataset{
		Header: []string{ColCleanISBN, ColTitle, ColAuthor, ColCleanYear, ColEdition, ColPublisher, ColCleanDescription},
		Rows: [][]string{
			{"9780261103344", "The Hobbit", "Tolkien, J.R.R.", "1937", "3rd ed.", "London: Allen & Unwin", "Bilbo Baggins."},
			{"", "Untitled", "", "", "", "", ""},
		},
	}

	records := ds.ToRecords()
	require.Len(t, records, 2)
	require.Equal(t, "9780261103344", records[0].ISBN)
	require.Equal(t, 1937, records[0].Year)
	require.Equal(t, "London: Allen & Unwin", records[0].Publisher)
	require.Equal(t, "Untitled", records[1].Title)
	require.Zero(t, records[1].Year)
}
