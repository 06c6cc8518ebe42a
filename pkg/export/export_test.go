package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leaderboardDataset() Dataset {
	return Dataset{
		Title:   "Classement - Examen 1",
		Headers: []string{"Rang", "Élève", "Score"},
		Rows: []map[string]string{
			{"Rang": "1", "Élève": "Amina Benali", "Score": "18.00"},
			{"Rang": "2", "Élève": "Youssef, El", "Score": "12.50"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, "application/pdf", f.ContentType())

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(leaderboardDataset())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, utf8BOM))

	lines := strings.Split(strings.TrimSpace(string(out[len(utf8BOM):])), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Rang,Élève,Score", lines[0])
	assert.Equal(t, `2,"Youssef, El",12.50`, lines[2])
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(leaderboardDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderDispatch(t *testing.T) {
	out, err := Render(FormatPDF, leaderboardDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = Render(Format("doc"), leaderboardDataset())
	assert.Error(t, err)
}
