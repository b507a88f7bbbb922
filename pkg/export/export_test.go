package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = Sheet{
	Title:   "CS101 Attendance",
	Headers: []string{"Student", "Present", "Percentage"},
	Rows: [][]string{
		{"Ada, L.", "3", "75.00"},
		{"Grace", "4", "100.00"},
	},
}

func TestCSVRenderer(t *testing.T) {
	out, err := CSVRenderer{}.Render(sample)
	require.NoError(t, err)
	assert.Equal(t, "Student,Present,Percentage\n\"Ada, L.\",3,75.00\nGrace,4,100.00\n", string(out))
}

func TestPDFRenderer(t *testing.T) {
	out, err := PDFRenderer{}.Render(sample)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRejectsRaggedRows(t *testing.T) {
	_, err := CSVRenderer{}.Render(Sheet{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}})
	assert.Error(t, err)
	_, err = PDFRenderer{}.Render(Sheet{})
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)

	_, err = ParseFormat("xlsx")
	assert.Error(t, err)

	r, err := NewRenderer(FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "pdf", r.Extension())
}
