package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Order ID", "Status", "Amount"},
		Rows: []map[string]string{
			{"Order ID": "ORD-1", "Status": "Success", "Amount": "₹1,500.00"},
			{"Order ID": "ORD-2", "Status": "Failed"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(out, utf8BOM))
	lines := strings.Split(strings.TrimSpace(string(out[len(utf8BOM):])), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Order ID,Status,Amount", lines[0])
	assert.Equal(t, "ORD-1,Success,\"₹1,500.00\"", lines[1])
	assert.Equal(t, "ORD-2,Failed,", lines[2])
}

func TestCSVExporterWithoutBOM(t *testing.T) {
	out, err := (&CSVExporter{}).Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("Order ID")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{}, "x")
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	data := sampleDataset()
	for i := 0; i < 120; i++ {
		data.Rows = append(data.Rows, map[string]string{"Order ID": strings.Repeat("X", 80), "Status": "Pending"})
	}
	out, err := NewPDFExporter().Render(data, "Transactions")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
