package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func complianceTable() Table {
	return Table{
		Title:   "Compliance",
		Headers: []string{"Department", "Status"},
		Rows:    [][]string{{"Finance", "on_time"}, {"HR, People", "missed"}},
	}
}

func TestCSV(t *testing.T) {
	out, err := CSV(complianceTable())
	require.NoError(t, err)
	assert.Equal(t, "Department,Status\nFinance,on_time\n\"HR, People\",missed\n", string(out))
}

func TestCSVRejectsRaggedRows(t *testing.T) {
	table := complianceTable()
	table.Rows = append(table.Rows, []string{"Logistics"})
	_, err := CSV(table)
	assert.Error(t, err)

	_, err = CSV(Table{})
	assert.Error(t, err)
}

func TestPDF(t *testing.T) {
	out, err := PDF(complianceTable())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = PDF(Table{Title: "empty"})
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", ContentType(FormatCSV))
	assert.Equal(t, "application/pdf", ContentType(FormatPDF))
	assert.Equal(t, "application/json", ContentType("xml"))
}
