package pipeline

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gyscontrol/internal"
)

func TestNormalizeRows(t *testing.T) {
	rows, err := NormalizeRows("lista.xlsx", []RawRow{
		{LineNo: 1, Source: internal.SourceXLSX, Code: " EQ001 ", Description: "Variador  5kW", Quantity: "1.200 und", Brand: "ABB"},
		{LineNo: 2, Source: internal.SourceXLSX, Code: "EQ002", Description: "Cable", Quantity: "2,5", Unit: "Metros"},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "EQ001", rows[0].Code)
	assert.Equal(t, "Variador 5kW", rows[0].Description)
	assert.Equal(t, 1200.0, rows[0].Quantity)
	assert.Equal(t, "und", rows[0].Unit)
	assert.Equal(t, 2.5, rows[1].Quantity)
	assert.Equal(t, "m", rows[1].Unit)
}

func TestNormalizeRowsAggregatesIssues(t *testing.T) {
	_, err := NormalizeRows("lista.xlsx", []RawRow{
		{LineNo: 1, Code: "EQ001", Description: "", Quantity: "-3"},
		{LineNo: 2, Code: "EQ002", Description: "Motor", Quantity: ""},
	})
	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, []RowIssue{
		{LineNo: 1, Field: "quantity", Message: "is not a valid quantity: -3"},
		{LineNo: 1, Field: "description", Message: "is required"},
		{LineNo: 2, Field: "quantity", Message: "is required"},
	}, extractionErr.Issues)
	assert.Contains(t, err.Error(), "3 row issues")
}

func TestNormalizeRowsWithoutRows(t *testing.T) {
	_, err := NormalizeRows("vacía.xlsx", nil)
	assert.True(t, errors.Is(err, ErrExtraction))
	assert.Contains(t, err.Error(), "no rows found")
}
