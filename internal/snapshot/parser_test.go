package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"invcli/internal/errs"
)

var testHeader = []any{"Asset Tag", "Model", "SN", "Location", "Owner", "Status", "Notes"}

// workbookBytes builds an in-memory xlsx with the given rows on the
// first sheet.
func workbookBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseValidSnapshot(t *testing.T) {
	raw := workbookBytes(t, [][]any{
		testHeader,
		{"TAG-1", "ThinkPad", "A1", "Warehouse1", "ops", "in-use", ""},
		{"TAG-2", "Latitude", "B2", "Warehouse2", "ops", "stock", "spare"},
	})

	table, err := Parse("2024-01-01_Raw_Data.xlsx", raw)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01_Raw_Data.xlsx", table.File)
	assert.Len(t, table.Header, ColumnCount)
	assert.Equal(t, 0, table.Dropped)
	require.Len(t, table.Rows, 2)

	assert.Equal(t, "A1", table.Rows[0].SN)
	assert.Equal(t, [ColumnCount]string{"TAG-1", "ThinkPad", "A1", "Warehouse1", "ops", "in-use", ""}, table.Rows[0].Cells)
	assert.Equal(t, "B2", table.Rows[1].SN)
}

func TestParseDropsEmptySNRows(t *testing.T) {
	raw := workbookBytes(t, [][]any{
		testHeader,
		{"TAG-1", "ThinkPad", "A1", "Warehouse1", "ops", "in-use", ""},
		{"TAG-2", "Latitude", "", "Warehouse2", "ops", "stock", ""},
		{"TAG-3", "XPS", "   ", "Warehouse3", "ops", "stock", ""},
		{"TAG-4", "MacBook", " C3 ", "Warehouse1", "ops", "in-use", ""},
	})

	table, err := Parse("snap.xlsx", raw)
	require.NoError(t, err)

	assert.Equal(t, 2, table.Dropped)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "A1", table.Rows[0].SN)
	// SN is trimmed for keying, raw cell preserved
	assert.Equal(t, "C3", table.Rows[1].SN)
	assert.Equal(t, " C3 ", table.Rows[1].Cells[SNColumn])
}

func TestParseSchemaFailures(t *testing.T) {
	tests := []struct {
		name       string
		rows       [][]any
		wantReason string
	}{
		{
			name:       "too few columns",
			rows:       [][]any{{"A", "B", "SN"}},
			wantReason: "at least 7 columns",
		},
		{
			name:       "wrong header name",
			rows:       [][]any{{"A", "B", "Serial", "D", "E", "F", "G"}},
			wantReason: `expected column C header "SN", found "Serial"`,
		},
		{
			name:       "case drift",
			rows:       [][]any{{"A", "B", "Sn", "D", "E", "F", "G"}},
			wantReason: `found "Sn"`,
		},
		{
			name:       "padded header",
			rows:       [][]any{{"A", "B", "SN ", "D", "E", "F", "G"}},
			wantReason: `found "SN "`,
		},
		{
			name:       "empty workbook",
			rows:       nil,
			wantReason: "no header row",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("snap.xlsx", workbookBytes(t, tt.rows))
			require.Error(t, err)

			pf, ok := errs.IsParseFailure(err)
			require.True(t, ok)
			assert.Equal(t, errs.SchemaInvalid, pf.Kind)
			assert.Equal(t, "snap.xlsx", pf.File)
			assert.Contains(t, pf.Reason, tt.wantReason)
		})
	}
}

func TestParseUnreadableBytes(t *testing.T) {
	_, err := Parse("corrupt.xlsx", []byte("this is not a workbook"))
	require.Error(t, err)

	pf, ok := errs.IsParseFailure(err)
	require.True(t, ok)
	assert.Equal(t, errs.Unreadable, pf.Kind)
	assert.Equal(t, "corrupt.xlsx", pf.File)
}

func TestValidateHeader(t *testing.T) {
	ok := []string{"A", "B", "SN", "D", "E", "F", "G"}
	assert.NoError(t, ValidateHeader(ok))

	extra := append(append([]string{}, ok...), "H")
	assert.NoError(t, ValidateHeader(extra), "more than seven columns is fine")

	assert.Error(t, ValidateHeader(ok[:6]))
	assert.Error(t, ValidateHeader([]string{"A", "B", "sn", "D", "E", "F", "G"}))
}
