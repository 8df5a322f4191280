package exporter

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"invcli/internal/aggregate"
	"invcli/internal/snapshot"
)

func buildInventory(t *testing.T) *aggregate.Inventory {
	t.Helper()

	engine := aggregate.NewEngine(nil)
	d1, _ := time.Parse(snapshot.DateLayout, "2024-01-01")
	d2, _ := time.Parse(snapshot.DateLayout, "2024-02-01")

	first := snapshot.Row{SN: "A1"}
	copy(first.Cells[:], []string{"TAG-1", "ThinkPad", "A1", "Warehouse1", "ops", "in-use", ""})
	second := snapshot.Row{SN: "B2"}
	copy(second.Cells[:], []string{"TAG-2", "Latitude", "B2", "Warehouse2", "it", "stock", ""})
	engine.Fold(context.Background(), d1, &snapshot.Table{File: "s1.xlsx", Rows: []snapshot.Row{first, second}})

	moved := snapshot.Row{SN: "A1"}
	copy(moved.Cells[:], []string{"TAG-1", "ThinkPad", "A1", "Warehouse3", "ops", "in-use", "moved"})
	engine.Fold(context.Background(), d2, &snapshot.Table{File: "s2.xlsx", Rows: []snapshot.Row{moved}})

	return engine.Inventory()
}

func TestWriteExcelReport(t *testing.T) {
	inv := buildInventory(t)
	path := filepath.Join(t.TempDir(), "reports", "aggregated.xlsx")

	w := NewReportWriter(nil)
	require.NoError(t, w.Write(context.Background(), inv, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, ReportHeaders, rows[0][:len(ReportHeaders)])

	// rows sorted by SN
	assert.Equal(t, "A1", rows[1][0])
	assert.Equal(t, "B2", rows[2][0])

	// A1 carries both first and last state
	assert.Equal(t, "2024-01-01", rows[1][1])
	assert.Equal(t, "2024-02-01", rows[1][2])
	assert.Equal(t, "Warehouse1", rows[1][6]) // first_col_d
	assert.Equal(t, "Warehouse3", rows[1][13]) // last_col_d
}

func TestWriteCSVReport(t *testing.T) {
	inv := buildInventory(t)
	path := filepath.Join(t.TempDir(), "aggregated.csv")

	w := NewReportWriter(nil)
	require.NoError(t, w.Write(context.Background(), inv, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// BOM prefix for Excel
	require.True(t, strings.HasPrefix(string(data), "\xEF\xBB\xBF"))

	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\xEF\xBB\xBF")))
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ReportHeaders, rows[0])
	assert.Equal(t, "A1", rows[1][0])
	assert.Equal(t, "B2", rows[2][0])
}

func TestWriteEmptyInventory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	w := NewReportWriter(nil)
	require.NoError(t, w.Write(context.Background(), aggregate.NewInventory(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(reportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}

// Writing the same inventory twice produces byte-identical CSV output.
func TestWriteDeterministic(t *testing.T) {
	inv := buildInventory(t)
	w := NewReportWriter(nil)

	dir := t.TempDir()
	p1 := filepath.Join(dir, "one.csv")
	p2 := filepath.Join(dir, "two.csv")
	require.NoError(t, w.Write(context.Background(), inv, p1))
	require.NoError(t, w.Write(context.Background(), inv, p2))

	b1, err := os.ReadFile(p1)
	require.NoError(t, err)
	b2, err := os.ReadFile(p2)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}
