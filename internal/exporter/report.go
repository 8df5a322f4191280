package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"invcli/internal/aggregate"
	"invcli/internal/snapshot"
)

// ReportHeaders is the fixed column order of the aggregated report.
var ReportHeaders = []string{
	"sn",
	"first_seen",
	"last_seen",
	"first_col_a",
	"first_col_b",
	"first_col_c",
	"first_col_d",
	"first_col_e",
	"first_col_f",
	"first_col_g",
	"last_col_a",
	"last_col_b",
	"last_col_c",
	"last_col_d",
	"last_col_e",
	"last_col_f",
	"last_col_g",
}

// ReportWriter writes the final aggregate. It implements the
// pipeline's Sink contract.
type ReportWriter struct {
	logger *slog.Logger
}

// NewReportWriter creates a report writer
func NewReportWriter(logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWriter{logger: logger}
}

// Write renders inv to location. A .csv extension selects CSV output;
// anything else is written as an Excel workbook. Rows are ordered
// ascending by SN, so repeated runs over the same input produce
// identical files.
func (w *ReportWriter) Write(ctx context.Context, inv *aggregate.Inventory, location string) error {
	records := inv.Records()

	w.logger.InfoContext(ctx, "writing aggregated report",
		slog.String("output", location),
		slog.Int("record_count", len(records)))

	if dir := filepath.Dir(location); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if strings.EqualFold(filepath.Ext(location), ".csv") {
		return writeCSV(location, records)
	}
	return writeExcel(location, records)
}

// reportRow flattens one record into the report's column order
func reportRow(rec aggregate.Record) []string {
	row := make([]string, 0, len(ReportHeaders))
	row = append(row,
		rec.SN,
		rec.FirstSeen.Format(snapshot.DateLayout),
		rec.LastSeen.Format(snapshot.DateLayout),
	)
	row = append(row, rec.First[:]...)
	row = append(row, rec.Last[:]...)
	return row
}
