package exporter

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"invcli/internal/aggregate"
)

// reportSheet is the sheet holding the aggregated table.
const reportSheet = "Aggregated"

// writeExcel renders the records as a single-sheet workbook
func writeExcel(path string, records []aggregate.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), reportSheet); err != nil {
		return fmt.Errorf("failed to name report sheet: %w", err)
	}

	if err := setRow(f, 1, ReportHeaders); err != nil {
		return err
	}
	for i, rec := range records {
		if err := setRow(f, i+2, reportRow(rec)); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}
