package snapshot

import (
	"bytes"
	"errors"
	"strings"

	"github.com/xuri/excelize/v2"

	"invcli/internal/errs"
)

// Row is one inventory row with a fixed seven-cell shape. Cells holds
// the raw values of columns A-G in position order; the SN cell is
// duplicated in trimmed form for keying.
type Row struct {
	SN    string
	Cells [ColumnCount]string
}

// Table is the parsed, validated content of one snapshot file.
type Table struct {
	File    string
	Header  []string
	Rows    []Row
	Dropped int // rows rejected for an empty or whitespace-only SN
}

// Parse converts raw workbook bytes into a Table.
//
// Bytes that cannot be opened as a workbook yield a ParseFailure of
// kind Unreadable; a header failing schema validation yields kind
// SchemaInvalid. Rows without a usable SN are dropped and counted,
// never fatal. Whether either failure kind aborts the run is the
// orchestrator's policy, not the parser's.
func Parse(file string, raw []byte) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.NewUnreadable(file, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errs.NewUnreadable(file, errors.New("workbook has no sheets"))
	}

	// Snapshot exports carry their table on the first sheet.
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errs.NewUnreadable(file, err)
	}
	if len(rows) == 0 {
		return nil, errs.NewSchemaInvalid(file, "workbook has no header row")
	}

	header := rows[0]
	if err := ValidateHeader(header); err != nil {
		return nil, errs.NewSchemaInvalid(file, err.Error())
	}

	table := &Table{File: file, Header: header[:ColumnCount]}
	for _, cells := range rows[1:] {
		row, ok := buildRow(cells)
		if !ok {
			table.Dropped++
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// buildRow shapes one raw row into the fixed A-G record. ok is false
// when the SN cell is empty or whitespace-only.
func buildRow(cells []string) (Row, bool) {
	var row Row
	// GetRows trims trailing empty cells, so short rows are padded
	// implicitly by the zero values of the fixed array.
	copy(row.Cells[:], cells)

	row.SN = strings.TrimSpace(row.Cells[SNColumn])
	if row.SN == "" {
		return Row{}, false
	}
	return row, true
}
