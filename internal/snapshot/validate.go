package snapshot

import "fmt"

const (
	// ColumnCount is the fixed width of a snapshot table, columns A-G.
	ColumnCount = 7
	// SNColumn is the zero-based position of the serial number column
	// (column C).
	SNColumn = 2
	// SNHeader is the required header of the serial number column.
	// The match is exact: no trimming, no case folding, so header
	// drift is caught early.
	SNHeader = "SN"
)

// ValidateHeader checks a parsed header row against the required
// schema: at least seven columns, with column C headed exactly "SN".
// The returned error carries a human-readable reason. Cell-level data
// is not the validator's concern; the parser handles that per row.
func ValidateHeader(header []string) error {
	if len(header) < ColumnCount {
		return fmt.Errorf("expected at least %d columns (A-G), found %d", ColumnCount, len(header))
	}
	if header[SNColumn] != SNHeader {
		return fmt.Errorf("expected column C header %q, found %q", SNHeader, header[SNColumn])
	}
	return nil
}
