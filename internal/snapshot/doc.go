// Package snapshot selects, orders, and parses dated inventory
// snapshot files.
//
// A snapshot is one Excel export of the full inventory as of a single
// date. The filename carries the date; the workbook's first sheet
// carries a fixed seven-column table (A-G) whose column C must be
// headed exactly "SN".
package snapshot
