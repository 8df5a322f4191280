// Package exporter writes the aggregated inventory to its final
// report file, as an Excel workbook or a CSV chosen by the output
// file's extension.
package exporter
