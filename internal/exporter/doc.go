// Package exporter writes flattened tables to disk.
//
// This package contains two writers sharing the TableWriter interface:
//
// StreamWriter: CSV output through encoding/csv, with an optional UTF-8 BOM
// for Excel compatibility. Every batch of records is flushed immediately.
//
// XLSXWriter: an optional companion workbook built with excelize, holding the
// same header and rows on a single "Individuals" sheet.
//
// Both writers take an io.WriteCloser and own it from then on.
//
// Example usage:
//
//	f, _ := fs.Create("output.csv")
//	w := exporter.NewStreamWriter(f, false)
//	_ = w.WriteHeader(headers)
//	_ = w.WriteRecords(rows)
//	err := w.Close()
package exporter
