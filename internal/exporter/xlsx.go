package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet the XLSX export writes to
const SheetName = "Individuals"

// XLSXWriter streams a table into a single-sheet workbook. The workbook is
// serialised to out on Close.
type XLSXWriter struct {
	out    io.WriteCloser
	file   *excelize.File
	stream *excelize.StreamWriter
	row    int
}

// NewXLSXWriter creates a workbook with one sheet named SheetName
func NewXLSXWriter(out io.WriteCloser) (*XLSXWriter, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create stream writer: %w", err)
	}

	return &XLSXWriter{out: out, file: f, stream: sw}, nil
}

// WriteHeader writes the header row
func (x *XLSXWriter) WriteHeader(headers []string) error {
	return x.writeRow(headers)
}

// WriteRecords appends records below the rows already written
func (x *XLSXWriter) WriteRecords(records [][]string) error {
	for _, record := range records {
		if err := x.writeRow(record); err != nil {
			return err
		}
	}
	return nil
}

func (x *XLSXWriter) writeRow(values []string) error {
	x.row++
	cell, err := excelize.CoordinatesToCellName(1, x.row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", x.row, err)
	}

	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := x.stream.SetRow(cell, row); err != nil {
		return fmt.Errorf("failed to write row %d: %w", x.row, err)
	}
	return nil
}

// Close flushes the sheet and writes the workbook to out
func (x *XLSXWriter) Close() error {
	defer x.file.Close()

	if err := x.stream.Flush(); err != nil {
		x.out.Close()
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := x.file.Write(x.out); err != nil {
		x.out.Close()
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return x.out.Close()
}
