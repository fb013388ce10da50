package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM helps Excel recognise UTF-8 CSV files
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TableWriter receives a table as a header followed by batches of rows
type TableWriter interface {
	WriteHeader(headers []string) error
	WriteRecords(records [][]string) error
	Close() error
}

// StreamWriter provides streaming CSV writing. Nothing, not even the BOM,
// is written until the first header or record arrives, so a batch with no
// input leaves an empty file.
type StreamWriter struct {
	out     io.WriteCloser
	writer  *csv.Writer
	bom     bool
	started bool
	records int
}

// NewStreamWriter wraps out in a CSV stream writer
func NewStreamWriter(out io.WriteCloser, bomPrefix bool) *StreamWriter {
	return &StreamWriter{
		out:    out,
		writer: csv.NewWriter(out),
		bom:    bomPrefix,
	}
}

func (s *StreamWriter) start() error {
	if s.started {
		return nil
	}
	s.started = true
	if s.bom {
		if _, err := s.out.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}
	return nil
}

// WriteHeader writes the header row
func (s *StreamWriter) WriteHeader(headers []string) error {
	if err := s.start(); err != nil {
		return err
	}
	if err := s.writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	return s.flush()
}

// WriteRecords writes records and flushes them, so a disk error surfaces on
// the batch that caused it
func (s *StreamWriter) WriteRecords(records [][]string) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.start(); err != nil {
		return err
	}
	for i, record := range records {
		if err := s.writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", s.records+i, err)
		}
	}
	s.records += len(records)
	return s.flush()
}

// Records returns the number of data records written so far
func (s *StreamWriter) Records() int {
	return s.records
}

func (s *StreamWriter) flush() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// Close flushes and closes the stream writer
func (s *StreamWriter) Close() error {
	if err := s.flush(); err != nil {
		s.out.Close()
		return err
	}
	return s.out.Close()
}
