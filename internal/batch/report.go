package batch

import (
	"time"

	"github.com/samber/lo"
)

// Status is the outcome of one input file
type Status string

const (
	// StatusOK means every row of the file was written
	StatusOK Status = "ok"
	// StatusParseFailed means the file is not well-formed XML
	StatusParseFailed Status = "parse_failed"
	// StatusFailed covers every other error while flattening the file
	StatusFailed Status = "failed"
)

// FileResult records what happened to one input file. A failed file
// contributed no rows to the output.
type FileResult struct {
	Name       string
	Path       string
	Status     Status
	Rows       int
	Misaligned int
	Err        error
	Duration   time.Duration
}

// Report collects the outcome of a batch run
type Report struct {
	RunID      string
	OutputPath string
	// XLSXPath is empty unless the workbook export was enabled
	XLSXPath string
	// Headers is the header row written to the output, nil if no file succeeded
	Headers []string
	Files   []FileResult
}

// Succeeded returns the results of the files whose rows were written
func (r *Report) Succeeded() []FileResult {
	return lo.Filter(r.Files, func(f FileResult, _ int) bool { return f.Status == StatusOK })
}

// Failed returns the results of the files that contributed nothing
func (r *Report) Failed() []FileResult {
	return lo.Filter(r.Files, func(f FileResult, _ int) bool { return f.Status != StatusOK })
}

// TotalRows is the number of data rows in the output
func (r *Report) TotalRows() int {
	return lo.SumBy(r.Files, func(f FileResult) int { return f.Rows })
}

// Misaligned is the number of written rows whose width differs from the header
func (r *Report) Misaligned() int {
	return lo.SumBy(r.Files, func(f FileResult) int { return f.Misaligned })
}
