package batch

import "time"

// Observer receives progress events from a running batch. Calls happen on
// the goroutine that called Run.
type Observer interface {
	FileStarted(index, total int, name string)
	FileFinished(index, total int, result FileResult)
	BatchFinished(report *Report)
}

// MetricsRecorder receives one observation per processed file
type MetricsRecorder interface {
	FileProcessed(status string, rows int, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) FileStarted(int, int, string)     {}
func (nopObserver) FileFinished(int, int, FileResult) {}
func (nopObserver) BatchFinished(*Report)             {}

type nopRecorder struct{}

func (nopRecorder) FileProcessed(string, int, time.Duration) {}
