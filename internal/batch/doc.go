// Package batch converts a directory of IAPD individual XML files into a
// single CSV table.
//
// A run never overwrites anything. When the requested output path exists the
// driver picks the first free numbered variant (output_01.csv, output_02.csv,
// ...). Every input is flattened completely before any of its rows are
// written, so a file that fails contributes nothing and the batch moves on.
// The header row is taken from the first file that flattens successfully.
//
// Progress is reported through an Observer and per-file outcomes through a
// MetricsRecorder; both are optional.
package batch
