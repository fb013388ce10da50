package batch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "iapdcli/internal/errors"
	"iapdcli/internal/exporter"
	"iapdcli/internal/files"
	"iapdcli/internal/flatten"
	"iapdcli/internal/infrastructure"
)

// Driver converts a directory of record files into one CSV table
type Driver struct {
	fs        afero.Fs
	discovery *files.Discovery
	manager   *files.Manager
	logger    *slog.Logger
	tracer    trace.Tracer
	observer  Observer
	metrics   MetricsRecorder
	bom       bool
	xlsx      bool
}

// Option configures a Driver
type Option func(*Driver)

// WithLogger sets the logger; nil keeps slog.Default
func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithTracer sets the tracer used for the batch and per-file spans
func WithTracer(tracer trace.Tracer) Option {
	return func(d *Driver) {
		if tracer != nil {
			d.tracer = tracer
		}
	}
}

// WithObserver installs a progress observer
func WithObserver(o Observer) Option {
	return func(d *Driver) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithMetrics installs a per-file metrics recorder
func WithMetrics(m MetricsRecorder) Option {
	return func(d *Driver) {
		if m != nil {
			d.metrics = m
		}
	}
}

// WithBOM prefixes the CSV output with a UTF-8 byte order mark
func WithBOM(enabled bool) Option {
	return func(d *Driver) { d.bom = enabled }
}

// WithXLSX also writes the table to a workbook next to the CSV file
func WithXLSX(enabled bool) Option {
	return func(d *Driver) { d.xlsx = enabled }
}

// New creates a driver working on fs
func New(fs afero.Fs, opts ...Option) *Driver {
	d := &Driver{
		fs:        fs,
		discovery: files.NewDiscovery(fs),
		manager:   files.NewManager(fs),
		logger:    slog.Default(),
		tracer:    otel.Tracer(infrastructure.TracerName),
		observer:  nopObserver{},
		metrics:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = infrastructure.WithComponent(d.logger, "batch")
	return d
}

// ResolveOutputPath returns path, or the first free numbered variant of it
// (output_01.csv, output_02.csv, ...) if path already exists
func (d *Driver) ResolveOutputPath(path string) (string, error) {
	resolved, err := d.manager.NextFreePath(path)
	if err != nil {
		return "", apperrors.NewStorageError("failed to resolve output path", err).
			WithContext("path", path)
	}
	return resolved, nil
}

// DiscoverInputs lists the .xml files directly inside dir
func (d *Driver) DiscoverInputs(dir string) ([]files.FileInfo, error) {
	isDir, err := d.manager.IsDirectory(dir)
	if err != nil {
		d.logger.Error("Input directory does not exist",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return nil, apperrors.NewNotFoundError("input directory "+dir, err)
	}
	if !isDir {
		d.logger.Error("Input path is not a directory", slog.String("path", dir))
		return nil, apperrors.NewValidationError(dir + " is not a directory")
	}

	inputs, err := d.discovery.FindXMLFiles(dir)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list input directory", err).
			WithContext("dir", dir)
	}
	if len(inputs) == 0 {
		d.logger.Warn("No XML files found",
			slog.String("directory", dir),
			slog.String("pattern", files.XMLPattern))
	}
	return inputs, nil
}

// Run converts every .xml file of inputDir into one new CSV file derived from
// outputPath. Per-file failures are recorded in the report and never stop the
// batch. The returned error is non-nil only when the output itself cannot be
// produced or ctx is cancelled; the report is returned in both cases when the
// output file was created.
func (d *Driver) Run(ctx context.Context, inputDir, outputPath string) (*Report, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	report := &Report{RunID: infrastructure.GetTraceID(ctx)}

	ctx, span := d.tracer.Start(ctx, "batch.Run", trace.WithAttributes(
		attribute.String("input_dir", inputDir),
		attribute.String("output_path", outputPath),
	))
	defer span.End()

	out, err := d.ResolveOutputPath(outputPath)
	if err != nil {
		return nil, d.fail(span, err)
	}
	report.OutputPath = out

	inputs, err := d.DiscoverInputs(inputDir)
	if err != nil {
		return nil, d.fail(span, err)
	}

	d.logger.InfoContext(ctx, "Starting XML conversion",
		slog.String("input_dir", inputDir),
		slog.String("output_file", out),
		slog.Int("files", len(inputs)))

	writers, err := d.openWriters(ctx, report)
	if err != nil {
		return nil, d.fail(span, err)
	}

	runErr := d.processAll(ctx, inputs, writers, report)

	closeErr := writers.Close()
	if runErr == nil && closeErr != nil {
		runErr = apperrors.NewStorageError("failed to finalise output", closeErr).
			WithContext("path", report.OutputPath)
	}
	if runErr != nil {
		return report, d.fail(span, runErr)
	}

	span.SetAttributes(
		attribute.Int("files_ok", len(report.Succeeded())),
		attribute.Int("files_failed", len(report.Failed())),
		attribute.Int("rows", report.TotalRows()))

	d.logger.InfoContext(ctx, "XML conversion completed",
		slog.Int("processed_files", len(report.Succeeded())),
		slog.Int("failed_files", len(report.Failed())),
		slog.Int("rows", report.TotalRows()),
		slog.String("output_path", report.OutputPath))

	d.observer.BatchFinished(report)
	return report, nil
}

func (d *Driver) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// openWriters creates the CSV output and, when enabled, the workbook
func (d *Driver) openWriters(ctx context.Context, report *Report) (multiWriter, error) {
	csvFile, err := d.manager.CreateExclusive(report.OutputPath)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create output file", err).
			WithContext("path", report.OutputPath)
	}
	writers := multiWriter{exporter.NewStreamWriter(csvFile, d.bom)}

	if !d.xlsx {
		return writers, nil
	}

	xlsxPath, err := d.ResolveOutputPath(strings.TrimSuffix(report.OutputPath, filepath.Ext(report.OutputPath)) + ".xlsx")
	if err != nil {
		writers.Close()
		return nil, err
	}
	xlsxFile, err := d.manager.CreateExclusive(xlsxPath)
	if err != nil {
		writers.Close()
		return nil, apperrors.NewStorageError("failed to create workbook", err).
			WithContext("path", xlsxPath)
	}
	xw, err := exporter.NewXLSXWriter(xlsxFile)
	if err != nil {
		xlsxFile.Close()
		writers.Close()
		return nil, apperrors.NewStorageError("failed to create workbook", err)
	}
	report.XLSXPath = xlsxPath

	d.logger.DebugContext(ctx, "Workbook export enabled", slog.String("path", xlsxPath))
	return append(writers, xw), nil
}

func (d *Driver) processAll(ctx context.Context, inputs []files.FileInfo, w multiWriter, report *Report) error {
	headerWritten := false

	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			d.logger.WarnContext(ctx, "Conversion cancelled",
				slog.Int("remaining_files", len(inputs)-i))
			return err
		}

		d.logger.InfoContext(ctx, "Processing file",
			slog.Int("current", i+1),
			slog.Int("total", len(inputs)),
			slog.String("filename", input.Name))
		d.observer.FileStarted(i+1, len(inputs), input.Name)

		result, table := d.flattenFile(ctx, input)

		if result.Status == StatusOK {
			if !headerWritten {
				if err := w.WriteHeader(table.Headers); err != nil {
					return apperrors.NewStorageError("failed to write header row", err)
				}
				report.Headers = table.Headers
				headerWritten = true
			}
			if err := w.WriteRecords(table.Rows); err != nil {
				return apperrors.NewStorageError("failed to write rows", err).
					WithContext("file", input.Name)
			}
			result.Misaligned = lo.CountBy(table.Rows, func(row []string) bool {
				return len(row) != len(report.Headers)
			})
			if result.Misaligned > 0 {
				d.logger.WarnContext(ctx, "Rows do not line up with the header",
					slog.String("filename", input.Name),
					slog.Int("misaligned_rows", result.Misaligned))
			}
		}

		report.Files = append(report.Files, result)
		d.metrics.FileProcessed(string(result.Status), result.Rows, result.Duration)
		d.observer.FileFinished(i+1, len(inputs), result)
	}

	return nil
}

// flattenFile flattens one input completely in memory, so a failure leaves
// nothing of the file in the output
func (d *Driver) flattenFile(ctx context.Context, input files.FileInfo) (FileResult, flatten.Table) {
	ctx, span := d.tracer.Start(ctx, "batch.flattenFile",
		trace.WithAttributes(attribute.String("file", input.Name)))
	defer span.End()

	start := time.Now()
	result := FileResult{Name: input.Name, Path: input.Path}

	table, err := flatten.FlattenFile(d.fs, input.Path)
	result.Duration = time.Since(start)

	switch {
	case err == nil:
		result.Status = StatusOK
		result.Rows = len(table.Rows)
		span.SetAttributes(attribute.Int("rows", result.Rows))
		d.logger.DebugContext(ctx, "File flattened",
			slog.String("filename", input.Name),
			slog.Int("rows", result.Rows),
			slog.Duration("duration", result.Duration))
	case errors.Is(err, flatten.ErrParse):
		result.Status = StatusParseFailed
		result.Err = err
		d.fail(span, err)
		d.logger.ErrorContext(ctx, "Error parsing XML file",
			slog.String("filename", input.Name),
			slog.String("error", err.Error()))
	default:
		result.Status = StatusFailed
		result.Err = err
		d.fail(span, err)
		d.logger.ErrorContext(ctx, "Error processing XML file",
			slog.String("filename", input.Name),
			slog.String("error", err.Error()))
	}

	return result, table
}

// multiWriter fans a table out to several writers
type multiWriter []exporter.TableWriter

func (m multiWriter) WriteHeader(headers []string) error {
	for _, w := range m {
		if err := w.WriteHeader(headers); err != nil {
			return err
		}
	}
	return nil
}

func (m multiWriter) WriteRecords(records [][]string) error {
	for _, w := range m {
		if err := w.WriteRecords(records); err != nil {
			return err
		}
	}
	return nil
}

func (m multiWriter) Close() error {
	var errs []error
	for _, w := range m {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
