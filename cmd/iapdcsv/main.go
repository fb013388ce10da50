package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/spf13/afero"

	"iapdcli/internal/batch"
	"iapdcli/internal/config"
	apperrors "iapdcli/internal/errors"
	"iapdcli/internal/infrastructure"
	"iapdcli/pkg/contracts"
)

// CLI holds the command line flags. Flags left unset fall back to the
// IAPD_* environment and the config file.
type CLI struct {
	Input   string `short:"i" help:"Directory containing the IAPD XML files." placeholder:"DIR"`
	Output  string `short:"o" help:"CSV file to create; an existing file is never overwritten." placeholder:"FILE"`
	XLSX    bool   `name:"xlsx" help:"Also write the table to an .xlsx workbook next to the CSV."`
	BOM     bool   `name:"bom" help:"Prefix the CSV with a UTF-8 byte order mark."`
	Verbose bool   `short:"v" help:"Log at debug level."`
	Version bool   `help:"Print version information and exit."`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses args, converts the configured directory and returns the exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cli CLI
	exitCode := -1
	parser, err := kong.New(&cli,
		kong.Name("iapdcsv"),
		kong.Description("Flatten IAPD individual XML reports into one CSV table."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
		// --help asks kong to exit; record the code and return it instead
		kong.Exit(func(code int) {
			if exitCode < 0 {
				exitCode = code
			}
		}),
	)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	_, err = parser.Parse(args)
	if exitCode >= 0 {
		return exitCode
	}
	if err != nil {
		parser.Errorf("%s", err)
		return 2
	}

	if cli.Version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", apperrors.NewConfigError("failed to load configuration", err))
		return 1
	}
	cli.apply(cfg)

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	tel, err := infrastructure.InitializeTelemetry(cfg.Telemetry, logger)
	if err != nil {
		logger.Error("Failed to initialize telemetry", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	logger.Info("Starting iapdcsv",
		slog.String("version", contracts.Version),
		slog.String("input_dir", cfg.Convert.InputDir),
		slog.String("output_file", cfg.Convert.OutputFile))

	driver := batch.New(afero.NewOsFs(),
		batch.WithLogger(logger),
		batch.WithTracer(tel.Tracer),
		batch.WithMetrics(tel.Metrics),
		batch.WithObserver(newConsole(stdout)),
		batch.WithBOM(cfg.Convert.BOM),
		batch.WithXLSX(cfg.Convert.XLSX),
	)

	if _, err := driver.Run(ctx, cfg.Convert.InputDir, cfg.Convert.OutputFile); err != nil {
		logger.Error("Conversion failed", slog.String("error", err.Error()))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// apply overrides cfg with the flags that were given
func (c *CLI) apply(cfg *config.Config) {
	if c.Input != "" {
		cfg.Convert.InputDir = c.Input
	}
	if c.Output != "" {
		cfg.Convert.OutputFile = c.Output
	}
	if c.XLSX {
		cfg.Convert.XLSX = true
	}
	if c.BOM {
		cfg.Convert.BOM = true
	}
	if c.Verbose {
		cfg.Logging.Level = "debug"
	}
}
