package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix namespaces every environment variable read by Load
const EnvPrefix = "IAPD"

// Config represents the complete application configuration
type Config struct {
	Convert   ConvertConfig   `yaml:"convert" envconfig:"CONVERT"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// ConvertConfig contains the batch conversion settings
type ConvertConfig struct {
	InputDir   string `yaml:"input_dir" envconfig:"INPUT_DIR" default:"xml" validate:"required"`
	OutputFile string `yaml:"output_file" envconfig:"OUTPUT_FILE" default:"output.csv" validate:"required"`
	XLSX       bool   `yaml:"xlsx" envconfig:"XLSX" default:"false"`
	BOM        bool   `yaml:"bom" envconfig:"BOM" default:"false"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json" validate:"oneof=json text"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/iapdcsv.log"`
}

// TelemetryConfig contains tracing and metrics export settings
type TelemetryConfig struct {
	// TraceExporter is "stdout" or "none"
	TraceExporter string `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none" validate:"oneof=stdout none"`
	TraceFile     string `yaml:"trace_file" envconfig:"TRACE_FILE" default:"logs/traces.json"`
	// MetricsFile is a Prometheus textfile path; empty disables metrics export
	MetricsFile string `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// Load from config file if exists
	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config. A value explicitly set in
// the environment wins; otherwise the file value replaces the env default.
func mergeConfigs(fileConfig, envConfig Config) Config {
	pick := func(envKey, envVal, fileVal string) string {
		if _, ok := os.LookupEnv(EnvPrefix + "_" + envKey); ok || fileVal == "" {
			return envVal
		}
		return fileVal
	}
	pickBool := func(envKey string, envVal, fileVal bool) bool {
		if _, ok := os.LookupEnv(EnvPrefix + "_" + envKey); ok {
			return envVal
		}
		return envVal || fileVal
	}

	envConfig.Convert.InputDir = pick("CONVERT_INPUT_DIR", envConfig.Convert.InputDir, fileConfig.Convert.InputDir)
	envConfig.Convert.OutputFile = pick("CONVERT_OUTPUT_FILE", envConfig.Convert.OutputFile, fileConfig.Convert.OutputFile)
	envConfig.Convert.XLSX = pickBool("CONVERT_XLSX", envConfig.Convert.XLSX, fileConfig.Convert.XLSX)
	envConfig.Convert.BOM = pickBool("CONVERT_BOM", envConfig.Convert.BOM, fileConfig.Convert.BOM)

	envConfig.Logging.Level = pick("LOGGING_LEVEL", envConfig.Logging.Level, fileConfig.Logging.Level)
	envConfig.Logging.Format = pick("LOGGING_FORMAT", envConfig.Logging.Format, fileConfig.Logging.Format)
	envConfig.Logging.Output = pick("LOGGING_OUTPUT", envConfig.Logging.Output, fileConfig.Logging.Output)
	envConfig.Logging.FilePath = pick("LOGGING_FILE_PATH", envConfig.Logging.FilePath, fileConfig.Logging.FilePath)

	envConfig.Telemetry.TraceExporter = pick("TELEMETRY_TRACE_EXPORTER", envConfig.Telemetry.TraceExporter, fileConfig.Telemetry.TraceExporter)
	envConfig.Telemetry.TraceFile = pick("TELEMETRY_TRACE_FILE", envConfig.Telemetry.TraceFile, fileConfig.Telemetry.TraceFile)
	envConfig.Telemetry.MetricsFile = pick("TELEMETRY_METRICS_FILE", envConfig.Telemetry.MetricsFile, fileConfig.Telemetry.MetricsFile)

	return envConfig
}

// Validate checks the configuration using its validate tags
func (c *Config) Validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	c.Logging.Format = strings.ToLower(c.Logging.Format)

	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/iapdcsv.log"
	}

	return nil
}

// configFileLocations are checked in order by getConfigFilePath
var configFileLocations = []string{
	"config.yaml",
	"configs/config.yaml",
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG_FILE"); p != "" {
		return p
	}

	for _, location := range configFileLocations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Convert: ConvertConfig{
			InputDir:   "xml",
			OutputFile: "output.csv",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/iapdcsv.log",
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
			TraceFile:     "logs/traces.json",
		},
	}
}
