// Package config provides configuration loading for the IAPD converter.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern IAPD_* for namespacing:
//
//	IAPD_CONVERT_INPUT_DIR=xml
//	IAPD_CONVERT_OUTPUT_FILE=output.csv
//	IAPD_LOGGING_LEVEL=info
//	IAPD_TELEMETRY_METRICS_FILE=metrics.prom
//	IAPD_CONFIG_FILE=/etc/iapdcsv/config.yaml
//
// Without IAPD_CONFIG_FILE the loader looks for config.yaml and
// configs/config.yaml relative to the working directory.
//
// Command-line flags are applied on top of the loaded configuration by the
// cmd/iapdcsv entry point.
package config
