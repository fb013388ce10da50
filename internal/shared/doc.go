// Package shared holds helpers used by more than one package of the
// converter. The testutil subpackage captures slog output so tests can
// assert on what was logged.
package shared
