// Package logger provides structured logging for medpanel.
//
// It wraps log/slog:
//
//   - logger.go: Logger interface, handler selection and dynamic level
//   - context.go: Context-aware logging with request IDs
//   - redact.go: Masking of credentials before they reach the output
//
// The CLI logs to stderr so that table/json/yaml output on stdout stays clean.
package logger
