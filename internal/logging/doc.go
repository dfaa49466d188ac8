// Package logging provides structured logging utilities for the taskflow-mcp server.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog, text output via charmbracelet/log
//   - PII sanitization (email anonymization, token masking)
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Build the process logger once at startup:
//
//	logger, err := logging.New(os.Stderr, logging.Options{Level: "info", Format: "text"})
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(logger, "tasks.list")
//	logger.Info("fetching tasks", logging.Token(token))
//
// # Security Considerations
//
//   - User emails are hashed to prevent PII leakage while allowing correlation
//   - Tokens are never logged directly, only their presence and length
package logging
