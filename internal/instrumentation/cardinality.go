package instrumentation

import (
	"strconv"
	"strings"
)

// Cardinality management helpers for metrics.
// Raw user identifiers and status codes must pass through these before
// becoming label values.

// ExtractUserDomain extracts the domain part from an email address.
//
// Example:
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("unknown")           // "unknown"
//	ExtractUserDomain("")                  // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return StatusUnknown
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}

	return StatusUnknown
}

// StatusClass collapses an HTTP status code into its class ("2xx", "4xx", ...).
// A zero code means no response was received and maps to "none".
func StatusClass(code int) string {
	if code <= 0 {
		return "none"
	}
	if code < 100 || code > 599 {
		return StatusUnknown
	}
	return strconv.Itoa(code/100) + "xx"
}

// Operation types for upstream API metrics.
const (
	OperationList = "list"
)
