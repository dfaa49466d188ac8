package taskflow

import (
	"errors"
	"fmt"
)

// Kind classifies why a fetch failed.
type Kind string

const (
	// KindAuthentication means the API answered 401.
	KindAuthentication Kind = "authentication"
	// KindUpstreamStatus means the API answered with a status other than 200 or 401.
	KindUpstreamStatus Kind = "upstream_status"
	// KindUpstreamLogic means the API answered 200 without success: true.
	KindUpstreamLogic Kind = "upstream_logic"
	// KindTransport covers network failures, timeouts, and undecodable bodies.
	KindTransport Kind = "transport"
)

// Messages returned to MCP clients.
const (
	msgAuthentication = "Error: Authentication failed. Your token may be invalid or expired."
	msgUpstreamStatus = "Error: Failed to fetch tasks (Status: %d)"
	msgUpstreamLogic  = "Error: API returned unsuccessful response"
)

// Error is returned by Fetcher.Fetch for every failed fetch.
type Error struct {
	Kind Kind
	// StatusCode is the HTTP status received, or 0 if none was.
	StatusCode int
	// Err is the underlying fault for KindTransport.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindAuthentication:
		return "taskflow: authentication failed"
	case KindUpstreamStatus:
		return fmt.Sprintf("taskflow: unexpected status %d", e.StatusCode)
	case KindUpstreamLogic:
		return "taskflow: unsuccessful response"
	default:
		if e.Err != nil {
			return "taskflow: " + e.Err.Error()
		}
		return "taskflow: " + string(e.Kind)
	}
}

// Unwrap returns the underlying fault.
func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the text shown to MCP clients for this failure.
func (e *Error) Message() string {
	switch e.Kind {
	case KindAuthentication:
		return msgAuthentication
	case KindUpstreamStatus:
		return fmt.Sprintf(msgUpstreamStatus, e.StatusCode)
	case KindUpstreamLogic:
		return msgUpstreamLogic
	default:
		if e.Err != nil {
			return "Error: " + e.Err.Error()
		}
		return "Error: " + string(e.Kind)
	}
}

// KindOf returns the Kind of err, or "" if err is not a *Error.
func KindOf(err error) Kind {
	var tfErr *Error
	if errors.As(err, &tfErr) {
		return tfErr.Kind
	}
	return ""
}

func transportError(err error) *Error {
	return &Error{Kind: KindTransport, Err: err}
}
