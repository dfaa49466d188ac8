// Package tasks_tools registers the TaskFlow MCP tools.
//
// get_tasks takes no arguments. It forwards the caller's bearer token to
// GET /tasks on the TaskFlow API and returns the listing as plain text.
// Failures come back as tool results with IsError set, carrying the same
// text a client would otherwise show to the user.
package tasks_tools
