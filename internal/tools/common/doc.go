// Package common provides shared plumbing for MCP tool implementations:
// the instrumentation wrapper every tool handler runs through and the
// lookup of the MCP session a call belongs to.
package common
