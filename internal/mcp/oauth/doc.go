// Package oauth handles bearer tokens on the MCP HTTP transport.
//
// The server is an OAuth 2.0 protected resource that never issues or
// validates tokens itself. Supabase Auth issues them and the TaskFlow API
// validates them. This package only:
//
//   - Serves Protected Resource Metadata (RFC 9728) pointing clients at the
//     Supabase authorization server
//   - Answers unauthenticated MCP requests with a 401 challenge
//   - Carries the presented token to tool handlers via the request context
//   - Binds tokens to MCP sessions in an mcp-oauth TokenStore so calls that
//     reach a handler without the header can still be served
//
// Resolver implements the lookup used by the taskflow Fetcher.
package oauth
