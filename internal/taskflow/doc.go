// Package taskflow fetches a user's tasks from the TaskFlow API and renders
// them as text for the get_tasks MCP tool.
//
// A Fetcher issues exactly one GET {base}/tasks per call, authenticated with
// the caller's bearer token. There is no retry and no caching. Failures are
// returned as *Error with one of four kinds:
//
//   - KindAuthentication: the API answered 401
//   - KindUpstreamStatus: any other status than 200
//   - KindUpstreamLogic: 200 without "success": true
//   - KindTransport: network failure, timeout, or an undecodable body
//
// FetchTasks folds both outcomes into the single string the tool returns:
//
//	fetcher, err := taskflow.NewFetcher(taskflow.Config{
//	    BaseURL: "http://localhost:3000/api",
//	    Tokens:  resolver,
//	})
//	text := fetcher.FetchTasks(ctx)
//
// Task records are decoded leniently: missing or mistyped fields fall back
// to their defaults ("Untitled" title, empty id and created_at, not
// completed) so one odd record never fails the listing.
package taskflow
