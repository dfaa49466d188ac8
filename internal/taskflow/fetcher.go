package taskflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/taskflow/taskflow-mcp/internal/instrumentation"
	"github.com/taskflow/taskflow-mcp/internal/logging"
)

const (
	// DefaultTimeout bounds one GET /tasks round trip.
	DefaultTimeout = 10 * time.Second

	tasksPath        = "/tasks"
	maxResponseBytes = 10 << 20
)

// TokenSource supplies the bearer token for the current invocation.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// AccessToken implements TokenSource.
func (f TokenSourceFunc) AccessToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// MetricsRecorder receives one observation per upstream request.
// *instrumentation.Metrics implements it.
type MetricsRecorder interface {
	RecordUpstreamRequest(ctx context.Context, operation string, statusCode int, errorKind string, duration time.Duration)
}

// Config configures a Fetcher.
type Config struct {
	// BaseURL is the TaskFlow API root, e.g. http://localhost:3000/api.
	BaseURL string
	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration
	// Tokens resolves the caller's bearer token.
	Tokens TokenSource
	// Transport is the shared base transport. Nil means http.DefaultTransport.
	Transport http.RoundTripper
	Logger    *slog.Logger
	Metrics   MetricsRecorder
}

// Fetcher performs GET /tasks against the TaskFlow API.
// It holds only immutable configuration and is safe for concurrent use.
type Fetcher struct {
	tasksURL  string
	timeout   time.Duration
	tokens    TokenSource
	transport http.RoundTripper
	logger    *slog.Logger
	metrics   MetricsRecorder
}

// NewFetcher creates a Fetcher from cfg.
func NewFetcher(cfg Config) (*Fetcher, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("taskflow: base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	tokens := cfg.Tokens
	if tokens == nil {
		tokens = TokenSourceFunc(func(context.Context) (string, error) { return "", nil })
	}

	return &Fetcher{
		tasksURL:  base + tasksPath,
		timeout:   timeout,
		tokens:    tokens,
		transport: otelhttp.NewTransport(transport),
		logger:    logging.WithService(logger, instrumentation.ServiceTaskflow),
		metrics:   cfg.Metrics,
	}, nil
}

// TasksURL returns the endpoint the Fetcher calls.
func (f *Fetcher) TasksURL() string {
	return f.tasksURL
}

// FetchTasks fetches the caller's tasks and renders the result, including
// any failure, as the text returned by the get_tasks tool.
func (f *Fetcher) FetchTasks(ctx context.Context) string {
	listing, err := f.Fetch(ctx)
	return Render(listing, err)
}

// Fetch fetches the caller's tasks. Every failure is a *Error.
//
// A missing token does not stop the request; the API's 401 reports it.
func (f *Fetcher) Fetch(ctx context.Context) (listing *Listing, err error) {
	logger := logging.WithOperation(f.logger, "tasks.list")
	start := time.Now()
	statusCode := 0

	ctx, span := instrumentation.StartUpstreamSpan(ctx, instrumentation.OperationList)
	defer func() {
		kind := KindOf(err)
		if f.metrics != nil {
			f.metrics.RecordUpstreamRequest(ctx, instrumentation.OperationList, statusCode, string(kind), time.Since(start))
		}
		if err != nil {
			span.SetAttributes(attribute.String(instrumentation.SpanAttrErrorKind, string(kind)))
			instrumentation.SetSpanError(span, err)
		} else {
			span.SetAttributes(attribute.Int(instrumentation.SpanAttrTaskCount, len(listing.Tasks)))
			instrumentation.SetSpanSuccess(span)
		}
		span.End()
	}()

	token, tokenErr := f.tokens.AccessToken(ctx)
	if tokenErr != nil {
		logger.Warn("could not resolve access token, calling API without one", logging.Err(tokenErr))
		token = ""
	}
	logger.Debug("access token resolved", logging.Token(token))
	span.SetAttributes(attribute.Bool(instrumentation.SpanAttrTokenPresent, token != ""))

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, f.tasksURL, nil)
	if reqErr != nil {
		return nil, transportError(reqErr)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Transport: f.transport,
		Timeout:   f.timeout,
		// A 3xx is reported like any other non-200 status. oauth2.Transport
		// would re-attach the token on every hop, whatever the host.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	if token != "" {
		client.Transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   f.transport,
		}
	}

	logger.Info("fetching tasks", logging.URL(f.tasksURL))
	resp, doErr := client.Do(req)
	if doErr != nil {
		logger.Error("request to TaskFlow API failed", logging.Err(doErr))
		return nil, transportError(doErr)
	}
	defer resp.Body.Close()

	statusCode = resp.StatusCode
	logger.Info("TaskFlow API responded", logging.StatusCode(statusCode))

	switch {
	case statusCode == http.StatusUnauthorized:
		return nil, &Error{Kind: KindAuthentication, StatusCode: statusCode}
	case statusCode != http.StatusOK:
		return nil, &Error{Kind: KindUpstreamStatus, StatusCode: statusCode}
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if readErr != nil {
		return nil, transportError(fmt.Errorf("reading response body: %w", readErr))
	}
	if len(body) > maxResponseBytes {
		logger.Error("TaskFlow API response too large", slog.Int("limit_bytes", maxResponseBytes))
		return nil, &Error{Kind: KindTransport, StatusCode: statusCode, Err: fmt.Errorf("response body exceeds %d bytes", maxResponseBytes)}
	}

	var env Envelope
	if decodeErr := json.Unmarshal(body, &env); decodeErr != nil {
		logger.Error("could not decode TaskFlow API response", logging.Err(decodeErr))
		return nil, &Error{Kind: KindTransport, StatusCode: statusCode, Err: fmt.Errorf("decoding response: %w", decodeErr)}
	}
	if !env.Success {
		logger.Warn("TaskFlow API reported failure")
		return nil, &Error{Kind: KindUpstreamLogic, StatusCode: statusCode}
	}

	listing = listingFromEnvelope(&env)
	logger.Info("tasks fetched",
		slog.Int("count", len(listing.Tasks)),
		logging.UserHash(listing.Email))

	return listing, nil
}
