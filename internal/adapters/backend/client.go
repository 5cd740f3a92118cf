package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

const (
	tracerName = "github.com/okian/scout/internal/adapters/backend"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// Client calls the REST backend. It is safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	creds   *Credentials
	logger  logger.Logger
	tracer  trace.Tracer
}

// New builds a client for the backend rooted at baseURL, e.g. "http://host/api".
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend: invalid base url %q", baseURL)
	}
	c := &Client{
		base:    u,
		http:    &http.Client{},
		timeout: 10 * time.Second,
		creds:   &Credentials{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrNamed(c.logger, "backend")
	c.tracer = otel.Tracer(tracerName)

	transport := c.http.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	wrapped := *c.http
	wrapped.Transport = otelhttp.NewTransport(transport)
	c.http = &wrapped
	return c, nil
}

// Credentials returns the token holder attached to requests.
func (c *Client) Credentials() *Credentials {
	return c.creds
}

// call describes one request.
type call struct {
	op          string
	method      string
	path        []string
	query       url.Values
	body        io.Reader
	contentType string
}

// doJSON sends body encoded as JSON (when non-nil) and decodes the answer into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, op, method string, path []string, query url.Values, body, out any) error {
	req := call{op: op, method: method, path: path, query: query}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		req.body = bytes.NewReader(b)
		req.contentType = "application/json"
	}
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, in call, out any) (err error) {
	start := time.Now()
	status := 0

	ctx, span := c.tracer.Start(ctx, "backend."+in.op, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		ms := float64(time.Since(start).Microseconds()) / 1000.0
		metrics.RecordBackendRequest(in.op, statusLabel(status), ms)
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordErrorByComponent("backend", errorType(err))
		}
		span.End()
	}()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.base.JoinPath(in.path...)
	if len(in.query) > 0 {
		u.RawQuery = in.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, in.method, u.String(), in.body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", in.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in.contentType != "" {
		req.Header.Set("Content-Type", in.contentType)
	}
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	c.logger.Debug(ctx, "backend request",
		logger.String("op", in.op),
		logger.String("method", in.method),
		logger.String("url", u.String()),
	)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", in.op, ctxErr)
		}
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, in.op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	status = resp.StatusCode

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %s: read body: %w", ErrUnavailable, in.op, err)
	}

	c.logger.Debug(ctx, "backend response",
		logger.String("op", in.op),
		logger.Int("status", status),
		logger.Int("bytes", len(payload)),
		logger.Duration("took", time.Since(start)),
	)

	if status < 200 || status > 299 {
		return decodeAPIError(status, payload)
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		if out != nil {
			return fmt.Errorf("%w: %s: empty body", ErrDecode, in.op)
		}
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDecode, in.op, err)
	}
	return nil
}

// decodeAPIError reads the {code, message} error body, tolerating anything else.
func decodeAPIError(status int, payload []byte) error {
	apiErr := &APIError{Status: status}
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(payload, &body) == nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
	}
	return apiErr
}

func statusLabel(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "client_error"
	}
}
