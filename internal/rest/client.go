// Package rest holds the JSON over HTTP plumbing shared by the backend
// clients.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-restaurant-auth"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"

	defaultTimeout   = 15 * time.Second
	maxErrorBodySize = 64 << 10
)

// HTTPClient is the transport used by Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithRateLimit throttles outgoing requests. A zero limit disables it.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		if limit <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger auth.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRequestIDGenerator overrides how request ids are produced.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if gen != nil {
			c.requestID = gen
		}
	}
}

// Client sends JSON requests relative to a base URL and maps failures to
// categorized errors.
type Client struct {
	base      *url.URL
	http      HTTPClient
	limiter   *rate.Limiter
	logger    auth.Logger
	userAgent string
	requestID func() string
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, goerrors.New(fmt.Sprintf("base url %q must be absolute", baseURL), goerrors.CategoryBadInput)
	}

	c := &Client{
		base:      base,
		http:      &http.Client{Timeout: defaultTimeout},
		logger:    auth.DefaultLogger(),
		userAgent: "go-restaurant-auth",
		requestID: uuid.NewString,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c, nil
}

// URL resolves path against the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Request describes a single call.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Headers http.Header
}

// JSON sends req with a JSON body and decodes a JSON response into out.
// out may be nil.
func (c *Client) JSON(ctx context.Context, req Request, out any) error {
	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to encode request body")
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.URL(req.Path, req.Query), body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to build request")
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	return c.Do(httpReq, out)
}

// Do sends a prepared request and decodes a JSON response into out.
func (c *Client) Do(req *http.Request, out any) error {
	ctx := req.Context()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return goerrors.WrapRetryable(err, goerrors.CategoryRateLimit, "request throttled")
		}
	}

	reqID := req.Header.Get(HeaderRequestID)
	if reqID == "" {
		reqID = c.requestID()
		req.Header.Set(HeaderRequestID, reqID)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ctxErr)
		}
		c.logger.Error("backend request failed", "method", req.Method, "path", req.URL.Path, "request_id", reqID, "error", err)
		return unavailable(err, req)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request", "method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "request_id", reqID, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return statusError(req, resp.StatusCode, raw, reqID)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to decode response body").
			WithRequestID(reqID)
	}
	return nil
}

// StatusError is the decoded error body of a non 2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Message returns the backend supplied message carried by err.
func Message(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

type errorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// googleError is the {"error": {"code": 400, "message": "..."}} shape used by
// Google APIs.
type googleError struct {
	Message string `json:"message"`
}

func statusError(req *http.Request, status int, raw []byte, reqID string) error {
	se := &StatusError{
		Method:     req.Method,
		Path:       req.URL.Path,
		StatusCode: status,
		Message:    decodeMessage(raw, status),
	}

	meta := map[string]any{"status": status, "path": se.Path}

	switch {
	case status >= 500:
		return goerrors.WrapRetryable(se, goerrors.CategoryExternal, se.Message).
			WithCode(status).
			WithTextCode(auth.TextCodeBackendUnavailable).
			WithMetadata(meta)
	case status == http.StatusTooManyRequests:
		return goerrors.WrapRetryable(se, goerrors.CategoryRateLimit, se.Message).
			WithCode(status).
			WithMetadata(meta)
	}

	return goerrors.Wrap(se, categoryFor(status), se.Message).
		WithCode(status).
		WithRequestID(reqID).
		WithMetadata(meta)
}

func categoryFor(status int) goerrors.Category {
	switch status {
	case http.StatusNotFound:
		return goerrors.CategoryNotFound
	case http.StatusConflict:
		return goerrors.CategoryConflict
	case http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case http.StatusForbidden:
		return goerrors.CategoryAuthz
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return goerrors.CategoryBadInput
	default:
		return goerrors.CategoryExternal
	}
}

func decodeMessage(raw []byte, status int) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		var plain string
		if err := json.Unmarshal(body.Error, &plain); err == nil && plain != "" {
			return plain
		}
		var nested googleError
		if err := json.Unmarshal(body.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" && len(msg) < 512 {
		return msg
	}
	return http.StatusText(status)
}

func unavailable(err error, req *http.Request) error {
	return fmt.Errorf("%w: %s %s: %w", auth.ErrBackendUnavailable, req.Method, req.URL.Path, err)
}

// IsUnavailable reports whether err is a transport failure or 5xx.
func IsUnavailable(err error) bool {
	return errors.Is(err, auth.ErrBackendUnavailable) || StatusCode(err) >= 500
}
