package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/schooldesk/internal/client/metrics"
	"github.com/dmitrijs2005/schooldesk/internal/common"
	"github.com/dmitrijs2005/schooldesk/internal/logging"
	"github.com/google/uuid"
)

const (
	DefaultTimeout = 10 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 8 << 20
)

// TokenSource supplies the bearer token and recovers from its expiry. The
// session manager implements it.
type TokenSource interface {
	// AccessToken returns the current in-memory access token ("" if none).
	AccessToken() string
	// Refresh returns an access token newer than stale, exchanging the
	// refresh token when needed. Concurrent calls share a single refresh
	// request.
	Refresh(ctx context.Context, stale string) (string, error)
	// Expire clears the session after the server rejected token, the
	// access token the failed request carried. A session that no longer
	// holds token is left alone.
	Expire(ctx context.Context, token string, reason error)
}

// FilePart is a single file sent as multipart/form-data.
type FilePart struct {
	Field    string
	FileName string
	Data     []byte
}

// Request describes one API call. Body is JSON-encoded; File switches the
// request to multipart and Body is ignored.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	File   *FilePart

	// NoAuthRecovery disables the 401 refresh/expire handling. Set for the
	// auth endpoints that manage tokens themselves.
	NoAuthRecovery bool

	retried bool
}

// Retried reports whether Do re-issued the request after a token refresh.
func (r *Request) Retried() bool {
	return r.retried
}

func (r *Request) encode() ([]byte, string, error) {
	if r.File != nil {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile(r.File.Field, r.File.FileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(r.File.Data); err != nil {
			return nil, "", err
		}
		if err := mw.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), mw.FormDataContentType(), nil
	}

	if r.Body == nil {
		return nil, "", nil
	}

	b, err := json.Marshal(r.Body)
	if err != nil {
		return nil, "", err
	}
	return b, "application/json", nil
}

// envelope is the success wrapper of every API response.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// errorEnvelope is the body of every non-2xx response.
type errorEnvelope struct {
	Message string       `json:"message"`
	Error   string       `json:"error"`
	Errors  []FieldError `json:"errors"`
}

// HTTPClient talks to the REST API. It is safe for concurrent use.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	log     logging.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	tokens TokenSource
}

type Option func(*HTTPClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *HTTPClient) { c.metrics = m }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *HTTPClient) { c.tokens = ts }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	return c
}

// SetTokenSource installs ts. The session manager is built on top of the
// client, so the source is usually attached after both exist.
func (c *HTTPClient) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

func (c *HTTPClient) tokenSource() TokenSource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// Do performs req and decodes the "data" member of the response into out
// (out may be nil). All failures are *Error values.
func (c *HTTPClient) Do(ctx context.Context, req *Request, out any) error {
	_, err := c.do(ctx, req, out)
	return err
}

func (c *HTTPClient) do(ctx context.Context, req *Request, out any) (string, error) {
	body, contentType, err := req.encode()
	if err != nil {
		return "", newRequestError(fmt.Errorf("encode %s %s: %w", req.Method, req.Path, err))
	}

	ts := c.tokenSource()
	token := ""
	if ts != nil {
		token = ts.AccessToken()
	}

	for {
		msg, err := c.send(ctx, req, body, contentType, token, out)
		if err == nil {
			return msg, nil
		}

		var apiErr *Error
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
			return "", err
		}
		if req.NoAuthRecovery || ts == nil {
			return "", err
		}

		if req.retried || !apiErr.TokenExpired() {
			c.log.Warn(ctx, "session rejected by server",
				"path", req.Path, "message", apiErr.Message, "retried", req.retried)
			ts.Expire(ctx, token, err)
			return "", err
		}

		req.retried = true
		c.log.Debug(ctx, "access token expired, refreshing", "path", req.Path)

		used := token
		token, err = ts.Refresh(ctx, used)
		if err != nil {
			if !errors.As(err, new(*Error)) {
				err = apiErr.withCause(err)
			}
			ts.Expire(ctx, used, err)
			return "", err
		}
		c.metrics.Retry()
	}
}

func (c *HTTPClient) send(ctx context.Context, req *Request, body []byte, contentType, token string, out any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, bodyReader)
	if err != nil {
		return "", newRequestError(fmt.Errorf("build request: %w", err))
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(common.RequestIDHeaderName, requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		httpReq.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveRequest(req.Method, "network_error", time.Since(start).Seconds())
		c.log.Warn(ctx, "api request failed",
			"method", req.Method, "path", req.Path, "request_id", requestID, "error", err)
		nerr := newNetworkError(err)
		nerr.RequestID = requestID
		return "", nerr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(req.Method, "network_error", elapsed.Seconds())
		nerr := newNetworkError(err)
		nerr.RequestID = requestID
		return "", nerr
	}

	c.log.Debug(ctx, "api request",
		"method", req.Method, "path", req.Path, "status", resp.StatusCode,
		"duration", elapsed, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.ObserveRequest(req.Method, "api_error", elapsed.Seconds())
		apiErr := decodeAPIError(resp.StatusCode, raw)
		apiErr.RequestID = requestID
		return "", apiErr
	}
	c.metrics.ObserveRequest(req.Method, "ok", elapsed.Seconds())

	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", &Error{
			Type:      TypeAPI,
			Status:    resp.StatusCode,
			Message:   "Malformed server response",
			RequestID: requestID,
			cause:     err,
		}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", &Error{
				Type:      TypeAPI,
				Status:    resp.StatusCode,
				Message:   "Malformed server response",
				RequestID: requestID,
				cause:     err,
			}
		}
	}
	return env.Message, nil
}

func decodeAPIError(status int, raw []byte) *Error {
	e := &Error{Type: TypeAPI, Status: status}

	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil {
		e.Code = env.Error
		e.Errors = env.Errors
		switch {
		case env.Message != "":
			e.Message = env.Message
		case env.Error != "":
			e.Message = env.Error
		}
	}

	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
	}
	return e
}
