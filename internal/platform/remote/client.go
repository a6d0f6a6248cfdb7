package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestDecorator mutates an outgoing request, e.g. to add auth headers over the body.
type RequestDecorator func(req *http.Request, body []byte) error

// Config configures a Client.
type Config struct {
	Service    string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient HTTPDoer
}

// Client executes requests against one remote service and classifies failures.
type Client struct {
	service string
	baseURL string
	client  HTTPDoer
}

const defaultTimeout = 10 * time.Second

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		service: cfg.Service,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  client,
	}
}

// Service returns the name used in errors.
func (c *Client) Service() string {
	return c.service
}

// errorBody is the error shape written by httputil.WriteError.
type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// Do sends body to path and returns the response body of a 2xx response.
// Non-2xx responses are returned as *Error carrying the remote error code.
func (c *Client) Do(ctx context.Context, method, path, contentType string, body []byte, decorate ...RequestDecorator) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, NewError(ErrorInternal, c.service, "failed to create request", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, d := range decorate {
		if err := d(req, body); err != nil {
			return nil, NewError(ErrorInternal, c.service, "failed to decorate request", err)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return nil, NewError(ErrorTimeout, c.service, "request timeout", err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, NewError(ErrorOutage, c.service, "failed to execute request", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewError(ErrorTimeout, c.service, "response timeout", err)
		}
		return nil, NewError(ErrorBadData, c.service, "failed to read response", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return respBody, nil
	}
	return nil, c.statusError(resp.StatusCode, respBody)
}

// DoJSON marshals in (if non-nil), sends it, and decodes a 2xx response into out (if non-nil).
func (c *Client) DoJSON(ctx context.Context, method, path string, in, out any, decorate ...RequestDecorator) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return NewError(ErrorBadData, c.service, "failed to marshal request", err)
		}
	}
	respBody, err := c.Do(ctx, method, path, "application/json", body, decorate...)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return NewError(ErrorBadData, c.service, "failed to parse response", err)
	}
	return nil
}

func (c *Client) statusError(status int, body []byte) *Error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	var e *Error
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e = NewError(ErrorAuthentication, c.service, fmt.Sprintf("authentication failed: %d", status), nil)
	case status == http.StatusNotFound:
		e = NewError(ErrorNotFound, c.service, "not found", nil)
	case status == http.StatusTooManyRequests:
		e = NewError(ErrorRateLimited, c.service, "rate limit exceeded", nil)
	case status == http.StatusGatewayTimeout:
		e = NewError(ErrorTimeout, c.service, "upstream timeout", nil)
	case status >= 500:
		e = NewError(ErrorOutage, c.service, fmt.Sprintf("service unavailable: %d", status), nil)
	default:
		e = NewError(ErrorRejected, c.service, fmt.Sprintf("request rejected: %d", status), nil)
	}
	e.Code = eb.Error
	if eb.Description != "" {
		e.Message = eb.Description
	}
	return e
}
