// Package client issues the single authenticated HTTPS request and captures
// the exchange for formatting. No retries, no session reuse across
// invocations.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cdp-tools/cdpreq/pkg/logger"
)

// Exchange records one request/response round trip. JSON is non-nil only
// when the body parsed as JSON.
type Exchange struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	JSON       json.RawMessage
}

// TransportError reports a transport-level failure: DNS resolution,
// connection refused, timeout. A non-2xx response is not a transport error.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a completed exchange with a non-200 status.
type StatusError struct {
	StatusCode int
	Status     string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %s", e.Status)
}

// Client dispatches exactly one request per invocation.
type Client struct {
	httpClient *http.Client
	userAgent  string
	log        *logger.Logger
}

// New creates a client with the given deadline. The deadline should stay
// inside the token validity window; a request that outlives exp is rejected
// server-side regardless of transport success.
func New(timeout time.Duration, userAgent string, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		log:       log,
	}
}

// Do sends one request with the bearer token and captures the response.
// The returned Exchange is populated for every completed round trip,
// whatever the status code; the caller decides what a non-200 means.
func (c *Client) Do(ctx context.Context, method, url, bearer, body string) (*Exchange, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.log.Debug("sending request", "method", method, "url", url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	c.log.Debug("response received", "status", resp.Status, "bytes", len(raw))

	ex := &Exchange{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       raw,
	}
	if json.Valid(raw) {
		ex.JSON = json.RawMessage(raw)
	}
	return ex, nil
}
