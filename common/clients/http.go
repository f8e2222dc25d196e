package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Logger interface for HTTP client logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// HTTPClient wraps http.Client with context-aware helpers.
// It automatically extracts metadata from context and adds appropriate headers.
type HTTPClient struct {
	client *http.Client
	logger Logger
}

// NewHTTPClient creates a new HTTP client wrapper
func NewHTTPClient(client *http.Client, logger Logger) *HTTPClient {
	return &HTTPClient{
		client: client,
		logger: logger,
	}
}

// DoRequest creates and executes an HTTP request, extracting metadata from
// context. This is the central method that handles context-to-header
// conversion.
func (c *HTTPClient) DoRequest(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	if auths, ok := GetAuthorizations(ctx); ok {
		req.Header.Set("X-Authorizations", strings.Join(auths, ","))
		c.logger.Debug("added X-Authorizations header from context", "count", len(auths))
	}

	return c.client.Do(req)
}

// DoJSON posts in as a JSON body and decodes a 2xx response into out.
// out may be nil when the response body does not matter. Non-2xx responses
// surface as *StatusError carrying the response body.
func (c *HTTPClient) DoJSON(ctx context.Context, method, url string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	resp, err := c.DoRequest(ctx, method, url, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(detail)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// StatusError reports a non-2xx response from a collaborator service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}
