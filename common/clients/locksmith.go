package clients

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
)

// LocksmithClient fetches shared broadcast keys from the key-distribution
// service. Workers and the ingestion front look up the same (credential,
// topic) pair so both ends of a topic agree on the key.
type LocksmithClient struct {
	http    *HTTPClient
	baseURL string
}

// NewLocksmithClient creates a client against baseURL.
func NewLocksmithClient(baseURL string, httpClient *http.Client, logger Logger) *LocksmithClient {
	return &LocksmithClient{
		http:    NewHTTPClient(httpClient, logger),
		baseURL: baseURL,
	}
}

type keyResponse struct {
	Key string `json:"key"`
}

// GetKey returns the broadcast key bytes for credential on topic.
func (c *LocksmithClient) GetKey(ctx context.Context, credential, topic string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/v1/keys/%s/%s", c.baseURL, url.PathEscape(credential), url.PathEscape(topic))

	var resp keyResponse
	if err := c.http.DoJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	key, err := base64.StdEncoding.DecodeString(resp.Key)
	if err != nil {
		return nil, fmt.Errorf("decode key for topic %s: %w", topic, err)
	}
	return key, nil
}
