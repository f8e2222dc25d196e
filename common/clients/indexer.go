package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ezbake/ezbake-image-frack/common/models"
)

// IndexFailedError reports a rejected upsert into the image index.
type IndexFailedError struct {
	ImageID string
	Reason  string
}

func (e *IndexFailedError) Error() string {
	return fmt.Sprintf("index of image %s failed: %s", e.ImageID, e.Reason)
}

// ImageIndexerClient talks to the image index service for upserts and
// queries.
type ImageIndexerClient struct {
	http    *HTTPClient
	baseURL string
}

// NewImageIndexerClient creates a client against baseURL.
func NewImageIndexerClient(baseURL string, httpClient *http.Client, logger Logger) *ImageIndexerClient {
	return &ImageIndexerClient{
		http:    NewHTTPClient(httpClient, logger),
		baseURL: baseURL,
	}
}

// Upsert inserts or replaces one indexed image.
func (c *ImageIndexerClient) Upsert(ctx context.Context, img *models.IndexedImage) error {
	err := c.http.DoJSON(ctx, http.MethodPut, c.baseURL+"/v1/images/"+img.ImageID, img, nil)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return &IndexFailedError{ImageID: img.ImageID, Reason: statusErr.Body}
		}
		return err
	}
	return nil
}

// Search runs a filter or similarity query. The union shape is validated
// before anything goes on the wire.
func (c *ImageIndexerClient) Search(ctx context.Context, search *models.ImageSearch) (*models.SearchResults, error) {
	if err := search.Query.Validate(); err != nil {
		return nil, err
	}
	var results models.SearchResults
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/v1/images/search", search, &results); err != nil {
		return nil, err
	}
	return &results, nil
}
