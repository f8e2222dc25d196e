package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ezbake/ezbake-image-frack/common/models"
)

// InvalidInputError means the extractor rejected the bytes as unreadable.
// Stage workers treat it as a per-item failure, not a pipeline fault.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("extractor rejected input: %s", e.Reason)
}

// MetadataExtractorClient talks to the metadata extraction service.
type MetadataExtractorClient struct {
	http    *HTTPClient
	baseURL string
}

// NewMetadataExtractorClient creates a client against baseURL.
func NewMetadataExtractorClient(baseURL string, httpClient *http.Client, logger Logger) *MetadataExtractorClient {
	return &MetadataExtractorClient{
		http:    NewHTTPClient(httpClient, logger),
		baseURL: baseURL,
	}
}

type extractRequest struct {
	FileName string `json:"file_name"`
	Blob     []byte `json:"blob"`
}

// ExtractMetadata submits the original bytes and returns the raw and
// normalized metadata. An unreadable payload surfaces as *InvalidInputError.
func (c *MetadataExtractorClient) ExtractMetadata(ctx context.Context, fileName string, blob []byte) (*models.ImageMetadata, error) {
	var meta models.ImageMetadata
	err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/v1/metadata", &extractRequest{FileName: fileName, Blob: blob}, &meta)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusUnprocessableEntity {
			return nil, &InvalidInputError{Reason: statusErr.Body}
		}
		return nil, err
	}
	return &meta, nil
}
