package clients

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ezbake/ezbake-image-frack/common/models"
)

// VaultURIPrefix is the scheme under which ingested source documents are
// archived. Every image row points back at a URI with this prefix.
const VaultURIPrefix = "imageindexer://ImageIngest/"

// DocumentVaultClient archives original source documents before their images
// are pulled apart.
type DocumentVaultClient struct {
	http    *HTTPClient
	baseURL string
}

// NewDocumentVaultClient creates a client against baseURL.
func NewDocumentVaultClient(baseURL string, httpClient *http.Client, logger Logger) *DocumentVaultClient {
	return &DocumentVaultClient{
		http:    NewHTTPClient(httpClient, logger),
		baseURL: baseURL,
	}
}

type vaultPutResponse struct {
	URI string `json:"uri"`
}

// Put archives the document and returns its vault URI.
func (c *DocumentVaultClient) Put(ctx context.Context, doc *models.Document) (string, error) {
	var resp vaultPutResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/v1/documents", doc, &resp); err != nil {
		return "", err
	}
	if !strings.HasPrefix(resp.URI, VaultURIPrefix) {
		return "", fmt.Errorf("vault returned URI outside the %s namespace: %q", VaultURIPrefix, resp.URI)
	}
	return resp.URI, nil
}
