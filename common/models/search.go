package models

import "errors"

// SimilarityQueryImage identifies the reference image of a similarity search:
// either a previously indexed id or inline base64 binary.
type SimilarityQueryImage struct {
	ImageID     string `json:"image_id,omitempty"`
	ImageBinary string `json:"image_binary,omitempty"`
}

// SimilaritySearchQuery asks for images resembling a reference image under a
// named feature.
type SimilaritySearchQuery struct {
	QueryImage SimilarityQueryImage `json:"query_image"`
	Feature    string               `json:"feature"`
}

// ImageSearchQuery is a tagged union: exactly one of FilterJSON (a raw index
// filter expression) or Similarity must be populated. Construct through
// NewFilterQuery or NewSimilarityQuery; Validate rejects zero or multiple
// populated arms.
type ImageSearchQuery struct {
	FilterJSON string                 `json:"filter_json,omitempty"`
	Similarity *SimilaritySearchQuery `json:"similarity,omitempty"`
}

// ErrQueryArms reports a union with zero or multiple populated arms.
var ErrQueryArms = errors.New("image search query must populate exactly one of filter_json or similarity")

// NewFilterQuery builds the raw-filter arm of the union.
func NewFilterQuery(filterJSON string) (*ImageSearchQuery, error) {
	q := &ImageSearchQuery{FilterJSON: filterJSON}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// NewSimilarityQuery builds the similarity arm of the union.
func NewSimilarityQuery(similarity *SimilaritySearchQuery) (*ImageSearchQuery, error) {
	q := &ImageSearchQuery{Similarity: similarity}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// Validate enforces the exactly-one-arm invariant.
func (q *ImageSearchQuery) Validate() error {
	hasFilter := q.FilterJSON != ""
	hasSimilarity := q.Similarity != nil
	if hasFilter == hasSimilarity {
		return ErrQueryArms
	}
	return nil
}

// Paging bounds one page of search results.
type Paging struct {
	PageSize int `json:"page_size"`
	Offset   int `json:"offset"`
}

// FieldSort orders results by one indexed field.
type FieldSort struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending,omitempty"`
}

// ImageSearch is a full search request against the image index.
type ImageSearch struct {
	Query  ImageSearchQuery `json:"query"`
	Paging *Paging          `json:"paging,omitempty"`
	Sort   *FieldSort       `json:"sort,omitempty"`
}

// SearchResults is one page of index matches.
type SearchResults struct {
	Images       []IndexedImage `json:"images"`
	TotalResults int64          `json:"total_results"`
	Paging       *Paging        `json:"paging,omitempty"`
}
