package models

// Document is a composite document submitted for ingestion.
type Document struct {
	FileName   string `json:"file_name"`
	Blob       []byte `json:"blob"`
	Visibility string `json:"visibility"`
}

// IngestedImageInfo summarizes one image persisted during ingestion.
type IngestedImageInfo struct {
	OrigDocumentURI string `json:"orig_document_uri"`
	Visibility      string `json:"visibility"`
	ImageID         string `json:"image_id"`
	MimeType        string `json:"mime_type,omitempty"`
	Size            int    `json:"size"`
	FileName        string `json:"file_name"`
}

// IngestedImage is the event broadcast to the stage workers for each stored
// image. Authorizations carry the ingesting caller's credential set so the
// workers can read what the caller wrote.
type IngestedImage struct {
	ImageInfo      IngestedImageInfo `json:"image_info"`
	Authorizations []string          `json:"authorizations"`
}

// IngestedDocumentInfo is the ingestion front's reply for one document.
type IngestedDocumentInfo struct {
	IngestID   string              `json:"ingest_id"`
	URI        string              `json:"uri"`
	Images     []IngestedImageInfo `json:"images"`
	Visibility string              `json:"visibility"`
	FileName   string              `json:"file_name,omitempty"`
}
