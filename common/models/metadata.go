package models

// OriginalMetadata is one raw metadata tag read from the image encoding.
type OriginalMetadata struct {
	TagType string `json:"tag_type"`
	Name    string `json:"name"`
	Value   string `json:"value"`
}

// Camera holds capture-device fields normalized out of the raw tags.
type Camera struct {
	Make         string   `json:"make,omitempty"`
	Model        string   `json:"model,omitempty"`
	Aperture     *float64 `json:"aperture,omitempty"`
	ExposureTime *float64 `json:"exposure_time,omitempty"`
	ShutterSpeed *float64 `json:"shutter_speed,omitempty"`
	FocalLength  *float64 `json:"focal_length,omitempty"`
}

// Location is a geolocation extracted from the image.
type Location struct {
	Lat float64  `json:"lat"`
	Lon float64  `json:"lon"`
	Alt *float64 `json:"alt,omitempty"`
}

// Heading is a compass bearing extracted from the image.
type Heading struct {
	Degrees   float64 `json:"degrees"`
	Reference string  `json:"reference,omitempty"`
}

// NormalizedImageMetadata is the structured view the indexer consumes.
type NormalizedImageMetadata struct {
	Dimensions        *Dimensions `json:"dimensions,omitempty"`
	Locations         []Location  `json:"locations,omitempty"`
	Headings          []Heading   `json:"headings,omitempty"`
	Names             []string    `json:"names,omitempty"`
	CreatedDateTimes  []string    `json:"created_date_times,omitempty"`
	ModifiedDateTimes []string    `json:"modified_date_times,omitempty"`
	Comments          []string    `json:"comments,omitempty"`
	Software          []string    `json:"software,omitempty"`
	Camera            *Camera     `json:"camera,omitempty"`
	Orientation       *int16      `json:"orientation,omitempty"`
}

// ImageMetadata is the extractor collaborator's response for one image.
type ImageMetadata struct {
	FileName            string                   `json:"file_name,omitempty"`
	MimeType            string                   `json:"mime_type,omitempty"`
	OriginalDocumentURI string                   `json:"original_document_uri,omitempty"`
	Original            []OriginalMetadata       `json:"original,omitempty"`
	Normalized          *NormalizedImageMetadata `json:"normalized,omitempty"`
}

// Point is a pixel coordinate within an image.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// AreaTag annotates a rectangular image region.
type AreaTag struct {
	UpperLeft  Point  `json:"upper_left"`
	LowerRight Point  `json:"lower_right"`
	Comment    string `json:"comment,omitempty"`
}

// IndexedImage is the record upserted into the image index.
type IndexedImage struct {
	ImageID    string         `json:"image_id"`
	TextTags   []string       `json:"text_tags"`
	AreaTags   []AreaTag      `json:"area_tags"`
	Visibility string         `json:"visibility"`
	Metadata   *ImageMetadata `json:"metadata,omitempty"`
}
