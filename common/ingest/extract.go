// Package ingest pulls individual images out of composite documents and
// drives them through the front half of the indexing pipeline.
package ingest

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ezbake/ezbake-image-frack/common/models"
)

// DefaultMaxDepth bounds container-in-container recursion.
const DefaultMaxDepth = 4

// macOS resource-fork entries inside zips carry no image content.
const macOSXPrefix = "__MACOSX"

// ExtractImages walks the document and returns every image found, descending
// into zip, tar, and gzip containers up to maxDepth levels. Entry names
// accumulate the container path so two `a.jpg` files in different folders
// stay distinct; nameless payloads are named image<N> with the detected
// extension. Non-image, non-container content is skipped silently.
func ExtractImages(doc *models.Document, maxDepth int) ([]*models.Image, error) {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	var images []*models.Image
	if err := extract(doc.Blob, doc.FileName, 0, maxDepth, &images); err != nil {
		return nil, err
	}
	return images, nil
}

func extract(blob []byte, name string, depth, maxDepth int, out *[]*models.Image) error {
	if len(blob) == 0 {
		return nil
	}

	mtype := mimetype.Detect(blob)
	switch {
	case strings.HasPrefix(mtype.String(), "image/"):
		*out = append(*out, &models.Image{
			Blob:     blob,
			FileName: entryName(name, len(*out), mtype.Extension()),
			MimeType: mtype.String(),
		})
		return nil
	case mtype.Is("application/zip"):
		if depth >= maxDepth {
			return nil
		}
		return extractZip(blob, name, depth, maxDepth, out)
	case mtype.Is("application/x-tar"):
		if depth >= maxDepth {
			return nil
		}
		return extractTar(blob, name, depth, maxDepth, out)
	case mtype.Is("application/gzip"):
		if depth >= maxDepth {
			return nil
		}
		return extractGzip(blob, name, depth, maxDepth, out)
	default:
		return nil
	}
}

func extractZip(blob []byte, name string, depth, maxDepth int, out *[]*models.Image) error {
	reader, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return fmt.Errorf("open zip %s: %w", name, err)
	}

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() || strings.HasPrefix(entry.Name, macOSXPrefix) {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("open zip entry %s in %s: %w", entry.Name, name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("read zip entry %s in %s: %w", entry.Name, name, err)
		}
		if err := extract(content, name+"/"+entry.Name, depth+1, maxDepth, out); err != nil {
			return err
		}
	}
	return nil
}

func extractTar(blob []byte, name string, depth, maxDepth int, out *[]*models.Image) error {
	reader := tar.NewReader(bytes.NewReader(blob))
	for {
		header, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar %s: %w", name, err)
		}
		if header.Typeflag != tar.TypeReg || strings.HasPrefix(header.Name, macOSXPrefix) {
			continue
		}
		content, err := io.ReadAll(reader)
		if err != nil {
			return fmt.Errorf("read tar entry %s in %s: %w", header.Name, name, err)
		}
		if err := extract(content, name+"/"+header.Name, depth+1, maxDepth, out); err != nil {
			return err
		}
	}
}

func extractGzip(blob []byte, name string, depth, maxDepth int, out *[]*models.Image) error {
	reader, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return fmt.Errorf("open gzip %s: %w", name, err)
	}
	defer reader.Close()

	content, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read gzip %s: %w", name, err)
	}
	return extract(content, strings.TrimSuffix(name, ".gz"), depth+1, maxDepth, out)
}

func entryName(name string, index int, extension string) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("image%d%s", index, extension)
}
