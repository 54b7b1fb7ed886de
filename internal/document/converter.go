// Package document prepares uploaded files for extraction: rasterizing PDFs
// into page images for vision models and parsing CSV exports directly.
package document

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// SupportedExtension reports whether the service can process files with the
// given extension (lowercase, with leading dot).
func SupportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".jpg", ".jpeg", ".png", ".csv":
		return true
	default:
		return false
	}
}

// ToPageImages converts an uploaded document into base64-encoded page images
// suitable for a vision model. Image bytes pass through unchanged; PDFs are
// rasterized one image per page. CSV files carry no images and must go
// through ParseInvoices instead.
func ToPageImages(data []byte, ext string) ([]string, error) {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg", ".png":
		return []string{base64.StdEncoding.EncodeToString(data)}, nil
	case ".pdf":
		return pdfToImages(data)
	default:
		return nil, fmt.Errorf("unsupported file type for image conversion: %s", ext)
	}
}

// pdfToImages rasterizes a PDF with ImageMagick at 200 DPI. The alpha channel
// is flattened onto white because vision models misread transparency.
func pdfToImages(data []byte) ([]string, error) {
	tmpDir, err := os.MkdirTemp("", "invoice-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	inputFile := filepath.Join(tmpDir, "input.pdf")
	if err := os.WriteFile(inputFile, data, 0644); err != nil {
		return nil, fmt.Errorf("writing temp pdf: %w", err)
	}

	outputPattern := filepath.Join(tmpDir, "page-%02d.jpg")
	args := []string{
		"-density", "200",
		inputFile,
		"-background", "white",
		"-alpha", "remove",
		"-quality", "90",
		outputPattern,
	}

	cmd := exec.Command(magickBinary(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdf conversion failed: %v (%s)", err, strings.TrimSpace(stderr.String()))
	}

	pages, err := filepath.Glob(filepath.Join(tmpDir, "page-*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("listing converted pages: %w", err)
	}
	sort.Strings(pages)
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdf conversion produced no pages")
	}

	images := make([]string, 0, len(pages))
	for _, page := range pages {
		pageData, err := os.ReadFile(page)
		if err != nil {
			return nil, fmt.Errorf("reading converted page: %w", err)
		}
		images = append(images, base64.StdEncoding.EncodeToString(pageData))
	}
	return images, nil
}

// magickBinary prefers ImageMagick 7's entry point, falling back to the v6
// name.
func magickBinary() string {
	if _, err := exec.LookPath("magick"); err == nil {
		return "magick"
	}
	return "convert"
}
