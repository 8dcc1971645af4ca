// Package extract pulls plain text out of watched document types. The
// pipeline feeds the result to the classifier; an empty extraction is valid
// and simply gives the classifier nothing to work with.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"parafile/internal/services"
)

// SupportedExtensions lists the lowercase extensions the extractor handles.
var SupportedExtensions = []string{".pdf", ".docx"}

// Supported reports whether the extension (with leading dot, any case) can be extracted.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, known := range SupportedExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// Extractor converts documents into plain text.
type Extractor struct{}

// New returns a ready Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract reads the document at path and returns its text content. Corrupt
// or unsupported files produce an extraction error, which the pipeline
// treats as terminal for the item.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch ext := strings.ToLower(extOf(path)); ext {
	case ".pdf":
		return extractPDF(path)
	case ".docx":
		return extractDOCX(path)
	default:
		return "", services.Wrap(services.ErrExtraction, "extract", "dispatch",
			fmt.Sprintf("unsupported extension %q", ext), nil)
	}
}

func extOf(path string) string {
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		return path[idx:]
	}
	return ""
}

// The pdf library panics on some malformed files, so the whole read is
// guarded and a panic surfaces as an extraction error.
func extractPDF(path string) (text string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			text = ""
			err = services.Wrap(services.ErrExtraction, "extract", "read pdf",
				fmt.Sprintf("parser panic: %v", recovered), nil)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrExtraction, "extract", "open pdf", "unreadable pdf", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", services.Wrap(services.ErrExtraction, "extract", "read pdf", "unreadable pdf content", err)
	}
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", services.Wrap(services.ErrExtraction, "extract", "read pdf", "unreadable pdf content", err)
	}
	return buf.String(), nil
}
