// Package extractor routes uploads to the text extractor that understands
// their format and normalizes the result.
package extractor

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
)

// MinTextChars rejects uploads that carry no usable content.
const MinTextChars = 10

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatText Format = "text"
)

type Dispatcher struct {
	extractors map[Format]ports.TextExtractor
}

func NewDispatcher(pdf, text ports.TextExtractor) *Dispatcher {
	return &Dispatcher{extractors: map[Format]ports.TextExtractor{
		FormatPDF:  pdf,
		FormatText: text,
	}}
}

func (d *Dispatcher) Extract(ctx context.Context, filename, mimeType string, raw []byte) (string, error) {
	format, ok := Detect(filename, mimeType)
	if !ok {
		return "", domain.WrapError(domain.ErrUnsupportedMedia, "extract", fmt.Errorf("unsupported file type %q (%s)", filename, mimeType))
	}
	extractor := d.extractors[format]
	if extractor == nil {
		return "", domain.WrapError(domain.ErrUnsupportedMedia, "extract", fmt.Errorf("no extractor configured for %s", format))
	}

	text, err := extractor.Extract(ctx, filename, mimeType, raw)
	if err != nil {
		return "", err
	}
	text = Normalize(text)
	if len([]rune(text)) < MinTextChars {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract", fmt.Errorf("file %s appears to be empty", filename))
	}
	return text, nil
}

// Detect picks a format from the declared MIME type, falling back to the
// file extension when the client sent a generic type.
func Detect(filename, mimeType string) (Format, bool) {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch {
	case mediaType == "application/pdf":
		return FormatPDF, true
	case strings.HasPrefix(mediaType, "text/"):
		return FormatText, true
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, true
	case ".txt", ".md", ".markdown", ".text":
		return FormatText, true
	}
	return "", false
}

// Normalize collapses every whitespace run into a single space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
