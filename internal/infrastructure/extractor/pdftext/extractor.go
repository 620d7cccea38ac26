package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

// MinReadableChars is the shortest text layer accepted from a PDF. Scanned
// documents usually yield a handful of stray glyphs.
const MinReadableChars = 50

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, filename, _ string, raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "pdftext.extract", fmt.Errorf("open pdf %s: %w", filename, err))
	}

	fonts := make(map[string]*pdf.Font)
	parts := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := page.Font(name)
				fonts[name] = &font
			}
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			return "", domain.WrapError(domain.ErrInvalidInput, "pdftext.extract", fmt.Errorf("read pdf page %d: %w", i, err))
		}
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}

	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if len([]rune(text)) < MinReadableChars {
		return "", domain.WrapError(domain.ErrInvalidInput, "pdftext.extract", fmt.Errorf("could not extract readable text from %s", filename))
	}
	return text, nil
}
