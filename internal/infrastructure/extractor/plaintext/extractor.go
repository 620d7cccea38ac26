package plaintext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(_ context.Context, filename, _ string, raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrUnsupportedMedia, "plaintext.extract", fmt.Errorf("%s is not valid UTF-8 text", filename))
	}
	return strings.TrimSpace(string(raw)), nil
}
