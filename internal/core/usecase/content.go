package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
)

const (
	DefaultMaxInputChars  = 8000
	DefaultFlashcardCount = 5

	summarySystemPrompt = "You are a helpful study assistant. Create a concise summary of the following text."
)

type ContentOptions struct {
	MaxInputChars  int
	FlashcardCount int
	MaxUploadBytes int64
}

// ContentUseCase runs the extraction and generation stages on their own.
// The guide pipeline reuses it.
type ContentUseCase struct {
	extractor ports.TextExtractor
	completer ports.Completer
	opts      ContentOptions
}

func NewContentUseCase(extractor ports.TextExtractor, completer ports.Completer, opts ContentOptions) *ContentUseCase {
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = DefaultMaxInputChars
	}
	if opts.FlashcardCount <= 0 {
		opts.FlashcardCount = DefaultFlashcardCount
	}
	return &ContentUseCase{extractor: extractor, completer: completer, opts: opts}
}

func (uc *ContentUseCase) ExtractText(ctx context.Context, filename, mimeType string, body io.Reader) (string, error) {
	raw, err := readUpload(body, uc.opts.MaxUploadBytes)
	if err != nil {
		return "", err
	}
	return uc.extract(ctx, filename, mimeType, raw)
}

func (uc *ContentUseCase) extract(ctx context.Context, filename, mimeType string, raw []byte) (string, error) {
	text, err := uc.extractor.Extract(ctx, filename, mimeType, raw)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

// GenerateContent asks for the summary and the flashcards in two separate
// completions, so one bad reply does not cost the other.
func (uc *ContentUseCase) GenerateContent(ctx context.Context, text string) (domain.StudyContent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.StudyContent{}, domain.WrapError(domain.ErrInvalidInput, "generate content", errors.New("text is required"))
	}
	text = truncateRunes(text, uc.opts.MaxInputChars)

	summary, err := uc.completer.Complete(ctx, ports.CompletionRequest{
		System: summarySystemPrompt,
		Prompt: text,
	})
	if err != nil {
		return domain.StudyContent{}, fmt.Errorf("generate summary: %w", err)
	}

	cardsRaw, err := uc.completer.Complete(ctx, ports.CompletionRequest{
		System: flashcardSystemPrompt(uc.opts.FlashcardCount),
		Prompt: text,
	})
	if err != nil {
		return domain.StudyContent{}, fmt.Errorf("generate flashcards: %w", err)
	}

	cards := ParseFlashcards(cardsRaw)
	if len(cards) > uc.opts.FlashcardCount {
		cards = cards[:uc.opts.FlashcardCount]
	}
	return domain.StudyContent{
		Summary:    strings.TrimSpace(summary),
		Flashcards: cards,
	}, nil
}

func flashcardSystemPrompt(count int) string {
	return fmt.Sprintf(
		"Create %d question-answer flashcards from the following text. Format as Q1: [question] A1: [answer]",
		count,
	)
}

func readUpload(body io.Reader, limit int64) ([]byte, error) {
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("no file provided"))
	}
	if limit > 0 {
		body = io.LimitReader(body, limit+1)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if limit > 0 && int64(len(raw)) > limit {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", fmt.Errorf("file exceeds %d bytes", limit))
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("uploaded file is empty"))
	}
	return raw, nil
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
