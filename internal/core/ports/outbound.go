package ports

import (
	"context"
	"io"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

// GuideRepository persists and reads study guide state.
type GuideRepository interface {
	Create(ctx context.Context, guide *domain.StudyGuide) error
	GetByID(ctx context.Context, id string) (*domain.StudyGuide, error)
	LatestReady(ctx context.Context) (*domain.StudyGuide, error)
	UpdateStatus(ctx context.Context, id string, status domain.GuideStatus, errMessage string) error
	SaveResult(ctx context.Context, id string, content domain.StudyContent, artifacts map[domain.ArtifactKind]string) error
}

// ObjectStorage stores uploads and rendered artifacts.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (int64, error)
}

// JobQueue publishes/consumes guide processing requests.
type JobQueue interface {
	PublishGuideRequested(ctx context.Context, guideID string) error
	SubscribeGuideRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor turns raw upload bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, filename, mimeType string, raw []byte) (string, error)
}

type CompletionRequest struct {
	System string
	Prompt string
	JSON   bool
}

// Completer calls an external LLM completion service.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// DocumentRenderer writes a study guide into a formatted document.
type DocumentRenderer interface {
	Kind() domain.ArtifactKind
	Render(ctx context.Context, title string, content domain.StudyContent, w io.Writer) error
}

// SpeechSynthesizer converts text into encoded audio.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
