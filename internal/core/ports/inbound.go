package ports

import (
	"context"
	"io"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

// PomodoroTimer is the inbound contract of the work/break timer session.
type PomodoroTimer interface {
	Start() domain.PomodoroAck
	Stop() domain.PomodoroAck
	Status() domain.PomodoroStatus
}

// StudyProcessor runs the full upload -> summary -> artifacts pipeline synchronously.
type StudyProcessor interface {
	Process(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.StudyGuide, error)
}

// JobSubmitter stores an upload and schedules asynchronous processing.
type JobSubmitter interface {
	Submit(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.StudyGuide, error)
}

// GuideProcessor is the inbound contract for asynchronous guide processing.
type GuideProcessor interface {
	ProcessByID(ctx context.Context, guideID string) error
}

// GuideReader is the read model for guides and their rendered artifacts.
type GuideReader interface {
	GetByID(ctx context.Context, id string) (*domain.StudyGuide, error)
	OpenArtifact(ctx context.Context, guideID string, kind domain.ArtifactKind) (io.ReadCloser, domain.Artifact, error)
	OpenLatestArtifact(ctx context.Context, kind domain.ArtifactKind) (io.ReadCloser, domain.Artifact, error)
}

// ContentService exposes the individual pipeline stages.
type ContentService interface {
	ExtractText(ctx context.Context, filename, mimeType string, body io.Reader) (string, error)
	GenerateContent(ctx context.Context, text string) (domain.StudyContent, error)
}

// ExplanationReviewer grades a learner's explanation of a topic.
type ExplanationReviewer interface {
	Review(ctx context.Context, req domain.ExplanationRequest) (*domain.ExplanationReview, error)
}
