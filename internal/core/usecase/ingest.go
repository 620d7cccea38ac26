package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
)

type IngestGuideUseCase struct {
	repo     ports.GuideRepository
	storage  ports.ObjectStorage
	queue    ports.JobQueue
	maxBytes int64
	now      func() time.Time
}

// NewIngestGuideUseCase builds the async submitter. With a nil queue every
// submission fails with domain.ErrUnavailable.
func NewIngestGuideUseCase(
	repo ports.GuideRepository,
	storage ports.ObjectStorage,
	queue ports.JobQueue,
	maxBytes int64,
) *IngestGuideUseCase {
	return &IngestGuideUseCase{
		repo:     repo,
		storage:  storage,
		queue:    queue,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func (uc *IngestGuideUseCase) Submit(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.StudyGuide, error) {
	if uc.queue == nil {
		return nil, domain.WrapError(domain.ErrUnavailable, "submit study guide", errors.New("async processing is not configured"))
	}
	raw, err := readUpload(body, uc.maxBytes)
	if err != nil {
		return nil, err
	}

	guide, err := createGuide(ctx, uc.repo, uc.storage, uc.now(), filename, mimeType, raw)
	if err != nil {
		return nil, err
	}
	if err := uc.queue.PublishGuideRequested(ctx, guide.ID); err != nil {
		return nil, fmt.Errorf("publish guide request: %w", err)
	}
	return guide, nil
}

func createGuide(
	ctx context.Context,
	repo ports.GuideRepository,
	storage ports.ObjectStorage,
	now time.Time,
	filename, mimeType string,
	raw []byte,
) (*domain.StudyGuide, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create study guide", errors.New("no file selected"))
	}

	id := uuid.NewString()
	sourceKey := fmt.Sprintf("%s/source_%s", id, sanitizeFilename(filename))
	if err := storage.Save(ctx, sourceKey, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	now = now.UTC()
	guide := &domain.StudyGuide{
		ID:         id,
		Filename:   filepath.Base(filename),
		MimeType:   mimeType,
		SourceKey:  sourceKey,
		Flashcards: []domain.Flashcard{},
		Artifacts:  map[domain.ArtifactKind]string{},
		Status:     domain.GuideUploaded,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Create(ctx, guide); err != nil {
		return nil, fmt.Errorf("create study guide metadata: %w", err)
	}
	return guide, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "document.bin"
	}
	return base
}
