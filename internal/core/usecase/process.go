package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
)

const guideTitle = "Study Guide"

// StageObserver receives the duration and outcome of each pipeline stage.
type StageObserver func(stage string, duration time.Duration, err error)

// OutcomeObserver is told the final status of every processed guide.
type OutcomeObserver func(guideID string, status domain.GuideStatus)

type ProcessGuideUseCase struct {
	repo        ports.GuideRepository
	storage     ports.ObjectStorage
	content     *ContentUseCase
	renderers   []ports.DocumentRenderer
	synthesizer ports.SpeechSynthesizer
	logger      *slog.Logger
	observe     StageObserver
	outcome     OutcomeObserver
	now         func() time.Time
}

type ProcessOption func(*ProcessGuideUseCase)

func WithLogger(logger *slog.Logger) ProcessOption {
	return func(uc *ProcessGuideUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

func WithStageObserver(observe StageObserver) ProcessOption {
	return func(uc *ProcessGuideUseCase) {
		if observe != nil {
			uc.observe = observe
		}
	}
}

func WithOutcomeObserver(outcome OutcomeObserver) ProcessOption {
	return func(uc *ProcessGuideUseCase) {
		if outcome != nil {
			uc.outcome = outcome
		}
	}
}

// NewProcessGuideUseCase wires the pipeline. A nil synthesizer disables the
// audio artifact.
func NewProcessGuideUseCase(
	repo ports.GuideRepository,
	storage ports.ObjectStorage,
	content *ContentUseCase,
	renderers []ports.DocumentRenderer,
	synthesizer ports.SpeechSynthesizer,
	opts ...ProcessOption,
) *ProcessGuideUseCase {
	uc := &ProcessGuideUseCase{
		repo:        repo,
		storage:     storage,
		content:     content,
		renderers:   renderers,
		synthesizer: synthesizer,
		logger:      slog.Default(),
		observe:     func(string, time.Duration, error) {},
		outcome:     func(string, domain.GuideStatus) {},
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Process stores the upload and runs the whole pipeline before returning.
func (uc *ProcessGuideUseCase) Process(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.StudyGuide, error) {
	raw, err := readUpload(body, uc.content.opts.MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	guide, err := createGuide(ctx, uc.repo, uc.storage, uc.now(), filename, mimeType, raw)
	if err != nil {
		return nil, err
	}
	if err := uc.run(ctx, guide, raw); err != nil {
		return nil, err
	}
	return uc.repo.GetByID(ctx, guide.ID)
}

// ProcessByID runs the pipeline for a guide that was submitted earlier.
func (uc *ProcessGuideUseCase) ProcessByID(ctx context.Context, guideID string) error {
	guide, err := uc.repo.GetByID(ctx, guideID)
	if err != nil {
		return fmt.Errorf("fetch study guide by id: %w", err)
	}
	if guide.Status == domain.GuideReady {
		uc.logger.Info("guide_already_ready", "guide_id", guideID)
		return nil
	}

	raw, err := uc.loadSource(ctx, guide)
	if err != nil {
		return uc.fail(ctx, guide.ID, err)
	}
	return uc.run(ctx, guide, raw)
}

func (uc *ProcessGuideUseCase) run(ctx context.Context, guide *domain.StudyGuide, raw []byte) error {
	if err := uc.repo.UpdateStatus(ctx, guide.ID, domain.GuideProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}
	started := uc.now()

	content, artifacts, err := uc.pipeline(ctx, guide, raw)
	if err != nil {
		return uc.fail(ctx, guide.ID, err)
	}
	if err := uc.repo.SaveResult(ctx, guide.ID, content, artifacts); err != nil {
		return uc.fail(ctx, guide.ID, fmt.Errorf("save study guide result: %w", err))
	}

	uc.outcome(guide.ID, domain.GuideReady)
	uc.logger.Info("guide_ready",
		"guide_id", guide.ID,
		"filename", guide.Filename,
		"flashcards", len(content.Flashcards),
		"artifacts", len(artifacts),
		"duration_ms", uc.now().Sub(started).Milliseconds(),
	)
	return nil
}

func (uc *ProcessGuideUseCase) pipeline(ctx context.Context, guide *domain.StudyGuide, raw []byte) (domain.StudyContent, map[domain.ArtifactKind]string, error) {
	var text string
	err := uc.stage("extract", func() error {
		var err error
		text, err = uc.content.extract(ctx, guide.Filename, guide.MimeType, raw)
		return err
	})
	if err != nil {
		return domain.StudyContent{}, nil, err
	}

	var content domain.StudyContent
	err = uc.stage("generate", func() error {
		var err error
		content, err = uc.content.GenerateContent(ctx, text)
		return err
	})
	if err != nil {
		return domain.StudyContent{}, nil, err
	}

	artifacts := make(map[domain.ArtifactKind]string, len(uc.renderers)+1)
	for _, renderer := range uc.renderers {
		kind := renderer.Kind()
		err := uc.stage("render_"+string(kind), func() error {
			var buf bytes.Buffer
			if err := renderer.Render(ctx, guideTitle, content, &buf); err != nil {
				return fmt.Errorf("render %s: %w", kind, err)
			}
			key, err := uc.saveArtifact(ctx, guide.ID, kind, &buf)
			artifacts[kind] = key
			return err
		})
		if err != nil {
			return domain.StudyContent{}, nil, err
		}
	}

	if uc.synthesizer != nil {
		err := uc.stage("synthesize", func() error {
			audio, err := uc.synthesizer.Synthesize(ctx, content.Summary)
			if err != nil {
				return fmt.Errorf("synthesize summary audio: %w", err)
			}
			key, err := uc.saveArtifact(ctx, guide.ID, domain.ArtifactAudio, bytes.NewReader(audio))
			artifacts[domain.ArtifactAudio] = key
			return err
		})
		if err != nil {
			return domain.StudyContent{}, nil, err
		}
	}
	return content, artifacts, nil
}

func (uc *ProcessGuideUseCase) stage(name string, fn func() error) error {
	started := uc.now()
	err := fn()
	uc.observe(name, uc.now().Sub(started), err)
	if err != nil {
		uc.logger.Warn("guide_stage_failed", "stage", name, "error", err)
	}
	return err
}

func (uc *ProcessGuideUseCase) saveArtifact(ctx context.Context, guideID string, kind domain.ArtifactKind, data io.Reader) (string, error) {
	key := guideID + "/" + kind.Filename()
	if err := uc.storage.Save(ctx, key, data); err != nil {
		return "", fmt.Errorf("store %s artifact: %w", kind, err)
	}
	return key, nil
}

func (uc *ProcessGuideUseCase) loadSource(ctx context.Context, guide *domain.StudyGuide) ([]byte, error) {
	rc, err := uc.storage.Open(ctx, guide.SourceKey)
	if err != nil {
		return nil, fmt.Errorf("open source upload: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read source upload: %w", err)
	}
	return raw, nil
}

func (uc *ProcessGuideUseCase) fail(ctx context.Context, guideID string, processErr error) error {
	// The failure must be recorded even when the request context is gone.
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	uc.outcome(guideID, domain.GuideFailed)
	if err := uc.repo.UpdateStatus(markCtx, guideID, domain.GuideFailed, processErr.Error()); err != nil {
		return fmt.Errorf("%w; mark failed status: %v", processErr, err)
	}
	uc.logger.Error("guide_failed", "guide_id", guideID, "error", processErr)
	return processErr
}
