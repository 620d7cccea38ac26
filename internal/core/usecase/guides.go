package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
)

type GuideQueryUseCase struct {
	repo    ports.GuideRepository
	storage ports.ObjectStorage
}

func NewGuideQueryUseCase(repo ports.GuideRepository, storage ports.ObjectStorage) *GuideQueryUseCase {
	return &GuideQueryUseCase{repo: repo, storage: storage}
}

func (uc *GuideQueryUseCase) GetByID(ctx context.Context, id string) (*domain.StudyGuide, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *GuideQueryUseCase) OpenArtifact(ctx context.Context, guideID string, kind domain.ArtifactKind) (io.ReadCloser, domain.Artifact, error) {
	guide, err := uc.repo.GetByID(ctx, guideID)
	if err != nil {
		return nil, domain.Artifact{}, err
	}
	return uc.open(ctx, guide, kind)
}

// OpenLatestArtifact serves the most recently completed guide.
func (uc *GuideQueryUseCase) OpenLatestArtifact(ctx context.Context, kind domain.ArtifactKind) (io.ReadCloser, domain.Artifact, error) {
	guide, err := uc.repo.LatestReady(ctx)
	if err != nil {
		return nil, domain.Artifact{}, err
	}
	return uc.open(ctx, guide, kind)
}

func (uc *GuideQueryUseCase) open(ctx context.Context, guide *domain.StudyGuide, kind domain.ArtifactKind) (io.ReadCloser, domain.Artifact, error) {
	if guide.Status != domain.GuideReady {
		return nil, domain.Artifact{}, domain.WrapError(domain.ErrNotFound, "open artifact", fmt.Errorf("study guide %s is %s", guide.ID, guide.Status))
	}
	key, ok := guide.Artifacts[kind]
	if !ok || key == "" {
		return nil, domain.Artifact{}, domain.WrapError(domain.ErrNotFound, "open artifact", errors.New("artifact "+string(kind)+" was not produced"))
	}

	size, err := uc.storage.Stat(ctx, key)
	if err != nil {
		return nil, domain.Artifact{}, err
	}
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, domain.Artifact{}, err
	}
	return rc, domain.Artifact{
		Kind:        kind,
		Filename:    kind.Filename(),
		ContentType: kind.ContentType(),
		Size:        size,
	}, nil
}
