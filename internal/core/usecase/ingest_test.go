package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

func TestSubmitStoresAndPublishes(t *testing.T) {
	repo := newGuideRepoFake()
	storage := newStorageFake()
	queue := &queueFake{}
	uc := NewIngestGuideUseCase(repo, storage, queue, 0)
	uc.now = fixedNow()

	guide, err := uc.Submit(context.Background(), "My Notes (1).pdf", "application/pdf", strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if guide.Status != domain.GuideUploaded {
		t.Fatalf("expected uploaded status, got %s", guide.Status)
	}
	if guide.SourceKey != guide.ID+"/source_My_Notes__1_.pdf" {
		t.Fatalf("unexpected source key %q", guide.SourceKey)
	}
	if !guide.CreatedAt.Equal(fixedNow()()) {
		t.Fatalf("unexpected created_at %v", guide.CreatedAt)
	}
	if len(queue.published) != 1 || queue.published[0] != guide.ID {
		t.Fatalf("expected guide id published, got %v", queue.published)
	}
	if _, ok := repo.guides[guide.ID]; !ok {
		t.Fatalf("expected guide metadata persisted")
	}
}

func TestSubmitWithoutQueueIsUnavailable(t *testing.T) {
	uc := NewIngestGuideUseCase(newGuideRepoFake(), newStorageFake(), nil, 0)

	_, err := uc.Submit(context.Background(), "a.txt", "text/plain", strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestSubmitPublishFailure(t *testing.T) {
	queue := &queueFake{err: domain.WrapError(domain.ErrTemporary, "publish", errors.New("nats down"))}
	uc := NewIngestGuideUseCase(newGuideRepoFake(), newStorageFake(), queue, 0)

	_, err := uc.Submit(context.Background(), "a.txt", "text/plain", strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}

func TestSubmitStorageFailureSkipsMetadata(t *testing.T) {
	repo := newGuideRepoFake()
	storage := newStorageFake()
	storage.saveErr = errors.New("disk full")
	queue := &queueFake{}
	uc := NewIngestGuideUseCase(repo, storage, queue, 0)

	if _, err := uc.Submit(context.Background(), "a.txt", "text/plain", strings.NewReader("x")); err == nil {
		t.Fatalf("expected error")
	}
	if len(repo.guides) != 0 || len(queue.published) != 0 {
		t.Fatalf("expected no metadata and no publish after storage failure")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"lecture 1.pdf":      "lecture_1.pdf",
		"../../etc/passwd":   "passwd",
		"конспект.txt":       "________.txt",
		"":                   "document.bin",
		"report-v2_final.md": "report-v2_final.md",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
