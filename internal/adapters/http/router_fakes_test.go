package httpadapter

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/kirillkom/study-assistant/internal/config"
	"github.com/kirillkom/study-assistant/internal/core/domain"
)

type pomodoroFake struct {
	status domain.PomodoroStatus
	starts int
	stops  int
}

func (f *pomodoroFake) Start() domain.PomodoroAck {
	f.starts++
	return domain.PomodoroAck{Message: "Pomodoro timer started", Status: domain.PomodoroRunning}
}

func (f *pomodoroFake) Stop() domain.PomodoroAck {
	f.stops++
	return domain.PomodoroAck{Message: "Pomodoro timer stopped", Status: domain.PomodoroStopped}
}

func (f *pomodoroFake) Status() domain.PomodoroStatus { return f.status }

type processorFake struct {
	guide    *domain.StudyGuide
	err      error
	filename string
	body     string
}

func (f *processorFake) Process(_ context.Context, filename, _ string, body io.Reader) (*domain.StudyGuide, error) {
	raw, _ := io.ReadAll(body)
	f.filename, f.body = filename, string(raw)
	if f.err != nil {
		return nil, f.err
	}
	return f.guide, nil
}

type jobsFake struct {
	err error
}

func (f jobsFake) Submit(_ context.Context, filename, mimeType string, _ io.Reader) (*domain.StudyGuide, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.StudyGuide{ID: "job-1", Filename: filename, MimeType: mimeType, Status: domain.GuideUploaded}, nil
}

type guidesFake struct {
	guides map[string]*domain.StudyGuide
	latest string
	body   string
}

func (f guidesFake) GetByID(_ context.Context, id string) (*domain.StudyGuide, error) {
	guide, ok := f.guides[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get guide", errors.New("id="+id))
	}
	return guide, nil
}

func (f guidesFake) OpenArtifact(ctx context.Context, guideID string, kind domain.ArtifactKind) (io.ReadCloser, domain.Artifact, error) {
	guide, err := f.GetByID(ctx, guideID)
	if err != nil {
		return nil, domain.Artifact{}, err
	}
	return f.open(guide, kind)
}

func (f guidesFake) OpenLatestArtifact(ctx context.Context, kind domain.ArtifactKind) (io.ReadCloser, domain.Artifact, error) {
	if f.latest == "" {
		return nil, domain.Artifact{}, domain.WrapError(domain.ErrNotFound, "latest guide", errors.New("none ready"))
	}
	return f.OpenArtifact(ctx, f.latest, kind)
}

func (f guidesFake) open(guide *domain.StudyGuide, kind domain.ArtifactKind) (io.ReadCloser, domain.Artifact, error) {
	if _, ok := guide.Artifacts[kind]; !ok {
		return nil, domain.Artifact{}, domain.WrapError(domain.ErrNotFound, "open artifact", errors.New(string(kind)))
	}
	return io.NopCloser(strings.NewReader(f.body)), domain.Artifact{
		Kind:        kind,
		Filename:    kind.Filename(),
		ContentType: kind.ContentType(),
		Size:        int64(len(f.body)),
	}, nil
}

type contentFake struct {
	text string
	err  error
}

func (f contentFake) ExtractText(context.Context, string, string, io.Reader) (string, error) {
	return f.text, f.err
}

func (f contentFake) GenerateContent(_ context.Context, text string) (domain.StudyContent, error) {
	if f.err != nil {
		return domain.StudyContent{}, f.err
	}
	return domain.StudyContent{
		Summary:    "summary of " + text,
		Flashcards: []domain.Flashcard{{Question: "Q?", Answer: "A."}},
	}, nil
}

type reviewerFake struct{}

func (reviewerFake) Review(_ context.Context, req domain.ExplanationRequest) (*domain.ExplanationReview, error) {
	if strings.TrimSpace(req.Explanation) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "review explanation", errors.New("missing topic or explanation"))
	}
	return &domain.ExplanationReview{Feedback: "good understanding", Understood: true}, nil
}

func readyGuide() *domain.StudyGuide {
	return &domain.StudyGuide{
		ID:     "guide-1",
		Status: domain.GuideReady,
		Artifacts: map[domain.ArtifactKind]string{
			domain.ArtifactPDF:   "guide-1/study_guide.pdf",
			domain.ArtifactAudio: "guide-1/summary_audio.mp3",
		},
	}
}

func testConfig() config.Config {
	return config.Config{
		CORSAllowedOrigins: "http://localhost:3000",
		APIMaxInFlight:     4,
		APIQueueWait:       time.Second,
		MaxUploadBytes:     1 << 20,
	}
}

func testServices() Services {
	guide := readyGuide()
	return Services{
		Pomodoro:  &pomodoroFake{},
		Processor: &processorFake{guide: guide},
		Jobs:      jobsFake{},
		Guides:    guidesFake{guides: map[string]*domain.StudyGuide{guide.ID: guide}, latest: guide.ID, body: "artifact-bytes"},
		Content:   contentFake{text: "extracted text"},
		Reviewer:  reviewerFake{},
	}
}
