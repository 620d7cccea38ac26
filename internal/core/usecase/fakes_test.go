package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
)

type statusCall struct {
	status domain.GuideStatus
	errMsg string
}

type guideRepoFake struct {
	mu          sync.Mutex
	guides      map[string]*domain.StudyGuide
	statusCalls []statusCall
	createErr   error
	saveErr     error
	latestID    string
}

func newGuideRepoFake() *guideRepoFake {
	return &guideRepoFake{guides: map[string]*domain.StudyGuide{}}
}

func (f *guideRepoFake) Create(_ context.Context, guide *domain.StudyGuide) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copyGuide := *guide
	f.guides[guide.ID] = &copyGuide
	return nil
}

func (f *guideRepoFake) GetByID(_ context.Context, id string) (*domain.StudyGuide, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	guide, ok := f.guides[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get", errors.New(id))
	}
	copyGuide := *guide
	return &copyGuide, nil
}

func (f *guideRepoFake) LatestReady(context.Context) (*domain.StudyGuide, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if guide, ok := f.guides[f.latestID]; ok && guide.Status == domain.GuideReady {
		copyGuide := *guide
		return &copyGuide, nil
	}
	return nil, domain.WrapError(domain.ErrNotFound, "latest", errors.New("none"))
}

func (f *guideRepoFake) UpdateStatus(_ context.Context, id string, status domain.GuideStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	guide, ok := f.guides[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update", errors.New(id))
	}
	guide.Status = status
	guide.Error = errMessage
	return nil
}

func (f *guideRepoFake) SaveResult(_ context.Context, id string, content domain.StudyContent, artifacts map[domain.ArtifactKind]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	guide, ok := f.guides[id]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "save", errors.New(id))
	}
	guide.Summary = content.Summary
	guide.Flashcards = content.Flashcards
	guide.Artifacts = artifacts
	guide.Status = domain.GuideReady
	guide.Error = ""
	f.latestID = id
	return nil
}

type storageFake struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = raw
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "open", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *storageFake) Stat(_ context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[key]
	if !ok {
		return 0, domain.WrapError(domain.ErrNotFound, "stat", errors.New(key))
	}
	return int64(len(raw)), nil
}

func (f *storageFake) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for k := range f.objects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type extractorFake struct {
	text string
	err  error
	raw  []byte
}

func (f *extractorFake) Extract(_ context.Context, _, _ string, raw []byte) (string, error) {
	f.raw = raw
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// completerFake answers by matching a substring of the system prompt.
type completerFake struct {
	mu       sync.Mutex
	replies  map[string]string
	errs     map[string]error
	requests []ports.CompletionRequest
}

func (f *completerFake) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	for marker, err := range f.errs {
		if strings.Contains(req.System, marker) {
			return "", err
		}
	}
	for marker, reply := range f.replies {
		if strings.Contains(req.System, marker) {
			return reply, nil
		}
	}
	return "", errors.New("unexpected prompt: " + req.System)
}

type rendererFake struct {
	kind domain.ArtifactKind
	err  error
}

func (f *rendererFake) Kind() domain.ArtifactKind { return f.kind }

func (f *rendererFake) Render(_ context.Context, title string, content domain.StudyContent, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, string(f.kind)+":"+title+":"+content.Summary)
	return err
}

type synthesizerFake struct {
	text string
	err  error
}

func (f *synthesizerFake) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.text = text
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3:" + text), nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishGuideRequested(_ context.Context, guideID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, guideID)
	return nil
}

func (f *queueFake) SubscribeGuideRequested(context.Context, func(context.Context, string) error) error {
	return nil
}

func fixedNow() func() time.Time {
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}
