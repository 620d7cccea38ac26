package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/study-assistant/internal/config"
	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
	"github.com/kirillkom/study-assistant/internal/observability/metrics"
)

const (
	serviceName = "api"

	// multipartOverhead leaves room for boundaries and part headers on top
	// of the file size limit.
	multipartOverhead = 1 << 20
	jsonBodyLimit     = 1 << 20
)

// Services are the inbound ports served over HTTP. A nil Jobs disables
// the asynchronous job endpoint.
type Services struct {
	Pomodoro  ports.PomodoroTimer
	Processor ports.StudyProcessor
	Jobs      ports.JobSubmitter
	Guides    ports.GuideReader
	Content   ports.ContentService
	Reviewer  ports.ExplanationReviewer
}

type Router struct {
	cfg     config.Config
	svc     Services
	metrics *metrics.HTTPServerMetrics
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) {
		rt.metrics = m
	}
}

func NewRouter(cfg config.Config, svc Services, opts ...RouterOption) *Router {
	rt := &Router{cfg: cfg, svc: svc}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/pomodoro/start", rt.startPomodoro)
	mux.HandleFunc("/pomodoro/stop", rt.stopPomodoro)
	mux.HandleFunc("/pomodoro/status", rt.pomodoroStatus)

	mux.Handle("/process", rt.throttled(rt.processUpload))
	mux.Handle("/extract-text", rt.throttled(rt.extractText))
	mux.Handle("/generate-content", rt.throttled(rt.generateContent))
	mux.Handle("/analyze-explanation", rt.throttled(rt.analyzeExplanation))
	mux.Handle("/v1/jobs", rt.throttled(rt.submitJob))
	mux.HandleFunc("/download/", rt.downloadLatest)
	mux.HandleFunc("/v1/guides/", rt.getGuide)

	var handler http.Handler = mux
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = corsMiddleware(handler, rt.cfg.CORSAllowedOrigins)
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

// throttled guards the LLM-backed endpoints with the rate limiter and the
// in-flight gate. The pomodoro endpoints are never throttled.
func (rt *Router) throttled(fn http.HandlerFunc) http.Handler {
	var handler http.Handler = fn
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIQueueWait, rt.recordRejected)
	return rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.recordRejected)
}

func (rt *Router) recordRejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(serviceName, reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) startPomodoro(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	writeJSON(w, http.StatusOK, rt.svc.Pomodoro.Start())
}

func (rt *Router) stopPomodoro(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	writeJSON(w, http.StatusOK, rt.svc.Pomodoro.Stop())
}

type pomodoroStatusResponse struct {
	IsActive             bool                 `json:"is_active"`
	IsBreak              bool                 `json:"is_break"`
	StartTime            *time.Time           `json:"start_time"`
	Phase                domain.PomodoroPhase `json:"phase,omitempty"`
	PhaseStartedAt       *time.Time           `json:"phase_started_at"`
	PhaseEndsAt          *time.Time           `json:"phase_ends_at"`
	CompletedWorkPeriods int                  `json:"completed_work_periods"`
}

func (rt *Router) pomodoroStatus(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	status := rt.svc.Pomodoro.Status()
	writeJSON(w, http.StatusOK, pomodoroStatusResponse{
		IsActive:             status.Active,
		IsBreak:              status.IsBreak(),
		StartTime:            status.StartedAt,
		Phase:                status.Phase,
		PhaseStartedAt:       status.PhaseStartedAt,
		PhaseEndsAt:          status.PhaseEndsAt,
		CompletedWorkPeriods: status.CompletedWorkPeriods,
	})
}

type processResponse struct {
	Message  string `json:"message"`
	ID       string `json:"id"`
	PDFURL   string `json:"pdf_url,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
	DOCXURL  string `json:"docx_url,omitempty"`
	XLSXURL  string `json:"xlsx_url,omitempty"`
}

func (rt *Router) processUpload(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	file, header, ok := rt.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	guide, err := rt.svc.Processor.Process(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := processResponse{Message: "Files processed successfully", ID: guide.ID}
	for kind := range guide.Artifacts {
		url := "/download/" + string(kind)
		switch kind {
		case domain.ArtifactPDF:
			resp.PDFURL = url
		case domain.ArtifactAudio:
			resp.AudioURL = url
		case domain.ArtifactDOCX:
			resp.DOCXURL = url
		case domain.ArtifactXLSX:
			resp.XLSXURL = url
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) downloadLatest(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	kind, ok := domain.ParseArtifactKind(strings.TrimPrefix(r.URL.Path, "/download/"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid file type"})
		return
	}

	body, artifact, err := rt.svc.Guides.OpenLatestArtifact(r.Context(), kind)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()
	writeArtifact(w, body, artifact)
}

func (rt *Router) extractText(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	file, header, ok := rt.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	text, err := rt.svc.Content.ExtractText(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (rt *Router) generateContent(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No text provided"})
		return
	}

	content, err := rt.svc.Content.GenerateContent(r.Context(), req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (rt *Router) analyzeExplanation(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	var req domain.ExplanationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	review, err := rt.svc.Reviewer.Review(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (rt *Router) submitJob(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	if rt.svc.Jobs == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "async processing is not configured"})
		return
	}
	file, header, ok := rt.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	guide, err := rt.svc.Jobs.Submit(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, guide)
}

// getGuide serves /v1/guides/{id} and /v1/guides/{id}/artifacts/{kind}.
func (rt *Router) getGuide(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/guides/"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		guide, err := rt.svc.Guides.GetByID(r.Context(), parts[0])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, guide)
	case len(parts) == 3 && parts[0] != "" && parts[1] == "artifacts":
		kind, ok := domain.ParseArtifactKind(parts[2])
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid file type"})
			return
		}
		body, artifact, err := rt.svc.Guides.OpenArtifact(r.Context(), parts[0], kind)
		if err != nil {
			writeError(w, err)
			return
		}
		defer body.Close()
		writeArtifact(w, body, artifact)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "guide id is required"})
	}
}

// formFile reads the multipart "file" field and answers the client itself
// when the field is missing or unusable.
func (rt *Router) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	if rt.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+multipartOverhead)
	}
	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return nil, nil, false
	case err != nil:
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "read multipart upload", err))
		return nil, nil, false
	}
	if strings.TrimSpace(header.Filename) == "" {
		file.Close()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file selected"})
		return nil, nil, false
	}
	return file, header, true
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, jsonBodyLimit)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func writeArtifact(w http.ResponseWriter, body io.Reader, artifact domain.Artifact) {
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+artifact.Filename+`"`)
	if artifact.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(artifact.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("artifact_stream_failed", "kind", artifact.Kind, "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
