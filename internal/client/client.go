// Package client talks to the pomodoro endpoints of a running API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/infrastructure/httpx"
)

// Status mirrors the GET /pomodoro/status payload.
type Status struct {
	IsActive             bool                 `json:"is_active"`
	IsBreak              bool                 `json:"is_break"`
	StartTime            *time.Time           `json:"start_time"`
	Phase                domain.PomodoroPhase `json:"phase"`
	PhaseStartedAt       *time.Time           `json:"phase_started_at"`
	PhaseEndsAt          *time.Time           `json:"phase_ends_at"`
	CompletedWorkPeriods int                  `json:"completed_work_periods"`
}

// Remaining is the time left in the current phase at now.
func (s Status) Remaining(now time.Time) time.Duration {
	if !s.IsActive || s.PhaseEndsAt == nil {
		return 0
	}
	if left := s.PhaseEndsAt.Sub(now); left > 0 {
		return left
	}
	return 0
}

type Client struct {
	http *httpx.Client
}

func New(baseURL string, timeout time.Duration, opts ...httpx.Option) *Client {
	return &Client{http: httpx.New("study-api", baseURL, timeout, opts...)}
}

func (c *Client) Start(ctx context.Context) (domain.PomodoroAck, error) {
	var ack domain.PomodoroAck
	err := c.http.PostJSON(ctx, "/pomodoro/start", struct{}{}, &ack, "pomodoro_start")
	return ack, err
}

func (c *Client) Stop(ctx context.Context) (domain.PomodoroAck, error) {
	var ack domain.PomodoroAck
	err := c.http.PostJSON(ctx, "/pomodoro/stop", struct{}{}, &ack, "pomodoro_stop")
	return ack, err
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	raw, err := c.http.Get(ctx, "/pomodoro/status", nil, "pomodoro_status")
	if err != nil {
		return Status{}, err
	}
	var status Status
	if err := json.Unmarshal(raw, &status); err != nil {
		return Status{}, fmt.Errorf("decode pomodoro status: %w", err)
	}
	return status, nil
}
