package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/infrastructure/httpx"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/pomodoro/start", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(`{"message":"Pomodoro timer started","status":"running"}`))
	})
	mux.HandleFunc("/pomodoro/stop", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Pomodoro timer is not running","status":"stopped"}`))
	})
	mux.HandleFunc("/pomodoro/status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"is_active":true,"is_break":false,"start_time":"2026-10-18T09:00:00Z",` +
			`"phase":"work","phase_started_at":"2026-10-18T09:00:00Z","phase_ends_at":"2026-10-18T09:25:00Z",` +
			`"completed_work_periods":2}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClientStartStop(t *testing.T) {
	c := New(newServer(t).URL, time.Second)

	ack, err := c.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.PomodoroAck{Message: "Pomodoro timer started", Status: "running"}, ack)

	ack, err = c.Stop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stopped", ack.Status)
}

func TestClientStatus(t *testing.T) {
	c := New(newServer(t).URL, time.Second)

	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.IsActive)
	assert.Equal(t, domain.PhaseWork, status.Phase)
	assert.Equal(t, 2, status.CompletedWorkPeriods)
	require.NotNil(t, status.StartTime)

	at := time.Date(2026, 10, 18, 9, 20, 0, 0, time.UTC)
	assert.Equal(t, 5*time.Minute, status.Remaining(at))
	assert.Zero(t, status.Remaining(at.Add(time.Hour)))
	assert.Zero(t, Status{}.Remaining(at))
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(server.URL, time.Second).Status(context.Background())
	require.Error(t, err)
	var statusErr *httpx.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.True(t, domain.IsKind(err, domain.ErrTemporary))
}
