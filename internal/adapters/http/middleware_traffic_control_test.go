package httpadapter

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	cfg := testConfig()
	cfg.APIRateLimitRPS = 1
	cfg.APIRateLimitBurst = 1
	handler := NewRouter(cfg, testServices()).Handler()

	newReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/generate-content", strings.NewReader(`{"text":"cells"}`))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	res1 := httptest.NewRecorder()
	handler.ServeHTTP(res1, newReq())
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, newReq())
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
}

func TestRateLimitDoesNotThrottlePomodoro(t *testing.T) {
	cfg := testConfig()
	cfg.APIRateLimitRPS = 1
	cfg.APIRateLimitBurst = 1
	handler := NewRouter(cfg, testServices()).Handler()

	for i := 0; i < 5; i++ {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/pomodoro/status", nil))
		if res.Code != http.StatusOK {
			t.Fatalf("status request %d expected 200, got %d", i, res.Code)
		}
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)
	var reasons []string

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond, func(reason string) {
		reasons = append(reasons, reason)
	})

	go func() {
		req := httptest.NewRequest(http.MethodPost, "/process", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	req2 := httptest.NewRequest(http.MethodPost, "/process", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(bytes.NewReader(res2.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("decode overload response: %v", err)
	}
	if resp["error"] == "" {
		t.Fatalf("expected overload error message in response")
	}
	if len(reasons) != 1 || reasons[0] != "overloaded" {
		t.Fatalf("expected one overloaded rejection, got %v", reasons)
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("first request expected 204, got %d", code)
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("timed out waiting for first request completion")
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := NewRouter(testConfig(), testServices()).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/process", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", res.Code)
	}
	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow-origin %q", got)
	}

	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.Header.Set("Origin", "http://evil.example")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, other)
	if got := res.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin for unknown origin, got %q", got)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	handler := NewRouter(testConfig(), testServices()).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if got := res.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}
