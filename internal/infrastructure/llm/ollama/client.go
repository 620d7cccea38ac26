package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/study-assistant/internal/core/ports"
	"github.com/kirillkom/study-assistant/internal/infrastructure/httpx"
)

type Client struct {
	model string
	http  *httpx.Client
}

func New(baseURL, model string, timeout time.Duration, opts ...httpx.Option) *Client {
	return &Client{
		model: model,
		http:  httpx.New("ollama", baseURL, timeout, opts...),
	}
}

func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	payload := map[string]any{
		"model":  c.model,
		"prompt": req.Prompt,
		"stream": false,
	}
	if strings.TrimSpace(req.System) != "" {
		payload["system"] = req.System
	}
	if req.JSON {
		payload["format"] = "json"
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.http.PostJSON(ctx, "/api/generate", payload, &response, "generate"); err != nil {
		return "", err
	}
	out := strings.TrimSpace(response.Response)
	if out == "" {
		return "", fmt.Errorf("ollama generate: empty response")
	}
	return out, nil
}
