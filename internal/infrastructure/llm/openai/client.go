// Package openai talks to any OpenAI-compatible chat completions endpoint.
package openai

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

func New(baseURL, apiKey, model string, timeout time.Duration, opts ...httpx.Option) *Client {
	opts = append([]httpx.Option{httpx.WithBearerToken(apiKey)}, opts...)
	return &Client{
		model: model,
		http:  httpx.New("openai", baseURL, timeout, opts...),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	body := chatRequest{Model: c.model}
	if strings.TrimSpace(req.System) != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	if req.JSON {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}

	var response chatResponse
	if err := c.http.PostJSON(ctx, "/v1/chat/completions", body, &response, "chat"); err != nil {
		return "", err
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("openai chat: no choices in response")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
