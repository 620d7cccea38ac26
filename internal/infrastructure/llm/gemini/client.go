// Package gemini adapts the Google Gen AI SDK to the completion port.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/ports"
	"github.com/kirillkom/study-assistant/internal/infrastructure/resilience"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Client struct {
	model    string
	models   contentGenerator
	executor *resilience.Executor
}

func New(ctx context.Context, apiKey, model string, executor *resilience.Executor) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{model: model, models: client.Models, executor: executor}, nil
}

func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	text, err := resilience.Call(ctx, c.executor, "gemini.generate", func(ctx context.Context) (string, error) {
		result, err := c.models.GenerateContent(ctx, c.model, genai.Text(req.Prompt), cfg)
		if err != nil {
			return "", fmt.Errorf("gemini generate content: %w", err)
		}
		return responseText(result)
	}, classify)
	if err != nil && classify(err).Retryable {
		return "", domain.WrapError(domain.ErrTemporary, "gemini.generate", err)
	}
	return text, err
}

func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from gemini")
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}
	return strings.TrimSpace(b.String()), nil
}

// classify keys off the status markers the SDK embeds in error text.
func classify(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	msg := err.Error()
	for _, marker := range []string{"429", "RESOURCE_EXHAUSTED", "quota", "503", "UNAVAILABLE", "500", "INTERNAL"} {
		if strings.Contains(msg, marker) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
