package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/study-assistant/internal/config"
	"github.com/kirillkom/study-assistant/internal/core/ports"
	"github.com/kirillkom/study-assistant/internal/infrastructure/httpx"
	"github.com/kirillkom/study-assistant/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/study-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/study-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/study-assistant/internal/infrastructure/resilience"
	googletts "github.com/kirillkom/study-assistant/internal/infrastructure/tts/google"
	openaitts "github.com/kirillkom/study-assistant/internal/infrastructure/tts/openai"
)

func newExecutor(cfg config.Config, policy resilience.Config, logger *slog.Logger) *resilience.Executor {
	policy = policy.Override(cfg.RetryMaxAttempts, cfg.RetryInitialBackoff, cfg.BreakerEnabled)
	return resilience.NewExecutor(policy).WithLogger(logger)
}

// newCompleter builds the configured LLM client. An empty model selects the
// provider's configured default.
func newCompleter(ctx context.Context, cfg config.Config, model string, executor *resilience.Executor) (ports.Completer, error) {
	switch provider := strings.ToLower(strings.TrimSpace(cfg.LLMProvider)); provider {
	case "openai", "":
		if model == "" {
			model = cfg.OpenAIModel
		}
		return openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, model, cfg.LLMTimeout, httpx.WithExecutor(executor)), nil
	case "ollama":
		if model == "" {
			model = cfg.OllamaModel
		}
		return ollama.New(cfg.OllamaURL, model, cfg.LLMTimeout, httpx.WithExecutor(executor)), nil
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is required for the gemini provider")
		}
		if model == "" {
			model = cfg.GeminiModel
		}
		client, err := gemini.New(ctx, cfg.GeminiAPIKey, model, executor)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", provider)
	}
}

// newSynthesizer returns nil for TTS_PROVIDER=none, which turns the audio
// artifact off.
func newSynthesizer(cfg config.Config, executor *resilience.Executor) (ports.SpeechSynthesizer, error) {
	switch provider := strings.ToLower(strings.TrimSpace(cfg.TTSProvider)); provider {
	case "google", "":
		return googletts.New(cfg.TTSGoogleBaseURL, cfg.TTSLanguage, cfg.LLMTimeout, httpx.WithExecutor(executor)), nil
	case "openai":
		return openaitts.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.TTSOpenAIModel, cfg.TTSOpenAIVoice, cfg.LLMTimeout, httpx.WithExecutor(executor)), nil
	case "none", "off", "disabled":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown TTS_PROVIDER %q", provider)
	}
}
