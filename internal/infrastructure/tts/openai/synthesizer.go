package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/infrastructure/httpx"
)

// MaxInputChars is the speech endpoint's per-request input limit.
const MaxInputChars = 4096

type Synthesizer struct {
	model string
	voice string
	http  *httpx.Client
}

func New(baseURL, apiKey, model, voice string, timeout time.Duration, opts ...httpx.Option) *Synthesizer {
	opts = append([]httpx.Option{httpx.WithBearerToken(apiKey)}, opts...)
	return &Synthesizer{
		model: model,
		voice: voice,
		http:  httpx.New("openai_tts", baseURL, timeout, opts...),
	}
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "tts.synthesize", fmt.Errorf("nothing to speak"))
	}
	if runes := []rune(input); len(runes) > MaxInputChars {
		input = string(runes[:MaxInputChars])
	}

	payload := map[string]string{
		"model":           s.model,
		"voice":           s.voice,
		"input":           input,
		"response_format": "mp3",
	}
	audio, err := s.http.PostJSONRaw(ctx, "/v1/audio/speech", payload, "speech")
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("openai speech: empty audio")
	}
	return audio, nil
}
