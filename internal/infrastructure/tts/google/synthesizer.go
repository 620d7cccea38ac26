// Package google synthesizes MP3 speech through the public Google Translate
// TTS endpoint, which accepts at most MaxChunkChars characters per request.
package google

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/infrastructure/httpx"
)

const MaxChunkChars = 100

type Synthesizer struct {
	language string
	http     *httpx.Client
}

func New(baseURL, language string, timeout time.Duration, opts ...httpx.Option) *Synthesizer {
	if strings.TrimSpace(language) == "" {
		language = "en"
	}
	opts = append([]httpx.Option{httpx.WithHeader("User-Agent", "Mozilla/5.0")}, opts...)
	return &Synthesizer{
		language: language,
		http:     httpx.New("google_tts", baseURL, timeout, opts...),
	}
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	chunks := Chunk(text, MaxChunkChars)
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "tts.synthesize", fmt.Errorf("nothing to speak"))
	}

	var audio bytes.Buffer
	for i, chunk := range chunks {
		query := url.Values{
			"ie":      {"UTF-8"},
			"client":  {"tw-ob"},
			"tl":      {s.language},
			"q":       {chunk},
			"total":   {strconv.Itoa(len(chunks))},
			"idx":     {strconv.Itoa(i)},
			"textlen": {strconv.Itoa(len([]rune(chunk)))},
		}
		part, err := s.http.Get(ctx, "/translate_tts", query, "speak")
		if err != nil {
			return nil, fmt.Errorf("synthesize chunk %d/%d: %w", i+1, len(chunks), err)
		}
		audio.Write(part)
	}
	return audio.Bytes(), nil
}

// Chunk splits text into pieces of at most limit runes, preferring sentence
// ends, then word boundaries. Words longer than limit are hard split.
func Chunk(text string, limit int) []string {
	words := strings.Fields(text)
	var (
		chunks  []string
		current []rune
	)
	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, string(current))
			current = current[:0]
		}
	}

	for _, word := range words {
		w := []rune(word)
		for len(w) > limit {
			flush()
			chunks = append(chunks, string(w[:limit]))
			w = w[limit:]
		}
		if len(w) == 0 {
			continue
		}

		needed := len(w)
		if len(current) > 0 {
			needed++
		}
		if len(current)+needed > limit {
			flush()
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, w...)

		if endsSentence(word) && len(current) >= limit/2 {
			flush()
		}
	}
	flush()
	return chunks
}

func endsSentence(word string) bool {
	return strings.HasSuffix(word, ".") || strings.HasSuffix(word, "!") || strings.HasSuffix(word, "?")
}
