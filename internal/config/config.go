package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort   string
	LogLevel  string
	LogFormat string

	CORSAllowedOrigins string
	APIRateLimitRPS    float64
	APIRateLimitBurst  int
	APIMaxInFlight     int
	APIQueueWait       time.Duration
	MaxUploadBytes     int64

	PomodoroWorkDuration  time.Duration
	PomodoroBreakDuration time.Duration

	DatabaseDriver string
	DatabaseDSN    string

	StoragePath string

	NATSURL     string
	NATSSubject string

	InboxDir           string
	InboxMaxConcurrent int

	LLMProvider    string
	OpenAIBaseURL  string
	OpenAIAPIKey   string
	OpenAIModel    string
	OllamaURL      string
	OllamaModel    string
	GeminiAPIKey   string
	GeminiModel    string
	LLMTimeout     time.Duration
	MaxInputChars  int
	FlashcardCount int
	ReviewModel    string

	TTSProvider      string
	TTSLanguage      string
	TTSGoogleBaseURL string
	TTSOpenAIModel   string
	TTSOpenAIVoice   string

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	BreakerEnabled      bool

	WorkerMetricsPort string
	WorkerJobTimeout  time.Duration
}

// Load reads configuration from the environment. When CONFIG_FILE points to a
// YAML document its keys (environment variable names, any case) act as
// fallbacks below the real environment.
func Load() Config {
	file, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: ignoring CONFIG_FILE: %v\n", err)
		file = nil
	}
	src := source{file: file}

	return Config{
		APIPort:   src.str("API_PORT", "5000"),
		LogLevel:  src.str("LOG_LEVEL", "info"),
		LogFormat: src.str("LOG_FORMAT", "json"),

		CORSAllowedOrigins: src.str("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		APIRateLimitRPS:    src.float("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst:  src.int("API_RATE_LIMIT_BURST", 10),
		APIMaxInFlight:     src.int("API_MAX_IN_FLIGHT", 4),
		APIQueueWait:       src.duration("API_QUEUE_WAIT", 2*time.Second),
		MaxUploadBytes:     int64(src.int("MAX_UPLOAD_BYTES", 20<<20)),

		PomodoroWorkDuration:  src.duration("POMODORO_WORK_DURATION", 25*time.Minute),
		PomodoroBreakDuration: src.duration("POMODORO_BREAK_DURATION", 5*time.Minute),

		DatabaseDriver: src.str("DATABASE_DRIVER", "sqlite"),
		DatabaseDSN:    src.str("DATABASE_DSN", ":memory:"),

		StoragePath: src.str("STORAGE_PATH", "./data/storage"),

		NATSURL:     src.str("NATS_URL", ""),
		NATSSubject: src.str("NATS_SUBJECT", "studyguides.requested"),

		InboxDir:           src.str("INBOX_DIR", ""),
		InboxMaxConcurrent: src.int("INBOX_MAX_CONCURRENT", 2),

		LLMProvider:    src.str("LLM_PROVIDER", "openai"),
		OpenAIBaseURL:  src.str("OPENAI_BASE_URL", "https://api.openai.com"),
		OpenAIAPIKey:   src.str("OPENAI_API_KEY", ""),
		OpenAIModel:    src.str("OPENAI_MODEL", "gpt-4o-mini"),
		OllamaURL:      src.str("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:    src.str("OLLAMA_MODEL", "llama3.1:8b"),
		GeminiAPIKey:   src.str("GEMINI_API_KEY", ""),
		GeminiModel:    src.str("GEMINI_MODEL", "gemini-2.5-flash"),
		LLMTimeout:     src.duration("LLM_TIMEOUT", 120*time.Second),
		MaxInputChars:  src.int("STUDY_MAX_INPUT_CHARS", 8000),
		FlashcardCount: src.int("STUDY_FLASHCARD_COUNT", 5),
		ReviewModel:    src.str("REVIEW_MODEL", ""),

		TTSProvider:      src.str("TTS_PROVIDER", "google"),
		TTSLanguage:      src.str("TTS_LANGUAGE", "en"),
		TTSGoogleBaseURL: src.str("TTS_GOOGLE_BASE_URL", "https://translate.google.com"),
		TTSOpenAIModel:   src.str("TTS_OPENAI_MODEL", "tts-1"),
		TTSOpenAIVoice:   src.str("TTS_OPENAI_VOICE", "alloy"),

		RetryMaxAttempts:    src.int("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoff: src.duration("RETRY_INITIAL_BACKOFF", 200*time.Millisecond),
		BreakerEnabled:      src.bool("BREAKER_ENABLED", true),

		WorkerMetricsPort: src.str("WORKER_METRICS_PORT", "9090"),
		WorkerJobTimeout:  src.duration("WORKER_JOB_TIMEOUT", 5*time.Minute),
	}
}

func readFile(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make(map[string]string, len(doc))
	for key, value := range doc {
		if value == nil {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(key))] = fmt.Sprint(value)
	}
	return out, nil
}

type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) str(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) int(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) float(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) bool(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func (s source) duration(key string, fallback time.Duration) time.Duration {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
