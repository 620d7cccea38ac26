package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("POMODORO_WORK_DURATION", "")
	t.Setenv("POMODORO_BREAK_DURATION", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("STUDY_MAX_INPUT_CHARS", "")

	cfg := Load()
	if cfg.PomodoroWorkDuration != 25*time.Minute {
		t.Fatalf("expected default work duration 25m, got %s", cfg.PomodoroWorkDuration)
	}
	if cfg.PomodoroBreakDuration != 5*time.Minute {
		t.Fatalf("expected default break duration 5m, got %s", cfg.PomodoroBreakDuration)
	}
	if cfg.DatabaseDriver != "sqlite" {
		t.Fatalf("expected default driver sqlite, got %q", cfg.DatabaseDriver)
	}
	if cfg.MaxInputChars != 8000 {
		t.Fatalf("expected default max input chars 8000, got %d", cfg.MaxInputChars)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("POMODORO_WORK_DURATION", "50m")
	t.Setenv("POMODORO_BREAK_DURATION", "10m")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("BREAKER_ENABLED", "false")

	cfg := Load()
	if cfg.PomodoroWorkDuration != 50*time.Minute {
		t.Fatalf("expected work duration override, got %s", cfg.PomodoroWorkDuration)
	}
	if cfg.PomodoroBreakDuration != 10*time.Minute {
		t.Fatalf("expected break duration override, got %s", cfg.PomodoroBreakDuration)
	}
	if cfg.APIRateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit 2.5, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.BreakerEnabled {
		t.Fatalf("expected breaker disabled")
	}
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("POMODORO_WORK_DURATION", "-5m")
	t.Setenv("STUDY_FLASHCARD_COUNT", "many")

	cfg := Load()
	if cfg.PomodoroWorkDuration != 25*time.Minute {
		t.Fatalf("expected fallback for negative duration, got %s", cfg.PomodoroWorkDuration)
	}
	if cfg.FlashcardCount != 5 {
		t.Fatalf("expected fallback flashcard count, got %d", cfg.FlashcardCount)
	}
}

func TestLoadReadsYAMLFileBelowEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "pomodoro_work_duration: 45m\nllm_provider: ollama\nstudy_flashcard_count: 8\napi_port: 7000\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("POMODORO_WORK_DURATION", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("STUDY_FLASHCARD_COUNT", "")
	t.Setenv("API_PORT", "8081")

	cfg := Load()
	if cfg.PomodoroWorkDuration != 45*time.Minute {
		t.Fatalf("expected work duration from file, got %s", cfg.PomodoroWorkDuration)
	}
	if cfg.LLMProvider != "ollama" {
		t.Fatalf("expected provider from file, got %q", cfg.LLMProvider)
	}
	if cfg.FlashcardCount != 8 {
		t.Fatalf("expected flashcard count from file, got %d", cfg.FlashcardCount)
	}
	if cfg.APIPort != "8081" {
		t.Fatalf("expected environment to win over file, got %q", cfg.APIPort)
	}
}

func TestLoadSurvivesBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_port: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("API_PORT", "")

	cfg := Load()
	if cfg.APIPort != "5000" {
		t.Fatalf("expected default port, got %q", cfg.APIPort)
	}
}
