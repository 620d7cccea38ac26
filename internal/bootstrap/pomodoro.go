package bootstrap

import (
	"log/slog"

	"github.com/kirillkom/study-assistant/internal/config"
	"github.com/kirillkom/study-assistant/internal/core/domain"
	"github.com/kirillkom/study-assistant/internal/core/pomodoro"
)

// PomodoroRecorder receives timer events for metrics.
type PomodoroRecorder interface {
	RecordPomodoroTransition(service, from, to string)
	SetPomodoroActive(active bool)
}

// NewPomodoroSession builds the timer session owned by the API process.
// recorder may be nil.
func NewPomodoroSession(cfg config.Config, service string, logger *slog.Logger, recorder PomodoroRecorder) *pomodoro.Session {
	if logger == nil {
		logger = slog.Default()
	}
	return pomodoro.NewSession(pomodoro.Options{
		WorkDuration:  cfg.PomodoroWorkDuration,
		BreakDuration: cfg.PomodoroBreakDuration,
		OnTransition: func(tr domain.PomodoroTransition) {
			message := "Break's over! Back to work."
			if tr.To == domain.PhaseBreak {
				message = "Time's up! Take a break."
			}
			logger.Info(message,
				"event", "pomodoro_transition",
				"from", tr.From,
				"to", tr.To,
				"completed_work_periods", tr.CompletedWorkPeriods,
			)
			if recorder != nil {
				recorder.RecordPomodoroTransition(service, string(tr.From), string(tr.To))
			}
		},
		OnActiveChange: func(active bool) {
			logger.Info("pomodoro_state", "active", active)
			if recorder != nil {
				recorder.SetPomodoroActive(active)
			}
		},
	})
}
