package domain

import "time"

type PomodoroPhase string

const (
	PhaseWork  PomodoroPhase = "work"
	PhaseBreak PomodoroPhase = "break"
)

// Run states reported by start/stop acknowledgements.
const (
	PomodoroRunning = "running"
	PomodoroStopped = "stopped"
)

type PomodoroAck struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// PomodoroStatus is a consistent snapshot of the timer session. Every
// timestamp is nil and Phase is empty when Active is false.
type PomodoroStatus struct {
	Active               bool          `json:"is_active"`
	Phase                PomodoroPhase `json:"phase"`
	StartedAt            *time.Time    `json:"start_time"`
	PhaseStartedAt       *time.Time    `json:"phase_started_at"`
	PhaseEndsAt          *time.Time    `json:"phase_ends_at"`
	CompletedWorkPeriods int           `json:"completed_work_periods"`
}

func (s PomodoroStatus) IsBreak() bool {
	return s.Active && s.Phase == PhaseBreak
}

type PomodoroTransition struct {
	From                 PomodoroPhase
	To                   PomodoroPhase
	At                   time.Time
	CompletedWorkPeriods int
}
