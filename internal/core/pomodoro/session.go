// Package pomodoro implements the work/break interval timer.
//
// A Session alternates between a work phase and a break phase until it is
// stopped. Phase changes are driven by a single scheduled callback owned by
// the session; every read and write of session state happens under one mutex,
// so a status snapshot never mixes fields of two different states.
package pomodoro

import (
	"sync"
	"time"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

const (
	DefaultWorkDuration  = 25 * time.Minute
	DefaultBreakDuration = 5 * time.Minute
)

const (
	msgStarted        = "Pomodoro timer started"
	msgAlreadyRunning = "Pomodoro timer is already running"
	msgStopped        = "Pomodoro timer stopped"
	msgNotRunning     = "Pomodoro timer is not running"
)

// Options configures a Session. Zero durations and a nil Clock select the
// defaults.
//
// Hooks run without the session lock held and are delivered one at a time in
// the order the state changes happened. A hook may call Status. A transition
// that is overtaken by a stop before it is delivered is dropped.
type Options struct {
	WorkDuration  time.Duration
	BreakDuration time.Duration
	Clock         Clock
	// OnTransition is invoked after every automatic phase change.
	OnTransition func(domain.PomodoroTransition)
	// OnActiveChange is invoked after start and stop.
	OnActiveChange func(active bool)
}

// Session is one work/break timer. It is safe for concurrent use.
type Session struct {
	clock          Clock
	workDuration   time.Duration
	breakDuration  time.Duration
	onTransition   func(domain.PomodoroTransition)
	onActiveChange func(bool)

	mu             sync.Mutex
	active         bool
	phase          domain.PomodoroPhase
	startedAt      time.Time
	phaseStartedAt time.Time
	completedWork  int
	timer          Timer
	// generation identifies the running session; callbacks scheduled for an
	// older generation must not touch state.
	generation uint64

	// notifyMu guards pending and delivering. It is taken inside mu to
	// enqueue and never held while a hook runs.
	notifyMu   sync.Mutex
	pending    []notice
	delivering bool
}

type notice struct {
	generation uint64
	transition *domain.PomodoroTransition
	active     bool
}

// NewSession returns an idle session.
func NewSession(opts Options) *Session {
	if opts.WorkDuration <= 0 {
		opts.WorkDuration = DefaultWorkDuration
	}
	if opts.BreakDuration <= 0 {
		opts.BreakDuration = DefaultBreakDuration
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	return &Session{
		clock:          opts.Clock,
		workDuration:   opts.WorkDuration,
		breakDuration:  opts.BreakDuration,
		onTransition:   opts.OnTransition,
		onActiveChange: opts.OnActiveChange,
	}
}

// Start enters the work phase. Starting a running session changes nothing.
func (s *Session) Start() domain.PomodoroAck {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return domain.PomodoroAck{Message: msgAlreadyRunning, Status: domain.PomodoroRunning}
	}

	now := s.clock.Now()
	s.generation++
	s.active = true
	s.phase = domain.PhaseWork
	s.startedAt = now
	s.phaseStartedAt = now
	s.completedWork = 0
	s.scheduleLocked(s.generation, s.workDuration)
	s.enqueueLocked(notice{generation: s.generation, active: true})
	s.mu.Unlock()

	s.deliver()
	return domain.PomodoroAck{Message: msgStarted, Status: domain.PomodoroRunning}
}

// Stop cancels the pending phase change and returns the session to idle.
func (s *Session) Stop() domain.PomodoroAck {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return domain.PomodoroAck{Message: msgNotRunning, Status: domain.PomodoroStopped}
	}
	s.resetLocked()
	s.enqueueLocked(notice{generation: s.generation, active: false})
	s.mu.Unlock()

	s.deliver()
	return domain.PomodoroAck{Message: msgStopped, Status: domain.PomodoroStopped}
}

// Status returns a consistent snapshot. An idle session reports the zero
// value.
func (s *Session) Status() domain.PomodoroStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return domain.PomodoroStatus{}
	}

	startedAt := s.startedAt
	phaseStartedAt := s.phaseStartedAt
	phaseEndsAt := phaseStartedAt.Add(s.durationOf(s.phase))
	return domain.PomodoroStatus{
		Active:               true,
		Phase:                s.phase,
		StartedAt:            &startedAt,
		PhaseStartedAt:       &phaseStartedAt,
		PhaseEndsAt:          &phaseEndsAt,
		CompletedWorkPeriods: s.completedWork,
	}
}

// Close cancels the pending phase change without reporting a stop.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.resetLocked()
	}
}

func (s *Session) resetLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.generation++
	s.active = false
	s.phase = ""
	s.startedAt = time.Time{}
	s.phaseStartedAt = time.Time{}
	s.completedWork = 0
	s.timer = nil
}

func (s *Session) scheduleLocked(generation uint64, d time.Duration) {
	s.timer = s.clock.AfterFunc(d, func() {
		s.advance(generation)
	})
}

func (s *Session) advance(generation uint64) {
	s.mu.Lock()
	if !s.active || s.generation != generation {
		s.mu.Unlock()
		return
	}

	from := s.phase
	to := domain.PhaseBreak
	if from == domain.PhaseBreak {
		to = domain.PhaseWork
	} else {
		s.completedWork++
	}

	now := s.clock.Now()
	s.phase = to
	s.phaseStartedAt = now
	s.scheduleLocked(generation, s.durationOf(to))
	s.enqueueLocked(notice{
		generation: generation,
		transition: &domain.PomodoroTransition{
			From:                 from,
			To:                   to,
			At:                   now,
			CompletedWorkPeriods: s.completedWork,
		},
	})
	s.mu.Unlock()

	s.deliver()
}

func (s *Session) durationOf(phase domain.PomodoroPhase) time.Duration {
	if phase == domain.PhaseBreak {
		return s.breakDuration
	}
	return s.workDuration
}

func (s *Session) enqueueLocked(n notice) {
	if n.transition != nil && s.onTransition == nil {
		return
	}
	if n.transition == nil && s.onActiveChange == nil {
		return
	}
	s.notifyMu.Lock()
	s.pending = append(s.pending, n)
	s.notifyMu.Unlock()
}

// deliver runs queued hooks in order. If another goroutine is already
// delivering, it picks up the new notices and this call returns at once.
func (s *Session) deliver() {
	s.notifyMu.Lock()
	if s.delivering {
		s.notifyMu.Unlock()
		return
	}
	s.delivering = true
	for len(s.pending) > 0 {
		n := s.pending[0]
		s.pending = s.pending[1:]
		s.notifyMu.Unlock()
		s.dispatch(n)
		s.notifyMu.Lock()
	}
	s.delivering = false
	s.notifyMu.Unlock()
}

func (s *Session) dispatch(n notice) {
	if n.transition == nil {
		s.onActiveChange(n.active)
		return
	}
	s.mu.Lock()
	current := s.active && s.generation == n.generation
	s.mu.Unlock()
	if current {
		s.onTransition(*n.transition)
	}
}
