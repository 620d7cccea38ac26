package pomodoro

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/study-assistant/internal/core/domain"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasPending := !t.stopped
	t.stopped = true
	return wasPending
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves time forward and fires due callbacks in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.SliceStable(c.timers, func(i, j int) bool { return c.timers[i].at.Before(c.timers[j].at) })
		var due *fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.at.After(target) {
				due = t
				break
			}
		}
		if due == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		due.stopped = true
		c.now = due.at
		c.mu.Unlock()
		due.fn()
	}
}

func (c *fakeClock) fireStale(t *fakeTimer) {
	t.fn()
}

func newTestSession(clock *fakeClock, transitions *[]domain.PomodoroTransition) *Session {
	return NewSession(Options{
		WorkDuration:  25 * time.Minute,
		BreakDuration: 5 * time.Minute,
		Clock:         clock,
		OnTransition: func(tr domain.PomodoroTransition) {
			if transitions != nil {
				*transitions = append(*transitions, tr)
			}
		},
	})
}

func TestStartFromIdleEntersWorkPhase(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock, nil)

	ack := s.Start()
	assert.Equal(t, domain.PomodoroRunning, ack.Status)
	assert.Equal(t, "Pomodoro timer started", ack.Message)

	st := s.Status()
	require.True(t, st.Active)
	assert.Equal(t, domain.PhaseWork, st.Phase)
	assert.False(t, st.IsBreak())
	require.NotNil(t, st.StartedAt)
	assert.True(t, st.StartedAt.Equal(clock.Now()))
	require.NotNil(t, st.PhaseEndsAt)
	assert.True(t, st.PhaseEndsAt.Equal(clock.Now().Add(25*time.Minute)))
	assert.Equal(t, 1, clock.pending())
}

func TestStartWhileRunningIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock, nil)
	s.Start()
	before := s.Status()

	clock.Advance(3 * time.Minute)
	ack := s.Start()

	assert.Equal(t, domain.PomodoroRunning, ack.Status)
	assert.Equal(t, "Pomodoro timer is already running", ack.Message)
	after := s.Status()
	assert.Equal(t, before.Phase, after.Phase)
	assert.True(t, before.StartedAt.Equal(*after.StartedAt))
	assert.Equal(t, 1, clock.pending(), "second start must not schedule another worker")
}

func TestStopClearsState(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock, nil)
	s.Start()

	ack := s.Stop()
	assert.Equal(t, domain.PomodoroStopped, ack.Status)
	assert.Equal(t, "Pomodoro timer stopped", ack.Message)

	st := s.Status()
	assert.False(t, st.Active)
	assert.False(t, st.IsBreak())
	assert.Nil(t, st.StartedAt)
	assert.Nil(t, st.PhaseStartedAt)
	assert.Empty(t, st.Phase)
	assert.Equal(t, 0, clock.pending())
}

func TestStopWhenIdleIsNoop(t *testing.T) {
	s := newTestSession(newFakeClock(), nil)

	ack := s.Stop()
	assert.Equal(t, domain.PomodoroStopped, ack.Status)
	assert.Equal(t, "Pomodoro timer is not running", ack.Message)
	assert.Equal(t, domain.PomodoroStatus{}, s.Status())
}

func TestPhasesAlternateOnExpiry(t *testing.T) {
	clock := newFakeClock()
	var transitions []domain.PomodoroTransition
	s := newTestSession(clock, &transitions)
	s.Start()
	started := *s.Status().StartedAt

	clock.Advance(25*time.Minute - time.Second)
	assert.Equal(t, domain.PhaseWork, s.Status().Phase)

	clock.Advance(time.Second)
	st := s.Status()
	assert.True(t, st.IsBreak())
	assert.Equal(t, 1, st.CompletedWorkPeriods)
	assert.True(t, started.Equal(*st.StartedAt), "cycle start must not move on phase change")
	require.Len(t, transitions, 1)
	assert.Equal(t, domain.PhaseWork, transitions[0].From)
	assert.Equal(t, domain.PhaseBreak, transitions[0].To)

	clock.Advance(5 * time.Minute)
	assert.Equal(t, domain.PhaseWork, s.Status().Phase)
	require.Len(t, transitions, 2)
	assert.Equal(t, domain.PhaseBreak, transitions[1].From)
	assert.Equal(t, 1, clock.pending())
}

func TestStopDuringWorkSuppressesBreak(t *testing.T) {
	clock := newFakeClock()
	var transitions []domain.PomodoroTransition
	s := newTestSession(clock, &transitions)
	s.Start()

	clock.Advance(10 * time.Minute)
	s.Stop()
	clock.Advance(time.Hour)

	assert.False(t, s.Status().Active)
	assert.Empty(t, transitions)
}

func TestStaleCallbackCannotMutateNewSession(t *testing.T) {
	clock := newFakeClock()
	var transitions []domain.PomodoroTransition
	s := newTestSession(clock, &transitions)
	s.Start()

	clock.mu.Lock()
	stale := clock.timers[0]
	clock.mu.Unlock()

	s.Stop()
	s.Start()
	clock.fireStale(stale)

	st := s.Status()
	assert.Equal(t, domain.PhaseWork, st.Phase)
	assert.Empty(t, transitions)
}

func TestStatusNeverActiveWithoutStartTime(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(clock, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if (i+j)%2 == 0 {
					s.Start()
				} else {
					s.Stop()
				}
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	for {
		st := s.Status()
		if st.Active {
			require.NotNil(t, st.StartedAt)
			require.NotEmpty(t, st.Phase)
		} else {
			require.Nil(t, st.StartedAt)
		}
		select {
		case <-done:
			assert.LessOrEqual(t, clock.pending(), 1)
			return
		default:
		}
	}
}

func TestActiveChangeHookReportsStartAndStopOnce(t *testing.T) {
	var changes []bool
	s := NewSession(Options{
		Clock:          newFakeClock(),
		OnActiveChange: func(active bool) { changes = append(changes, active) },
	})

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()

	assert.Equal(t, []bool{true, false}, changes)
}

func TestNewSessionAppliesDefaults(t *testing.T) {
	clock := newFakeClock()
	s := NewSession(Options{Clock: clock})
	s.Start()

	st := s.Status()
	assert.True(t, st.PhaseEndsAt.Equal(clock.Now().Add(DefaultWorkDuration)))
	s.Close()
	assert.False(t, s.Status().Active)
}

type activeRecorder struct {
	mu      sync.Mutex
	changes []bool
}

func (r *activeRecorder) record(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, active)
}

func (r *activeRecorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.changes...)
}

// blockingStartHook parks the first "active" notification until release is
// closed, leaving the start hook in flight while other calls proceed.
func blockingStartHook(rec *activeRecorder, entered chan<- struct{}, release <-chan struct{}) func(bool) {
	var once sync.Once
	return func(active bool) {
		if active {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
		rec.record(active)
	}
}

func TestStopDuringSlowStartHookLeavesHooksInOrder(t *testing.T) {
	rec := &activeRecorder{}
	entered, release := make(chan struct{}), make(chan struct{})
	s := NewSession(Options{
		Clock:          newFakeClock(),
		OnActiveChange: blockingStartHook(rec, entered, release),
	})

	started := make(chan struct{})
	go func() {
		defer close(started)
		s.Start()
	}()
	<-entered

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.Stop()
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked behind the start hook")
	}

	close(release)
	<-started

	assert.False(t, s.Status().Active)
	assert.Equal(t, []bool{true, false}, rec.snapshot())
}

func TestTransitionOvertakenByStopIsNotReported(t *testing.T) {
	clock := newFakeClock()
	rec := &activeRecorder{}
	var (
		mu          sync.Mutex
		transitions []domain.PomodoroTransition
	)
	entered, release := make(chan struct{}), make(chan struct{})
	s := NewSession(Options{
		WorkDuration:   25 * time.Minute,
		BreakDuration:  5 * time.Minute,
		Clock:          clock,
		OnActiveChange: blockingStartHook(rec, entered, release),
		OnTransition: func(tr domain.PomodoroTransition) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, tr)
		},
	})

	started := make(chan struct{})
	go func() {
		defer close(started)
		s.Start()
	}()
	<-entered

	clock.Advance(25 * time.Minute)
	require.Equal(t, domain.PhaseBreak, s.Status().Phase)
	s.Stop()

	close(release)
	<-started

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, transitions)
	assert.Equal(t, []bool{true, false}, rec.snapshot())
}

func TestHooksMayReadStatus(t *testing.T) {
	var seen []domain.PomodoroPhase
	var s *Session
	clock := newFakeClock()
	s = NewSession(Options{
		Clock: clock,
		OnTransition: func(domain.PomodoroTransition) {
			seen = append(seen, s.Status().Phase)
		},
	})

	s.Start()
	clock.Advance(DefaultWorkDuration)

	assert.Equal(t, []domain.PomodoroPhase{domain.PhaseBreak}, seen)
	s.Stop()
}
