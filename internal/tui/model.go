// Package tui is a terminal front end for the pomodoro API.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kirillkom/study-assistant/internal/client"
	"github.com/kirillkom/study-assistant/internal/core/domain"
)

const requestTimeout = 5 * time.Second

// API is the subset of the pomodoro client the model drives.
type API interface {
	Start(ctx context.Context) (domain.PomodoroAck, error)
	Stop(ctx context.Context) (domain.PomodoroAck, error)
	Status(ctx context.Context) (client.Status, error)
}

type tickMsg time.Time

type statusMsg struct {
	status client.Status
	err    error
}

type ackMsg struct {
	ack domain.PomodoroAck
	err error
}

type Model struct {
	api      API
	interval time.Duration
	now      func() time.Time

	status  client.Status
	loaded  bool
	message string
	err     error

	progress progress.Model
	help     help.Model
	width    int
}

// New polls the API every interval.
func New(api API, interval time.Duration) Model {
	if interval <= 0 {
		interval = time.Second
	}
	return Model{
		api:      api,
		interval: interval,
		now:      time.Now,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:     help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchStatus(), m.tick())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = max(10, min(60, msg.Width-10))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Start):
			return m, m.call(m.api.Start)
		case key.Matches(msg, keys.Stop):
			return m, m.call(m.api.Stop)
		case key.Matches(msg, keys.Refresh):
			return m, m.fetchStatus()
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.fetchStatus(), m.tick())

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = msg.status
			m.loaded = true
		}
		return m, nil

	case ackMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		m.message = msg.ack.Message
		return m, m.fetchStatus()
	}
	return m, nil
}

func (m Model) View() string {
	title := titleStyle.Render("Focus")

	var body string
	switch {
	case !m.loaded:
		body = mutedStyle.Render("Connecting...")
	case !m.status.IsActive:
		body = lipgloss.JoinVertical(lipgloss.Center,
			timerStyle.Render("--:--"),
			mutedStyle.Render("Idle"),
		)
	default:
		style, label := workStyle, "WORK"
		if m.status.IsBreak {
			style, label = breakStyle, "BREAK"
		}
		body = lipgloss.JoinVertical(lipgloss.Center,
			style.Inherit(timerStyle).Render(formatRemaining(m.status.Remaining(m.now()))),
			style.Render(label),
			"",
			m.progress.ViewAs(m.phaseProgress()),
			mutedStyle.Render(fmt.Sprintf("completed work periods: %d", m.status.CompletedWorkPeriods)),
		)
	}

	lines := []string{title, "", body}
	if m.message != "" {
		lines = append(lines, "", messageStyle.Render(m.message))
	}
	if m.err != nil {
		lines = append(lines, "", errorStyle.Render("error: "+m.err.Error()))
	}
	lines = append(lines, "", m.help.View(keys))
	return panelStyle.Render(lipgloss.JoinVertical(lipgloss.Center, lines...)) + "\n"
}

// phaseProgress is the elapsed fraction of the current phase.
func (m Model) phaseProgress() float64 {
	s := m.status
	if !s.IsActive || s.PhaseStartedAt == nil || s.PhaseEndsAt == nil {
		return 0
	}
	total := s.PhaseEndsAt.Sub(*s.PhaseStartedAt)
	if total <= 0 {
		return 1
	}
	elapsed := m.now().Sub(*s.PhaseStartedAt)
	return min(1, max(0, float64(elapsed)/float64(total)))
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchStatus() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		status, err := api.Status(ctx)
		return statusMsg{status: status, err: err}
	}
}

func (m Model) call(fn func(context.Context) (domain.PomodoroAck, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		ack, err := fn(ctx)
		return ackMsg{ack: ack, err: err}
	}
}

func formatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
