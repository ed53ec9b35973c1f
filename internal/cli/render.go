package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"pomodoro/tracker/internal/model"
	"pomodoro/tracker/internal/timer"
)

var (
	clockStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#808080", Dark: "#808080"})
	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"})

	modeStyles = map[model.Mode]lipgloss.Style{
		model.ModePomodoro:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#c0392b", Dark: "#ff6b6b"}),
		model.ModeShortBreak: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"}),
		model.ModeLongBreak:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#58a6ff"}),
	}
)

var modeLabels = map[model.Mode]string{
	model.ModePomodoro:   "Pomodoro",
	model.ModeShortBreak: "Short break",
	model.ModeLongBreak:  "Long break",
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// renderStatus draws the one-line countdown shown by "pomodoro run".
func renderStatus(s timer.Snapshot) string {
	state := "paused"
	if s.Running {
		state = "running"
	}

	parts := []string{
		modeStyles[s.Mode].Render(modeLabels[s.Mode]),
		clockStyle.Render(formatClock(s.SecondsRemaining)),
		mutedStyle.Render(state),
	}
	if s.Mode == model.ModePomodoro {
		parts = append(parts, s.Title)
	}
	parts = append(parts, mutedStyle.Render(fmt.Sprintf("#%d", s.CompletedPomodoros)))
	return strings.Join(parts, "  ")
}

func renderSession(session model.TimerSession) string {
	marker := mutedStyle.Render("[ ]")
	if session.Completed {
		marker = doneStyle.Render("[x]")
	}
	return fmt.Sprintf("%s %s  %s  %s  %s",
		marker,
		session.StartedAt.Local().Format("2006-01-02 15:04"),
		formatClock(session.DurationSeconds),
		session.Title,
		mutedStyle.Render(session.ID),
	)
}
