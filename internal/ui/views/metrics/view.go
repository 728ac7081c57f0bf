package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	timerdto "cadence/internal/modules/timer/dto"
	"cadence/internal/platform/timefmt"
	"cadence/internal/ui/theme"
)

const barWidth = 20

// Render draws the live metrics pane for one snapshot.
func Render(m timerdto.MetricsSnapshot, width int) string {
	state := theme.Muted.Render("paused")
	pane := theme.Pane
	if m.Running {
		state = theme.Good.Render("running")
		pane = theme.PaneRunning
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		theme.Clock.Render(timefmt.Clock(time.Duration(m.ElapsedMs)*time.Millisecond)),
		"  ",
		state,
	)
	throughput := fmt.Sprintf("%s taps   %s upm",
		theme.Hot.Render(fmt.Sprintf("%d", m.Clicks)),
		theme.Hot.Render(fmt.Sprintf("%.1f", m.UnitsPerMinute)),
	)

	s := m.Smoothness
	scores := strings.Join([]string{
		scoreLine("consistency", s.Consistency),
		scoreLine("rhythm", s.Rhythm),
		scoreLine("flow", s.FlowState),
	}, "\n")
	critical := fmt.Sprintf("%s %d   %s %d",
		theme.Good.Render("✓"), s.CriticalSuccess,
		theme.Bad.Render("✗"), s.CriticalFailure,
	)

	r := m.Rewards
	rewards := theme.Muted.Render(fmt.Sprintf("xp %d   ap %d   flow bonus %d   x%.2f",
		r.Experience, r.AchievementPoints, r.FlowBonus, r.StreakMultiplier))

	body := strings.Join([]string{header, "", throughput, "", scores, critical, "", rewards}, "\n")
	if width > 4 {
		pane = pane.Width(width - 4)
	}
	return pane.Render(body)
}

func scoreLine(label string, v int) string {
	filled := v * barWidth / 100
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := theme.Score(v).Render(strings.Repeat("█", filled)) + theme.Muted.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("%-12s %s %3d", label, bar, v)
}
