package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
)

// ProgressBar draws a position within a track of known duration
type ProgressBar struct {
	Width       int
	Current     float64
	Total       float64
	BarChar     string
	EmptyChar   string
	ShowTime    bool
	Style       lipgloss.Style
	FilledStyle lipgloss.Style
	EmptyStyle  lipgloss.Style
}

// NewProgressBar creates a new progress bar
func NewProgressBar(width int) ProgressBar {
	return ProgressBar{
		Width:       width,
		BarChar:     "█",
		EmptyChar:   "░",
		ShowTime:    true,
		Style:       lipgloss.NewStyle(),
		FilledStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		EmptyStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// SetProgress sets the position and duration, both in seconds
func (p *ProgressBar) SetProgress(current, total float64) {
	p.Current = current
	p.Total = total
}

// Filled returns how many of the bar's cells are filled
func (p ProgressBar) Filled() int {
	var percent float64
	if p.Total > 0 {
		percent = lo.Clamp(p.Current/p.Total, 0, 1)
	}
	return int(float64(p.barWidth()) * percent)
}

func (p ProgressBar) barWidth() int {
	// Leave room for time display
	return lo.Max([]int{p.Width - 14, 10})
}

// View renders the progress bar
func (p ProgressBar) View() string {
	var sb strings.Builder

	filled := p.Filled()
	sb.WriteString(p.FilledStyle.Render(strings.Repeat(p.BarChar, filled)))
	sb.WriteString(p.EmptyStyle.Render(strings.Repeat(p.EmptyChar, p.barWidth()-filled)))

	if p.ShowTime {
		sb.WriteString(" ")
		sb.WriteString(FormatSeconds(p.Current))
		sb.WriteString("/")
		sb.WriteString(FormatSeconds(p.Total))
	}

	return p.Style.Render(sb.String())
}

// FormatSeconds formats seconds as MM:SS
func FormatSeconds(seconds float64) string {
	total := int(seconds + 0.5)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
