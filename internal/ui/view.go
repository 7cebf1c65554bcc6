// Package ui renders the playback status panel that the control loop redraws
// every tick.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jscyril/tinyplayer/api"
	"github.com/jscyril/tinyplayer/internal/config"
	"github.com/jscyril/tinyplayer/internal/ui/components"
	"github.com/muesli/termenv"
)

// View renders api.PlaybackState as plain labelled lines
type View struct {
	Width       int
	ProgressBar components.ProgressBar
	Controls    string

	// Styles
	HeaderStyle   lipgloss.Style
	LabelStyle    lipgloss.Style
	ArtistStyle   lipgloss.Style
	ControlsStyle lipgloss.Style
}

// NewView creates a view sized to width columns, listing keys as help
func NewView(width int, keys config.KeyMap) *View {
	return &View{
		Width:       width,
		ProgressBar: components.NewProgressBar(width),
		Controls:    controlsHelp(keys),
		HeaderStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		LabelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
		ArtistStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true),
		ControlsStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// Render returns the status panel for state
func (v *View) Render(state api.PlaybackState) string {
	var sb strings.Builder

	header := fmt.Sprintf("[%d/%d] %s", state.Index+1, state.Total, state.Title)
	sb.WriteString(v.HeaderStyle.Render(header))
	if state.Artist != "" {
		sb.WriteString(" ")
		sb.WriteString(v.ArtistStyle.Render(state.Artist))
	}
	sb.WriteString("\n\n")

	v.line(&sb, "Filename", state.FileName)
	v.line(&sb, "Time", fmt.Sprintf("%.3f", state.Time))
	v.line(&sb, "Duration", fmt.Sprintf("%.3f", state.Duration))
	v.line(&sb, "Volume", fmt.Sprintf("%d", state.Volume))
	v.line(&sb, "Paused", boolLabel(state.Paused))
	v.line(&sb, "Loop", boolLabel(state.Loop))
	sb.WriteString("\n")

	v.ProgressBar.SetProgress(state.Time, state.Duration)
	sb.WriteString(v.ProgressBar.View())
	sb.WriteString("\n\n")

	sb.WriteString(v.ControlsStyle.Render(v.Controls))
	sb.WriteString("\n")
	return sb.String()
}

// Draw clears the screen and writes the panel to w
func (v *View) Draw(w io.Writer, state api.PlaybackState) error {
	var sb strings.Builder
	termenv.NewOutput(&sb, termenv.WithProfile(termenv.Ascii)).ClearScreen()
	sb.WriteString(v.Render(state))
	_, err := io.WriteString(w, sb.String())
	return err
}

func (v *View) line(sb *strings.Builder, label, value string) {
	sb.WriteString(v.LabelStyle.Render(fmt.Sprintf("%-9s:", label)))
	sb.WriteString(" ")
	sb.WriteString(value)
	sb.WriteString("\n")
}

func boolLabel(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func controlsHelp(keys config.KeyMap) string {
	name := func(key string) string {
		if key == " " {
			return "Space"
		}
		return key
	}
	return fmt.Sprintf(
		"[%s] Play/Pause  [%s/%s] Seek  [%s/%s] Volume  [%s] Loop  [%s/%s] Next/Prev  [%s] Shuffle  [%s] Quit",
		name(keys.PlayPause), name(keys.SeekBack), name(keys.SeekForward),
		name(keys.VolumeDown), name(keys.VolumeUp), name(keys.Loop),
		name(keys.Next), name(keys.Previous), name(keys.Shuffle), name(keys.Quit),
	)
}
