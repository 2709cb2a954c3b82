package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const ellipsis = "…"

var (
	cream     = lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#FFFDF5"}
	fuchsia   = lipgloss.Color("#EE6FF8")
	green     = lipgloss.Color("#04B575")
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	faintRed  = lipgloss.AdaptiveColor{Light: "#FF6F91", Dark: "#C74665"}
	yellow    = lipgloss.AdaptiveColor{Light: "#C2A100", Dark: "#EDD157"}
	gray      = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	midGray   = lipgloss.AdaptiveColor{Light: "#B2B2B2", Dark: "#4A4A4A"}
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}
)

var (
	logoStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(fuchsia).
			Bold(true).
			Padding(0, 1)

	languageStyle = lipgloss.NewStyle().
			Foreground(mintGreen).
			Background(darkGreen).
			Padding(0, 1)

	voiceStyle = lipgloss.NewStyle().Foreground(gray).PaddingLeft(1)

	stepNumberStyle  = lipgloss.NewStyle().Foreground(midGray)
	stepStyle        = lipgloss.NewStyle().Foreground(gray)
	currentStepStyle = lipgloss.NewStyle().
				Foreground(fuchsia).
				Bold(true)
	currentMarker = lipgloss.NewStyle().Foreground(fuchsia).Render("│")

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(cream).
				Background(faintRed).
				Render

	stateStyles = map[string]lipgloss.Style{
		"playing": lipgloss.NewStyle().Foreground(cream).Background(green).Padding(0, 1),
		"paused":  lipgloss.NewStyle().Foreground(cream).Background(yellow).Padding(0, 1),
		"stopped": lipgloss.NewStyle().Foreground(cream).Background(red).Padding(0, 1),
		"idle":    lipgloss.NewStyle().Foreground(cream).Background(midGray).Padding(0, 1),
	}

	mutedStyle = lipgloss.NewStyle().Foreground(red).Background(statusBarBg).Render
	errorStyle = lipgloss.NewStyle().Foreground(red).Render
)

// indent prefixes every line of s with n spaces.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}
