package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	linkForegroundColor = lipgloss.AdaptiveColor{Light: "#000099", Dark: "#9F9FFF"}
	linkStyle           = lipgloss.NewStyle().Foreground(linkForegroundColor).Underline(true)
	textStyleColor      = lipgloss.AdaptiveColor{Light: "#36EEE0", Dark: "#00FFFF"}
	mutedStyleColor     = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}
	warningStyleColor   = lipgloss.AdaptiveColor{Light: "#FFA500", Dark: "#FFA500"}
	titleStyleColor     = lipgloss.AdaptiveColor{Light: "#071330", Dark: "#F652A0"}
	secondaryStyleColor = lipgloss.AdaptiveColor{Light: "#214358", Dark: "#AEB8C4"}
	commandStyle        = lipgloss.NewStyle().Foreground(textStyleColor)
)

func Title(text string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(titleStyleColor).Render(text)
}

func Bold(text string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(textStyleColor).Render(text)
}

func Secondary(text string) string {
	return lipgloss.NewStyle().Foreground(secondaryStyleColor).Render(text)
}

func Muted(text string) string {
	return lipgloss.NewStyle().Foreground(mutedStyleColor).Render(text)
}

func Warning(text string) string {
	return lipgloss.NewStyle().Foreground(warningStyleColor).Render(text)
}

func Link(url string, args ...any) string {
	return linkStyle.Render(fmt.Sprintf(url, args...))
}

// Command renders a caselaw command line.
func Command(cmd string, args ...string) string {
	cmdline := "caselaw " + strings.Join(append([]string{cmd}, args...), " ")
	return commandStyle.Render(cmdline)
}

// MaxWidth cuts text to width runes, ending it with an ellipsis when cut.
func MaxWidth(text string, width int) string {
	if width <= 3 || lipgloss.Width(text) <= width {
		return text
	}
	runes := []rune(text)
	if len(runes) <= width {
		return text
	}
	return string(runes[:width-3]) + "..."
}

// OrDash returns "-" for an empty value so table cells are never blank.
func OrDash(val string) string {
	if strings.TrimSpace(val) == "" {
		return "-"
	}
	return val
}
