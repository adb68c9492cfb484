package tui

import (
	"fmt"

	"github.com/agentuity/go-caselaw/logger"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var (
	messageOKColor      = lipgloss.AdaptiveColor{Light: "#009900", Dark: "#00FF00"}
	messageOKStyle      = lipgloss.NewStyle().Foreground(messageOKColor)
	messageTextColor    = lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}
	messageTextStyle    = lipgloss.NewStyle().Foreground(messageTextColor)
	messageWarningColor = lipgloss.AdaptiveColor{Light: "#990000", Dark: "#FF0000"}
	messageWarningStyle = lipgloss.NewStyle().Foreground(messageWarningColor)
	messageInfoColor    = lipgloss.AdaptiveColor{Light: "#214358", Dark: "#AEB8C4"}
	messageInfoStyle    = lipgloss.NewStyle().Foreground(messageInfoColor)
)

func ShowSuccess(msg string, args ...any) {
	body := messageOKStyle.Render(" ✓ ") + messageTextStyle.Render(fmt.Sprintf(msg, args...))
	fmt.Fprintln(Output, body)
}

func ShowInfo(msg string, args ...any) {
	body := messageInfoStyle.Render(" i ") + messageTextStyle.Render(fmt.Sprintf(msg, args...))
	fmt.Fprintln(Output, body)
}

func ShowWarning(msg string, args ...any) {
	body := messageWarningStyle.Render(" ✕ ") + messageTextStyle.Render(fmt.Sprintf(msg, args...))
	fmt.Fprintln(Output, body)
}

func ShowError(msg string, args ...any) {
	body := messageWarningStyle.Render(" ⚠ ") + messageTextStyle.Render(fmt.Sprintf(msg, args...))
	fmt.Fprintln(Output, body)
}

// Ask asks a yes or no question. Without a terminal it returns
// defaultValue.
func Ask(logger logger.Logger, title string, defaultValue bool) bool {
	if !HasTTY {
		return defaultValue
	}
	confirm := defaultValue
	if err := huh.NewConfirm().
		Title(title).
		Affirmative("Yes!").
		Negative("No").
		Value(&confirm).
		Inline(false).
		Run(); err != nil {
		logger.Fatal("%s", err)
	}
	return confirm
}
