package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	bannerForegroundColor = lipgloss.AdaptiveColor{Light: "#a60853", Dark: "#F652A0"}
	bannerBorderColor     = lipgloss.AdaptiveColor{Light: "#999999", Dark: "#AAAAAA"}
	bannerTitleColor      = lipgloss.AdaptiveColor{Light: "#00AAAA", Dark: "#00FFFF"}
	bannerMaxWidth        = 80
	bannerStyle           = lipgloss.NewStyle().
				Padding(1).
				AlignVertical(lipgloss.Top).
				AlignHorizontal(lipgloss.Left).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(bannerBorderColor)
	bannerBodyStyle  = lipgloss.NewStyle().Width(bannerMaxWidth).Foreground(bannerForegroundColor)
	bannerTitleStyle = lipgloss.NewStyle().AlignHorizontal(lipgloss.Center).Bold(true).Foreground(bannerTitleColor)
)

// RenderBanner boxes a title over a body.
func RenderBanner(title string, body string) string {
	block := bannerTitleStyle.Render(title) + "\n\n" + bannerBodyStyle.Render(body)
	return bannerStyle.Render(block)
}

// ShowBanner prints the banner, or the plain title and body without a
// terminal.
func ShowBanner(title string, body string) {
	if !HasTTY {
		fmt.Fprintln(Output, title)
		fmt.Fprintln(Output, body)
		return
	}
	fmt.Fprintln(Output, RenderBanner(title, body))
}
