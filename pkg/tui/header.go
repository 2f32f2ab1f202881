package tui

import (
	"github.com/charmbracelet/lipgloss"
)

const appName = "contentdesk"

// renderHeader draws the title on the left and the repository on the right.
func renderHeader(width int, title, repo string) string {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorBrand)).
		Bold(true)

	repoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(ColorDim))

	headerPadding := lipgloss.NewStyle().
		PaddingLeft(1).
		PaddingRight(1).
		Width(width)

	left := titleStyle.Render(appName)
	if title != "" {
		left = titleStyle.Render(appName + " · " + title)
	}
	right := repoStyle.Render(repo)

	// -2 for padding
	gap := width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	content := lipgloss.JoinHorizontal(lipgloss.Top, left, lipgloss.NewStyle().Width(gap).Render(""), right)
	return headerPadding.Render(content)
}
