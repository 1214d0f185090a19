package common

import "github.com/charmbracelet/lipgloss"

const (
	COLOR_GREY      = "241"
	COLOR_DARK_GREY = "238"
	COLOR_MAGENTA   = "170"
	COLOR_LIGHTBLUE = "69"
	COLOR_GREEN     = "42"
	COLOR_YELLOW    = "214"
	COLOR_RED       = "196"
	COLOR_PURPLE    = "#7D56F4"
)

var (
	HelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_GREY)).Padding(0, 2)
	CaptionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_MAGENTA)).Padding(1, 2)
	TitleStyle   = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color(COLOR_PURPLE)).
			Padding(0, 1)
	TabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color(COLOR_GREY)).Padding(0, 1)
	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(COLOR_LIGHTBLUE)).
			Bold(true).
			Underline(true).
			Padding(0, 1)
	EmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(COLOR_DARK_GREY)).
			Italic(true).
			Padding(1, 2)
)

func DefaultWindowWidth(width int) int {
	return width - 10
}

func DefaultWindowHeight(height int) int {
	return height - 10
}

// StatusColor picks the color used for a presence status.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "online":
		return lipgloss.Color(COLOR_GREEN)
	case "not_available":
		return lipgloss.Color(COLOR_YELLOW)
	default:
		return lipgloss.Color(COLOR_GREY)
	}
}
