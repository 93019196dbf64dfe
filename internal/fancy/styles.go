package fancy

import (
	"github.com/charmbracelet/lipgloss"
)

// Common styles that can be used across the application.
var (
	RootStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorWhite).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true)

	BranchStyle = lipgloss.NewStyle().
			Foreground(ColorDarkGray)

	ControlStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	AnimationStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	FrameStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	ScriptStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)
)

// ControlText styles a control label.
func ControlText(text string) string {
	return ControlStyle.Render(text)
}

// AnimationText styles an animation description.
func AnimationText(text string) string {
	return AnimationStyle.Render(text)
}

// FrameText styles frame cache information.
func FrameText(text string) string {
	return FrameStyle.Render(text)
}

// ScriptText styles a script name.
func ScriptText(text string) string {
	return ScriptStyle.Render(text)
}

// ValidText styles valid status text (green)
func ValidText(text string) string {
	return ScriptStyle.Render(text)
}

// ErrorText styles error text (red)
func ErrorText(text string) string {
	return ErrorStyle.Render(text)
}

// PathText styles file paths (gray)
func PathText(text string) string {
	return InfoStyle.Render(text)
}

// SummaryText styles summary information (dark gray)
func SummaryText(text string) string {
	return BranchStyle.Render(text)
}

// CountText styles count numbers (cyan)
func CountText(text string) string {
	return ControlStyle.Render(text)
}
