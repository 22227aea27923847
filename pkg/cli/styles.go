// Package cli renders workspace state for the terminal and asks the user
// for input when a command needs it.
package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/blackcoderx/reqtree/pkg/request"
)

// Minimal color palette
var (
	DimColor    = lipgloss.Color("#6c6c6c")
	TextColor   = lipgloss.Color("#e0e0e0")
	AccentColor = lipgloss.Color("#7aa2f7")
	ErrorColor  = lipgloss.Color("#f7768e")
	OKColor     = lipgloss.Color("#9ece6a")
	WarnColor   = lipgloss.Color("#e0af68")
)

var (
	FolderStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	LeafStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	PathStyle = lipgloss.NewStyle().
			Foreground(DimColor)

	URLStyle = lipgloss.NewStyle().
			Foreground(DimColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	OKStyle = lipgloss.NewStyle().
		Foreground(OKColor)

	WarnStyle = lipgloss.NewStyle().
			Foreground(WarnColor)

	HelpStyle = lipgloss.NewStyle().
			Foreground(DimColor)
)

var methodColors = map[request.Method]lipgloss.Color{
	request.GET:    OKColor,
	request.POST:   AccentColor,
	request.PUT:    WarnColor,
	request.PATCH:  WarnColor,
	request.DELETE: ErrorColor,
}

// MethodBadge renders m padded to a fixed width in its color.
func MethodBadge(m request.Method) string {
	color, ok := methodColors[m]
	if !ok {
		color = DimColor
	}
	return lipgloss.NewStyle().Foreground(color).Bold(true).Width(7).Render(string(m))
}

// StatusStyle picks the style for an HTTP status.
func StatusStyle(status int) lipgloss.Style {
	switch {
	case status == 0 || status >= 500:
		return ErrorStyle
	case status >= 400:
		return WarnStyle
	default:
		return OKStyle
	}
}
