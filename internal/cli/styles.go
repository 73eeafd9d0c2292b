package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// palette holds the colors for one terminal background
type palette struct {
	Accent  lipgloss.Color
	Warning lipgloss.Color
	Muted   lipgloss.Color
	Border  lipgloss.Color
}

var (
	darkPalette = palette{
		Accent:  lipgloss.Color("214"), // Bright orange
		Warning: lipgloss.Color("11"),  // Bright yellow
		Muted:   lipgloss.Color("244"), // Light gray
		Border:  lipgloss.Color("240"), // Medium gray
	}
	lightPalette = palette{
		Accent:  lipgloss.Color("130"), // Dark orange
		Warning: lipgloss.Color("136"), // Dark yellow
		Muted:   lipgloss.Color("240"), // Dark gray
		Border:  lipgloss.Color("248"), // Light gray
	}
)

// detectPalette picks colors for the terminal background. GLAMOUR_STYLE
// forces one so markdown output and tables agree.
func detectPalette() palette {
	switch os.Getenv("GLAMOUR_STYLE") {
	case "light":
		return lightPalette
	case "dark":
		return darkPalette
	}
	if lipgloss.HasDarkBackground() {
		return darkPalette
	}
	return lightPalette
}

type styles struct {
	header lipgloss.Style
	cell   lipgloss.Style
	border lipgloss.Style
	meta   lipgloss.Style
	warn   lipgloss.Style
}

func newStyles(p palette) styles {
	return styles{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Accent).
			Padding(0, 1),
		cell:   lipgloss.NewStyle().Padding(0, 1),
		border: lipgloss.NewStyle().Foreground(p.Border),
		meta: lipgloss.NewStyle().
			Foreground(p.Muted).
			Italic(true),
		warn: lipgloss.NewStyle().Foreground(p.Warning),
	}
}
