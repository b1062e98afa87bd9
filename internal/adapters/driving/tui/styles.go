package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colour palette for the TUI.
type Theme struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme returns the default colour theme.
func DefaultTheme() *Theme {
	return &Theme{
		Primary: lipgloss.Color("#7C3AED"),
		Muted:   lipgloss.Color("#6C7086"),
		Success: lipgloss.Color("#A6E3A1"),
		Warning: lipgloss.Color("#F9E2AF"),
		Error:   lipgloss.Color("#F38BA8"),
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	Title    lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Excluded lipgloss.Style
	Removed  lipgloss.Style
	Help     lipgloss.Style
}

// NewStyles builds the style set from a theme.
func NewStyles(theme *Theme) *Styles {
	return &Styles{
		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Status:   lipgloss.NewStyle().Foreground(theme.Success),
		Error:    lipgloss.NewStyle().Foreground(theme.Error),
		Excluded: lipgloss.NewStyle().Foreground(theme.Warning),
		Removed:  lipgloss.NewStyle().Foreground(theme.Muted).Strikethrough(true),
		Help:     lipgloss.NewStyle().Foreground(theme.Muted),
	}
}
