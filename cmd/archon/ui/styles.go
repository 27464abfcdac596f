// Package ui is the interactive archon console: a bubbletea program that
// renders console state and turns key presses into console actions.
package ui

import (
	"os"
	"strconv"
	"strings"

	"archon/internal/console"
	"archon/internal/models"

	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	// Light mode
	LightBackground = lipgloss.Color("#f4f5f6")
	LightForeground = lipgloss.Color("#1b2a3a")
	LightPrimary    = lipgloss.Color("#1b2a3a")
	LightAccent     = lipgloss.Color("#0f9d8a")
	LightSecondary  = lipgloss.Color("#e1e4e8")
	LightMuted      = lipgloss.Color("#8a94a3")
	LightBorder     = lipgloss.Color("#dce0e5")

	// Dark mode
	DarkBackground = lipgloss.Color("#12181f")
	DarkForeground = lipgloss.Color("#eef1f4")
	DarkPrimary    = lipgloss.Color("#3cc7b2")
	DarkAccent     = lipgloss.Color("#3cc7b2")
	DarkSecondary  = lipgloss.Color("#1e2833")
	DarkMuted      = lipgloss.Color("#6b7785")
	DarkBorder     = lipgloss.Color("#2a3644")

	// Semantic colors, same in both modes
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#43a047")
	Warning     = lipgloss.Color("#ffb300")
	Info        = lipgloss.Color("#1e88e5")
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Secondary:  LightSecondary,
		Muted:      LightMuted,
		Border:     LightBorder,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Secondary:  DarkSecondary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// ThemeFor resolves the inventory's theme setting. "light" and "dark" are
// explicit; anything else is detected from the terminal.
func ThemeFor(setting string) Theme {
	switch strings.ToLower(setting) {
	case "dark":
		return DarkTheme()
	case "light":
		return LightTheme()
	}
	return DetectTheme()
}

// DetectTheme picks dark mode from COLORFGBG or ARCHON_DARK_MODE=1, and light
// mode otherwise.
func DetectTheme() Theme {
	// COLORFGBG is "foreground;background"; backgrounds 0-6 and 8 are dark.
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
			}
		}
	}
	if os.Getenv("ARCHON_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	Header  lipgloss.Style
	Footer  lipgloss.Style
	Content lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style

	// Interactive
	Selected   lipgloss.Style
	Prompt     lipgloss.Style
	FieldLabel lipgloss.Style
	FieldFocus lipgloss.Style

	// Status
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	// Components
	Spinner lipgloss.Style
	Divider lipgloss.Style
	Badge   lipgloss.Style
	Panel   lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Background(theme.Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 2),

		Content: lipgloss.NewStyle().
			Padding(1, 2),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Body: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Selected: lipgloss.NewStyle().
			Background(theme.Secondary).
			Foreground(theme.Accent).
			Bold(true),

		Prompt: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		FieldLabel: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Width(14),

		FieldFocus: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true).
			Width(14),

		Success: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Warning: lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true),

		Info: lipgloss.NewStyle().
			Foreground(Info),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Accent),

		Divider: lipgloss.NewStyle().
			Foreground(theme.Border),

		Badge: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),

		Panel: lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),
	}
}

// DefaultStyles returns styles for the detected theme
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// RenderDivider returns a horizontal divider
func (s Styles) RenderDivider(width int) string {
	if width <= 0 {
		width = 40
	}
	return s.Divider.Render(strings.Repeat("─", width))
}

// Level styles a notification level.
func (s Styles) Level(l console.Level) lipgloss.Style {
	switch l {
	case console.LevelSuccess:
		return s.Success
	case console.LevelWarning:
		return s.Warning
	case console.LevelError:
		return s.Error
	}
	return s.Info
}

// SiteStatus styles a site status.
func (s Styles) SiteStatus(st models.SiteStatus) string {
	switch st {
	case models.SiteRunning:
		return s.Success.Render(string(st))
	case models.SiteFailed:
		return s.Error.Render(string(st))
	case models.SiteDeploying:
		return s.Warning.Render(string(st))
	}
	return s.Muted.Render(string(st))
}

// NodeStatus styles a node status.
func (s Styles) NodeStatus(st models.NodeStatus) string {
	switch st {
	case models.NodeOnline:
		return s.Success.Render(string(st))
	case models.NodeOffline:
		return s.Error.Render(string(st))
	case models.NodeDegraded:
		return s.Warning.Render(string(st))
	}
	return s.Muted.Render(string(st))
}
