package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal rendering.
type Theme struct {
	Primary lipgloss.Color // idle and listening
	Accent  lipgloss.Color // speaking
	Warn    lipgloss.Color // connecting
	Error   lipgloss.Color
	Dim     lipgloss.Color // timestamps and help text
}

// DefaultTheme is the default theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Accent:  lipgloss.Color("#c9a227"),
	Warn:    lipgloss.Color("#f0883e"),
	Error:   lipgloss.Color("#ff5f56"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	theme Theme
	Badge lipgloss.Style
	Label lipgloss.Style
	Help  lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		theme: t,
		Badge: lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#0d1117")),
		Label: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Help:  lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// ModeBadge renders a session mode name as a colored badge.
func (s Styles) ModeBadge(mode string) string {
	bg := s.theme.Dim
	switch mode {
	case "listening":
		bg = s.theme.Primary
	case "speaking":
		bg = s.theme.Accent
	case "connecting":
		bg = s.theme.Warn
	case "error":
		bg = s.theme.Error
	}
	return s.Badge.Background(bg).Render(strings.ToUpper(mode))
}

// TranscriptLine renders one transcript entry, wrapped to width when width
// is positive.
func (s Styles) TranscriptLine(role, text string, at time.Time, width int) string {
	stamp := s.Help.Render(at.Format("15:04:05"))
	label := s.Label.Render(fmt.Sprintf("%-9s", role))
	prefix := stamp + " " + label + " "
	if width > 0 {
		body := lipgloss.NewStyle().Width(max(width-lipgloss.Width(prefix), 10)).Render(text)
		indent := strings.Repeat(" ", lipgloss.Width(prefix))
		return prefix + strings.ReplaceAll(body, "\n", "\n"+indent)
	}
	return prefix + text
}

// FormatDuration formats a duration to a short human readable string
func FormatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	secs := float64(ms) / 1000
	if secs < 60 {
		return fmt.Sprintf("%.1fs", secs)
	}
	mins := int(secs / 60)
	secs = secs - float64(mins*60)
	return fmt.Sprintf("%dm%.1fs", mins, secs)
}
