package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the application title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps overlays such as help and login.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// ListItemStyle is the base style for items in a list.
var ListItemStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedItemStyle highlights the currently focused list item.
var SelectedItemStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// GroupHeaderStyle renders date headings in the feed.
var GroupHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGray).
	PaddingLeft(1)

// LinkStyle marks entity mentions inside a message.
var LinkStyle = lipgloss.NewStyle().
	Underline(true).
	Foreground(ColorBlue)

// UnreadMarkerStyle renders the dot in front of unread notifications.
var UnreadMarkerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorOrange)

// DimmedStyle renders read notifications and secondary text.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// ErrorStyle renders error lines in the status bar.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// StateStyle returns a color-coded style for a connection state name.
func StateStyle(state string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch state {
	case "open":
		return base.Foreground(ColorGreen)
	case "connecting":
		return base.Foreground(ColorYellow)
	case "disconnected":
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorGray)
	}
}

// TypeStyle returns a color for a notification type by its family,
// taken from the type's prefix ("report_approved" is a report event).
func TypeStyle(notificationType string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	family, _, _ := strings.Cut(notificationType, "_")
	switch family {
	case "report":
		if strings.HasSuffix(notificationType, "overdue") ||
			strings.HasSuffix(notificationType, "rejected") {
			return base.Foreground(ColorRed)
		}
		return base.Foreground(ColorBlue)
	case "comment":
		return base.Foreground(ColorMagenta)
	case "complaint":
		return base.Foreground(ColorOrange)
	case "application":
		return base.Foreground(ColorYellow)
	case "school", "agency", "user":
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// Plain strips colors from every style, for display.theme "mono".
func Plain() {
	for _, s := range []*lipgloss.Style{
		&HeaderStyle, &StatusBarStyle, &SelectedItemStyle, &GroupHeaderStyle,
		&LinkStyle, &UnreadMarkerStyle, &DimmedStyle, &ErrorStyle, &HelpStyle,
	} {
		*s = s.UnsetForeground().UnsetBackground()
	}
}
