package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/reportwell/notifyfeed/internal/theme"
)

// Layout holds the terminal dimensions and the fixed chrome heights.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with one-line header and status bar.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentHeight returns the rows left for the feed.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// ConnectionSummary formats the right side of the header, e.g.
// "● open  3 unread".
func ConnectionSummary(state string, unread int) string {
	dot := theme.StateStyle(state).Render("●")
	return fmt.Sprintf("%s %s  %d unread", dot, state, unread)
}

// RenderHeader renders the title on the left and summary on the right.
func (l Layout) RenderHeader(title, summary string) string {
	left := theme.HeaderStyle.Render(title)
	right := theme.HeaderStyle.Render(summary)
	return l.fill(theme.HeaderStyle, left, right)
}

// RenderStatusBar renders hints, or msg in the error style when isErr.
func (l Layout) RenderStatusBar(hints, msg string, isErr bool) string {
	left := theme.StatusBarStyle.Render(hints)
	if msg == "" {
		return l.fill(theme.StatusBarStyle, left, "")
	}
	style := theme.StatusBarStyle
	if isErr {
		style = theme.ErrorStyle.
			Background(theme.StatusBarStyle.GetBackground()).
			Padding(0, 1)
	}
	return l.fill(theme.StatusBarStyle, left, style.Render(msg))
}

// fill pads between left and right with the bar's background.
func (l Layout) fill(bar lipgloss.Style, left, right string) string {
	gap := max(l.Width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(bar.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame stacks header, content and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
