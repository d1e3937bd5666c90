package feed

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/reportwell/notifyfeed/internal/feed"
	"github.com/reportwell/notifyfeed/internal/model"
	"github.com/reportwell/notifyfeed/internal/theme"
)

// HeaderItem is a date heading. It is not selectable.
type HeaderItem struct {
	Title string
	Count int
}

// FilterValue returns the string used for fuzzy filtering.
func (h HeaderItem) FilterValue() string { return "" }

// NotificationItem wraps a notification for the list.
type NotificationItem struct {
	Notification model.Notification
}

// FilterValue returns the string used for fuzzy filtering.
func (i NotificationItem) FilterValue() string { return feed.Text(i.Notification) }

// ItemDelegate implements list.ItemDelegate for feed rows.
type ItemDelegate struct {
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused for now).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single list row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	switch it := item.(type) {
	case HeaderItem:
		fmt.Fprint(w, theme.GroupHeaderStyle.Render(fmt.Sprintf("%s (%d)", it.Title, it.Count)))
	case NotificationItem:
		fmt.Fprint(w, d.renderNotification(it.Notification, index == m.Index()))
	}
}

func (d ItemDelegate) renderNotification(n model.Notification, isSelected bool) string {
	marker := " "
	if !n.Read {
		marker = theme.UnreadMarkerStyle.Render("●")
	}

	var msg strings.Builder
	for _, seg := range feed.Render(n) {
		if seg.Link != nil && !n.Read {
			msg.WriteString(theme.LinkStyle.Render(seg.Text))
			continue
		}
		msg.WriteString(seg.Text)
	}

	typeBadge := theme.TypeStyle(string(n.Type)).Render(typeLabel(n.Type))

	when := ""
	if created, ok := n.Created(); ok {
		when = theme.DimmedStyle.Render(relativeTime(created, d.clock()))
	}

	line := fmt.Sprintf("%s %s %s  %s", marker, typeBadge, msg.String(), when)
	if n.Read {
		line = theme.DimmedStyle.Render(line)
	}

	if isSelected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

func (d ItemDelegate) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}

// typeLabel returns a short badge for the type's family.
func typeLabel(t model.NotificationType) string {
	family, _, _ := strings.Cut(string(t), "_")
	switch family {
	case "report":
		return "RPT"
	case "comment":
		return "CMT"
	case "application":
		return "APP"
	case "complaint":
		return "CPL"
	case "school":
		return "SCH"
	case "agency":
		return "AGY"
	case "user":
		return "USR"
	default:
		return "---"
	}
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 02")
	}
}
