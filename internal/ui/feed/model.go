// Package feed is the notification list view.
package feed

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/reportwell/notifyfeed/internal/feed"
	"github.com/reportwell/notifyfeed/internal/keys"
	"github.com/reportwell/notifyfeed/internal/model"
	"github.com/reportwell/notifyfeed/internal/theme"
)

// MarkReadMsg asks the app to mark a notification read.
type MarkReadMsg struct{ ID string }

// RemoveMsg asks the app to remove a notification.
type RemoveMsg struct{ ID string }

// ClearMsg asks the app to clear every notification.
type ClearMsg struct{}

// SortChangedMsg reports the new sort order so it can be saved.
type SortChangedMsg struct{ Order string }

// Model is the grouped notification list.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	items  []model.Notification
	order  string
	now    func() time.Time
	width  int
	height int
}

// New creates a feed view sorted by order.
func New(k *keys.KeyMap, order string, width, height int) Model {
	return newWithClock(k, order, width, height, time.Now)
}

func newWithClock(k *keys.KeyMap, order string, width, height int, now func() time.Time) Model {
	if order != model.SortOldest {
		order = model.SortNewest
	}

	l := list.New([]list.Item{}, ItemDelegate{now: now}, width, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	return Model{
		list:   l,
		keys:   k,
		order:  order,
		now:    now,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetNotifications replaces the shown list, keeping the selection on the
// same notification when it is still present.
func (m *Model) SetNotifications(items []model.Notification) tea.Cmd {
	selected, hadSelection := m.Selected()
	m.items = model.CloneNotifications(items)
	cmd := m.list.SetItems(m.buildItems())

	if hadSelection {
		for i, it := range m.list.Items() {
			if n, ok := it.(NotificationItem); ok && n.Notification.ID == selected.ID {
				m.list.Select(i)
				return cmd
			}
		}
	}
	m.skipHeader(1)
	return cmd
}

func (m Model) buildItems() []list.Item {
	groups := feed.GroupByDay(feed.Sort(m.items, m.order), m.now())

	out := make([]list.Item, 0, len(m.items)+len(groups))
	for _, g := range groups {
		out = append(out, HeaderItem{Title: g.Title, Count: len(g.Items)})
		for _, n := range g.Items {
			out = append(out, NotificationItem{Notification: n})
		}
	}
	return out
}

// Selected returns the focused notification.
func (m Model) Selected() (model.Notification, bool) {
	it, ok := m.list.SelectedItem().(NotificationItem)
	if !ok {
		return model.Notification{}, false
	}
	return it.Notification, true
}

// Order returns the current sort order.
func (m Model) Order() string {
	return m.order
}

// Update handles messages for the feed view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(keyMsg, m.keys.MarkRead):
		if n, ok := m.Selected(); ok && !n.Read {
			return m, func() tea.Msg { return MarkReadMsg{ID: n.ID} }
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Remove):
		if n, ok := m.Selected(); ok {
			return m, func() tea.Msg { return RemoveMsg{ID: n.ID} }
		}
		return m, nil

	case key.Matches(keyMsg, m.keys.Clear):
		if len(m.items) == 0 {
			return m, nil
		}
		return m, func() tea.Msg { return ClearMsg{} }

	case key.Matches(keyMsg, m.keys.ToggleSort):
		if m.order == model.SortNewest {
			m.order = model.SortOldest
		} else {
			m.order = model.SortNewest
		}
		order := m.order
		cmd := m.SetNotifications(m.items)
		return m, tea.Batch(cmd, func() tea.Msg { return SortChangedMsg{Order: order} })

	case key.Matches(keyMsg, m.keys.Up):
		m.list.CursorUp()
		m.skipHeader(-1)
		return m, nil

	case key.Matches(keyMsg, m.keys.Down):
		m.list.CursorDown()
		m.skipHeader(1)
		return m, nil
	}

	// Delegate to the list for paging keys
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(keyMsg)
	m.skipHeader(1)
	return m, cmd
}

// skipHeader moves off a heading in direction dir, turning around at
// either end of the list.
func (m *Model) skipHeader(dir int) {
	items := m.list.Items()
	if len(items) == 0 {
		return
	}
	start := min(m.list.Index(), len(items)-1)
	for _, d := range []int{dir, -dir} {
		for i := start; i >= 0 && i < len(items); i += d {
			if _, ok := items[i].(NotificationItem); ok {
				m.list.Select(i)
				return
			}
		}
	}
}

// View renders the feed.
func (m Model) View() string {
	if len(m.items) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No notifications.\n\nNew ones appear here as they arrive.")
	}
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
