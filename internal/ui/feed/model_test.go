package feed

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportwell/notifyfeed/internal/keys"
	"github.com/reportwell/notifyfeed/internal/model"
)

var testNow = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

func newTestModel(order string) Model {
	return newWithClock(keys.DefaultKeyMap(), order, 80, 20, func() time.Time { return testNow })
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func sample() []model.Notification {
	return []model.Notification{
		{ID: "old", Template: "old one", CreatedAt: "2026-09-01T09:00:00Z", Read: true},
		{ID: "today", Template: "fresh", CreatedAt: "2026-10-15T09:00:00Z"},
		{ID: "yday", Template: "yesterday", CreatedAt: "2026-10-14T09:00:00Z"},
	}
}

func TestSetNotificationsGroupsAndSelectsFirstNotification(t *testing.T) {
	m := newTestModel(model.SortNewest)
	m.SetNotifications(sample())

	items := m.list.Items()
	require.Len(t, items, 6)
	assert.Equal(t, HeaderItem{Title: "Today", Count: 1}, items[0])
	assert.Equal(t, HeaderItem{Title: "Yesterday", Count: 1}, items[2])
	assert.Equal(t, HeaderItem{Title: "September 2026", Count: 1}, items[4])

	n, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "today", n.ID)
}

func TestNavigationSkipsHeaders(t *testing.T) {
	m := newTestModel(model.SortNewest)
	m.SetNotifications(sample())

	m, _ = m.Update(runeKey("j"))
	n, _ := m.Selected()
	assert.Equal(t, "yday", n.ID)

	m, _ = m.Update(runeKey("j"))
	n, _ = m.Selected()
	assert.Equal(t, "old", n.ID)

	m, _ = m.Update(runeKey("k"))
	n, _ = m.Selected()
	assert.Equal(t, "yday", n.ID)

	m, _ = m.Update(runeKey("k"))
	m, _ = m.Update(runeKey("k"))
	n, _ = m.Selected()
	assert.Equal(t, "today", n.ID, "top heading is skipped forward")
}

func TestActionKeysEmitMessages(t *testing.T) {
	m := newTestModel(model.SortNewest)
	m.SetNotifications(sample())

	_, cmd := m.Update(runeKey("m"))
	require.NotNil(t, cmd)
	assert.Equal(t, MarkReadMsg{ID: "today"}, cmd())

	_, cmd = m.Update(runeKey("d"))
	require.NotNil(t, cmd)
	assert.Equal(t, RemoveMsg{ID: "today"}, cmd())

	_, cmd = m.Update(runeKey("C"))
	require.NotNil(t, cmd)
	assert.Equal(t, ClearMsg{}, cmd())
}

func TestMarkReadIgnoresReadNotification(t *testing.T) {
	m := newTestModel(model.SortOldest)
	m.SetNotifications(sample())

	n, ok := m.Selected()
	require.True(t, ok)
	require.Equal(t, "old", n.ID)

	_, cmd := m.Update(runeKey("m"))
	assert.Nil(t, cmd)
}

func TestToggleSortKeepsSelection(t *testing.T) {
	m := newTestModel(model.SortNewest)
	m.SetNotifications(sample())

	m, cmd := m.Update(runeKey("s"))
	require.NotNil(t, cmd)
	assert.Equal(t, model.SortOldest, m.Order())

	n, _ := m.Selected()
	assert.Equal(t, "today", n.ID)
	assert.Equal(t, HeaderItem{Title: "September 2026", Count: 1}, m.list.Items()[0])
}

func TestEmptyFeed(t *testing.T) {
	m := newTestModel(model.SortNewest)
	m.SetNotifications(nil)

	_, ok := m.Selected()
	assert.False(t, ok)
	assert.Contains(t, m.View(), "No notifications")

	_, cmd := m.Update(runeKey("C"))
	assert.Nil(t, cmd)
}

func TestRelativeTime(t *testing.T) {
	assert.Equal(t, "just now", relativeTime(testNow.Add(-10*time.Second), testNow))
	assert.Equal(t, "5m ago", relativeTime(testNow.Add(-5*time.Minute), testNow))
	assert.Equal(t, "3h ago", relativeTime(testNow.Add(-3*time.Hour), testNow))
	assert.Equal(t, "2d ago", relativeTime(testNow.Add(-48*time.Hour), testNow))
	assert.Equal(t, "Sep 01", relativeTime(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), testNow))
}
