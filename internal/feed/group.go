package feed

import (
	"sort"
	"time"

	"github.com/reportwell/notifyfeed/internal/model"
)

// Group titles that are not month names.
const (
	GroupToday     = "Today"
	GroupYesterday = "Yesterday"
	GroupUndated   = "Undated"
)

// Group is a run of notifications shown under one heading.
type Group struct {
	Title string
	Items []model.Notification
}

// Sort returns a copy of items ordered by creation time. order is
// model.SortNewest or model.SortOldest; anything else means newest.
// Items without a parsable timestamp go last and keep their relative order.
func Sort(items []model.Notification, order string) []model.Notification {
	out := model.CloneNotifications(items)
	oldest := order == model.SortOldest

	sort.SliceStable(out, func(i, j int) bool {
		ti, iok := out[i].Created()
		tj, jok := out[j].Created()
		switch {
		case !iok || !jok:
			return iok && !jok
		case oldest:
			return ti.Before(tj)
		default:
			return ti.After(tj)
		}
	})
	return out
}

// GroupByDay splits already-ordered items into Today, Yesterday and
// month headings relative to now, in now's location. Adjacent items
// with the same heading share a group, so input order is preserved.
func GroupByDay(items []model.Notification, now time.Time) []Group {
	var groups []Group
	for _, n := range items {
		title := groupTitle(n, now)
		if len(groups) > 0 && groups[len(groups)-1].Title == title {
			last := &groups[len(groups)-1]
			last.Items = append(last.Items, n)
			continue
		}
		groups = append(groups, Group{Title: title, Items: []model.Notification{n}})
	}
	return groups
}

func groupTitle(n model.Notification, now time.Time) string {
	created, ok := n.Created()
	if !ok {
		return GroupUndated
	}
	created = created.In(now.Location())

	today := startOfDay(now)
	switch {
	case !created.Before(today):
		return GroupToday
	case !created.Before(today.AddDate(0, 0, -1)):
		return GroupYesterday
	default:
		return created.Format("January 2006")
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
