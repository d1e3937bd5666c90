// Package feed turns cached notifications into what the terminal shows:
// rendered messages, entity paths, ordering and date groups.
package feed

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/reportwell/notifyfeed/internal/model"
)

// Segment is one run of a rendered message. Link is set when the run
// is an entity mention.
type Segment struct {
	Text string
	Link *model.Link
}

// Render expands a notification template into segments. {0}, {1} ...
// refer to Links by index, {name} reads from Key. Placeholders that
// resolve to nothing are kept verbatim.
func Render(n model.Notification) []Segment {
	tmpl := n.Template
	if strings.TrimSpace(tmpl) == "" {
		return []Segment{{Text: Humanize(n.Type)}}
	}

	var (
		out []Segment
		buf strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, Segment{Text: buf.String()})
			buf.Reset()
		}
	}

	for len(tmpl) > 0 {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			buf.WriteString(tmpl)
			break
		}
		end := strings.IndexByte(tmpl[open:], '}')
		if end < 0 {
			buf.WriteString(tmpl)
			break
		}
		end += open

		buf.WriteString(tmpl[:open])
		name := tmpl[open+1 : end]
		raw := tmpl[open : end+1]
		tmpl = tmpl[end+1:]

		if idx, err := strconv.Atoi(name); err == nil {
			if idx >= 0 && idx < len(n.Links) {
				link := n.Links[idx]
				flush()
				out = append(out, Segment{Text: link.Label, Link: &link})
				continue
			}
			buf.WriteString(raw)
			continue
		}
		if v, ok := n.Key[name]; ok {
			buf.WriteString(v)
			continue
		}
		buf.WriteString(raw)
	}
	flush()

	return out
}

// Text renders a notification as plain text.
func Text(n model.Notification) string {
	var b strings.Builder
	for _, seg := range Render(n) {
		b.WriteString(seg.Text)
	}
	return b.String()
}

// Humanize turns a type like "report_due_soon" into "Report due soon".
func Humanize(t model.NotificationType) string {
	s := strings.ReplaceAll(string(t), "_", " ")
	if s == "" {
		return "Notification"
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
