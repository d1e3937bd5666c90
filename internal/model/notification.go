package model

import (
	"strings"
	"time"
)

// NotificationType is the category of a notification. It selects the
// display template on the client; values the client does not know about
// still decode and render through the generic template.
type NotificationType string

const (
	TypeReportAssigned       NotificationType = "report_assigned"
	TypeReportSubmitted      NotificationType = "report_submitted"
	TypeReportApproved       NotificationType = "report_approved"
	TypeReportRejected       NotificationType = "report_rejected"
	TypeReportDueSoon        NotificationType = "report_due_soon"
	TypeReportOverdue        NotificationType = "report_overdue"
	TypeCommentAdded         NotificationType = "comment_added"
	TypeCommentMention       NotificationType = "comment_mention"
	TypeApplicationSubmitted NotificationType = "application_submitted"
	TypeApplicationUpdated   NotificationType = "application_updated"
	TypeComplaintFiled       NotificationType = "complaint_filed"
	TypeComplaintResolved    NotificationType = "complaint_resolved"
	TypeSchoolCreated        NotificationType = "school_created"
	TypeSchoolUpdated        NotificationType = "school_updated"
	TypeAgencyUpdated        NotificationType = "agency_updated"
	TypeUserInvited          NotificationType = "user_invited"
	TypeUserRoleChanged      NotificationType = "user_role_changed"
)

// EntityType names the kind of record a Link points at.
type EntityType string

const (
	EntityReport      EntityType = "report"
	EntitySchool      EntityType = "school"
	EntityComment     EntityType = "comment"
	EntitySchools     EntityType = "schools"
	EntityApplication EntityType = "application"
	EntityAgency      EntityType = "agency"
	EntityComplaint   EntityType = "complaint"
	EntityUser        EntityType = "user"
)

// Link is an entity mention interpolated into a notification message.
type Link struct {
	Label      string     `json:"label"`
	ID         string     `json:"id"`
	EntityType EntityType `json:"entityType"`
}

// Notification is a single user-facing event pushed by the server.
// Field names and tags follow the wire format exactly.
type Notification struct {
	ID            string `json:"id"`
	CommentID     string `json:"comment_id,omitempty"`
	ReportID      string `json:"report_id,omitempty"`
	SchoolID      string `json:"school_id,omitempty"`
	ApplicationID string `json:"application_id,omitempty"`
	AgencyID      string `json:"agency_id,omitempty"`
	ComplaintID   string `json:"complaint_id,omitempty"`
	UserID        string `json:"user_id,omitempty"`

	// ReceiverID is the user the notification was delivered to.
	ReceiverID string `json:"receiver_id"`

	// Template is the message text with placeholders for Links and Key.
	Template string `json:"template"`

	Links []Link           `json:"links"`
	Read  bool             `json:"read"`
	Type  NotificationType `json:"type"`

	// CreatedAt is kept as the ISO-8601 string the server sent so it
	// round-trips unchanged. Use Created for the parsed time.
	CreatedAt string `json:"created_at"`

	Key map[string]string `json:"key,omitempty"`
}

// Created parses CreatedAt. The second return value is false when the
// timestamp is missing or malformed.
func (n Notification) Created() (time.Time, bool) {
	s := strings.TrimSpace(n.CreatedAt)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Clone returns a deep copy so callers cannot reach shared slices or maps.
func (n Notification) Clone() Notification {
	out := n
	if n.Links != nil {
		out.Links = make([]Link, len(n.Links))
		copy(out.Links, n.Links)
	}
	if n.Key != nil {
		out.Key = make(map[string]string, len(n.Key))
		for k, v := range n.Key {
			out.Key[k] = v
		}
	}
	return out
}

// CloneNotifications deep-copies a slice of notifications. A nil input
// yields an empty, non-nil slice.
func CloneNotifications(in []Notification) []Notification {
	out := make([]Notification, len(in))
	for i, n := range in {
		out[i] = n.Clone()
	}
	return out
}
