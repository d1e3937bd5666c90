package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wireFrame = `{
	"id": "n1",
	"report_id": "r1",
	"receiver_id": "u1",
	"template": "{0} was approved",
	"links": [{"label": "Q3 Safety", "id": "r1", "entityType": "report"}],
	"read": false,
	"type": "report_approved",
	"created_at": "2026-10-15T09:30:00.123456Z",
	"key": {"school": "Hillside"}
}`

func TestNotificationDecodesWireShape(t *testing.T) {
	var n Notification
	require.NoError(t, json.Unmarshal([]byte(wireFrame), &n))

	assert.Equal(t, "n1", n.ID)
	assert.Equal(t, "r1", n.ReportID)
	assert.Equal(t, TypeReportApproved, n.Type)
	require.Len(t, n.Links, 1)
	assert.Equal(t, EntityReport, n.Links[0].EntityType)
	assert.Equal(t, "Hillside", n.Key["school"])

	out, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, wireFrame, string(out))
}

func TestUnknownTypeDecodes(t *testing.T) {
	var n Notification
	require.NoError(t, json.Unmarshal([]byte(`{"id":"x","type":"board_meeting"}`), &n))
	assert.Equal(t, NotificationType("board_meeting"), n.Type)
}

func TestCreated(t *testing.T) {
	for _, s := range []string{
		"2026-10-15T09:30:00Z",
		"2026-10-15T09:30:00.5+02:00",
		"2026-10-15T09:30:00.123456",
	} {
		_, ok := Notification{CreatedAt: s}.Created()
		assert.True(t, ok, s)
	}

	_, ok := Notification{CreatedAt: "not a time"}.Created()
	assert.False(t, ok)
	_, ok = Notification{}.Created()
	assert.False(t, ok)
}

func TestCloneIsDeep(t *testing.T) {
	orig := Notification{
		ID:    "n1",
		Links: []Link{{Label: "a", ID: "1"}},
		Key:   map[string]string{"k": "v"},
	}
	c := orig.Clone()
	c.Links[0].Label = "changed"
	c.Key["k"] = "changed"

	assert.Equal(t, "a", orig.Links[0].Label)
	assert.Equal(t, "v", orig.Key["k"])
}

func TestCloneNotificationsNil(t *testing.T) {
	out := CloneNotifications(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}
