package testutil

import (
	"testing"

	"github.com/reportwell/notifyfeed/internal/model"
	"github.com/reportwell/notifyfeed/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// Notification builds a minimal notification for receiverID with the
// given id and created_at, unread.
func Notification(receiverID, id, createdAt string) model.Notification {
	return model.Notification{
		ID:         id,
		ReceiverID: receiverID,
		Template:   "Report {0} was assigned to you",
		Links:      []model.Link{{Label: "Q3 Safety", ID: "rep-" + id, EntityType: model.EntityReport}},
		Type:       model.TypeReportAssigned,
		CreatedAt:  createdAt,
	}
}
