package store

import (
	"context"
	"time"

	"github.com/reportwell/notifyfeed/internal/model"
)

// Snapshot describes the last notification list persisted for a receiver.
type Snapshot struct {
	ID         string    `db:"snapshot_id"`
	ReceiverID string    `db:"receiver_id"`
	ItemCount  int       `db:"item_count"`
	SavedAt    time.Time `db:"saved_at"`
}

// Store persists the notification cache between runs so the feed can
// show last-known notifications before the socket and REST list answer.
type Store interface {
	// SaveSnapshot replaces the stored list for receiverID, keeping order.
	SaveSnapshot(ctx context.Context, receiverID string, items []model.Notification) (Snapshot, error)

	// LoadSnapshot returns the stored list in saved order. The snapshot is
	// nil when nothing has been saved for receiverID.
	LoadSnapshot(ctx context.Context, receiverID string) ([]model.Notification, *Snapshot, error)

	// UnreadCount counts stored notifications not yet read.
	UnreadCount(ctx context.Context, receiverID string) (int, error)

	// DeleteSnapshot removes everything stored for receiverID.
	DeleteSnapshot(ctx context.Context, receiverID string) error
}
