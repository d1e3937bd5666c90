package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/reportwell/notifyfeed/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SaveSnapshot replaces the stored list for receiverID in one transaction.
// When an id appears more than once only its first (most recent) entry is
// kept, and ItemCount reports the rows actually stored.
func (s *SQLiteStore) SaveSnapshot(
	ctx context.Context,
	receiverID string,
	items []model.Notification,
) (Snapshot, error) {
	if receiverID == "" {
		return Snapshot{}, errors.New("saving snapshot: receiver id required")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM notifications WHERE receiver_id = ?", receiverID,
	); err != nil {
		return Snapshot{}, fmt.Errorf("clearing snapshot for %s: %w", receiverID, err)
	}

	items = uniqueByID(items)
	snap := Snapshot{
		ID:         uuid.NewString(),
		ReceiverID: receiverID,
		ItemCount:  len(items),
		SavedAt:    s.now(),
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (receiver_id, snapshot_id, item_count, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(receiver_id) DO UPDATE SET
			snapshot_id = excluded.snapshot_id,
			item_count  = excluded.item_count,
			saved_at    = excluded.saved_at`,
		snap.ReceiverID, snap.ID, snap.ItemCount, snap.SavedAt,
	); err != nil {
		return Snapshot{}, fmt.Errorf("recording snapshot for %s: %w", receiverID, err)
	}

	const query = `
		INSERT INTO notifications (
			receiver_id, id, position, type, read, created_at, payload
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return Snapshot{}, fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for i, n := range items {
		payload, err := json.Marshal(n)
		if err != nil {
			return Snapshot{}, fmt.Errorf("marshaling notification %s: %w", n.ID, err)
		}

		_, err = stmt.ExecContext(ctx,
			receiverID, n.ID, i, string(n.Type),
			boolToInt(n.Read), n.CreatedAt, string(payload),
		)
		if err != nil {
			return Snapshot{}, fmt.Errorf("storing notification %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("committing snapshot: %w", err)
	}

	return snap, nil
}

// LoadSnapshot returns the stored list for receiverID in saved order.
func (s *SQLiteStore) LoadSnapshot(
	ctx context.Context,
	receiverID string,
) ([]model.Notification, *Snapshot, error) {
	var snap Snapshot
	err := s.db.GetContext(ctx, &snap, `
		SELECT snapshot_id, receiver_id, item_count, saved_at
		FROM snapshots WHERE receiver_id = ?`, receiverID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return []model.Notification{}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading snapshot for %s: %w", receiverID, err)
	}

	var payloads []string
	err = s.db.SelectContext(ctx, &payloads, `
		SELECT payload FROM notifications
		WHERE receiver_id = ?
		ORDER BY position ASC`, receiverID,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("querying notifications for %s: %w", receiverID, err)
	}

	items := make([]model.Notification, 0, len(payloads))
	for _, p := range payloads {
		var n model.Notification
		if err := json.Unmarshal([]byte(p), &n); err != nil {
			return nil, nil, fmt.Errorf("unmarshaling stored notification: %w", err)
		}
		items = append(items, n)
	}

	return items, &snap, nil
}

// UnreadCount counts stored notifications for receiverID that are unread.
func (s *SQLiteStore) UnreadCount(ctx context.Context, receiverID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE receiver_id = ? AND read = 0",
		receiverID,
	)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications for %s: %w", receiverID, err)
	}
	return count, nil
}

// DeleteSnapshot removes the snapshot and its notifications. Rows are
// deleted explicitly since foreign_keys is only enabled on one pooled
// connection.
func (s *SQLiteStore) DeleteSnapshot(ctx context.Context, receiverID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, query := range []string{
		"DELETE FROM notifications WHERE receiver_id = ?",
		"DELETE FROM snapshots WHERE receiver_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, query, receiverID); err != nil {
			return fmt.Errorf("deleting snapshot for %s: %w", receiverID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing snapshot delete: %w", err)
	}
	return nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func uniqueByID(items []model.Notification) []model.Notification {
	seen := make(map[string]struct{}, len(items))
	out := make([]model.Notification, 0, len(items))
	for _, n := range items {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		out = append(out, n)
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
