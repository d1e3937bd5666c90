package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshots (
	receiver_id TEXT PRIMARY KEY,
	snapshot_id TEXT NOT NULL,
	item_count  INTEGER NOT NULL DEFAULT 0,
	saved_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	receiver_id TEXT NOT NULL,
	id          TEXT NOT NULL,
	position    INTEGER NOT NULL,
	type        TEXT NOT NULL DEFAULT '',
	read        INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL,
	PRIMARY KEY (receiver_id, id),
	FOREIGN KEY (receiver_id) REFERENCES snapshots(receiver_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_notifications_position ON notifications(receiver_id, position);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(receiver_id, read);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
