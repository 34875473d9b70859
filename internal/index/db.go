package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ewhitmore/sessionlens/internal/model"
)

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA cache_size = -64000;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS sessions (
    session_key TEXT PRIMARY KEY,
    tool        TEXT NOT NULL,
    session_id  TEXT NOT NULL,
    project     TEXT NOT NULL DEFAULT '',
    started_at  TEXT NOT NULL DEFAULT '',
    ended_at    TEXT NOT NULL DEFAULT '',
    summary     TEXT NOT NULL DEFAULT '',
    total_size  INTEGER NOT NULL DEFAULT 0,
    msg_count   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
    session_key TEXT NOT NULL,
    msg_id      INTEGER NOT NULL,
    ts          TEXT NOT NULL DEFAULT '',
    role        TEXT NOT NULL DEFAULT '',
    kind        TEXT NOT NULL,
    size        INTEGER NOT NULL DEFAULT 1,
    content     TEXT NOT NULL,
    PRIMARY KEY (session_key, msg_id)
);

CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
    content,
    content=messages,
    content_rowid=rowid,
    tokenize='unicode61'
);

-- triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS messages_ai AFTER INSERT ON messages BEGIN
    INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_ad AFTER DELETE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.rowid, old.content);
END;

CREATE TRIGGER IF NOT EXISTS messages_au AFTER UPDATE ON messages BEGIN
    INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.rowid, old.content);
    INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
END;

CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);
`

const dbTimeLayout = "2006-01-02T15:04:05Z07:00"

type DB struct {
	db *sql.DB
}

func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Raw() *sql.DB {
	return d.db
}

// Fingerprint returns the fingerprint of the index snapshot the database
// was last rebuilt from, empty when it never was.
func (d *DB) Fingerprint() (string, error) {
	var fp string
	err := d.db.QueryRow("SELECT value FROM meta WHERE key = 'fingerprint'").Scan(&fp)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return fp, err
}

// RebuildFromIndex replaces the database contents with a snapshot of the
// given index. A no-op when the stored fingerprint already matches.
func (d *DB) RebuildFromIndex(idx *model.Index) error {
	stored, err := d.Fingerprint()
	if err != nil {
		return err
	}
	if stored != "" && stored == idx.Fingerprint {
		return nil
	}

	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM sessions"); err != nil {
		return err
	}

	insSession, err := tx.Prepare(`
		INSERT INTO sessions (session_key, tool, session_id, project, started_at, ended_at, summary, total_size, msg_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insSession.Close()

	insMsg, err := tx.Prepare(`
		INSERT INTO messages (session_key, msg_id, ts, role, kind, size, content)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insMsg.Close()

	for _, s := range idx.Sessions() {
		_, err := insSession.Exec(
			s.Key(), string(s.Tool), s.SessionID, s.ProjectDisplay,
			s.StartedAt.UTC().Format(dbTimeLayout), s.EndedAt.UTC().Format(dbTimeLayout),
			s.FirstUserContent(), s.TotalSize(), len(s.Messages),
		)
		if err != nil {
			return fmt.Errorf("insert session %s: %w", s.Key(), err)
		}
		for i, m := range s.Messages {
			_, err := insMsg.Exec(
				s.Key(), i, m.Timestamp.UTC().Format(dbTimeLayout),
				m.Role, string(m.Type), m.Size, m.Content,
			)
			if err != nil {
				return fmt.Errorf("insert message %s/%d: %w", s.Key(), i, err)
			}
		}
	}

	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('fingerprint', ?)", idx.Fingerprint); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) SessionCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n)
	return n, err
}

func (d *DB) MessageCount() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n)
	return n, err
}
