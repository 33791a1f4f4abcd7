package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultOpTimeout bounds a single store call when none is configured.
const DefaultOpTimeout = 5 * time.Second

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	filename      TEXT NOT NULL UNIQUE,
	file_path     TEXT NOT NULL,
	title         TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	size_bytes    INTEGER NOT NULL DEFAULT 0 CHECK (size_bytes >= 0),
	date_added    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_modified DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_date_added ON documents(date_added);
`

// DB is the SQLite-backed catalog store.
type DB struct {
	conn    *sql.DB
	timeout time.Duration
}

// OpenOption configures a DB.
type OpenOption func(*DB)

// WithOpTimeout bounds every store call.
func WithOpTimeout(d time.Duration) OpenOption {
	return func(db *DB) {
		if d > 0 {
			db.timeout = d
		}
	}
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string, opts ...OpenOption) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	db := &DB{conn: conn, timeout: DefaultOpTimeout}
	for _, opt := range opts {
		opt(db)
	}

	ctx, cancel := db.opContext(context.Background())
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return db, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.timeout)
}
