// Package docstore is the document storage adapter: a schema-flexible
// collection store layered on a second modernc.org/sqlite table holding
// whole documents as JSON text. Every dotted-path read, write, $set and
// $unset operates on that JSON body via github.com/tidwall/gjson and
// github.com/tidwall/sjson rather than SQLite's json1 extension, so the
// document store has no dependency on the relational engine's SQL
// dialect for its own semantics — only its storage is borrowed.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Dicklesworthstone/aidb/internal/storeiface"
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite connection used for document placement.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

var _ storeiface.DocStore = (*Store)(nil)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS documents (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	pk_value   TEXT,
	body       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection);
CREATE INDEX IF NOT EXISTS idx_documents_pk ON documents(collection, pk_value);

CREATE TABLE IF NOT EXISTS doc_indexes (
	collection TEXT NOT NULL,
	field      TEXT NOT NULL,
	is_unique  INTEGER NOT NULL,
	PRIMARY KEY (collection, field)
);

CREATE TABLE IF NOT EXISTS doc_validators (
	collection TEXT NOT NULL,
	field      TEXT NOT NULL,
	PRIMARY KEY (collection, field)
);
`

// Open opens (creating if necessary) the document store's SQLite
// database and ensures its bookkeeping tables exist.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("docstore: creating directory: %w", err)
		}
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)",
		path,
	)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("docstore: opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("docstore: pinging database: %w", err)
	}
	if _, err := conn.Exec(schemaDDL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("docstore: initializing schema: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Connect verifies the connection is alive.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn.PingContext(ctx)
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }
