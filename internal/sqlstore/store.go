// Package sqlstore is the relational storage adapter: a single
// modernc.org/sqlite database whose schema evolves on-line, column by
// column, as PlacementDecisions are produced, rather than through a fixed
// migration list. It mirrors the connection-opening and transaction
// conventions of a hand-rolled SQLite wrapper (WAL mode, busy_timeout,
// foreign_keys pragmas set via the `_pragma=` DSN style), generalized from
// a fixed-schema application database to one whose tables and columns are
// created and widened at runtime.
package sqlstore

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

// Store wraps the SQLite connection used for relational placement.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

var _ storeiface.SQLStore = (*Store)(nil)

// Open opens (creating if necessary) a SQLite database at path with WAL
// mode, a 5s busy timeout, NORMAL synchronous mode and foreign keys on.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("sqlstore: creating directory: %w", err)
		}
	}

	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path,
	)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging database: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Connect verifies the connection is alive. Open already dials the
// database, so Connect exists to satisfy storeiface.SQLStore for callers
// that construct a Store and defer connecting until the orchestrator
// starts.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn.PingContext(ctx)
}

// EnsureDatabase only checks the connection through Connect: Open
// already created the file and its directory. It exists so Store
// satisfies storeiface.SQLStore.
func (s *Store) EnsureDatabase(ctx context.Context) error {
	return s.Connect(ctx)
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// ExecDDL runs one schema-changing statement.
func (s *Store) ExecDDL(ctx context.Context, stmt string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.conn.ExecContext(ctx, stmt, args...)
	return err
}

// TableExists reports whether table has been created yet.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var name string
	err := s.conn.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Columns returns the existing column names and declared types for
// table, probed via PRAGMA table_info the same way the teacher's
// addColumnIfMissing does, or nil if the table does not exist.
func (s *Store) Columns(ctx context.Context, table string) (map[string]string, error) {
	exists, err := s.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]string)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		cols[name] = colType
	}
	return cols, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
