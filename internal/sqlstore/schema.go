package sqlstore

import (
	"context"
	"fmt"
)

// AddColumn adds column to table if it is not already present, mirroring
// the teacher's addColumnIfMissing: probe via PRAGMA table_info before
// issuing ALTER TABLE ADD COLUMN so repeated calls are idempotent.
func (s *Store) AddColumn(ctx context.Context, table, column, sqlType string, nullable bool) error {
	cols, err := s.Columns(ctx, table)
	if err != nil {
		return err
	}
	if _, ok := cols[column]; ok {
		return nil
	}

	nullClause := ""
	if !nullable {
		nullClause = " NOT NULL DEFAULT ''"
	}
	stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s%s`, quoteIdent(table), quoteIdent(column), sqlType, nullClause)
	return s.ExecDDL(ctx, stmt)
}

// DropColumn removes column from table. modernc.org/sqlite's bundled
// SQLite supports ALTER TABLE ... DROP COLUMN natively (SQLite >= 3.35),
// so no table rebuild is needed here.
func (s *Store) DropColumn(ctx context.Context, table, column string) error {
	cols, err := s.Columns(ctx, table)
	if err != nil {
		return err
	}
	if _, ok := cols[column]; !ok {
		return nil
	}
	stmt := fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s`, quoteIdent(table), quoteIdent(column))
	return s.ExecDDL(ctx, stmt)
}

// RenameColumn renames oldName to newName on table, the last step of
// package migrate's add-shadow/convert/drop-original/rename-shadow widen
// sequence (see migrate.widenRelationalColumn).
func (s *Store) RenameColumn(ctx context.Context, table, oldName, newName string) error {
	stmt := fmt.Sprintf(`ALTER TABLE %s RENAME COLUMN %s TO %s`, quoteIdent(table), quoteIdent(oldName), quoteIdent(newName))
	return s.ExecDDL(ctx, stmt)
}

// CreateTable issues CREATE TABLE IF NOT EXISTS with the given column
// column definitions (each a full definition string such as
// `"name" SQLTYPE NOT NULL`), used by
// package route's ensureTable when a table does not exist yet.
func (s *Store) CreateTable(ctx context.Context, table string, columnDefs []string) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (%s)`, quoteIdent(table), joinDefs(columnDefs))
	return s.ExecDDL(ctx, stmt)
}

func joinDefs(defs []string) string {
	out := ""
	for i, d := range defs {
		if i > 0 {
			out += ", "
		}
		out += d
	}
	return out
}
