// Package storeiface defines the narrow storage-driver contracts the rest
// of the pipeline depends on. These are the "out of scope, interfaces
// only" collaborators from the specification: package sqlstore and
// package docstore each provide one concrete adapter, but every other
// package (route, migrate, pipeline) talks only to these interfaces so a
// different relational or document engine can be swapped in later
// without touching classification or routing logic.
package storeiface

import "context"

// SQLStore is the relational store driver contract: connect, ensure the
// database exists, execute DDL transactionally, and perform row-level
// upsert/select/update against a single identity column.
type SQLStore interface {
	Connect(ctx context.Context) error
	EnsureDatabase(ctx context.Context) error
	Close() error

	// ExecDDL runs one schema-changing statement (CREATE TABLE, ALTER
	// TABLE ...). It must run inside its own transaction if the driver
	// requires one.
	ExecDDL(ctx context.Context, stmt string, args ...any) error

	// TableExists reports whether table has been created.
	TableExists(ctx context.Context, table string) (bool, error)
	// Columns returns the set of existing column names for table, or nil
	// if the table does not exist.
	Columns(ctx context.Context, table string) (map[string]string, error)

	// Upsert inserts row into table, or updates every column in row
	// (except pk) when a row with the same pk value already exists.
	Upsert(ctx context.Context, table, pk string, row map[string]any) error
	// Insert appends row to table unconditionally, with no conflict
	// handling. Used when no primary key has been selected yet and
	// duplicates are an accepted bootstrap-phase cost.
	Insert(ctx context.Context, table string, row map[string]any) error
	// Select returns every row in table matching an equality filter
	// (where == nil means "all rows").
	Select(ctx context.Context, table string, where map[string]any) ([]map[string]any, error)
	// Update sets columns in set for every row matching where.
	Update(ctx context.Context, table string, set, where map[string]any) (int, error)

	// CreateTable issues CREATE TABLE IF NOT EXISTS with the given column
	// definitions. Used by package route's ensureTable when a table does
	// not exist yet.
	CreateTable(ctx context.Context, table string, columnDefs []string) error

	AddColumn(ctx context.Context, table, column, sqlType string, nullable bool) error
	DropColumn(ctx context.Context, table, column string) error
	// RenameColumn renames a column in place. Used by package migrate's
	// type-widening routine as the last step of add-shadow-column,
	// convert-row-by-row, drop-original, rename-shadow.
	RenameColumn(ctx context.Context, table, oldName, newName string) error
}

// DocStore is the document store driver contract: schema-flexible
// collections addressed by name, with dotted-path field access inside
// each document's body.
type DocStore interface {
	Connect(ctx context.Context) error
	Close() error

	CreateIndex(ctx context.Context, collection, field string, unique bool) error
	// DropIndexes removes every index registered on collection except
	// one on keepField (pass "" to drop all). Used by package route's
	// ensureIndexes to retire an index on a primary key that a later
	// flush revises.
	DropIndexes(ctx context.Context, collection, keepField string) error
	// SetValidator requires every document written to collection to
	// contain each field in required, string-typed.
	SetValidator(ctx context.Context, collection string, required []string) error

	InsertOne(ctx context.Context, collection string, doc map[string]any) error
	UpdateOne(ctx context.Context, collection string, filter map[string]any, set map[string]any, upsert bool) error
	// UpdateMany applies set (may be nil) and unset (field paths to
	// remove, may be nil) to every document matching filter. Returns the
	// number of documents touched.
	UpdateMany(ctx context.Context, collection string, filter map[string]any, set map[string]any, unset []string) (int, error)

	Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error)
}
