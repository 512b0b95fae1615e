package sqlstore

import (
	"context"
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateTableAndAddColumn(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	if err := s.CreateTable(ctx, "records", []string{`"username" VARCHAR(255) NOT NULL`}); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := s.AddColumn(ctx, "records", "steps", "BIGINT", true); err != nil {
		t.Fatalf("add column: %v", err)
	}
	// Adding the same column twice must be a no-op, not an error.
	if err := s.AddColumn(ctx, "records", "steps", "BIGINT", true); err != nil {
		t.Fatalf("add column idempotent: %v", err)
	}

	cols, err := s.Columns(ctx, "records")
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	if _, ok := cols["steps"]; !ok {
		t.Errorf("steps column missing: %v", cols)
	}
}

func TestUpsertInsertsThenUpdates(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	if err := s.CreateTable(ctx, "records", []string{
		`"username" VARCHAR(255) PRIMARY KEY`, `"steps" BIGINT`,
	}); err != nil {
		t.Fatalf("create table: %v", err)
	}

	err := s.Upsert(ctx, "records", "username", map[string]any{"username": "alice", "steps": int64(10)})
	if err != nil {
		t.Fatalf("upsert insert: %v", err)
	}
	err = s.Upsert(ctx, "records", "username", map[string]any{"username": "alice", "steps": int64(99)})
	if err != nil {
		t.Fatalf("upsert update: %v", err)
	}

	rows, err := s.Select(ctx, "records", nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after upsert-update, got %d", len(rows))
	}
	if rows[0]["steps"].(int64) != 99 {
		t.Errorf("steps = %v, want 99", rows[0]["steps"])
	}
}

func TestUpsertIdempotentProducesNoNetInserts(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	if err := s.CreateTable(ctx, "records", []string{
		`"username" VARCHAR(255) PRIMARY KEY`, `"steps" BIGINT`,
	}); err != nil {
		t.Fatalf("create table: %v", err)
	}

	row := map[string]any{"username": "alice", "steps": int64(10)}
	for i := 0; i < 2; i++ {
		if err := s.Upsert(ctx, "records", "username", row); err != nil {
			t.Fatalf("upsert run %d: %v", i, err)
		}
	}

	rows, err := s.Select(ctx, "records", nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("routing the same batch twice should be idempotent: got %d rows", len(rows))
	}
}

func TestAddColumnRenameColumnWidensIntToStr(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	if err := s.CreateTable(ctx, "records", []string{
		`"username" VARCHAR(255) PRIMARY KEY`, `"zip" BIGINT`,
	}); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := s.Upsert(ctx, "records", "username", map[string]any{"username": "a", "zip": int64(90210)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// Mirrors package migrate's widenRelationalColumn: add a shadow
	// column, copy the converted value in, drop the original, rename the
	// shadow back.
	if err := s.AddColumn(ctx, "records", "zip__widen", "VARCHAR(255)", true); err != nil {
		t.Fatalf("add shadow column: %v", err)
	}
	if _, err := s.Update(ctx, "records", map[string]any{"zip__widen": "90210"}, map[string]any{"username": "a"}); err != nil {
		t.Fatalf("copy converted value: %v", err)
	}
	if err := s.DropColumn(ctx, "records", "zip"); err != nil {
		t.Fatalf("drop original column: %v", err)
	}
	if err := s.RenameColumn(ctx, "records", "zip__widen", "zip"); err != nil {
		t.Fatalf("rename shadow column: %v", err)
	}

	cols, err := s.Columns(ctx, "records")
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	if _, ok := cols["zip"]; !ok {
		t.Fatalf("zip column should survive the widen: %v", cols)
	}

	rows, err := s.Select(ctx, "records", nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if rows[0]["zip"] != "90210" {
		t.Errorf("zip = %v (%T), want string 90210", rows[0]["zip"], rows[0]["zip"])
	}
}

func TestDropColumn(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	if err := s.CreateTable(ctx, "records", []string{
		`"username" VARCHAR(255) PRIMARY KEY`, `"note" TEXT`,
	}); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := s.DropColumn(ctx, "records", "note"); err != nil {
		t.Fatalf("drop column: %v", err)
	}
	cols, err := s.Columns(ctx, "records")
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	if _, ok := cols["note"]; ok {
		t.Errorf("note column should be gone: %v", cols)
	}
}

func TestTableExistsFalseForUnknownTable(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	exists, err := s.TableExists(ctx, "ghost")
	if err != nil {
		t.Fatalf("table exists: %v", err)
	}
	if exists {
		t.Errorf("ghost table should not exist")
	}
}
