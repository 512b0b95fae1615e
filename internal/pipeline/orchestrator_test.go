package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Dicklesworthstone/aidb/internal/docstore"
	"github.com/Dicklesworthstone/aidb/internal/metadata"
	"github.com/Dicklesworthstone/aidb/internal/sqlstore"
	"github.com/Dicklesworthstone/aidb/internal/walog"
)

type harness struct {
	sql  *sqlstore.Store
	doc  *docstore.Store
	wal  *walog.WAL
	meta *metadata.Store
	dir  string
}

func setupHarness(t *testing.T) harness {
	t.Helper()
	dir := t.TempDir()

	sql, err := sqlstore.Open(filepath.Join(dir, "sql.db"))
	if err != nil {
		t.Fatalf("open sqlstore: %v", err)
	}
	t.Cleanup(func() { sql.Close() })

	doc, err := docstore.Open(filepath.Join(dir, "doc.db"))
	if err != nil {
		t.Fatalf("open docstore: %v", err)
	}
	t.Cleanup(func() { doc.Close() })

	wal, err := walog.Open(filepath.Join(dir, "wal.log"))
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}
	t.Cleanup(func() { wal.Close() })

	meta, err := metadata.New(filepath.Join(dir, "meta"))
	if err != nil {
		t.Fatalf("new metadata store: %v", err)
	}

	return harness{sql: sql, doc: doc, wal: wal, meta: meta, dir: dir}
}

func newOrchestrator(t *testing.T, h harness, opts Options) *Orchestrator {
	t.Helper()
	o, err := New(context.Background(), nil, h.sql, h.doc, h.wal, h.meta, opts)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return o
}

func rec(username string, steps float64) map[string]any {
	return map[string]any{"username": username, "steps": steps}
}

func TestIngestBelowBatchSizeDoesNotFlush(t *testing.T) {
	h := setupHarness(t)
	o := newOrchestrator(t, h, Options{Table: "records", Collection: "records", BatchSize: 5, FlushTimeout: time.Hour})

	if err := o.Ingest(context.Background(), rec("alice", 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	status := o.Status()
	if status.BufferSize != 1 {
		t.Errorf("buffer size = %d, want 1 (should not have flushed)", status.BufferSize)
	}
}

func TestIngestAtBatchSizeFlushes(t *testing.T) {
	h := setupHarness(t)
	o := newOrchestrator(t, h, Options{Table: "records", Collection: "records", BatchSize: 3, FlushTimeout: time.Hour})

	ctx := context.Background()
	for i, name := range []string{"alice", "bob", "carol"} {
		if err := o.Ingest(ctx, rec(name, float64(i))); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	status := o.Status()
	if status.BufferSize != 0 {
		t.Errorf("buffer size = %d, want 0 after auto-flush", status.BufferSize)
	}
	if status.TotalRecordsAnalyzed != 3 {
		t.Errorf("total records analyzed = %d, want 3", status.TotalRecordsAnalyzed)
	}

	empty, err := h.wal.IsEmpty()
	if err != nil || !empty {
		t.Errorf("wal should be truncated after flush, empty=%v err=%v", empty, err)
	}
	if !h.meta.Exists() {
		t.Error("metadata should be persisted after flush")
	}
}

func TestIngestRejectsMissingIdentity(t *testing.T) {
	h := setupHarness(t)
	o := newOrchestrator(t, h, Options{Table: "records", Collection: "records", BatchSize: 5, FlushTimeout: time.Hour})

	err := o.Ingest(context.Background(), map[string]any{"steps": 1.0})
	if err == nil {
		t.Fatal("expected error for record missing username")
	}
	if o.Status().BufferSize != 0 {
		t.Error("record missing identity should never reach the buffer")
	}
}

func TestRestartReplaysWALAndFlushes(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()

	o := newOrchestrator(t, h, Options{Table: "records", Collection: "records", BatchSize: 1000, FlushTimeout: time.Hour})
	for i, name := range []string{"alice", "bob"} {
		if err := o.Ingest(ctx, rec(name, float64(i))); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}
	if o.Status().BufferSize != 2 {
		t.Fatalf("expected 2 buffered records before simulated crash, got %d", o.Status().BufferSize)
	}

	// Simulate a crash: construct a fresh Orchestrator against the same
	// WAL and metadata directory without ever calling Flush on the first
	// one. New's startup sequence must replay the WAL and flush it.
	restarted := newOrchestrator(t, h, Options{Table: "records", Collection: "records", BatchSize: 1000, FlushTimeout: time.Hour})

	status := restarted.Status()
	if status.BufferSize != 0 {
		t.Errorf("buffer size after recovery flush = %d, want 0", status.BufferSize)
	}
	if status.TotalRecordsAnalyzed != 2 {
		t.Errorf("total records analyzed after recovery = %d, want 2", status.TotalRecordsAnalyzed)
	}

	rows, err := h.sql.Select(ctx, "records", nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("rows after recovery = %d, want 2", len(rows))
	}
}

func TestManualFlushIsIdempotentNoOpWhenBufferEmpty(t *testing.T) {
	h := setupHarness(t)
	o := newOrchestrator(t, h, Options{Table: "records", Collection: "records", BatchSize: 5, FlushTimeout: time.Hour})

	result, err := o.Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if result.RecordsFlushed != 0 {
		t.Errorf("flushing an empty buffer should be a no-op, got %+v", result)
	}
}

func TestResetClearsPersistedStateButNotStoredData(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	o := newOrchestrator(t, h, Options{Table: "records", Collection: "records", BatchSize: 2, FlushTimeout: time.Hour})

	if err := o.Ingest(ctx, rec("alice", 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := o.Ingest(ctx, rec("bob", 2)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if err := o.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if h.meta.Exists() {
		t.Error("metadata should not exist after reset")
	}
	if o.Status().TotalRecordsAnalyzed != 0 {
		t.Error("total records analyzed should reset to 0")
	}

	rows, err := h.sql.Select(ctx, "records", nil)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("reset must not delete already-written rows, got %d", len(rows))
	}
}

func TestPersistenceFailureKeepsWALAndRetriesOnNextFlush(t *testing.T) {
	h := setupHarness(t)
	ctx := context.Background()
	o := newOrchestrator(t, h, Options{Table: "records", Collection: "records", BatchSize: 2, FlushTimeout: time.Hour})

	if err := o.Ingest(ctx, rec("alice", 1)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// Make the metadata directory read-only so the triggered flush's
	// Save() call fails, simulating PersistenceFailed.
	if err := os.Chmod(filepath.Join(h.dir, "meta"), 0500); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(filepath.Join(h.dir, "meta"), 0750) })

	err := o.Ingest(ctx, rec("bob", 2))
	if err == nil {
		t.Fatal("expected the triggered flush to fail while metadata dir is read-only")
	}

	if !o.Status().PendingMetadataRetry {
		t.Error("expected a pending metadata retry after persistence failure")
	}
	empty, walErr := h.wal.IsEmpty()
	if walErr != nil || empty {
		t.Errorf("wal must be retained when metadata persistence fails, empty=%v err=%v", empty, walErr)
	}

	if err := os.Chmod(filepath.Join(h.dir, "meta"), 0750); err != nil {
		t.Fatalf("chmod: %v", err)
	}

	if _, err := o.Flush(ctx); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if o.Status().PendingMetadataRetry {
		t.Error("pending retry should clear once metadata persistence succeeds")
	}
	if !mustBeEmpty(t, h.wal) {
		t.Error("wal should be truncated once the retried flush succeeds")
	}
}

func mustBeEmpty(t *testing.T, w *walog.WAL) bool {
	t.Helper()
	empty, err := w.IsEmpty()
	if err != nil {
		t.Fatalf("is empty: %v", err)
	}
	return empty
}
