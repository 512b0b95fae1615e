// Package walog implements the pipeline's write-ahead log: a single
// append-only, line-delimited journal of normalized records awaiting a
// successful flush. Every normalized record is appended here before it
// enters the in-memory batch; after a successful flush the file is
// truncated. On startup, a non-empty WAL is replayed into the batch and
// a synchronous flush is issued before new input is accepted — the
// crash-recovery contract in spec section 4.6.
package walog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// WAL wraps the on-disk journal file. It holds no copy of its contents
// in memory; every Append is flushed to disk immediately so a crash
// between Append calls loses at most the record currently being
// written, never an already-acknowledged one.
type WAL struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// Open opens (creating if necessary) the WAL file at path for appending.
func Open(path string) (*WAL, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("walog: creating directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("walog: opening %s: %w", path, err)
	}
	return &WAL{path: path, file: f}, nil
}

// Close closes the underlying file handle.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// Path returns the WAL file's path.
func (w *WAL) Path() string { return w.path }

// Append marshals record as one JSON line and fsyncs it to disk before
// returning, so a successful Append is durable across a crash.
func (w *WAL) Append(record map[string]any) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("walog: marshaling record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("walog: appending record: %w", err)
	}
	return w.file.Sync()
}

// ReadAll replays every record currently in the WAL, in append order.
// If any line fails to parse, the WAL is treated as corrupt per spec
// section 7's RecoveryFailed policy: the error is returned to the
// caller, who logs a warning and starts with an empty buffer rather than
// a partially-recovered one (a partial replay could silently lose the
// ordering guarantee the WAL exists to provide).
func (w *WAL) ReadAll() ([]map[string]any, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.Open(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("walog: opening %s for replay: %w", w.path, err)
	}
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record map[string]any
		if err := json.Unmarshal(line, &record); err != nil {
			return nil, fmt.Errorf("walog: corrupt record at line %d of %s: %w", lineNo, w.path, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("walog: reading %s: %w", w.path, err)
	}
	return records, nil
}

// Truncate empties the WAL after a successful flush has persisted
// metadata. It reopens the file so subsequent Append calls continue to
// work against the same *WAL value.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("walog: closing before truncate: %w", err)
	}
	f, err := os.OpenFile(w.path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return fmt.Errorf("walog: truncating %s: %w", w.path, err)
	}
	w.file = f
	return nil
}

// IsEmpty reports whether the WAL file currently has zero bytes.
func (w *WAL) IsEmpty() (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	info, err := os.Stat(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return info.Size() == 0, nil
}
