// Package metadata persists the pipeline's durable decision state: the
// classifier's per-path PlacementDecisions, the analyzer's per-path
// FieldStats, and the lifetime PipelineState counters. All three are
// written as JSON files under one directory, after every successful
// flush, so a restart can resume without re-analyzing historical data.
//
// Writes use a temp-file-then-rename sequence rather than the teacher's
// direct os.Create (internal/cli/init.go's writeDefaultConfig): metadata
// persistence sits on the crash-recovery critical path, so a write that
// is interrupted mid-file must never leave a half-written JSON file
// where the previous, valid one used to be.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Dicklesworthstone/aidb/internal/analysis"
	"github.com/Dicklesworthstone/aidb/internal/classify"
	"github.com/Dicklesworthstone/aidb/internal/valuetype"
)

const (
	decisionsFile  = "decisions.json"
	fieldStatsFile = "field_stats.json"
	stateFile      = "state.json"

	// Version is written to state.json and reserved for future schema
	// changes to the persisted layout; the pipeline does not yet branch
	// on it.
	Version = 1
)

// PersistedDecision is the on-disk encoding of classify.PlacementDecision,
// field names matching spec.md section 4.6's documented layout.
type PersistedDecision struct {
	FieldName        string `json:"field_name"`
	Backend          string `json:"backend"`
	SQLType          string `json:"sql_type,omitempty"`
	SQLColumnName    string `json:"sql_column_name,omitempty"`
	MongoPath        string `json:"mongo_path"`
	CanonicalType    string `json:"canonical_type"`
	IsNullable       bool   `json:"is_nullable"`
	IsUnique         bool   `json:"is_unique"`
	IsPrimaryKey     bool   `json:"is_primary_key"`
	Reason           string `json:"reason,omitempty"`
}

// PersistedStats is the on-disk encoding of analysis.FieldStats. The
// bounded unique_values set is replaced by its count, per spec.md
// section 4.6 — the literal set is working memory, not durable state.
type PersistedStats struct {
	Name                  string                           `json:"name"`
	NestingDepth          int                              `json:"nesting_depth"`
	PresenceCount         int                              `json:"presence_count"`
	TypeCounts            map[valuetype.CanonicalType]int  `json:"type_counts"`
	NullCount             int                              `json:"null_count"`
	UniqueCount           int                              `json:"unique_count"`
	UniqueCountUnhashable int                               `json:"unique_count_unhashable"`
	IsNested              bool                             `json:"is_nested"`
	SampleValues          []any                            `json:"sample_values,omitempty"`
}

// PipelineState is the lifetime counter record in state.json.
type PipelineState struct {
	TotalRecords int    `json:"total_records"`
	LastFlush    string `json:"last_flush"`
	Version      int    `json:"version"`
}

// Store owns the metadata directory. It holds no file handles between
// calls: each Save/Load opens, writes or reads, and closes.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating the directory if absent.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("metadata: creating directory %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Exists reports whether any persisted metadata file is present. The
// orchestrator uses this to decide whether to restore state on startup
// or begin from an empty analyzer/classifier.
func (s *Store) Exists() bool {
	for _, name := range []string{decisionsFile, fieldStatsFile, stateFile} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err == nil {
			return true
		}
	}
	return false
}

// Save writes all three files, each via temp-file-then-rename so a
// crash mid-write cannot corrupt the previous generation.
func (s *Store) Save(decisions map[string]*classify.PlacementDecision, stats map[string]*analysis.FieldStats, state PipelineState) error {
	encodedDecisions := make(map[string]PersistedDecision, len(decisions))
	for path, d := range decisions {
		encodedDecisions[path] = PersistedDecision{
			FieldName:     d.Path,
			Backend:       string(d.Backend),
			SQLType:       d.RelationalType,
			SQLColumnName: d.RelationalColumn,
			MongoPath:     d.DocumentPath,
			CanonicalType: string(d.CanonicalType),
			IsNullable:    d.IsNullable,
			IsUnique:      d.IsUnique,
			IsPrimaryKey:  d.IsPrimaryKey,
			Reason:        d.Reason,
		}
	}

	encodedStats := make(map[string]PersistedStats, len(stats))
	for path, st := range stats {
		encodedStats[path] = PersistedStats{
			Name:                  st.Path,
			NestingDepth:          st.NestingDepth,
			PresenceCount:         st.PresenceCount,
			TypeCounts:            st.TypeCounts,
			NullCount:             st.NullCount,
			UniqueCount:           len(st.UniqueValues),
			UniqueCountUnhashable: st.UniqueCountUnhashable,
			IsNested:              st.NestingDepth > 0,
			SampleValues:          st.SampleValues,
		}
	}

	if err := s.writeJSON(decisionsFile, encodedDecisions); err != nil {
		return err
	}
	if err := s.writeJSON(fieldStatsFile, encodedStats); err != nil {
		return err
	}
	if err := s.writeJSON(stateFile, state); err != nil {
		return err
	}
	return nil
}

// Load reads all three files and reconstitutes them into the live
// types the classifier and analyzer operate on. It is a no-op-safe
// partial read: a missing file yields the type's zero value rather
// than an error, so Load can also serve a fresh, never-saved directory.
func (s *Store) Load() (map[string]*classify.PlacementDecision, map[string]*analysis.FieldStats, PipelineState, error) {
	var encodedDecisions map[string]PersistedDecision
	if err := s.readJSON(decisionsFile, &encodedDecisions); err != nil {
		return nil, nil, PipelineState{}, err
	}
	decisions := make(map[string]*classify.PlacementDecision, len(encodedDecisions))
	for path, d := range encodedDecisions {
		decisions[path] = &classify.PlacementDecision{
			Path:             d.FieldName,
			Backend:          classify.Backend(d.Backend),
			RelationalType:   d.SQLType,
			RelationalColumn: d.SQLColumnName,
			DocumentPath:     d.MongoPath,
			CanonicalType:    valuetype.CanonicalType(d.CanonicalType),
			IsNullable:       d.IsNullable,
			IsUnique:         d.IsUnique,
			IsPrimaryKey:     d.IsPrimaryKey,
			Reason:           d.Reason,
		}
	}

	var encodedStats map[string]PersistedStats
	if err := s.readJSON(fieldStatsFile, &encodedStats); err != nil {
		return nil, nil, PipelineState{}, err
	}
	stats := make(map[string]*analysis.FieldStats, len(encodedStats))
	for path, st := range encodedStats {
		fs := analysis.NewFieldStats(st.Name, st.NestingDepth)
		fs.PresenceCount = st.PresenceCount
		fs.NullCount = st.NullCount
		fs.UniqueCountUnhashable = st.UniqueCountUnhashable
		fs.SampleValues = st.SampleValues
		for t, c := range st.TypeCounts {
			fs.TypeCounts[t] = c
		}
		fs.RestoreUniqueCount(st.UniqueCount)
		stats[path] = fs
	}

	var state PipelineState
	if err := s.readJSON(stateFile, &state); err != nil {
		return nil, nil, PipelineState{}, err
	}

	return decisions, stats, state, nil
}

// Clear removes all three persisted files, used by the reset CLI
// command. A missing file is not an error.
func (s *Store) Clear() error {
	for _, name := range []string{decisionsFile, fieldStatsFile, stateFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("metadata: removing %s: %w", name, err)
		}
	}
	return nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("metadata: encoding %s: %w", name, err)
	}

	target := filepath.Join(s.dir, name)
	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("metadata: creating temp file for %s: %w", name, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("metadata: writing %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("metadata: syncing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("metadata: closing %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("metadata: renaming into place %s: %w", name, err)
	}
	return nil
}

func (s *Store) readJSON(name string, dest any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("metadata: reading %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("metadata: decoding %s: %w", name, err)
	}
	return nil
}
