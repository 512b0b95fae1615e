package analysis

import (
	"strings"

	"github.com/Dicklesworthstone/aidb/internal/valuetype"
)

// FieldAnalyzer accumulates FieldStats across successive flushed batches.
// It owns total_records, the monotonic lifetime counter referenced by
// presence/unique ratios.
type FieldAnalyzer struct {
	stats        map[string]*FieldStats
	totalRecords int
}

// NewFieldAnalyzer builds an analyzer with empty state.
func NewFieldAnalyzer() *FieldAnalyzer {
	return &FieldAnalyzer{stats: make(map[string]*FieldStats)}
}

// Stats returns the live stats map, keyed by dot-notation path. Callers
// must not mutate it directly; only AnalyzeBatch and Restore do.
func (a *FieldAnalyzer) Stats() map[string]*FieldStats {
	return a.stats
}

// TotalRecords reports the lifetime count of analyzed records.
func (a *FieldAnalyzer) TotalRecords() int {
	return a.totalRecords
}

// Restore seeds the analyzer from previously persisted state (used by
// MetadataStore on startup replay). It replaces any existing stats.
func (a *FieldAnalyzer) Restore(stats map[string]*FieldStats, totalRecords int) {
	a.stats = stats
	a.totalRecords = totalRecords
}

// AnalyzeBatch walks every record in batch into dot-notation paths and
// updates per-path FieldStats. It is the only place FieldStats are
// mutated. total_records increases by len(batch) regardless of how many
// paths each record contributes.
func (a *FieldAnalyzer) AnalyzeBatch(batch []valuetype.Record) {
	for _, record := range batch {
		a.analyzeRecord(record)
		a.totalRecords++
	}
}

func (a *FieldAnalyzer) analyzeRecord(record valuetype.Record) {
	for key, value := range record {
		if strings.HasPrefix(key, "_") {
			continue
		}
		a.walk(key, value)
	}
}

// walk implements the flattening contract: dict recurse with
// prefix.key; list whose first element is an object recurses into that
// first element (representative flattening) AND records the list itself
// under prefix.key with type array; everything else is a leaf
// observation at path.
func (a *FieldAnalyzer) walk(path string, value valuetype.Value) {
	switch value.Kind {
	case valuetype.KindObject:
		// The object node itself is observed (dominant_type=object drives
		// rule R3 to DOC) in addition to its recursively flattened
		// children; R3 keeps it out of the relational schema even though
		// it has stats and, eventually, a PlacementDecision.
		a.observeAt(path, value)
		for k, fv := range value.Object {
			if strings.HasPrefix(k, "_") {
				continue
			}
			a.walk(path+"."+k, fv)
		}
	case valuetype.KindArray:
		a.observeAt(path, value)
		if len(value.Array) > 0 && value.Array[0].Kind == valuetype.KindObject {
			for k, fv := range value.Array[0].Object {
				if strings.HasPrefix(k, "_") {
					continue
				}
				a.walk(path+"."+k, fv)
			}
		}
	default:
		a.observeAt(path, value)
	}
}

func (a *FieldAnalyzer) observeAt(path string, value valuetype.Value) {
	s, ok := a.stats[path]
	if !ok {
		s = NewFieldStats(path, strings.Count(path, "."))
		a.stats[path] = s
	}
	s.observe(value)
}
