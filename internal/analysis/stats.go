// Package analysis walks buffered batches of canonical records into
// dot-notation field paths and accumulates per-path statistics: presence,
// type histogram, null count, bounded uniqueness, sample values and
// nesting depth. Classification (package classify) consumes these stats;
// this package never interprets them.
package analysis

import "github.com/Dicklesworthstone/aidb/internal/valuetype"

// maxUniqueValues bounds the uniqueness set per path. Beyond this cap,
// new distinct values still count toward presence but are not inserted.
const maxUniqueValues = 1000

// maxSampleValues bounds how many example raw values are retained per
// path, for display in the decisions CLI command.
const maxSampleValues = 5

// FieldStats is the accumulated evidence for one dot-notation path.
type FieldStats struct {
	Path         string
	NestingDepth int
	PresenceCount int
	TypeCounts    map[valuetype.CanonicalType]int
	NullCount     int

	// UniqueValues is a bounded set of stable string encodings of scalar
	// values observed for this path. Capped at maxUniqueValues.
	UniqueValues map[string]struct{}
	// UniqueCountUnhashable counts observations whose value could not be
	// hashed into UniqueValues (arrays/objects).
	UniqueCountUnhashable int

	SampleValues []any
}

// NewFieldStats creates empty stats for path, fixing its nesting depth
// (the number of dots) at creation time, as required: nesting depth never
// changes after a path's first observation.
func NewFieldStats(path string, nestingDepth int) *FieldStats {
	return &FieldStats{
		Path:          path,
		NestingDepth:  nestingDepth,
		TypeCounts:    make(map[valuetype.CanonicalType]int),
		UniqueValues:  make(map[string]struct{}),
	}
}

// DominantType returns the canonical type with the highest count,
// breaking ties by iterating valuetype.AllTypes in its fixed order (so
// the result is deterministic across runs).
func (s *FieldStats) DominantType() valuetype.CanonicalType {
	var best valuetype.CanonicalType
	bestCount := -1
	for _, t := range valuetype.AllTypes {
		if c := s.TypeCounts[t]; c > bestCount {
			best = t
			bestCount = c
		}
	}
	return best
}

// TypeStability is type_counts[dominant] / presence_count, in [0, 1].
// Returns 0 when there have been no observations yet.
func (s *FieldStats) TypeStability() float64 {
	if s.PresenceCount == 0 {
		return 0
	}
	return float64(s.TypeCounts[s.DominantType()]) / float64(s.PresenceCount)
}

// PresenceRatio is presence_count / totalRecords, in [0, 1].
func (s *FieldStats) PresenceRatio(totalRecords int) float64 {
	if totalRecords == 0 {
		return 0
	}
	return float64(s.PresenceCount) / float64(totalRecords)
}

// UniqueRatio is the distinct-value count (bounded set size, plus
// unhashable observations each counted as distinct) divided by
// presence_count, in [0, 1].
func (s *FieldStats) UniqueRatio() float64 {
	if s.PresenceCount == 0 {
		return 0
	}
	distinct := len(s.UniqueValues) + s.UniqueCountUnhashable
	return float64(distinct) / float64(s.PresenceCount)
}

// RestoreUniqueCount seeds count placeholder entries into UniqueValues so
// UniqueRatio reproduces the persisted count after a restart. This is
// the bounded-set approximation the spec documents for the
// persist/reload round trip: the literal set of distinct values is not
// persisted (only its size), so a restored FieldStats can no longer
// distinguish "this value was already seen" from "this is new" for
// values seen before the restart. New observations after restore still
// accumulate correctly up to the 1000-entry cap.
func (s *FieldStats) RestoreUniqueCount(count int) {
	for i := 0; i < count && len(s.UniqueValues) < maxUniqueValues; i++ {
		s.UniqueValues[restoredPlaceholderKey(i)] = struct{}{}
	}
}

func restoredPlaceholderKey(i int) string {
	return "__restored_unique__" + formatInt(int64(i))
}

// Clone deep-copies s so the caller can mutate the original via further
// observations without disturbing the copy. Used by the orchestrator to
// snapshot analyzer state before a flush that may need to be rolled back
// (spec section 7's SchemaEvolutionFailed policy: abort flush, keep
// buffer and WAL, and — implicitly — keep the stats as if the aborted
// flush's AnalyzeBatch call never happened).
func (s *FieldStats) Clone() *FieldStats {
	clone := &FieldStats{
		Path:                  s.Path,
		NestingDepth:          s.NestingDepth,
		PresenceCount:         s.PresenceCount,
		NullCount:             s.NullCount,
		UniqueCountUnhashable: s.UniqueCountUnhashable,
		TypeCounts:            make(map[valuetype.CanonicalType]int, len(s.TypeCounts)),
		UniqueValues:          make(map[string]struct{}, len(s.UniqueValues)),
		SampleValues:          append([]any(nil), s.SampleValues...),
	}
	for t, c := range s.TypeCounts {
		clone.TypeCounts[t] = c
	}
	for k := range s.UniqueValues {
		clone.UniqueValues[k] = struct{}{}
	}
	return clone
}

// CloneStatsMap deep-copies every FieldStats in stats.
func CloneStatsMap(stats map[string]*FieldStats) map[string]*FieldStats {
	out := make(map[string]*FieldStats, len(stats))
	for path, s := range stats {
		out[path] = s.Clone()
	}
	return out
}

// observe records one occurrence of value (already canonically typed) at
// this path. Apart from RestoreUniqueCount, it is the only mutator of
// FieldStats, invoked exclusively from AnalyzeBatch.
func (s *FieldStats) observe(v valuetype.Value) {
	s.PresenceCount++
	t := v.CanonicalType()
	s.TypeCounts[t]++

	if v.IsNull() {
		s.NullCount++
		return
	}

	if t == valuetype.TypeArray || t == valuetype.TypeObject {
		s.UniqueCountUnhashable++
	} else if len(s.UniqueValues) < maxUniqueValues {
		s.UniqueValues[uniqueKey(v)] = struct{}{}
	}

	if len(s.SampleValues) < maxSampleValues {
		s.SampleValues = append(s.SampleValues, v.ToPlainValue())
	}
}

// uniqueKey produces a stable string encoding of a scalar for set
// membership, distinguishing values that would otherwise collide across
// types (e.g. int 1 vs string "1").
func uniqueKey(v valuetype.Value) string {
	return string(v.CanonicalType()) + ":" + stableScalarString(v)
}

func stableScalarString(v valuetype.Value) string {
	switch t := v.Scalar.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return formatInt(t)
	case float64:
		return formatFloat(t)
	default:
		return ""
	}
}
