package classify

import (
	"github.com/Dicklesworthstone/aidb/internal/analysis"
	"github.com/Dicklesworthstone/aidb/internal/valuetype"
)

const (
	pkMinPresenceRatio = 0.9
	pkMinUniqueRatio   = 0.9
)

// selectPrimaryKey is the post-pass over a freshly classified decision
// set: it picks at most one path to be the discovered primary key,
// scoring every eligible SQL/BOTH-backed candidate and marking the
// winner unique, non-nullable and is_primary_key. If no candidate
// qualifies, decisions are left unchanged and the caller (the
// orchestrator) falls back to a surrogate key in the relational store.
func selectPrimaryKey(decisions map[string]*PlacementDecision, stats map[string]*analysis.FieldStats, totalRecords int) {
	var bestPath string
	var bestScore float64
	var bestUniqueRatio float64
	found := false

	for path, d := range decisions {
		if d.Backend != BackendSQL && d.Backend != BackendBOTH {
			continue
		}
		if d.CanonicalType == valuetype.TypeArray || d.CanonicalType == valuetype.TypeObject || d.CanonicalType == valuetype.TypeDatetime {
			continue
		}
		if isTimestampLike(path) {
			continue
		}

		s := stats[path]
		if s == nil {
			continue
		}
		presenceRatio := s.PresenceRatio(totalRecords)
		uniqueRatio := s.UniqueRatio()
		if presenceRatio < pkMinPresenceRatio || uniqueRatio < pkMinUniqueRatio {
			continue
		}

		score := 0.6*uniqueRatio + 0.3*presenceRatio
		if hasIDMarker(path) {
			score += 0.1
		}

		if !found || score > bestScore || (score == bestScore && uniqueRatio > bestUniqueRatio) {
			bestPath, bestScore, bestUniqueRatio, found = path, score, uniqueRatio, true
		}
	}

	if !found {
		return
	}

	winner := decisions[bestPath]
	winner.IsPrimaryKey = true
	winner.IsUnique = true
	winner.IsNullable = false
}
