package classify

import (
	"regexp"
	"strings"

	"github.com/Dicklesworthstone/aidb/internal/analysis"
	"github.com/Dicklesworthstone/aidb/internal/valuetype"
)

// idMarkerPattern matches an "id" segment delimited by underscores or the
// start/end of the (last, dot-split) path component: user_id, id, _id,
// but not "provider" or "userid" (those names don't carry an isolated id
// segment and would otherwise false-positive on substring match alone).
var idMarkerPattern = regexp.MustCompile(`(?i)(^|_)id(s)?($|_)`)

// timestampMarkerPattern matches field names that look like a point in
// time, used to exclude timestamp-shaped fields from unique/pk scoring.
var timestampMarkerPattern = regexp.MustCompile(`(?i)(time|date|timestamp|_at$|created|updated|ingested)`)

func lastSegment(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[i+1:]
	}
	return path
}

func hasIDMarker(path string) bool {
	return idMarkerPattern.MatchString(lastSegment(path))
}

func isTimestampLike(path string) bool {
	return timestampMarkerPattern.MatchString(path)
}

// Classifier applies the rule cascade to accumulated FieldStats.
type Classifier struct {
	thresholds Thresholds
}

// New builds a Classifier with the given thresholds.
func New(thresholds Thresholds) *Classifier {
	return &Classifier{thresholds: thresholds}
}

// ClassifyAll produces exactly one PlacementDecision per path in stats,
// then runs the primary-key selection post-pass over the result.
func (c *Classifier) ClassifyAll(stats map[string]*analysis.FieldStats, totalRecords int) map[string]*PlacementDecision {
	decisions := make(map[string]*PlacementDecision, len(stats))
	for path, s := range stats {
		decisions[path] = c.classifyOne(path, s, totalRecords)
	}
	selectPrimaryKey(decisions, stats, totalRecords)
	return decisions
}

// classifyOne runs rules R1 through R5 in order for a single path.
func (c *Classifier) classifyOne(path string, s *analysis.FieldStats, totalRecords int) *PlacementDecision {
	dominant := s.DominantType()
	presenceRatio := s.PresenceRatio(totalRecords)
	typeStability := s.TypeStability()
	uniqueRatio := s.UniqueRatio()

	// R1 Linking.
	if IsLinkingField(path) {
		isUnique := uniqueRatio > c.thresholds.MaxUniqueRatio && !isTimestampLike(path)
		return &PlacementDecision{
			Path:              path,
			Backend:           BackendBOTH,
			RelationalType:    "VARCHAR(255)",
			RelationalColumn:  relationalColumnName(path),
			DocumentPath:      path,
			CanonicalType:     dominant,
			IsNullable:        false,
			IsUnique:          isUnique,
			Reason:            "R1: linking field, present in every backend",
		}
	}

	// R2 Array.
	if dominant == valuetype.TypeArray {
		return &PlacementDecision{
			Path: path, Backend: BackendDOC, DocumentPath: path,
			CanonicalType: dominant, IsNullable: s.NullCount > 0,
			Reason: "R2: array-dominant field routed to document store",
		}
	}

	// R3 Object.
	if dominant == valuetype.TypeObject {
		return &PlacementDecision{
			Path: path, Backend: BackendDOC, DocumentPath: path,
			CanonicalType: dominant, IsNullable: s.NullCount > 0,
			Reason: "R3: object-dominant field routed to document store",
		}
	}

	// R4 Scalar-SQL.
	if presenceRatio >= c.thresholds.MinPresenceRatio && typeStability >= c.thresholds.MinTypeStability {
		isUnique := hasIDMarker(path) && uniqueRatio > c.thresholds.MaxUniqueRatio
		isNullable := s.NullCount > 0 || presenceRatio < 1.0
		return &PlacementDecision{
			Path:             path,
			Backend:          BackendSQL,
			RelationalType:   RelationalType(dominant),
			RelationalColumn: relationalColumnName(path),
			DocumentPath:     path,
			CanonicalType:    dominant,
			IsNullable:       isNullable,
			IsUnique:         isUnique,
			Reason:           "R4: stable scalar field meets presence/stability thresholds",
		}
	}

	// R5 Else.
	return &PlacementDecision{
		Path: path, Backend: BackendDOC, DocumentPath: path,
		CanonicalType: dominant, IsNullable: s.NullCount > 0,
		Reason: "R5: does not meet presence/stability thresholds for relational placement",
	}
}
