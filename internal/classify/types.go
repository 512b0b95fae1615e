// Package classify applies a deterministic rule cascade over the
// statistics accumulated by package analysis, producing exactly one
// PlacementDecision per observed field path. It also selects the
// document's primary-key path and exposes the type-widening lattice used
// by package migrate to decide whether a type conflict can be resolved
// without moving a field between backends.
package classify

import "github.com/Dicklesworthstone/aidb/internal/valuetype"

// Backend is the storage target a field is routed to.
type Backend string

const (
	BackendSQL  Backend = "SQL"
	BackendDOC  Backend = "DOC"
	BackendBOTH Backend = "BOTH"
)

// LinkingFields must be present in every backend so cross-store joins
// work. username and sys_ingested_at are always populated by the
// normalizer; t_stamp is an optional source-supplied identity field.
var LinkingFields = map[string]struct{}{
	"username":        {},
	"sys_ingested_at": {},
	"t_stamp":         {},
}

// IsLinkingField reports whether path names a linking field.
func IsLinkingField(path string) bool {
	_, ok := LinkingFields[path]
	return ok
}

// Thresholds are the policy knobs governing classification. They are
// constant for the lifetime of one pipeline run.
type Thresholds struct {
	MinPresenceRatio      float64
	MinTypeStability      float64
	MaxUniqueRatio        float64
	MinRecordsForDecision int
}

// DefaultThresholds returns the values mandated for this pipeline.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinPresenceRatio:      0.7,
		MinTypeStability:      0.9,
		MaxUniqueRatio:        0.95,
		MinRecordsForDecision: 50,
	}
}

// PlacementDecision is the routing outcome for one field path.
type PlacementDecision struct {
	Path string
	Backend Backend

	// RelationalType is set only when Backend is SQL or BOTH.
	RelationalType string
	// RelationalColumn is Path with dots rewritten to underscores.
	RelationalColumn string
	// DocumentPath is Path, unchanged (the document store preserves
	// dotted nesting).
	DocumentPath string

	CanonicalType valuetype.CanonicalType
	IsNullable    bool
	IsUnique      bool
	IsPrimaryKey  bool
	Reason        string
}

// relationalColumnName rewrites a dot-notation path into a SQL-safe
// column name. This is the one place dots are rewritten to underscores;
// the document store always keeps the original dotted path.
func relationalColumnName(path string) string {
	out := make([]byte, len(path))
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			out[i] = '_'
		} else {
			out[i] = path[i]
		}
	}
	return string(out)
}

// canonicalToRelationalType is the fixed type map from spec section 4.3.
var canonicalToRelationalType = map[valuetype.CanonicalType]string{
	valuetype.TypeInt:      "BIGINT",
	valuetype.TypeFloat:    "DOUBLE",
	valuetype.TypeBool:     "BOOLEAN",
	valuetype.TypeIP:       "VARCHAR(45)",
	valuetype.TypeUUID:     "CHAR(36)",
	valuetype.TypeDatetime: "DATETIME",
	valuetype.TypeStr:      "VARCHAR(255)",
}

// RelationalType maps a canonical type to its SQL column type, falling
// back to TEXT for anything not covered (array/object/null never reach
// here through the normal rule cascade, but the fallback keeps the
// function total).
func RelationalType(t valuetype.CanonicalType) string {
	if rt, ok := canonicalToRelationalType[t]; ok {
		return rt
	}
	return "TEXT"
}
