// Package migrate compares freshly classified PlacementDecisions against
// previously persisted ones to detect type drift and backend reassignment,
// then executes the schema widenings and backend moves those conflicts
// imply against both storage backends. Conflict detection decides *what*
// changed; migration decides *how* to reconcile it; both consult the same
// widening lattice from package classify, so they share this package
// rather than splitting across two.
package migrate

import "github.com/Dicklesworthstone/aidb/internal/classify"

// TypeConflict is a detected drift between a path's previously stored
// canonical type and the type the latest classification pass observed.
type TypeConflict struct {
	Path             string
	StoredType       string
	IncomingType     string
	StoredBackend    classify.Backend
	RelationalColumn string
	DocumentPath     string
	CanWiden         bool
	WidenedType      string
	Action           classify.WideningAction
	Reason           string
}

// BackendChange is a detected reassignment of a path from one backend to
// another between two successive classification passes.
type BackendChange struct {
	Path string
	From classify.Backend
	To   classify.Backend
}

// DetectTypeConflicts compares every path present in both prior and
// current decisions; for each path where the dominant canonical type has
// changed, it consults the widening lattice and emits a TypeConflict.
// Paths new to this flush (absent from prior) or unchanged produce
// nothing: spec section 4.4 only concerns itself with paths whose
// evidence now disagrees with what is already persisted.
func DetectTypeConflicts(prior, current map[string]*classify.PlacementDecision) []TypeConflict {
	var conflicts []TypeConflict
	for path, cur := range current {
		old, ok := prior[path]
		if !ok {
			continue
		}
		if old.CanonicalType == cur.CanonicalType {
			continue
		}

		result := classify.Widen(old.CanonicalType, cur.CanonicalType)
		c := TypeConflict{
			Path:             path,
			StoredType:       string(old.CanonicalType),
			IncomingType:     string(cur.CanonicalType),
			StoredBackend:    old.Backend,
			RelationalColumn: cur.RelationalColumn,
			DocumentPath:     cur.DocumentPath,
			CanWiden:         result.CanWiden,
			Action:           result.Action,
		}
		if result.CanWiden {
			c.WidenedType = string(result.WidenedTo)
			c.Reason = "widening " + c.StoredType + " -> " + c.WidenedType
		} else {
			c.Reason = "incompatible type change, field must move to document store"
		}
		conflicts = append(conflicts, c)
	}
	return conflicts
}

// DetectBackendChanges compares every path present in both prior and
// current decisions; for each path whose Backend differs, it emits a
// BackendChange describing the transition package migrate must execute
// before the current batch is routed.
func DetectBackendChanges(prior, current map[string]*classify.PlacementDecision) []BackendChange {
	var changes []BackendChange
	for path, cur := range current {
		old, ok := prior[path]
		if !ok {
			continue
		}
		if old.Backend == cur.Backend {
			continue
		}
		changes = append(changes, BackendChange{Path: path, From: old.Backend, To: cur.Backend})
	}
	return changes
}
