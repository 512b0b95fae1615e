package migrate

import (
	"context"

	"github.com/Dicklesworthstone/aidb/internal/classify"
	"github.com/Dicklesworthstone/aidb/internal/storeiface"
	"github.com/charmbracelet/log"
)

// Result is the outcome of running every migration implied by one
// flush's conflicts and backend changes. Migrations are best-effort per
// row/document: a failure is recorded here and in Errors but never
// aborts the flush, per spec section 4.4 and 7.
type Result struct {
	Widenings []WidenStats
	Moves     []BackendMoveStats
	Errors    []error
}

// Migrator executes the type-widening and backend-move migrations
// ConflictDetector implies, against both storage backends, before the
// current batch is routed. It holds no state between flushes; every call
// is given the full decision set it needs.
type Migrator struct {
	sql        storeiface.SQLStore
	doc        storeiface.DocStore
	table      string
	collection string
	logger     *log.Logger
}

// New builds a Migrator targeting one relational table and one document
// collection.
func New(sql storeiface.SQLStore, doc storeiface.DocStore, table, collection string, logger *log.Logger) *Migrator {
	return &Migrator{sql: sql, doc: doc, table: table, collection: collection, logger: logger}
}

// Run applies every detected type conflict and backend change, in that
// order (widenings never change a field's backend, so applying them
// first means backend moves always see the post-widen type). identity
// is the column/field used to key cross-store row/document lookups: the
// discovered primary key's relational column, or "username" when no
// primary key has been selected.
func (m *Migrator) Run(ctx context.Context, conflicts []TypeConflict, changes []BackendChange, decisions map[string]*classify.PlacementDecision, identity string) Result {
	var result Result

	for _, c := range conflicts {
		if !c.CanWiden {
			m.logf("migrate: type conflict at %s (%s -> %s) cannot widen, awaiting backend reassignment", c.Path, c.StoredType, c.IncomingType)
			continue
		}
		decision, ok := decisions[c.Path]
		if !ok {
			continue
		}
		sqlSide, docSide := classifyWidenTarget(decision.Backend)
		target := decision.CanonicalType

		if sqlSide {
			stats, err := widenRelationalColumn(ctx, m.sql, m.table, c.RelationalColumn, target, decision.RelationalType, identity)
			result.Widenings = append(result.Widenings, stats)
			if err != nil {
				result.Errors = append(result.Errors, err)
				m.logf("migrate: relational widen failed for %s: %v", c.Path, err)
			}
		}
		if docSide {
			stats, err := widenDocumentField(ctx, m.doc, m.collection, c.DocumentPath, target, identity)
			result.Widenings = append(result.Widenings, stats)
			if err != nil {
				result.Errors = append(result.Errors, err)
				m.logf("migrate: document widen failed for %s: %v", c.Path, err)
			}
		}
	}

	for _, change := range changes {
		decision := decisions[change.Path]
		moved, err := applyBackendChange(ctx, m.sql, m.doc, m.table, m.collection, identity, change, decision)
		result.Moves = append(result.Moves, moved)
		if err != nil {
			result.Errors = append(result.Errors, err)
			m.logf("migrate: backend change failed for %s (%s -> %s): %v", change.Path, change.From, change.To, err)
		}
	}

	return result
}

func (m *Migrator) logf(format string, args ...any) {
	if m.logger == nil {
		return
	}
	m.logger.Warnf(format, args...)
}

// IdentityColumn picks the column/field used to key cross-store
// migrations: the discovered primary key's relational column if one was
// selected, otherwise the always-present "username" linking field.
func IdentityColumn(decisions map[string]*classify.PlacementDecision) string {
	for _, d := range decisions {
		if d.IsPrimaryKey {
			return d.RelationalColumn
		}
	}
	return "username"
}
