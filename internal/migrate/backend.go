package migrate

import (
	"context"
	"fmt"

	"github.com/Dicklesworthstone/aidb/internal/classify"
	"github.com/Dicklesworthstone/aidb/internal/storeiface"
)

// BackendMoveStats counts documents/rows moved for one backend-change.
type BackendMoveStats struct {
	Path    string
	From    classify.Backend
	To      classify.Backend
	Moved   int
	Skipped int
}

// applyBackendChange dispatches one of the six transitions in spec
// section 4.4's table. pk is the relational column name / document field
// used to key cross-store lookups (the discovered primary key, or the
// username linking field when none has been selected).
func applyBackendChange(ctx context.Context, sql storeiface.SQLStore, doc storeiface.DocStore, table, collection, pk string, change BackendChange, decision *classify.PlacementDecision) (BackendMoveStats, error) {
	stats := BackendMoveStats{Path: change.Path, From: change.From, To: change.To}

	switch {
	case change.From == classify.BackendDOC && change.To == classify.BackendSQL:
		return docToSQL(ctx, sql, doc, table, collection, pk, decision, true)
	case change.From == classify.BackendSQL && change.To == classify.BackendDOC:
		return sqlToDoc(ctx, sql, doc, table, collection, pk, decision, true)
	case change.From == classify.BackendDOC && change.To == classify.BackendBOTH:
		return docToSQL(ctx, sql, doc, table, collection, pk, decision, false)
	case change.From == classify.BackendSQL && change.To == classify.BackendBOTH:
		return sqlToDoc(ctx, sql, doc, table, collection, pk, decision, false)
	case change.From == classify.BackendBOTH && change.To == classify.BackendSQL:
		n, err := doc.UpdateMany(ctx, collection, nil, nil, []string{change.Path})
		stats.Moved = n
		return stats, err
	case change.From == classify.BackendBOTH && change.To == classify.BackendDOC:
		if err := sql.DropColumn(ctx, table, decisionColumn(decision, change.Path)); err != nil {
			return stats, fmt.Errorf("migrate: dropping column for BOTH->DOC on %s: %w", change.Path, err)
		}
		return stats, nil
	default:
		return stats, fmt.Errorf("migrate: unsupported backend transition %s -> %s for %s", change.From, change.To, change.Path)
	}
}

// docToSQL copies every document's value for change.Path into the
// relational table, ensuring the column exists first. When unsetField is
// true (a true DOC->SQL move, not a DOC->BOTH copy) the field is removed
// from the document once the relational write succeeds.
func docToSQL(ctx context.Context, sql storeiface.SQLStore, doc storeiface.DocStore, table, collection, pk string, decision *classify.PlacementDecision, unsetField bool) (BackendMoveStats, error) {
	stats := BackendMoveStats{Path: decision.Path, From: classify.BackendDOC, To: classify.BackendSQL}
	column := decisionColumn(decision, decision.Path)

	if err := sql.AddColumn(ctx, table, column, decision.RelationalType, true); err != nil {
		return stats, fmt.Errorf("migrate: ensuring column %s.%s for DOC->SQL: %w", table, column, err)
	}

	docs, err := doc.Find(ctx, collection, nil)
	if err != nil {
		return stats, fmt.Errorf("migrate: reading documents from %s for DOC->SQL: %w", collection, err)
	}

	for _, d := range docs {
		value, present := lookupDotted(d, decision.Path)
		if !present {
			continue
		}
		pkValue, hasPK := d[pk]
		if !hasPK {
			stats.Skipped++
			continue
		}
		if err := sql.Upsert(ctx, table, pk, map[string]any{pk: pkValue, column: value}); err != nil {
			stats.Skipped++
			continue
		}
		if unsetField {
			if _, err := doc.UpdateMany(ctx, collection, map[string]any{pk: pkValue}, nil, []string{decision.Path}); err != nil {
				stats.Skipped++
				continue
			}
		}
		stats.Moved++
	}
	return stats, nil
}

// sqlToDoc copies every non-null relational value for change.Path into
// the document store, then (for a true SQL->DOC move) drops the
// relational column after the loop, even when some rows were skipped.
func sqlToDoc(ctx context.Context, sql storeiface.SQLStore, doc storeiface.DocStore, table, collection, pk string, decision *classify.PlacementDecision, dropColumn bool) (BackendMoveStats, error) {
	stats := BackendMoveStats{Path: decision.Path, From: classify.BackendSQL, To: classify.BackendDOC}
	column := decisionColumn(decision, decision.Path)

	rows, err := sql.Select(ctx, table, nil)
	if err != nil {
		return stats, fmt.Errorf("migrate: reading rows from %s for SQL->DOC: %w", table, err)
	}

	for _, row := range rows {
		value := row[column]
		if value == nil {
			continue
		}
		pkValue, hasPK := row[pk]
		if !hasPK {
			stats.Skipped++
			continue
		}
		if err := doc.UpdateOne(ctx, collection, map[string]any{pk: pkValue}, map[string]any{decision.Path: value}, true); err != nil {
			stats.Skipped++
			continue
		}
		stats.Moved++
	}

	if dropColumn {
		if err := sql.DropColumn(ctx, table, column); err != nil {
			return stats, fmt.Errorf("migrate: dropping column %s.%s for SQL->DOC: %w", table, column, err)
		}
	}
	return stats, nil
}

// decisionColumn returns decision's relational column name, falling back
// to path verbatim when decision is nil (should not happen in practice
// since every backend change carries a current decision, but keeps this
// helper total).
func decisionColumn(decision *classify.PlacementDecision, path string) string {
	if decision == nil {
		return path
	}
	return decision.RelationalColumn
}
