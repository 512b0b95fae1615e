package route

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Dicklesworthstone/aidb/internal/classify"
	"github.com/Dicklesworthstone/aidb/internal/storeiface"
)

// timestampLikePattern mirrors package classify's notion of a
// timestamp-shaped field name, used here to keep a chosen primary key
// from getting a unique index on the document side when it is actually
// a timestamp (classify.selectPrimaryKey already excludes these from
// candidacy, but this package does not import classify's unexported
// helpers, so the same pattern is re-declared at the boundary it is
// needed).
var timestampLikePattern = regexp.MustCompile(`(?i)(time|date|timestamp|_at$|created|updated|ingested)`)

// ensureTable creates table if it does not exist, with one column per
// SQL-bound decision (including nullability/uniqueness), or adds any
// SQL-bound column missing from the current schema when the table
// already exists.
func ensureTable(ctx context.Context, sql storeiface.SQLStore, table string, decisions map[string]*classify.PlacementDecision) error {
	exists, err := sql.TableExists(ctx, table)
	if err != nil {
		return fmt.Errorf("route: checking table %s: %w", table, err)
	}

	if !exists {
		var defs []string
		for _, d := range decisions {
			if d.Backend != classify.BackendSQL && d.Backend != classify.BackendBOTH {
				continue
			}
			defs = append(defs, columnDefinition(d))
		}
		if len(defs) == 0 {
			// Nothing is SQL-bound yet; create a minimal table with a
			// surrogate row id so future ALTER TABLE ADD COLUMN calls
			// have somewhere to land.
			defs = []string{`"_surrogate_id" INTEGER PRIMARY KEY AUTOINCREMENT`}
		}
		return sql.CreateTable(ctx, table, defs)
	}

	existing, err := sql.Columns(ctx, table)
	if err != nil {
		return fmt.Errorf("route: reading columns of %s: %w", table, err)
	}
	for _, d := range decisions {
		if d.Backend != classify.BackendSQL && d.Backend != classify.BackendBOTH {
			continue
		}
		if _, ok := existing[d.RelationalColumn]; ok {
			continue
		}
		if err := sql.AddColumn(ctx, table, d.RelationalColumn, d.RelationalType, !isColumnRequired(d)); err != nil {
			return fmt.Errorf("route: adding column %s.%s: %w", table, d.RelationalColumn, err)
		}
	}
	return nil
}

func columnDefinition(d *classify.PlacementDecision) string {
	def := fmt.Sprintf(`"%s" %s`, d.RelationalColumn, d.RelationalType)
	if d.IsPrimaryKey {
		return def + " PRIMARY KEY"
	}
	if !d.IsNullable {
		def += " NOT NULL"
	}
	if d.IsUnique {
		def += " UNIQUE"
	}
	return def
}

func isColumnRequired(d *classify.PlacementDecision) bool {
	return !d.IsNullable
}

// ensureIndexes drops any non-primary index, then creates a unique index
// on the discovered primary key (when one exists and is not
// timestamp-like) and a non-unique index on sys_ingested_at. It also
// installs the JSON-schema-equivalent validator requiring
// sys_ingested_at (and the primary key, if chosen) to be present and
// string-typed.
func ensureIndexes(ctx context.Context, doc storeiface.DocStore, collection string, decisions map[string]*classify.PlacementDecision) error {
	required := []string{"sys_ingested_at"}

	var primaryKeyField string
	for path, d := range decisions {
		if d.IsPrimaryKey && (d.Backend == classify.BackendSQL || d.Backend == classify.BackendBOTH) && !timestampLikePattern.MatchString(path) {
			primaryKeyField = path
			break
		}
	}

	if err := doc.DropIndexes(ctx, collection, primaryKeyField); err != nil {
		return fmt.Errorf("route: dropping stale indexes on %s: %w", collection, err)
	}

	if primaryKeyField != "" {
		if err := doc.CreateIndex(ctx, collection, primaryKeyField, true); err != nil {
			return fmt.Errorf("route: creating unique index on %s.%s: %w", collection, primaryKeyField, err)
		}
		required = append(required, primaryKeyField)
	}
	if err := doc.CreateIndex(ctx, collection, "sys_ingested_at", false); err != nil {
		return fmt.Errorf("route: creating index on %s.sys_ingested_at: %w", collection, err)
	}
	if err := doc.SetValidator(ctx, collection, required); err != nil {
		return fmt.Errorf("route: setting validator on %s: %w", collection, err)
	}
	return nil
}
