package migrate

import (
	"context"
	"fmt"

	"github.com/Dicklesworthstone/aidb/internal/classify"
	"github.com/Dicklesworthstone/aidb/internal/storeiface"
	"github.com/Dicklesworthstone/aidb/internal/valuetype"
)

// shadowSuffix marks the temporary column created while widening a
// relational column in place (add-shadow, convert, drop, rename).
const shadowSuffix = "__widen"

// WidenStats counts the outcome of converting every existing row/document
// for one path to its widened canonical type.
type WidenStats struct {
	Path      string
	Converted int
	Skipped   int
}

// widenRelationalColumn performs spec section 4.4's relational widening:
// ALTER COLUMN to the new type, then read -> convert -> write per row,
// skipping and counting rows whose value cannot be converted. It follows
// the teacher's add-shadow-column/copy/drop/rename pattern at the storage
// layer (SQLite has no native ALTER COLUMN TYPE), converting every value
// in Go rather than via SQL CAST so non-convertible rows can be skipped
// and counted rather than silently coerced to zero.
func widenRelationalColumn(ctx context.Context, sql storeiface.SQLStore, table, column string, target valuetype.CanonicalType, sqlType, pk string) (WidenStats, error) {
	stats := WidenStats{Path: column}
	shadow := column + shadowSuffix

	if err := sql.AddColumn(ctx, table, shadow, sqlType, true); err != nil {
		return stats, fmt.Errorf("migrate: adding shadow column %s.%s: %w", table, shadow, err)
	}

	rows, err := sql.Select(ctx, table, nil)
	if err != nil {
		return stats, fmt.Errorf("migrate: reading rows from %s for widen: %w", table, err)
	}

	for _, row := range rows {
		pkValue, ok := row[pk]
		if !ok {
			continue
		}
		converted, ok := convertCell(row[column], target)
		if !ok {
			stats.Skipped++
			continue
		}
		if _, err := sql.Update(ctx, table, map[string]any{shadow: converted}, map[string]any{pk: pkValue}); err != nil {
			stats.Skipped++
			continue
		}
		stats.Converted++
	}

	if err := sql.DropColumn(ctx, table, column); err != nil {
		return stats, fmt.Errorf("migrate: dropping original column %s.%s: %w", table, column, err)
	}
	if err := sql.RenameColumn(ctx, table, shadow, column); err != nil {
		return stats, fmt.Errorf("migrate: renaming shadow column %s.%s: %w", table, shadow, err)
	}
	return stats, nil
}

// widenDocumentField performs spec section 4.4's document widening: scan
// every document in collection, navigate to path, convert the scalar
// in-place and $set it back. Documents whose field is absent are
// skipped (nothing to convert); documents whose value fails conversion
// are counted as skipped, matching the relational side's policy.
func widenDocumentField(ctx context.Context, doc storeiface.DocStore, collection, path string, target valuetype.CanonicalType, pk string) (WidenStats, error) {
	stats := WidenStats{Path: path}

	docs, err := doc.Find(ctx, collection, nil)
	if err != nil {
		return stats, fmt.Errorf("migrate: reading documents from %s for widen: %w", collection, err)
	}

	for _, d := range docs {
		raw, present := lookupDotted(d, path)
		if !present {
			continue
		}
		converted, ok := convertCell(raw, target)
		if !ok {
			stats.Skipped++
			continue
		}
		pkValue, hasPK := d[pk]
		if !hasPK {
			stats.Skipped++
			continue
		}
		if err := doc.UpdateOne(ctx, collection, map[string]any{pk: pkValue}, map[string]any{path: converted}, false); err != nil {
			stats.Skipped++
			continue
		}
		stats.Converted++
	}
	return stats, nil
}

// classifyWidenTarget determines whether a conflict should be applied to
// the relational side, the document side, or both, based on the backend
// the field is (still) assigned to after reclassification.
func classifyWidenTarget(backend classify.Backend) (sqlSide, docSide bool) {
	switch backend {
	case classify.BackendSQL:
		return true, false
	case classify.BackendDOC:
		return false, true
	case classify.BackendBOTH:
		return true, true
	default:
		return false, false
	}
}
