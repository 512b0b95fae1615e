package route

import (
	"context"
	"fmt"

	"github.com/Dicklesworthstone/aidb/internal/classify"
	"github.com/Dicklesworthstone/aidb/internal/storeiface"
	"github.com/Dicklesworthstone/aidb/internal/valuetype"
	"github.com/charmbracelet/log"
)

// Result is the outcome of routing one batch: counts plus a per-record
// error list, returned rather than thrown so a handful of bad records
// never abort the flush (spec section 7).
type Result struct {
	Processed  int
	SQLUpserts int
	DocUpserts int
	Errors     []error
}

// Router splits each record in a batch according to PlacementDecisions,
// ensures both target schemas exist, then upserts into whichever
// backends the decisions say each record belongs in.
type Router struct {
	sql        storeiface.SQLStore
	doc        storeiface.DocStore
	table      string
	collection string
	logger     *log.Logger

	warnedNoPKThisFlush bool
}

// New builds a Router targeting one relational table and one document
// collection.
func New(sql storeiface.SQLStore, doc storeiface.DocStore, table, collection string, logger *log.Logger) *Router {
	return &Router{sql: sql, doc: doc, table: table, collection: collection, logger: logger}
}

// RouteBatch ensures schema, then splits and upserts every record in
// batch. Per-record upsert failures are logged and counted but do not
// abort the batch, per spec section 7's UpsertFailed policy.
func (r *Router) RouteBatch(ctx context.Context, batch []valuetype.Record, decisions map[string]*classify.PlacementDecision) (Result, error) {
	if err := ensureTable(ctx, r.sql, r.table, decisions); err != nil {
		return Result{}, err
	}
	if err := ensureIndexes(ctx, r.doc, r.collection, decisions); err != nil {
		return Result{}, err
	}

	pk := findPrimaryKey(decisions)
	r.warnedNoPKThisFlush = false

	var result Result
	for _, record := range batch {
		result.Processed++
		sqlPayload, docPayload := Split(record, decisions)

		if len(sqlPayload) > 0 {
			if err := r.upsertSQL(ctx, sqlPayload, pk.column); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("route: sql upsert: %w", err))
				r.logf("route: relational upsert failed: %v", err)
			} else {
				result.SQLUpserts++
			}
		}
		if len(docPayload) > 0 {
			if err := r.upsertDoc(ctx, docPayload, pk.docPath); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("route: doc upsert: %w", err))
				r.logf("route: document upsert failed: %v", err)
			} else {
				result.DocUpserts++
			}
		}
	}
	return result, nil
}

type primaryKeyRef struct {
	column  string
	docPath string
}

// upsertSQL inserts or updates one row keyed by primaryKey, matching
// only on the primary-key column; every other column in payload is
// overwritten. When no primary key has been selected, payload is
// inserted as a fresh row with no deduplication.
func (r *Router) upsertSQL(ctx context.Context, payload map[string]any, primaryKey string) error {
	if primaryKey == "" {
		return r.sql.Insert(ctx, r.table, payload)
	}
	if _, ok := payload[primaryKey]; !ok {
		return fmt.Errorf("payload missing primary key column %q", primaryKey)
	}
	return r.sql.Upsert(ctx, r.table, primaryKey, payload)
}

// upsertDoc applies updateOne keyed by primaryKey with upsert=true, or
// falls back to InsertOne without deduplication when no primary key has
// been selected, per spec section 4.5's documented at-least-once window.
func (r *Router) upsertDoc(ctx context.Context, payload map[string]any, primaryKey string) error {
	if primaryKey == "" || timestampLikePattern.MatchString(primaryKey) {
		if !r.warnedNoPKThisFlush {
			r.logf("route: no primary key selected, document writes are not deduplicated this flush")
			r.warnedNoPKThisFlush = true
		}
		return r.doc.InsertOne(ctx, r.collection, payload)
	}
	value, ok := payload[primaryKey]
	if !ok {
		return r.doc.InsertOne(ctx, r.collection, payload)
	}
	return r.doc.UpdateOne(ctx, r.collection, map[string]any{primaryKey: value}, payload, true)
}

func findPrimaryKey(decisions map[string]*classify.PlacementDecision) primaryKeyRef {
	for _, d := range decisions {
		if d.IsPrimaryKey {
			return primaryKeyRef{column: d.RelationalColumn, docPath: d.DocumentPath}
		}
	}
	return primaryKeyRef{}
}

func (r *Router) logf(format string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Warnf(format, args...)
}
