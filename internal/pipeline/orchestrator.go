// Package pipeline wires normalize, analysis, classify, migrate, route,
// metadata and walog into the single-writer orchestrator that owns one
// flush cycle end to end: analyze -> classify -> detect conflicts ->
// migrate -> ensure schema -> route+upsert -> persist metadata ->
// truncate WAL. The ordering is load-bearing (spec section 4.5) and is
// enforced here, not by any caller.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Dicklesworthstone/aidb/internal/analysis"
	"github.com/Dicklesworthstone/aidb/internal/classify"
	"github.com/Dicklesworthstone/aidb/internal/ingress"
	"github.com/Dicklesworthstone/aidb/internal/metadata"
	"github.com/Dicklesworthstone/aidb/internal/migrate"
	"github.com/Dicklesworthstone/aidb/internal/normalize"
	"github.com/Dicklesworthstone/aidb/internal/route"
	"github.com/Dicklesworthstone/aidb/internal/storeiface"
	"github.com/Dicklesworthstone/aidb/internal/valuetype"
	"github.com/Dicklesworthstone/aidb/internal/walog"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Clock abstracts "now", mirroring normalize.Clock, so flush-timeout
// logic is deterministic under test.
type Clock func() time.Time

// Options configures one Orchestrator instance.
type Options struct {
	Table        string
	Collection   string
	BatchSize    int
	FlushTimeout time.Duration
	Logger       *log.Logger
	Clock        Clock
}

// pendingMetadata records a flush whose writes committed but whose
// metadata persistence failed (spec section 7's PersistenceFailed:
// writes are committed, metadata write is retried on next flush, WAL
// retained). Keeping the already-computed decisions/state means the
// retry only repeats the metadata write, never re-analyzes the batch.
type pendingMetadata struct {
	decisions map[string]*classify.PlacementDecision
	state     metadata.PipelineState
	batchLen  int
}

// FlushResult summarizes one flush attempt.
type FlushResult struct {
	// FlushID identifies this flush attempt for log correlation, mirroring
	// the teacher's uuid.New().String() convention for stamping an ID onto
	// an entity that has no caller-supplied one of its own (internal/db's
	// requests/reviews/sessions). Empty for the no-op "nothing buffered"
	// result.
	FlushID         string
	RecordsFlushed  int
	TypeConflicts   int
	BackendChanges  int
	Widenings       int
	Moves           int
	SQLUpserts      int
	DocUpserts      int
	MetadataRetried bool
	Errors          []error
}

// Status is a point-in-time snapshot for the status CLI command.
type Status struct {
	BufferSize           int
	TotalRecordsAnalyzed int
	LastFlush            string
	PendingMetadataRetry bool
}

// Orchestrator is the single-writer owner of the buffer, the analyzer,
// and both store connections (spec section 5's concurrency model: no
// locks needed here because nothing else touches these fields).
type Orchestrator struct {
	source     ingress.Source
	sql        storeiface.SQLStore
	doc        storeiface.DocStore
	wal        *walog.WAL
	meta       *metadata.Store
	normalizer *normalize.Normalizer
	analyzer   *analysis.FieldAnalyzer
	classifier *classify.Classifier
	router     *route.Router
	migrator   *migrate.Migrator
	logger     *log.Logger
	clock      Clock

	table        string
	collection   string
	batchSize    int
	flushTimeout time.Duration

	buffer         []valuetype.Record
	priorDecisions map[string]*classify.PlacementDecision
	lastFlushAt    time.Time
	pending        *pendingMetadata
}

// New builds an Orchestrator and performs the startup crash-recovery
// sequence: if persisted metadata exists, the analyzer and prior
// decisions are restored from it; if the WAL is non-empty, its records
// are replayed into the buffer and an immediate flush is issued before
// the caller accepts new input (spec section 4.6).
func New(ctx context.Context, source ingress.Source, sql storeiface.SQLStore, doc storeiface.DocStore, wal *walog.WAL, meta *metadata.Store, opts Options) (*Orchestrator, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	o := &Orchestrator{
		source:       source,
		sql:          sql,
		doc:          doc,
		wal:          wal,
		meta:         meta,
		normalizer:   normalize.New(),
		analyzer:     analysis.NewFieldAnalyzer(),
		classifier:   classify.New(classify.DefaultThresholds()),
		router:       route.New(sql, doc, opts.Table, opts.Collection, opts.Logger),
		migrator:     migrate.New(sql, doc, opts.Table, opts.Collection, opts.Logger),
		logger:       opts.Logger,
		clock:        opts.Clock,
		table:        opts.Table,
		collection:   opts.Collection,
		batchSize:    opts.BatchSize,
		flushTimeout: opts.FlushTimeout,
	}

	if meta.Exists() {
		decisions, stats, state, err := meta.Load()
		if err != nil {
			return nil, fmt.Errorf("pipeline: loading metadata: %w", err)
		}
		o.analyzer.Restore(stats, state.TotalRecords)
		o.priorDecisions = decisions
	} else {
		o.priorDecisions = make(map[string]*classify.PlacementDecision)
	}
	o.lastFlushAt = o.clock()

	records, err := wal.ReadAll()
	if err != nil {
		// RecoveryFailed: log a warning and start with an empty buffer
		// rather than a partially recovered one.
		o.logf("pipeline: wal recovery failed, starting with empty buffer: %v", err)
		records = nil
	}
	if len(records) > 0 {
		for _, raw := range records {
			o.buffer = append(o.buffer, valuetype.DecodeRecord(raw))
		}
		if _, err := o.Flush(ctx); err != nil {
			return o, fmt.Errorf("pipeline: flushing recovered wal records: %w", err)
		}
	}

	return o, nil
}

// Ingest normalizes raw, appends it to the WAL, buffers it, and then
// checks the flush trigger. A record that fails normalization
// (MissingIdentity) is rejected outright and never buffered.
func (o *Orchestrator) Ingest(ctx context.Context, raw map[string]any) error {
	record, _, err := o.normalizer.Normalize(raw)
	if err != nil {
		return fmt.Errorf("pipeline: normalizing record: %w", err)
	}

	if err := o.wal.Append(valuetype.EncodeRecord(record)); err != nil {
		return fmt.Errorf("pipeline: appending to wal: %w", err)
	}
	o.buffer = append(o.buffer, record)

	if o.shouldFlush() {
		if _, err := o.Flush(ctx); err != nil {
			return fmt.Errorf("pipeline: triggered flush: %w", err)
		}
	}
	return nil
}

// shouldFlush implements spec section 4.5's trigger: buffer at or past
// batch size, or non-empty and past the timeout since the last flush.
func (o *Orchestrator) shouldFlush() bool {
	if len(o.buffer) == 0 {
		return false
	}
	if len(o.buffer) >= o.batchSize {
		return true
	}
	return o.clock().Sub(o.lastFlushAt) >= o.flushTimeout
}

// Flush runs one full flush cycle, or — if the previous flush committed
// its writes but failed to persist metadata — retries only that
// metadata write. An empty buffer with no pending retry is a no-op.
func (o *Orchestrator) Flush(ctx context.Context) (FlushResult, error) {
	if o.pending != nil {
		return o.retryPendingMetadata()
	}
	if len(o.buffer) == 0 {
		return FlushResult{}, nil
	}

	flushID := uuid.New().String()
	o.infof("pipeline: flush %s starting on %d buffered records", flushID, len(o.buffer))

	snapshotStats := analysis.CloneStatsMap(o.analyzer.Stats())
	snapshotTotal := o.analyzer.TotalRecords()

	o.analyzer.AnalyzeBatch(o.buffer)
	decisions := o.classifier.ClassifyAll(o.analyzer.Stats(), o.analyzer.TotalRecords())

	conflicts := migrate.DetectTypeConflicts(o.priorDecisions, decisions)
	changes := migrate.DetectBackendChanges(o.priorDecisions, decisions)
	identity := migrate.IdentityColumn(decisions)

	migResult := o.migrator.Run(ctx, conflicts, changes, decisions, identity)

	routeResult, err := o.router.RouteBatch(ctx, o.buffer, decisions)
	if err != nil {
		// SchemaEvolutionFailed: abort before any upsert happened, so
		// rolling back the analyzer snapshot keeps the retry faithful —
		// the next Flush call re-analyzes exactly this buffer.
		o.analyzer.Restore(snapshotStats, snapshotTotal)
		return FlushResult{
			FlushID:        flushID,
			TypeConflicts:  len(conflicts),
			BackendChanges: len(changes),
			Widenings:      len(migResult.Widenings),
			Moves:          len(migResult.Moves),
			Errors:         append(migResult.Errors, err),
		}, fmt.Errorf("pipeline: flush %s: ensuring schema and routing batch: %w", flushID, err)
	}

	state := metadata.PipelineState{
		TotalRecords: o.analyzer.TotalRecords(),
		LastFlush:    o.clock().UTC().Format(time.RFC3339Nano),
		Version:      metadata.Version,
	}

	result := FlushResult{
		FlushID:        flushID,
		RecordsFlushed: routeResult.Processed,
		TypeConflicts:  len(conflicts),
		BackendChanges: len(changes),
		Widenings:      len(migResult.Widenings),
		Moves:          len(migResult.Moves),
		SQLUpserts:     routeResult.SQLUpserts,
		DocUpserts:     routeResult.DocUpserts,
		Errors:         append(migResult.Errors, routeResult.Errors...),
	}

	if err := o.meta.Save(decisions, o.analyzer.Stats(), state); err != nil {
		o.pending = &pendingMetadata{decisions: decisions, state: state, batchLen: len(o.buffer)}
		o.priorDecisions = decisions
		o.logf("pipeline: flush %s: metadata persistence failed, will retry next flush: %v", flushID, err)
		result.Errors = append(result.Errors, err)
		return result, fmt.Errorf("pipeline: flush %s: persisting metadata: %w", flushID, err)
	}

	if err := o.wal.Truncate(); err != nil {
		return result, fmt.Errorf("pipeline: flush %s: truncating wal: %w", flushID, err)
	}

	o.buffer = o.buffer[:0]
	o.priorDecisions = decisions
	o.lastFlushAt = o.clock()
	o.infof("pipeline: flush %s complete: %d records, %d sql upserts, %d doc upserts", flushID, result.RecordsFlushed, result.SQLUpserts, result.DocUpserts)
	return result, nil
}

func (o *Orchestrator) retryPendingMetadata() (FlushResult, error) {
	p := o.pending
	if err := o.meta.Save(p.decisions, o.analyzer.Stats(), p.state); err != nil {
		return FlushResult{}, fmt.Errorf("pipeline: retrying metadata persistence: %w", err)
	}
	if err := o.wal.Truncate(); err != nil {
		return FlushResult{}, fmt.Errorf("pipeline: truncating wal after retry: %w", err)
	}
	if p.batchLen <= len(o.buffer) {
		o.buffer = append([]valuetype.Record(nil), o.buffer[p.batchLen:]...)
	} else {
		o.buffer = o.buffer[:0]
	}
	o.priorDecisions = p.decisions
	o.lastFlushAt = o.clock()
	o.pending = nil
	return FlushResult{MetadataRetried: true}, nil
}

// Decisions returns the classifier's current view of every observed
// path, computed live against the analyzer's accumulated stats (it does
// not require a flush to have happened).
func (o *Orchestrator) Decisions() map[string]*classify.PlacementDecision {
	return o.classifier.ClassifyAll(o.analyzer.Stats(), o.analyzer.TotalRecords())
}

// Status reports a snapshot of orchestrator state for the status CLI
// command.
func (o *Orchestrator) Status() Status {
	return Status{
		BufferSize:           len(o.buffer),
		TotalRecordsAnalyzed: o.analyzer.TotalRecords(),
		LastFlush:            o.lastFlushAt.UTC().Format(time.RFC3339Nano),
		PendingMetadataRetry: o.pending != nil,
	}
}

// Reset clears persisted metadata, truncates the WAL, and drops all
// in-memory pipeline state, for the reset --confirm CLI command. It
// does not touch rows or documents already written to either store.
func (o *Orchestrator) Reset() error {
	if err := o.meta.Clear(); err != nil {
		return fmt.Errorf("pipeline: clearing metadata: %w", err)
	}
	if err := o.wal.Truncate(); err != nil {
		return fmt.Errorf("pipeline: truncating wal: %w", err)
	}
	o.analyzer = analysis.NewFieldAnalyzer()
	o.priorDecisions = make(map[string]*classify.PlacementDecision)
	o.buffer = nil
	o.pending = nil
	o.lastFlushAt = o.clock()
	return nil
}

// IngestFromSource pulls one record from the configured ingress.Source
// and ingests it.
func (o *Orchestrator) IngestFromSource(ctx context.Context) error {
	raw, err := o.source.FetchOne(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: fetching record: %w", err)
	}
	return o.Ingest(ctx, raw)
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.logger == nil {
		return
	}
	o.logger.Warnf(format, args...)
}

func (o *Orchestrator) infof(format string, args ...any) {
	if o.logger == nil {
		return
	}
	o.logger.Infof(format, args...)
}
