package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Dicklesworthstone/aidb/internal/config"
	"github.com/Dicklesworthstone/aidb/internal/docstore"
	"github.com/Dicklesworthstone/aidb/internal/ingress"
	"github.com/Dicklesworthstone/aidb/internal/ingress/httpsource"
	"github.com/Dicklesworthstone/aidb/internal/metadata"
	"github.com/Dicklesworthstone/aidb/internal/pipeline"
	"github.com/Dicklesworthstone/aidb/internal/pipelog"
	"github.com/Dicklesworthstone/aidb/internal/sqlstore"
	"github.com/Dicklesworthstone/aidb/internal/walog"
)

const (
	relationalTable    = "records"
	documentCollection = "records"
)

// runtime bundles everything a subcommand needs, opened from resolved
// configuration. Close releases every file/connection handle it opened.
type runtime struct {
	cfg          config.Config
	orchestrator *pipeline.Orchestrator
	closers      []func() error
}

func (r *runtime) Close() error {
	var firstErr error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// newRuntime loads configuration, opens both storage backends, the WAL
// and the metadata store, and constructs an Orchestrator — performing
// the same startup crash-recovery sequence regardless of which
// subcommand invoked it.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(GetConfig())
	if err != nil {
		return nil, Misconfiguration(err)
	}

	logger := pipelog.New(GetDebug())
	r := &runtime{cfg: cfg}

	sqlPath := filepath.Join(cfg.MetadataDir, "relational.db")
	sql, err := sqlstore.Open(sqlPath)
	if err != nil {
		return nil, Misconfiguration(fmt.Errorf("opening relational store: %w", err))
	}
	r.closers = append(r.closers, sql.Close)

	docPath := filepath.Join(cfg.MetadataDir, "document.db")
	doc, err := docstore.Open(docPath)
	if err != nil {
		r.Close()
		return nil, Misconfiguration(fmt.Errorf("opening document store: %w", err))
	}
	r.closers = append(r.closers, doc.Close)

	walPath := cfg.WALFile
	if walPath == "" {
		walPath = filepath.Join(cfg.MetadataDir, "wal.log")
	}
	wal, err := walog.Open(walPath)
	if err != nil {
		r.Close()
		return nil, Misconfiguration(fmt.Errorf("opening wal: %w", err))
	}
	r.closers = append(r.closers, wal.Close)

	meta, err := metadata.New(cfg.MetadataDir)
	if err != nil {
		r.Close()
		return nil, Misconfiguration(fmt.Errorf("opening metadata store: %w", err))
	}

	var source ingress.Source
	if cfg.DataStreamURL != "" {
		source = httpsource.New(cfg.DataStreamURL)
	}

	orchestrator, err := pipeline.New(ctx, source, sql, doc, wal, meta, pipeline.Options{
		Table:        relationalTable,
		Collection:   documentCollection,
		BatchSize:    cfg.BatchSize,
		FlushTimeout: cfg.FlushTimeout(),
		Logger:       logger,
	})
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("initializing pipeline: %w", err)
	}
	r.orchestrator = orchestrator

	return r, nil
}
