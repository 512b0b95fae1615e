package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/Dicklesworthstone/aidb/internal/output"
	"github.com/spf13/cobra"
)

var (
	flagIngestCount      int
	flagIngestContinuous bool
	flagIngestInterval   float64
)

func init() {
	ingestCmd.Flags().IntVar(&flagIngestCount, "count", 1, "number of records to pull from the configured source")
	ingestCmd.Flags().BoolVar(&flagIngestContinuous, "continuous", false, "pull records indefinitely until interrupted")
	ingestCmd.Flags().Float64Var(&flagIngestInterval, "interval", 1.0, "seconds to wait between source polls")
	RootCmd.AddCommand(ingestCmd)
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Pull records from the configured data stream and feed the pipeline",
	Long: `Pull records from DATA_STREAM_URL and ingest each into the pipeline.

  aidb ingest --count 100
  aidb ingest --continuous --interval 0.5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		ingested := 0
	ingestLoop:
		for flagIngestContinuous || ingested < flagIngestCount {
			select {
			case <-ctx.Done():
				// Shutdown signal: stop pulling and fall through to the
				// final flush (spec section 5's cancellation contract —
				// ingest is cancellable between records, never mid-flush).
				break ingestLoop
			default:
			}

			if err := rt.orchestrator.IngestFromSource(ctx); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			ingested++

			if flagIngestInterval > 0 {
				select {
				case <-ctx.Done():
					break ingestLoop
				case <-time.After(time.Duration(flagIngestInterval * float64(time.Second))):
				}
			}
		}

		// ctx may already be cancelled (the shutdown signal that broke the
		// loop above) and a cancelled context fails every store call
		// immediately, so the final flush gets a fresh one: the flush
		// itself is not cooperatively cancellable (spec section 9).
		flushCtx := ctx
		if ctx.Err() != nil {
			flushCtx = context.Background()
		}
		result, err := rt.orchestrator.Flush(flushCtx)
		if err != nil {
			return fmt.Errorf("ingest: final flush: %w", err)
		}

		return output.New(output.Format(GetOutput())).Write(map[string]any{
			"records_ingested": ingested,
			"flush_id":         result.FlushID,
			"records_flushed":  result.RecordsFlushed,
			"sql_upserts":      result.SQLUpserts,
			"doc_upserts":      result.DocUpserts,
		})
	},
}
