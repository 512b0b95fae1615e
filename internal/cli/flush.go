package cli

import (
	"fmt"

	"github.com/Dicklesworthstone/aidb/internal/output"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(flushCmd)
}

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Force a flush of the current buffer regardless of batch size or timeout",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		result, err := rt.orchestrator.Flush(ctx)
		if err != nil {
			return fmt.Errorf("flush: %w", err)
		}

		return output.New(output.Format(GetOutput())).Write(map[string]any{
			"flush_id":         result.FlushID,
			"records_flushed":  result.RecordsFlushed,
			"type_conflicts":   result.TypeConflicts,
			"backend_changes":  result.BackendChanges,
			"widenings":        result.Widenings,
			"moves":            result.Moves,
			"sql_upserts":      result.SQLUpserts,
			"doc_upserts":      result.DocUpserts,
			"metadata_retried": result.MetadataRetried,
			"error_count":      len(result.Errors),
		})
	},
}
