package cli

import (
	"github.com/Dicklesworthstone/aidb/internal/output"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show buffer size, lifetime record count, and pending-retry state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		s := rt.orchestrator.Status()
		return output.New(output.Format(GetOutput())).Write(map[string]any{
			"buffer_size":            s.BufferSize,
			"total_records_analyzed": s.TotalRecordsAnalyzed,
			"last_flush":             s.LastFlush,
			"pending_metadata_retry": s.PendingMetadataRetry,
		})
	},
}
