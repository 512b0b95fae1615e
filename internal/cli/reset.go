package cli

import (
	"fmt"

	"github.com/Dicklesworthstone/aidb/internal/output"
	"github.com/spf13/cobra"
)

var flagResetConfirm bool

func init() {
	resetCmd.Flags().BoolVar(&flagResetConfirm, "confirm", false, "required acknowledgement that reset discards all pipeline state")
	RootCmd.AddCommand(resetCmd)
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard persisted decisions, statistics, and WAL, starting the pipeline from a blank slate",
	Long: `Discard decisions.json, field_stats.json, state.json, and wal.log.

Reset does not touch rows or documents already written to either
backend; it only forgets what the pipeline has learned about them.
Requires --confirm.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagResetConfirm {
			return Misconfiguration(fmt.Errorf("reset: refusing to discard pipeline state without --confirm"))
		}

		ctx := cmd.Context()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.orchestrator.Reset(); err != nil {
			return fmt.Errorf("reset: %w", err)
		}

		return output.New(output.Format(GetOutput())).Write(map[string]any{
			"reset": true,
		})
	},
}
