package cli

import (
	"github.com/Dicklesworthstone/aidb/internal/output"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(decisionsCmd)
}

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Show the current placement decision for every observed field",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := newRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		decisions := rt.orchestrator.Decisions()
		rendered := make(map[string]any, len(decisions))
		for path, d := range decisions {
			rendered[path] = map[string]any{
				"backend":           string(d.Backend),
				"canonical_type":    string(d.CanonicalType),
				"relational_type":   d.RelationalType,
				"relational_column": d.RelationalColumn,
				"document_path":     d.DocumentPath,
				"is_nullable":       d.IsNullable,
				"is_unique":         d.IsUnique,
				"is_primary_key":    d.IsPrimaryKey,
				"reason":            d.Reason,
			}
		}
		return output.New(output.Format(GetOutput())).Write(rendered)
	},
}
