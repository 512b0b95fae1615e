// Package cli implements the aidb command-line surface with
// github.com/spf13/cobra, following the teacher's pattern of one file
// per subcommand, each registering itself onto RootCmd from an init()
// function and reading its own package-level flag variables.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	flagConfig string
	flagOutput string
	flagDebug  bool
)

// RootCmd is the top-level aidb command; cmd/aidb/main.go invokes
// RootCmd.ExecuteContext() and maps the returned error to an exit code.
var RootCmd = &cobra.Command{
	Use:           "aidb",
	Short:         "Adaptive dual-backend ingestion pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to pipeline.toml (defaults to built-in values)")
	RootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "output format: text, json, or yaml")
	RootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
}

// GetConfig returns the resolved --config flag value.
func GetConfig() string { return flagConfig }

// GetOutput returns the resolved --output flag value.
func GetOutput() string { return flagOutput }

// GetDebug returns the resolved --debug flag value.
func GetDebug() bool { return flagDebug }
