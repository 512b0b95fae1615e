// Command aidb runs the adaptive dual-backend ingestion pipeline.
//
// Commands:
//
//	ingest --count N | --continuous --interval S   Pull and ingest records
//	flush                                           Force a flush of the buffer
//	status                                          Show buffer and lifetime counters
//	decisions                                       Show the current per-field placement
//	reset --confirm                                 Discard persisted pipeline state
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Dicklesworthstone/aidb/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.RootCmd.ExecuteContext(ctx)
	os.Exit(cli.ExitCode(err))
}
