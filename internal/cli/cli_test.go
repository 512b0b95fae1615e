package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// withConfig writes a minimal pipeline.toml pointing metadata_dir and
// wal_file at t.TempDir() and returns its path, so newRuntime never
// touches the working directory during tests.
func withConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	metaDir := filepath.Join(dir, "meta")
	contents := "metadata_dir = \"" + metaDir + "\"\n" +
		"wal_file = \"" + filepath.Join(dir, "wal.log") + "\"\n"
	path := filepath.Join(dir, "pipeline.toml")
	if err := os.WriteFile(path, []byte(contents), 0640); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestNewRuntimeOpensAndClosesBackends(t *testing.T) {
	prevConfig := flagConfig
	flagConfig = withConfig(t)
	t.Cleanup(func() { flagConfig = prevConfig })

	rt, err := newRuntime(context.Background())
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	if rt.orchestrator == nil {
		t.Fatal("newRuntime: orchestrator is nil")
	}
	if err := rt.Close(); err != nil {
		t.Fatalf("rt.Close: %v", err)
	}
}

func TestNewRuntimeRejectsBadConfigPath(t *testing.T) {
	prevConfig := flagConfig
	flagConfig = filepath.Join(t.TempDir(), "missing.toml")
	t.Cleanup(func() { flagConfig = prevConfig })

	_, err := newRuntime(context.Background())
	if err == nil {
		t.Fatal("newRuntime: expected error for missing config file")
	}
	if ExitCode(err) != 2 {
		t.Errorf("ExitCode(%v) = %d, want 2 (misconfiguration)", err, ExitCode(err))
	}
}

func TestResetRefusesWithoutConfirm(t *testing.T) {
	prevConfig, prevConfirm := flagConfig, flagResetConfirm
	flagConfig = withConfig(t)
	flagResetConfirm = false
	t.Cleanup(func() {
		flagConfig = prevConfig
		flagResetConfirm = prevConfirm
	})

	err := resetCmd.RunE(resetCmd, nil)
	if err == nil {
		t.Fatal("reset: expected error without --confirm")
	}
	if ExitCode(err) != 2 {
		t.Errorf("ExitCode(%v) = %d, want 2 (misconfiguration)", err, ExitCode(err))
	}
}

func TestResetSucceedsWithConfirm(t *testing.T) {
	prevConfig, prevConfirm := flagConfig, flagResetConfirm
	flagConfig = withConfig(t)
	flagResetConfirm = true
	t.Cleanup(func() {
		flagConfig = prevConfig
		flagResetConfirm = prevConfirm
	})

	if err := resetCmd.RunE(resetCmd, nil); err != nil {
		t.Fatalf("reset: %v", err)
	}
}

func TestStatusAndDecisionsRunAgainstEmptyPipeline(t *testing.T) {
	prevConfig := flagConfig
	flagConfig = withConfig(t)
	t.Cleanup(func() { flagConfig = prevConfig })

	if err := statusCmd.RunE(statusCmd, nil); err != nil {
		t.Fatalf("status: %v", err)
	}
	if err := decisionsCmd.RunE(decisionsCmd, nil); err != nil {
		t.Fatalf("decisions: %v", err)
	}
}

func TestFlushOnEmptyBufferSucceeds(t *testing.T) {
	prevConfig := flagConfig
	flagConfig = withConfig(t)
	t.Cleanup(func() { flagConfig = prevConfig })

	if err := flushCmd.RunE(flushCmd, nil); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestRootCmdRegistersAllSubcommands(t *testing.T) {
	want := []string{"ingest", "flush", "status", "decisions", "reset"}
	have := map[string]bool{}
	for _, c := range RootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("RootCmd missing subcommand %q", name)
		}
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"misconfiguration", Misconfiguration(errPlain("bad flag")), 2},
		{"runtime error", errPlain("boom"), 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExitCode(tc.err); got != tc.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

func TestMisconfigurationNilIsNil(t *testing.T) {
	if Misconfiguration(nil) != nil {
		t.Error("Misconfiguration(nil) should be nil")
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
