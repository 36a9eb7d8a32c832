package main

import (
	"context"
	"testing"

	"github.com/masahif/notion2md/internal/cmd"
)

func TestVersionVariables(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty string")
	}
	if BuildTime == "" {
		t.Error("BuildTime should not be empty string")
	}
}

// TestMainLogic runs the sequence main() performs, minus os.Exit
func TestMainLogic(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"help", []string{"--help"}},
		{"version", []string{"--version"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd.SetVersionInfo(Version, BuildTime)

			err := cmd.Execute(context.Background(), tt.args)
			if err != nil {
				t.Errorf("cmd.Execute() should not return error, got: %v", err)
			}
			if code := cmd.ExitCode(err); code != cmd.ExitOK {
				t.Errorf("Expected exit code %d, got %d", cmd.ExitOK, code)
			}
		})
	}
}

func exportArgs(t *testing.T) []string {
	t.Helper()
	return []string{"https://acme.notion.site/Home-0123456789abcdef0123456789abcdef",
		"--output", t.TempDir(), "--log-level", "error"}
}

func TestMainInterrupted(t *testing.T) {
	// A cancelled context stops the export before any page is fetched
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cmd.Execute(ctx, exportArgs(t))
	if code := cmd.ExitCode(err); code != cmd.ExitInterrupted {
		t.Errorf("Expected exit code %d, got %d (err: %v)", cmd.ExitInterrupted, code, err)
	}
}

// Help and version flags from one invocation must not leak into the next
func TestMainInterruptedAfterHelpAndVersion(t *testing.T) {
	cmd.SetVersionInfo(Version, BuildTime)
	for _, args := range [][]string{{"--help"}, {"--version"}} {
		if err := cmd.Execute(context.Background(), args); err != nil {
			t.Fatalf("cmd.Execute(%v) failed: %v", args, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cmd.Execute(ctx, exportArgs(t))
	if code := cmd.ExitCode(err); code != cmd.ExitInterrupted {
		t.Errorf("Expected exit code %d, got %d (err: %v)", cmd.ExitInterrupted, code, err)
	}
}
