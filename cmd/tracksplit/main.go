package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alnah/go-tracksplit/internal/audio"
	"github.com/alnah/go-tracksplit/internal/cli"
	"github.com/alnah/go-tracksplit/internal/config"
	"github.com/alnah/go-tracksplit/internal/correct"
	"github.com/alnah/go-tracksplit/internal/ffmpeg"
	"github.com/alnah/go-tracksplit/internal/interrupt"
	"github.com/alnah/go-tracksplit/internal/track"
	"github.com/alnah/go-tracksplit/internal/tracklist"
)

// Injected at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// Exit codes.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 2
	ExitSetup      = 3
	ExitValidation = 4
	ExitExport     = 5
	ExitInterrupt  = interrupt.ExitInterrupt
)

func main() {
	// Load .env file if present (ignore error if missing).
	_ = godotenv.Load()

	// First Ctrl+C cancels ctx, a second one exits right away.
	handler, ctx := interrupt.NewHandler(context.Background())
	defer handler.Stop()

	env := cli.DefaultEnv()

	rootCmd := &cobra.Command{
		Use:     "tracksplit",
		Short:   "Split a recorded mix into tagged tracks",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		// Silence Cobra's default error/usage printing; we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(cli.SplitCmd(env))
	rootCmd.AddCommand(cli.PlanCmd(env))
	rootCmd.AddCommand(cli.TracksCmd(env))
	rootCmd.AddCommand(cli.ConfigCmd(env))

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		code := exitCode(err)
		if code == ExitUsage {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n\n%s", err, rootCmd.UsageString())
		} else {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		handler.Stop()
		os.Exit(code)
	}
}

// exitCode maps errors to exit codes.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	// Interrupt or operator abort.
	if errors.Is(err, context.Canceled) || errors.Is(err, correct.ErrAborted) {
		return ExitInterrupt
	}

	// Usage errors (ExitUsage = 2): Cobra flag/arg parsing errors.
	if isCobraUsageError(err) {
		return ExitUsage
	}

	// Setup errors (ExitSetup = 3).
	if errors.Is(err, ffmpeg.ErrNotFound) || errors.Is(err, cli.ErrOutputLocked) {
		return ExitSetup
	}

	// Validation errors (ExitValidation = 4).
	if errors.Is(err, audio.ErrFileNotFound) || errors.Is(err, audio.ErrUnsupportedFormat) ||
		errors.Is(err, audio.ErrDecodeFailed) || errors.Is(err, cli.ErrUnsupportedOutput) ||
		errors.Is(err, tracklist.ErrInvalidTrackList) || errors.Is(err, tracklist.ErrPlaylistNotFound) ||
		errors.Is(err, track.ErrInvalidMetadata) || errors.Is(err, config.ErrInvalidConfig) ||
		errors.Is(err, config.ErrUnknownKey) || errors.Is(err, config.ErrInvalidKey) ||
		errors.Is(err, config.ErrInvalidSyntax) {
		return ExitValidation
	}

	// Export errors (ExitExport = 5).
	if errors.Is(err, cli.ErrExportFailed) || errors.Is(err, track.ErrInvalidBounds) {
		return ExitExport
	}

	return ExitGeneral
}

// cobraUsageErrorPatterns contains error message substrings that indicate Cobra usage errors.
// Cobra doesn't expose typed errors, so string matching is the only reliable approach.
var cobraUsageErrorPatterns = []string{
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"unknown command",
	"flag needs an argument",
	"invalid argument",
	"accepts ",
	"requires at least",
	"requires at most",
}

// isCobraUsageError checks if an error is a Cobra usage/parsing error.
func isCobraUsageError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()
	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
