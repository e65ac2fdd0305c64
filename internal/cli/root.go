// Package cli implements the cobra-based CLI commands for seqfixtures.
//
// Each subcommand (generate, verify, list, clean) is defined in its own
// file within this package. This file defines the root command that serves
// as the parent for all subcommands and handles global flags.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/seqfixtures/internal/model"
)

// Global flag variables shared across all subcommands. They are bound to
// persistent flags on the root command.
var (
	// jsonOutput switches command results to JSON on stdout.
	jsonOutput bool

	// verbose enables debug logging on stderr.
	verbose bool

	// logFormat selects the slog handler: "text" or "json".
	logFormat string

	// manifestPath is the release manifest. Empty means the embedded default.
	manifestPath string

	// rootDir is the project root. Empty means the current directory.
	rootDir string
)

// logger is configured from the global flags before any subcommand runs.
var logger = slog.New(slog.DiscardHandler)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action. It only provides
// help text and global flags; the subcommands do the work.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "seqfixtures",
		Short: "Regenerate .seq test fixtures across pypulseq releases",
		Long: `seqfixtures regenerates example pulse-sequence (.seq) files with several
releases of the pypulseq library and files them under a version-tagged
assets directory, for use as parser test fixtures.

Each release is installed into one reusable isolated environment (a local
virtual environment or a Docker container) and its driver script is run
there. Releases are processed one at a time, oldest first.`,

		// Errors are printed by Execute, in text or JSON.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(cmd.ErrOrStderr(), verbose, logFormat)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format on stderr: text, json")
	rootCmd.PersistentFlags().StringVarP(&manifestPath, "manifest", "m", "", "Release manifest (.yaml, .yml, .json, .jsonc); default: embedded")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Project root drivers run in (default: current directory)")

	rootCmd.AddCommand(NewGenerateCommand())
	rootCmd.AddCommand(NewVerifyCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewCleanCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// An interrupt cancels the command's context, which stops the running
// subprocess. CLIError types carry their own exit codes; other errors
// exit with code 1.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	os.Exit(int(handleError(os.Stderr, err)))
}

// handleError prints err, if any, and returns the exit code for it.
func handleError(w io.Writer, err error) model.ExitCode {
	if err == nil {
		return model.ExitSuccess
	}

	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(w, cliErr.Message, cliErr.Err)
		return cliErr.Code
	}

	printError(w, err.Error(), nil)
	return model.ExitGeneralError
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag. Errors go to stderr
// even in JSON mode, because stdout is reserved for command results.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// VerboseLog emits a debug record when verbose mode is enabled.
// This is used throughout the CLI for trace output about what the
// command is doing.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		logger.Debug(fmt.Sprintf(format, args...))
	}
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
