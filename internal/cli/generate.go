// Package cli: generate.go implements the "seqfixtures generate" command.
//
// generate prepares the isolated environment, then for each selected
// release installs it and runs its driver, and finally verifies the
// assets tree. The heavy lifting is done by the orchestrator; this file
// wires flags to it and reports the outcome.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/seqfixtures/internal/assets"
	"github.com/shinji-kodama/seqfixtures/internal/model"
	"github.com/shinji-kodama/seqfixtures/internal/orchestrator"
)

// generateFlags holds the flag values for the generate command.
type generateFlags struct {
	// versions restricts the run to these releases. Empty means all.
	versions []string

	// backend selects the isolated environment: "venv" or "docker".
	backend string

	// keepGoing continues with later releases after a failure.
	keepGoing bool

	// skipVerify skips the assets check after the run.
	skipVerify bool

	// quiet drops pip and driver output.
	quiet bool
}

// NewGenerateCommand creates the "generate" cobra command.
func NewGenerateCommand() *cobra.Command {
	flags := &generateFlags{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Regenerate fixtures for every release in the manifest",
		Long: `Regenerate the .seq fixtures for each release in the manifest.

The isolated environment is created on first use and reused afterwards.
The newest release is installed once with its dependencies; each release
is then force-reinstalled without dependencies and its driver is run from
the project root. Releases run one at a time, in manifest order.

A failing install or driver stops the run unless --keep-going is given.
With --keep-going the remaining releases still run, and the command exits
non-zero at the end.

Examples:
  seqfixtures generate
  seqfixtures generate --version 1.4.0
  seqfixtures generate --backend docker --keep-going`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), flags)
		},
	}

	cmd.Flags().StringSliceVar(&flags.versions, "version", nil, "Release to generate (repeatable; default: all)")
	cmd.Flags().StringVar(&flags.backend, "backend", string(model.BackendVenv), "Isolated environment: venv, docker")
	cmd.Flags().BoolVarP(&flags.keepGoing, "keep-going", "k", false, "Continue with later releases after a failure")
	cmd.Flags().BoolVar(&flags.skipVerify, "skip-verify", false, "Do not check the assets tree afterwards")
	cmd.Flags().BoolVarP(&flags.quiet, "quiet", "q", false, "Hide pip and driver output")

	return cmd
}

// runGenerate is the main logic function for the generate command.
func runGenerate(ctx context.Context, stdout, stderr io.Writer, flags *generateFlags) error {
	backend, err := model.ParseBackend(flags.backend)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid --backend", err)
	}

	p, err := loadProject()
	if err != nil {
		return err
	}

	plan, err := p.Manifest.Plan(p.Root, flags.versions...)
	if err != nil {
		return err
	}
	VerboseLog("Generating %d release(s) of %s with the %s backend", len(plan.Releases), plan.Package, backend)

	env, closeEnv, err := newEnvironment(p, backend, subprocessStreams(stdout, stderr, flags.quiet))
	if err != nil {
		return err
	}
	defer closeEnv()

	orch := orchestrator.New(env, logger, orchestrator.Options{KeepGoing: flags.keepGoing})
	report, runErr := orch.Run(ctx, plan)

	var fixtures []*model.FixtureReport
	if !flags.skipVerify && ctx.Err() == nil {
		fixtures, err = assets.VerifyAll(plan.AssetsDir, generatedReleases(plan, report))
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to inspect assets", err)
		}
	}

	if IsJSONOutput() {
		result := generateResultJSON{Run: report, Fixtures: fixtures, OK: runErr == nil && fixturesOK(fixtures)}
		if err := writeJSON(stdout, result); err != nil {
			return err
		}
	} else {
		printRunReportText(stdout, p, report)
		printFixtureReportsText(stdout, fixtures)
	}

	if runErr != nil {
		return runErr
	}
	return fixturesError(fixtures)
}

// generatedReleases returns the plan's releases whose run succeeded; only
// those are worth verifying.
func generatedReleases(plan *model.Plan, report *model.RunReport) []model.Release {
	var out []model.Release
	for i, r := range plan.Releases {
		if i < len(report.Releases) && report.Releases[i].Status == model.ReleaseGenerated {
			out = append(out, r)
		}
	}
	return out
}

// generateResultJSON is the JSON document printed by generate.
type generateResultJSON struct {
	OK       bool                   `json:"ok"`
	Run      *model.RunReport       `json:"run"`
	Fixtures []*model.FixtureReport `json:"fixtures,omitempty"`
}

// printRunReportText prints one line per release with its status:
//
//	generated  1.3.1.post1  8 relocated
//	failed     1.4.0        driver failed: ... exited with status 1
//	skipped    1.5.0
func printRunReportText(w io.Writer, p *project, report *model.RunReport) {
	for _, rr := range report.Releases {
		detail := ""
		switch rr.Status {
		case model.ReleaseGenerated:
			if len(rr.Relocated) > 0 {
				detail = fmt.Sprintf("%d relocated", len(rr.Relocated))
			}
		case model.ReleaseFailed:
			detail = rr.Error
		}
		line := fmt.Sprintf("%-10s %-12s %s", rr.Status, rr.Version, detail)
		fmt.Fprintln(w, strings.TrimRight(line, " "))

		if verbose {
			for _, dst := range rr.Relocated {
				fmt.Fprintf(w, "           -> %s\n", p.Rel(dst))
			}
		}
	}
}
