// Package cli: verify.go implements the "seqfixtures verify" command.
//
// verify checks the assets tree only: every selected release directory
// must hold exactly its expected fixtures, each non-empty. It never runs
// Python and never looks inside the files.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/seqfixtures/internal/assets"
	"github.com/shinji-kodama/seqfixtures/internal/model"
)

// verifyFlags holds the flag values for the verify command.
type verifyFlags struct {
	// versions restricts the check to these releases. Empty means all.
	versions []string
}

// NewVerifyCommand creates the "verify" cobra command.
func NewVerifyCommand() *cobra.Command {
	flags := &verifyFlags{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every release has exactly its expected fixtures",
		Long: `Check the assets tree against the manifest.

A release passes when its directory contains every expected .seq file,
none of them empty, and no other .seq files. File contents are not parsed.

Examples:
  seqfixtures verify
  seqfixtures verify --version 1.4.0 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().StringSliceVar(&flags.versions, "version", nil, "Release to check (repeatable; default: all)")

	return cmd
}

// runVerify loads the manifest, checks the selected releases, and prints
// one line per release.
func runVerify(w io.Writer, flags *verifyFlags) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	releases, err := p.Manifest.Select(flags.versions...)
	if err != nil {
		return err
	}

	reports, err := assets.VerifyAll(p.AssetsDir(), releases)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to inspect assets", err)
	}

	if IsJSONOutput() {
		if err := writeJSON(w, verifyResultJSON{Releases: reports, OK: fixturesOK(reports)}); err != nil {
			return err
		}
	} else {
		printFixtureReportsText(w, reports)
	}

	return fixturesError(reports)
}

// verifyResultJSON is the JSON document printed by verify.
type verifyResultJSON struct {
	OK       bool                   `json:"ok"`
	Releases []*model.FixtureReport `json:"releases"`
}

// fixturesOK reports whether every report passed.
func fixturesOK(reports []*model.FixtureReport) bool {
	for _, r := range reports {
		if !r.OK() {
			return false
		}
	}
	return true
}

// fixturesError returns an ExitFixturesInvalid error naming the failing
// releases, or nil when all passed.
func fixturesError(reports []*model.FixtureReport) error {
	var bad []string
	for _, r := range reports {
		if !r.OK() {
			bad = append(bad, r.Version)
		}
	}
	if len(bad) == 0 {
		return nil
	}
	return model.NewCLIError(
		model.ExitFixturesInvalid,
		fmt.Sprintf("fixtures invalid for %s", strings.Join(bad, ", ")),
	)
}

// printFixtureReportsText prints one status line per release:
//
//	ok    1.4.0: 11 fixture(s) ok
//	FAIL  1.3.1.post1: missing gre.seq; empty epi.seq
func printFixtureReportsText(w io.Writer, reports []*model.FixtureReport) {
	for _, r := range reports {
		mark := "ok"
		if !r.OK() {
			mark = "FAIL"
		}
		fmt.Fprintf(w, "%-5s %s\n", mark, r.Summary())
	}
}
