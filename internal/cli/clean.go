// Package cli: clean.go implements the "seqfixtures clean" command.
//
// clean removes the isolated environment for the selected backend (the
// venv directory, or the project's managed container) together with the
// rendered driver scripts. Generated fixtures are never touched.
//
// By default the command prompts for confirmation. --yes skips the prompt.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/seqfixtures/internal/docker"
	"github.com/shinji-kodama/seqfixtures/internal/model"
	"github.com/shinji-kodama/seqfixtures/internal/orchestrator"
	"github.com/shinji-kodama/seqfixtures/internal/pyenv"
)

// cleanFlags holds the flag values for the clean command.
type cleanFlags struct {
	// backend selects which environment to remove.
	backend string

	// yes skips the interactive confirmation prompt.
	yes bool
}

// NewCleanCommand creates the "clean" cobra command.
func NewCleanCommand() *cobra.Command {
	flags := &cleanFlags{}

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the isolated environment and rendered drivers",
		Long: `Remove the isolated environment used by generate, and the rendered
driver scripts. The next generate run recreates both. Fixtures under the
assets directory are left alone.

For the venv backend the virtual environment directory is deleted; it is
only deleted if it looks like a virtual environment. For the docker
backend the project's managed container is force-removed.

Unless --yes is specified, the command prompts for confirmation.

Examples:
  seqfixtures clean
  seqfixtures clean --backend docker --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.backend, "backend", string(model.BackendVenv), "Environment to remove: venv, docker")
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Remove without confirmation")

	return cmd
}

// runClean is the main logic function for the clean command.
func runClean(ctx context.Context, in io.Reader, w io.Writer, flags *cleanFlags) error {
	backend, err := model.ParseBackend(flags.backend)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid --backend", err)
	}

	p, err := loadProject()
	if err != nil {
		return err
	}

	driverDir := filepath.Join(p.Root, orchestrator.DefaultDriverDir)
	target := p.EnvDir()
	if backend == model.BackendDocker {
		target = "container " + docker.ContainerName(p.Root)
	}

	if !flags.yes {
		confirmed, err := promptConfirmation(in, w, target, p.Rel(driverDir))
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read confirmation", err)
		}
		if !confirmed {
			fmt.Fprintln(w, "Aborted.")
			return nil
		}
	}

	var removed []string
	switch backend {
	case model.BackendVenv:
		env := pyenv.New(p.EnvDir(), p.Manifest.Python, subprocessStreams(w, w, true))
		existed := env.Exists()
		if err := env.Remove(); err != nil {
			return model.WrapCLIError(model.ExitEnvironmentFailed, "failed to remove virtual environment", err)
		}
		if existed {
			removed = append(removed, p.Rel(env.Dir))
		}

	case model.BackendDocker:
		cli, err := docker.NewClient()
		if err != nil {
			return err
		}
		defer func() { _ = cli.Close() }()

		names, err := docker.NewEnv(cli, p.Root, p.Manifest.Image, subprocessStreams(w, w, true)).Remove(ctx)
		for _, n := range names {
			removed = append(removed, "container "+n)
		}
		if err != nil {
			return err
		}
	}

	if _, err := os.Stat(driverDir); err == nil {
		if err := os.RemoveAll(driverDir); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to remove rendered drivers", err)
		}
		removed = append(removed, p.Rel(driverDir))
	}
	VerboseLog("Removed %d item(s)", len(removed))

	if IsJSONOutput() {
		return writeJSON(w, map[string]interface{}{
			"backend": backend.String(),
			"removed": append([]string{}, removed...),
		})
	}
	printCleanResultText(w, removed)
	return nil
}

// promptConfirmation asks whether to proceed and reads the answer from in.
// A closed input counts as "no".
func promptConfirmation(in io.Reader, w io.Writer, target, driverDir string) (bool, error) {
	fmt.Fprintln(w, "About to remove:")
	fmt.Fprintf(w, "  - %s\n", target)
	fmt.Fprintf(w, "  - rendered drivers in %s\n", driverDir)
	fmt.Fprint(w, "\nContinue? [y/N] ")

	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return answer == "y" || answer == "yes", nil
	}
	return false, scanner.Err()
}

// printCleanResultText lists what was removed.
func printCleanResultText(w io.Writer, removed []string) {
	if len(removed) == 0 {
		fmt.Fprintln(w, "Nothing to remove.")
		return
	}
	for _, r := range removed {
		fmt.Fprintf(w, "Removed %s\n", r)
	}
}
