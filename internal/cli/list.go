// Package cli: list.go implements the "seqfixtures list" command.
//
// By default list shows the releases in the manifest and where each
// fixture ends up. With --containers it instead lists the Docker containers
// the docker backend manages, for every project on the host, found by
// their "seqfixtures.managed-by" label.
package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/seqfixtures/internal/docker"
	"github.com/shinji-kodama/seqfixtures/internal/model"
)

// listFlags holds the flag values for the list command.
type listFlags struct {
	// containers lists managed Docker containers instead of releases.
	containers bool
}

// NewListCommand creates the "list" cobra command.
func NewListCommand() *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List releases and fixture destinations",
		Long: `List the releases in the manifest with the fixtures each one produces
and their destination paths.

With --containers, list the Docker containers managed by the docker
backend instead.

Examples:
  seqfixtures list
  seqfixtures list --manifest releases.yaml --json
  seqfixtures list --containers`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.containers {
				return runListContainers(cmd.Context(), cmd.OutOrStdout())
			}
			return runList(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&flags.containers, "containers", false, "List managed Docker containers")

	return cmd
}

// runList prints the manifest's releases.
func runList(w io.Writer) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	releases := buildReleaseList(p)
	if IsJSONOutput() {
		return writeJSON(w, listResultJSON{Package: p.Manifest.Package, Manifest: p.Manifest.Source, Releases: releases})
	}
	printReleaseListText(w, p.Manifest.Package, releases)
	return nil
}

// listResultJSON is the JSON document printed by list.
type listResultJSON struct {
	Package  string            `json:"package"`
	Manifest string            `json:"manifest"`
	Releases []listReleaseJSON `json:"releases"`
}

// listReleaseJSON describes one release in list output.
type listReleaseJSON struct {
	Version  string            `json:"version"`
	Driver   string            `json:"driver"`
	Fixtures []listFixtureJSON `json:"fixtures"`
}

// listFixtureJSON describes one fixture in list output. Destination is
// relative to the project root.
type listFixtureJSON struct {
	Name        string `json:"name"`
	Module      string `json:"module"`
	Mode        string `json:"mode"`
	Source      string `json:"source,omitempty"`
	Destination string `json:"destination"`
}

// buildReleaseList flattens the manifest into list entries.
func buildReleaseList(p *project) []listReleaseJSON {
	assetsDir := p.AssetsDir()
	releases := make([]listReleaseJSON, 0, len(p.Manifest.Releases))

	for _, r := range p.Manifest.Releases {
		entry := listReleaseJSON{
			Version:  r.Version,
			Driver:   driverLabel(r),
			Fixtures: make([]listFixtureJSON, 0, len(r.Fixtures)),
		}
		for _, f := range r.Fixtures {
			entry.Fixtures = append(entry.Fixtures, listFixtureJSON{
				Name:        f.Name,
				Module:      f.Module,
				Mode:        f.Mode.String(),
				Source:      f.Source,
				Destination: p.Rel(r.FixturePath(assetsDir, f)),
			})
		}
		releases = append(releases, entry)
	}
	return releases
}

// driverLabel describes where a release's driver comes from.
func driverLabel(r model.Release) string {
	if r.Driver != "" {
		return r.Driver
	}
	return "(rendered)"
}

// printReleaseListText prints the releases as a text tree:
//
//	pypulseq 1.4.0  driver (rendered)
//	  mprage       main    assets/1.4.0/mprage.seq
//	  epi          import  assets/1.3.1.post1/epi.seq  <- epi_pypulseq.seq
func printReleaseListText(w io.Writer, pkg string, releases []listReleaseJSON) {
	for i, r := range releases {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s  driver %s\n", pkg, r.Version, r.Driver)
		for _, f := range r.Fixtures {
			line := fmt.Sprintf("  %-12s %-7s %s", f.Name, f.Mode, f.Destination)
			if f.Source != "" {
				line += "  <- " + f.Source
			}
			fmt.Fprintln(w, line)
		}
	}
}

// runListContainers connects to Docker and prints every managed container.
func runListContainers(ctx context.Context, w io.Writer) error {
	cli, err := docker.NewClient()
	if err != nil {
		return err
	}
	defer func() { _ = cli.Close() }()

	if err := cli.Ping(ctx); err != nil {
		return err
	}
	VerboseLog("Connected to Docker daemon")

	containers, err := docker.ListManagedContainers(ctx, cli, "")
	if err != nil {
		return err
	}
	VerboseLog("Found %d managed containers", len(containers))

	sort.Slice(containers, func(i, j int) bool {
		return containers[i].Project < containers[j].Project
	})

	if IsJSONOutput() {
		type resultJSON struct {
			Containers []model.ContainerInfo `json:"containers"`
		}
		return writeJSON(w, resultJSON{Containers: containers})
	}
	printContainersText(w, containers)
	return nil
}

// printContainersText outputs managed containers as a table with fixed-width
// columns:
//
//	NAME                           STATUS    IMAGE              CREATED           PROJECT
//	seqfixtures-pulseq-0a1b2c3d    running   python:3.11-slim   2026-02-28 10:00  /home/user/pulseq
func printContainersText(w io.Writer, containers []model.ContainerInfo) {
	if len(containers) == 0 {
		fmt.Fprintln(w, "No managed containers found.")
		return
	}

	fmt.Fprintf(w, "%-30s %-9s %-18s %-17s %s\n", "NAME", "STATUS", "IMAGE", "CREATED", "PROJECT")
	for _, c := range containers {
		fmt.Fprintf(w, "%-30s %-9s %-18s %-17s %s\n",
			c.Name,
			c.State,
			orDash(c.Image),
			formatCreated(c.CreatedAt),
			orDash(c.Project),
		)
	}
}

// formatCreated renders a creation time in local time, or "-" when the
// label was missing.
func formatCreated(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
