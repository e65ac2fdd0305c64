// Package orchestrator runs the per-release generation loop.
//
// A run is strictly sequential:
//
//	ensure environment
//	install <package>==<baseline> with dependencies      (once)
//	for each release, in manifest order:
//	    create <assets>/<version> if absent
//	    install <package>==<version> --force-reinstall --no-deps
//	    run the release's driver in the project root
//	    move import-mode outputs to <assets>/<version>/<name>.seq
//
// The baseline is the manifest's newest release even when only some
// releases are selected. Its install pulls in that dependency set once; each later install swaps only the library itself, so every driver
// runs against the same dependencies.
//
// Every step that runs a subprocess checks its exit status. A failure
// stops the run unless KeepGoing is set, in which case the remaining
// releases still run and the run reports an error at the end.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/seqfixtures/internal/assets"
	"github.com/shinji-kodama/seqfixtures/internal/driver"
	"github.com/shinji-kodama/seqfixtures/internal/model"
	"github.com/shinji-kodama/seqfixtures/internal/sandbox"
)

// DefaultDriverDir is where rendered drivers are written, relative to the
// project root. It must be inside the root so the docker backend, which
// only sees the bind-mounted root, can run them.
var DefaultDriverDir = filepath.Join(".seqfixtures", "drivers")

// Options tune a run.
type Options struct {
	// KeepGoing continues with the next release after a failure.
	KeepGoing bool

	// DriverDir overrides where rendered drivers are written. Empty means
	// DefaultDriverDir under the plan's root.
	DriverDir string
}

// Orchestrator drives one Environment through a Plan.
type Orchestrator struct {
	env    sandbox.Environment
	logger *slog.Logger
	opts   Options
}

// New returns an Orchestrator. A nil logger discards log output.
func New(env sandbox.Environment, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{env: env, logger: logger, opts: opts}
}

// Run executes plan and returns a report covering every release in it,
// including the ones a failure left unattempted.
//
// The returned error is a *model.CLIError whose code identifies the failing
// step: ExitEnvironmentFailed, ExitInstallFailed, or ExitDriverFailed.
func (o *Orchestrator) Run(ctx context.Context, plan *model.Plan) (*model.RunReport, error) {
	report := &model.RunReport{Package: plan.Package}
	for _, r := range plan.Releases {
		report.Releases = append(report.Releases, model.ReleaseReport{
			Version: r.Version,
			Status:  model.ReleaseSkipped,
		})
	}

	baselineVersion, ok := plan.BaselineVersion()
	if !ok {
		return report, model.NewCLIError(model.ExitManifestInvalid, "no releases to generate")
	}

	if checker, ok := o.env.(sandbox.PlanChecker); ok {
		if err := checker.CheckPlan(plan); err != nil {
			return report, asCLIError(model.ExitManifestInvalid, fmt.Sprintf("plan cannot run in %s", o.env.Describe()), err)
		}
	}

	o.logger.Info("Preparing environment.", "env", o.env.Describe())
	if err := o.env.Ensure(ctx); err != nil {
		return report, asCLIError(model.ExitEnvironmentFailed, "failed to prepare environment", err)
	}

	o.logger.Info("Installing baseline release.", "requirement", model.Requirement(plan.Package, baselineVersion))
	baseline := sandbox.InstallRequest{Package: plan.Package, Version: baselineVersion}
	if err := o.install(ctx, baseline); err != nil {
		return report, err
	}

	var failed []*model.CLIError
	for i, r := range plan.Releases {
		rr := &report.Releases[i]
		log := o.logger.With("version", r.Version)

		err := o.runRelease(ctx, plan, r, rr, log)
		if err == nil {
			rr.Status = model.ReleaseGenerated
			log.Info("Release generated.", "relocated", len(rr.Relocated))
			continue
		}

		cliErr := asCLIError(model.ExitGeneralError, fmt.Sprintf("release %s failed", r.Version), err)
		rr.Status = model.ReleaseFailed
		rr.Err = cliErr
		rr.Error = cliErr.Error()
		log.Error("Release failed.", "error", cliErr)

		if ctx.Err() != nil || !o.opts.KeepGoing {
			return report, cliErr
		}
		failed = append(failed, cliErr)
	}

	if len(failed) > 0 {
		versions := make([]string, 0, len(failed))
		for _, rr := range report.Failed() {
			versions = append(versions, rr.Version)
		}
		return report, model.WrapCLIError(
			failed[0].Code,
			fmt.Sprintf("%d of %d release(s) failed: %s", len(failed), len(plan.Releases), strings.Join(versions, ", ")),
			failed[0],
		)
	}
	return report, nil
}

// runRelease performs the per-release steps and records progress in rr.
func (o *Orchestrator) runRelease(ctx context.Context, plan *model.Plan, r model.Release, rr *model.ReleaseReport, log *slog.Logger) error {
	outDir := r.Dir(plan.AssetsDir)
	if err := assets.EnsureDir(outDir); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to prepare output directory", err)
	}
	log.Debug("Output directory ready.", "dir", outDir)

	req := sandbox.InstallRequest{
		Package:        plan.Package,
		Version:        r.Version,
		ForceReinstall: true,
		NoDeps:         true,
	}
	log.Info("Installing release.", "requirement", model.Requirement(plan.Package, r.Version))
	if err := o.install(ctx, req); err != nil {
		return err
	}

	script, err := o.driverScript(plan, r)
	if err != nil {
		return model.WrapCLIError(model.ExitDriverFailed, "failed to prepare driver", err)
	}

	if err := clearSources(plan.RootDir, r); err != nil {
		return model.WrapCLIError(model.ExitDriverFailed, "failed to clear stale driver output", err)
	}

	log.Info("Running driver.", "script", script)
	res, err := o.env.Run(ctx, script, plan.RootDir)
	rr.Driver = res
	if err != nil {
		return model.WrapCLIError(model.ExitDriverFailed, "driver did not complete", err)
	}
	if !res.Succeeded() {
		return model.WrapCLIError(model.ExitDriverFailed, "driver failed", sandbox.CommandError(res))
	}

	return o.relocate(plan, r, rr, log)
}

// install runs req and converts any failure into ExitInstallFailed.
func (o *Orchestrator) install(ctx context.Context, req sandbox.InstallRequest) error {
	requirement := model.Requirement(req.Package, req.Version)

	res, err := o.env.Install(ctx, req)
	if err != nil {
		return model.WrapCLIError(model.ExitInstallFailed, fmt.Sprintf("failed to install %s", requirement), err)
	}
	if !res.Succeeded() {
		return model.WrapCLIError(
			model.ExitInstallFailed,
			fmt.Sprintf("failed to install %s", requirement),
			sandbox.CommandError(res),
		)
	}
	return nil
}

// driverScript returns the host path of the driver for r, rendering and
// writing it first unless the release names an external driver.
func (o *Orchestrator) driverScript(plan *model.Plan, r model.Release) (string, error) {
	if r.Driver != "" {
		script := r.Driver
		if !filepath.IsAbs(script) {
			script = filepath.Join(plan.RootDir, script)
		}
		if _, err := os.Stat(script); err != nil {
			return "", fmt.Errorf("external driver for %s: %w", r.Version, err)
		}
		return script, nil
	}

	assetsRel, err := filepath.Rel(plan.RootDir, plan.AssetsDir)
	if err != nil {
		return "", fmt.Errorf("assets directory %s is not reachable from %s: %w", plan.AssetsDir, plan.RootDir, err)
	}
	data, err := driver.Render(plan.Package, r, assetsRel)
	if err != nil {
		return "", err
	}

	dir := o.opts.DriverDir
	if dir == "" {
		dir = filepath.Join(plan.RootDir, DefaultDriverDir)
	}
	script := driver.Path(dir, r.Version)
	if err := driver.Write(script, data); err != nil {
		return "", err
	}
	return script, nil
}

// clearSources removes import-mode outputs left in the root by an earlier
// run, so a file found after the driver exits is known to be fresh.
func clearSources(root string, r model.Release) error {
	for _, f := range r.Fixtures {
		if f.Source == "" {
			continue
		}
		if err := os.Remove(filepath.Join(root, f.Source)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// relocate moves import-mode outputs from the root to their canonical
// destination. A rendered driver must have produced every source; an
// external driver may have moved them itself, so missing sources are
// skipped for it.
func (o *Orchestrator) relocate(plan *model.Plan, r model.Release, rr *model.ReleaseReport, log *slog.Logger) error {
	for _, f := range r.Fixtures {
		if f.Source == "" {
			continue
		}
		src := filepath.Join(plan.RootDir, f.Source)
		dst := r.FixturePath(plan.AssetsDir, f)

		if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
			if r.Driver != "" {
				log.Debug("Source not in root, assuming the driver placed it.", "source", f.Source)
				continue
			}
			return model.NewCLIError(model.ExitDriverFailed, fmt.Sprintf("driver did not produce %s for fixture %s", f.Source, f.Name))
		}

		if err := assets.Relocate(src, dst); err != nil {
			return model.WrapCLIError(model.ExitDriverFailed, fmt.Sprintf("failed to relocate fixture %s", f.Name), err)
		}
		log.Debug("Fixture relocated.", "from", f.Source, "to", dst)
		rr.Relocated = append(rr.Relocated, dst)
	}
	return nil
}

// asCLIError returns err as a *model.CLIError, wrapping it with code and
// message when it is not one already.
func asCLIError(code model.ExitCode, message string, err error) *model.CLIError {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	return model.WrapCLIError(code, message, err)
}
