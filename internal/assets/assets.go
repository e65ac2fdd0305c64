// Package assets manages the version-tagged fixture tree.
//
// Layout:
//
//	<assets>/<version>/<name>.seq
//
// The package provides the three filesystem primitives the orchestrator
// needs: an idempotent create-if-absent for output directories, an atomic
// replace for moving generated files into place, and verification of a
// release directory against the fixtures the manifest expects.
package assets

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/shinji-kodama/seqfixtures/internal/model"
)

// EnsureDir creates dir (and parents) if it does not exist.
//
// An existing directory is success. An existing non-directory at dir is an
// error, as is any other creation failure; those propagate to the caller
// instead of being swallowed.
func EnsureDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("output path %s exists and is not a directory", dir)
	case !os.IsNotExist(err):
		return fmt.Errorf("failed to inspect output directory %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return nil
}

// Relocate moves src to dst, replacing any file already at dst.
//
// A same-filesystem rename is atomic. When src and dst live on different
// filesystems (e.g. a container's bind mount or a tmpfs working dir), the
// file is copied into a temporary file next to dst, synced, and renamed
// over dst, so readers never observe a partially written fixture.
func Relocate(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", dst, err)
	}

	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}

	if err := copyReplace(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("moved %s to %s but failed to remove the original: %w", src, dst, err)
	}
	return nil
}

// isCrossDevice reports whether err is the EXDEV error os.Rename returns
// when source and destination are on different filesystems.
func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return errors.Is(linkErr.Err, syscall.EXDEV)
	}
	return false
}

// copyReplace copies src into a temporary file in dst's directory and
// renames it over dst. The file mode of src is preserved.
func copyReplace(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer func() { _ = srcFile.Close() }()

	info, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source file %s: %w", src, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".relocate-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file next to %s: %w", dst, err)
	}
	tmpName := tmp.Name()
	// Removing after a successful rename is a harmless no-op.
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := io.Copy(tmp, srcFile); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to flush %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("failed to move %s into place at %s: %w", tmpName, dst, err)
	}
	return nil
}

// Verify checks that the release directory under assetsDir holds exactly
// the release's fixtures: each one present and non-empty, and no other
// .seq files. A missing release directory reports every fixture missing.
//
// Non-.seq files (e.g. parser dumps) are ignored.
func Verify(assetsDir string, r model.Release) (*model.FixtureReport, error) {
	dir := r.Dir(assetsDir)
	report := &model.FixtureReport{Version: r.Version, Dir: dir, Present: []string{}}

	expected := make(map[string]bool, len(r.Fixtures))
	for _, f := range r.Fixtures {
		name := f.FileName()
		expected[name] = true

		info, err := os.Stat(filepath.Join(dir, name))
		switch {
		case os.IsNotExist(err):
			report.Missing = append(report.Missing, name)
		case err != nil:
			return nil, fmt.Errorf("failed to inspect fixture %s: %w", filepath.Join(dir, name), err)
		case info.IsDir():
			return nil, fmt.Errorf("fixture path %s is a directory", filepath.Join(dir, name))
		case info.Size() == 0:
			report.Empty = append(report.Empty, name)
		default:
			report.Present = append(report.Present, name)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), model.SeqExtension) {
			continue
		}
		if !expected[e.Name()] {
			report.Unexpected = append(report.Unexpected, e.Name())
		}
	}

	sort.Strings(report.Present)
	sort.Strings(report.Missing)
	sort.Strings(report.Empty)
	sort.Strings(report.Unexpected)
	return report, nil
}

// VerifyAll runs Verify for each release in order.
func VerifyAll(assetsDir string, releases []model.Release) ([]*model.FixtureReport, error) {
	reports := make([]*model.FixtureReport, 0, len(releases))
	for _, r := range releases {
		report, err := Verify(assetsDir, r)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
