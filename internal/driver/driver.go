// Package driver renders the per-release Python driver scripts.
//
// A driver configures numeric-type compatibility shims for old library
// releases, suppresses interactive plot windows, and then runs every
// example generator listed for the release. Import-mode generators run at
// import time and leave their output in the working directory; main-mode
// generators receive the destination path explicitly.
//
// Releases that name an external driver in the manifest skip rendering
// entirely and the external script is used as-is.
package driver

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/template"

	"github.com/shinji-kodama/seqfixtures/internal/model"
)

// scriptTemplate is the driver body. Paths are emitted with strconv.Quote,
// which produces valid Python string literals for the ASCII paths used here.
var scriptTemplate = template.Must(template.New("driver").Parse(`# Generated by seqfixtures for {{.Package}}=={{.Version}}. Do not edit.
import numpy as np
np.int = int
np.float = float
np.complex = complex

import matplotlib
matplotlib.use("Agg")
import matplotlib.pyplot as plt
plt.show = plt.close
{{range .Imports}}
import {{.}}{{end}}
{{range .Calls}}
{{.Module}}.main(False, True, {{.Dest}}){{end}}
`))

type call struct {
	Module string
	Dest   string
}

type scriptData struct {
	Package string
	Version string
	Imports []string
	Calls   []call
}

// Render returns the driver script for release r. assetsRel is the assets
// directory as seen from the driver's working directory; main-mode
// destinations are written relative to it with forward slashes, so the
// same script works on the host and inside a container.
func Render(pkg string, r model.Release, assetsRel string) ([]byte, error) {
	data := scriptData{Package: pkg, Version: r.Version}

	for _, f := range r.Fixtures {
		switch f.Mode {
		case model.ModeImport:
			data.Imports = append(data.Imports, f.Module)
		case model.ModeMain:
			// Main-mode modules must be imported before their main() is called.
			data.Imports = append(data.Imports, f.Module)
			dest := filepath.ToSlash(filepath.Join(assetsRel, r.Version, f.FileName()))
			data.Calls = append(data.Calls, call{Module: f.Module, Dest: strconv.Quote(dest)})
		default:
			return nil, fmt.Errorf("fixture %s: unsupported mode %q", f.Name, f.Mode)
		}
	}

	var buf bytes.Buffer
	if err := scriptTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render driver for %s: %w", r.Version, err)
	}
	return buf.Bytes(), nil
}

// Path returns where the rendered driver for version is stored.
func Path(dir, version string) string {
	return filepath.Join(dir, version+".py")
}

// Write stores a rendered driver at path, creating parent directories.
// The script is written to a temporary file in the same directory and
// renamed into place, so an interrupted run never leaves a truncated
// driver behind.
func Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".driver-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary driver in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write driver %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write driver %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move driver into place at %s: %w", path, err)
	}
	return nil
}
