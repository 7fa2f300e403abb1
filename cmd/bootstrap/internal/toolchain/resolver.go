// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package toolchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/process"
)

// -----------------------------------------------------------------------------
// Types
// -----------------------------------------------------------------------------

// Binary is a located executable.
type Binary struct {
	// Name is the executable name that was searched for.
	Name string `json:"name"`

	// Path is the resolved location. Empty when not found.
	Path string `json:"path,omitempty"`

	// Version is the canonical semver reported by --version, if any.
	Version string `json:"version,omitempty"`
}

// Found reports whether the binary was located.
func (b Binary) Found() bool {
	return b.Path != ""
}

// Toolchain is the resolved runtime and dependency manager together with the
// search path under which both are visible.
type Toolchain struct {
	Runtime           Binary `json:"runtime"`
	DependencyManager Binary `json:"dependency_manager"`
	SearchPath        string `json:"-"`
}

// Env returns the environment overlay subprocesses need to see the toolchain.
func (t *Toolchain) Env() map[string]string {
	return map[string]string{"PATH": t.SearchPath}
}

// Config controls which tools are resolved and how they are installed.
type Config struct {
	// RuntimeName is the runtime executable, e.g. "python3".
	RuntimeName string `yaml:"runtime_name" validate:"required"`

	// MinRuntimeVersion is the lowest acceptable runtime, e.g. "3.10".
	MinRuntimeVersion string `yaml:"min_runtime_version"`

	// RuntimeSeries is passed to "pyenv latest --known" to pick a release.
	RuntimeSeries string `yaml:"runtime_series" validate:"required"`

	// VersionManagerRoot overrides $PYENV_ROOT and ~/.pyenv.
	VersionManagerRoot string `yaml:"version_manager_root"`

	// VersionManagerInstallScript is run with "sh -c" when pyenv is missing.
	VersionManagerInstallScript string `yaml:"version_manager_install_script" validate:"required"`

	// DependencyManagerName is the dependency manager executable, e.g. "poetry".
	DependencyManagerName string `yaml:"dependency_manager_name" validate:"required"`

	// DependencyManagerPackage is the package name handed to pip.
	DependencyManagerPackage string `yaml:"dependency_manager_package" validate:"required"`

	// HomeDir defaults to os.UserHomeDir().
	HomeDir string `yaml:"-"`

	// GOOS defaults to runtime.GOOS.
	GOOS string `yaml:"-"`

	// SearchPath is the initial search path. Defaults to $PATH.
	SearchPath string `yaml:"-"`
}

// DefaultConfig returns the Python/pyenv/poetry toolchain.
func DefaultConfig() Config {
	return Config{
		RuntimeName:                 "python3",
		MinRuntimeVersion:           "3.10",
		RuntimeSeries:               "3",
		VersionManagerInstallScript: "curl -fsSL https://pyenv.run | bash",
		DependencyManagerName:       "poetry",
		DependencyManagerPackage:    "poetry",
	}
}

// withDefaults fills host-derived fields left empty.
func (c Config) withDefaults() Config {
	if c.HomeDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.HomeDir = home
		}
	}
	if c.GOOS == "" {
		c.GOOS = runtime.GOOS
	}
	if c.SearchPath == "" {
		c.SearchPath = os.Getenv("PATH")
	}
	c.VersionManagerRoot = VersionManagerRoot(c.VersionManagerRoot, os.Getenv("PYENV_ROOT"), c.HomeDir)
	return c
}

// -----------------------------------------------------------------------------
// Resolver
// -----------------------------------------------------------------------------

// Resolver probes for and installs toolchain binaries.
//
// A Resolver accumulates search path entries as it installs tools. It is not
// safe for concurrent use.
type Resolver struct {
	pm         process.ProcessManager
	cfg        Config
	logger     *slog.Logger
	searchPath string
}

// NewResolver creates a resolver. A nil logger uses slog.Default().
func NewResolver(pm process.ProcessManager, cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	return &Resolver{
		pm:         pm,
		cfg:        cfg,
		logger:     logger.With("component", "toolchain"),
		searchPath: cfg.SearchPath,
	}
}

// SearchPath returns the current search path including any directories
// added by installers.
func (r *Resolver) SearchPath() string {
	return r.searchPath
}

// Resolve ensures the runtime and then the dependency manager.
//
// # Outputs
//
//   - *Toolchain: Both binaries plus the search path that exposes them.
//   - error: *ToolError from whichever tool could not be made available.
func (r *Resolver) Resolve(ctx context.Context) (*Toolchain, error) {
	rt, err := r.EnsureRuntime(ctx)
	if err != nil {
		return nil, err
	}
	dm, err := r.EnsureDependencyManager(ctx, rt)
	if err != nil {
		return nil, err
	}
	return &Toolchain{Runtime: rt, DependencyManager: dm, SearchPath: r.searchPath}, nil
}

// Probe looks name up on the current search path and asks it for its
// version. It never installs anything. A missing tool is not an error; the
// returned Binary simply has no Path.
func (r *Resolver) Probe(ctx context.Context, name string) Binary {
	bin := Binary{Name: name}
	path, err := process.LookPath(name, r.searchPath)
	if err != nil {
		r.logger.Debug("Tool not on search path", "tool", name)
		return bin
	}
	bin.Path = path

	res, err := r.pm.Run(ctx, path, []string{"--version"}, process.RunOptions{
		Env: map[string]string{"PATH": r.searchPath},
	})
	if err != nil {
		r.logger.Debug("Version query failed", "tool", name, "path", path, "error", err)
		return bin
	}
	// Older Pythons print the version on stderr.
	if v, ok := ParseVersion(string(res.Stdout) + " " + string(res.Stderr)); ok {
		bin.Version = v
	}
	r.logger.Debug("Tool found", "tool", name, "path", path, "version", bin.Version)
	return bin
}

// ProbeRuntime probes the runtime and applies the minimum version. A runtime
// that is too old is returned with usable=false.
func (r *Resolver) ProbeRuntime(ctx context.Context) (bin Binary, usable bool) {
	bin = r.Probe(ctx, r.cfg.RuntimeName)
	if !bin.Found() {
		return bin, false
	}
	return bin, MeetsMinimum(bin.Version, r.cfg.MinRuntimeVersion)
}

// EnsureRuntime returns a runtime at or above the minimum version,
// installing one through the version manager when needed.
func (r *Resolver) EnsureRuntime(ctx context.Context) (Binary, error) {
	name := r.cfg.RuntimeName
	if bin, ok := r.ProbeRuntime(ctx); ok {
		return bin, nil
	} else if bin.Found() {
		r.logger.Warn("Runtime below minimum version, installing a newer one",
			"path", bin.Path, "version", bin.Version, "minimum", r.cfg.MinRuntimeVersion)
	}

	if err := r.installRuntime(ctx); err != nil {
		return Binary{}, err
	}

	bin, ok := r.ProbeRuntime(ctx)
	if !bin.Found() {
		return Binary{}, &ToolError{
			Tool:        name,
			Op:          "resolve",
			Err:         ErrToolNotFound,
			Remediation: fmt.Sprintf("Install %s %s or newer and make sure it is on PATH.", name, r.cfg.MinRuntimeVersion),
		}
	}
	if !ok {
		return Binary{}, &ToolError{
			Tool:        name,
			Op:          "resolve",
			Err:         fmt.Errorf("%w: found %s, need %s", ErrVersionTooOld, bin.Version, r.cfg.MinRuntimeVersion),
			Remediation: fmt.Sprintf("Run: pyenv install %s && pyenv global %s", r.cfg.RuntimeSeries, r.cfg.RuntimeSeries),
		}
	}
	r.logger.Info("Runtime installed", "path", bin.Path, "version", bin.Version)
	return bin, nil
}

// installRuntime installs pyenv if needed, then the latest release of the
// configured series, and exposes its shims on the search path.
func (r *Resolver) installRuntime(ctx context.Context) error {
	root := r.cfg.VersionManagerRoot
	binDir := filepath.Join(root, "bin")
	pyenv := filepath.Join(binDir, "pyenv")
	env := map[string]string{"PATH": r.searchPath, "PYENV_ROOT": root}

	if !process.IsExecutable(pyenv) {
		r.logger.Info("Installing version manager", "root", root)
		if _, err := r.pm.Run(ctx, "sh", []string{"-c", r.cfg.VersionManagerInstallScript}, process.RunOptions{Env: env}); err != nil {
			return r.installError("pyenv", err)
		}
	}

	res, err := r.pm.Run(ctx, pyenv, []string{"latest", "--known", r.cfg.RuntimeSeries}, process.RunOptions{Env: env})
	if err != nil {
		return r.installError(r.cfg.RuntimeName, err)
	}
	release := strings.TrimSpace(string(res.Stdout))
	if release == "" {
		return r.installError(r.cfg.RuntimeName, fmt.Errorf("no known release for series %q", r.cfg.RuntimeSeries))
	}

	r.logger.Info("Installing runtime", "release", release)
	for _, args := range [][]string{
		{"install", "--skip-existing", release},
		{"global", release},
	} {
		if _, err := r.pm.Run(ctx, pyenv, args, process.RunOptions{Env: env}); err != nil {
			return r.installError(r.cfg.RuntimeName, err)
		}
	}

	// Shims go first so they win over an older system runtime.
	r.searchPath = process.JoinSearchPath(append([]string{filepath.Join(root, "shims"), binDir}, filepath.SplitList(r.searchPath)...)...)
	return nil
}

// EnsureDependencyManager returns the dependency manager, installing it
// into the user site of runtime when needed.
func (r *Resolver) EnsureDependencyManager(ctx context.Context, rt Binary) (Binary, error) {
	name := r.cfg.DependencyManagerName
	if bin := r.Probe(ctx, name); bin.Found() {
		return bin, nil
	}
	if !rt.Found() {
		return Binary{}, &ToolError{Tool: name, Op: "install", Err: fmt.Errorf("%w: %s", ErrToolNotFound, r.cfg.RuntimeName)}
	}

	r.logger.Info("Installing dependency manager", "package", r.cfg.DependencyManagerPackage, "runtime", rt.Path)
	_, err := r.pm.Run(ctx, rt.Path, []string{"-m", "pip", "install", "--user", r.cfg.DependencyManagerPackage}, process.RunOptions{
		Env: map[string]string{"PATH": r.searchPath},
	})
	if err != nil {
		return Binary{}, r.installError(name, err)
	}

	userBin := UserBinDir(r.cfg.GOOS, r.cfg.HomeDir, rt.Version)
	r.searchPath = process.JoinSearchPath(append(filepath.SplitList(r.searchPath), userBin)...)

	bin := r.Probe(ctx, name)
	if !bin.Found() {
		return Binary{}, &ToolError{
			Tool:        name,
			Op:          "resolve",
			Err:         ErrToolNotFound,
			Remediation: fmt.Sprintf("Add %s to PATH or run: %s -m pip install --user %s", userBin, rt.Path, r.cfg.DependencyManagerPackage),
		}
	}
	r.logger.Info("Dependency manager installed", "path", bin.Path, "version", bin.Version)
	return bin, nil
}

func (r *Resolver) installError(tool string, err error) error {
	te := &ToolError{Tool: tool, Op: "install", Err: err}
	if errors.Is(err, process.ErrNotFound) {
		te.Remediation = "The installer itself is missing; install it with your system package manager."
	}
	return te
}
