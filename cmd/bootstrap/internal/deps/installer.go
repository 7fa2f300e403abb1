// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package deps declares the project's runtime and development dependencies
// through the dependency manager and installs them into the project's
// virtual environment.
//
// Declarations already present in pyproject.toml with the same constraint
// are skipped, so running the installer again never re-resolves anything
// that is already declared.
package deps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/process"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/toolchain"
	"github.com/maplejuris/bootstrap/pkg/validation"
)

// Group is a dependency group. GroupMain holds runtime dependencies.
type Group string

const (
	GroupMain Group = "main"
	GroupDev  Group = "dev"
)

// Declaration is one package the project depends on.
type Declaration struct {
	Name string `yaml:"name" json:"name" validate:"required"`

	// Constraint is a version constraint such as "^0.110". Empty lets the
	// dependency manager pick the latest compatible release.
	Constraint string `yaml:"constraint,omitempty" json:"constraint,omitempty"`

	Group Group `yaml:"-" json:"group"`
}

// Spec renders the declaration as a dependency manager argument.
func (d Declaration) Spec() string {
	if d.Constraint == "" {
		return d.Name
	}
	return d.Name + "@" + d.Constraint
}

// Validate rejects names and constraints that could be read as flags or
// shell syntax by the dependency manager.
func (d Declaration) Validate() error {
	if err := validation.ValidatePackageName(d.Name); err != nil {
		return err
	}
	return validation.ValidateConstraint(d.Constraint)
}

// DefaultRuntime returns the runtime dependencies of the API service.
func DefaultRuntime() []Declaration {
	return declarations(GroupMain, "fastapi", "uvicorn", "pydantic", "sqlalchemy")
}

// DefaultDev returns the formatters, linters, hook runner and secrets
// tooling used during development.
func DefaultDev() []Declaration {
	return declarations(GroupDev, "black", "isort", "autoflake", "flake8", "mypy", "pre-commit", "sopsy", "pyrage")
}

func declarations(g Group, names ...string) []Declaration {
	out := make([]Declaration, 0, len(names))
	for _, n := range names {
		out = append(out, Declaration{Name: n, Group: g})
	}
	return out
}

// Report describes one Install call.
type Report struct {
	Group   Group    `json:"group"`
	Added   []string `json:"added,omitempty"`
	Skipped []string `json:"skipped,omitempty"`
}

// ErrNoDependencyManager indicates the toolchain has no dependency manager.
var ErrNoDependencyManager = errors.New("dependency manager not resolved")

// InstallError reports a failed dependency manager invocation. Stderr holds
// the tool's own diagnostic, verbatim.
type InstallError struct {
	Op     string
	Group  Group
	Stderr string
	Err    error
}

// Error implements the error interface.
func (e *InstallError) Error() string {
	msg := "dependency " + e.Op
	if e.Group != "" {
		msg += " (" + string(e.Group) + ")"
	}
	if e.Stderr != "" {
		return msg + " failed: " + e.Stderr
	}
	return fmt.Sprintf("%s failed: %v", msg, e.Err)
}

// Unwrap returns the underlying error.
func (e *InstallError) Unwrap() error {
	return e.Err
}

// Installer runs the dependency manager inside a project root.
type Installer struct {
	pm     process.ProcessManager
	tc     *toolchain.Toolchain
	root   string
	logger *slog.Logger
}

// NewInstaller creates an installer that runs tc's dependency manager in
// root. A nil logger uses slog.Default().
func NewInstaller(pm process.ProcessManager, tc *toolchain.Toolchain, root string, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{pm: pm, tc: tc, root: root, logger: logger.With("component", "deps")}
}

// EnsureProject creates pyproject.toml with a non-interactive init when it
// does not exist.
func (i *Installer) EnsureProject(ctx context.Context) (created bool, err error) {
	if _, err := os.Stat(filepath.Join(i.root, ProjectFile)); err == nil {
		return false, nil
	}
	name := ProjectName(i.root)
	i.logger.Info("Initializing project file", "name", name)
	if err := i.run(ctx, "init", "", "init", "--no-interaction", "--name", name); err != nil {
		return false, err
	}
	return true, nil
}

// Install declares every entry of decls that is not already declared with
// the same constraint, in a single dependency manager call.
//
// # Outputs
//
//   - *Report: Added and skipped package names.
//   - error: *InstallError with the dependency manager's stderr on failure.
func (i *Installer) Install(ctx context.Context, group Group, decls []Declaration) (*Report, error) {
	report := &Report{Group: group}
	declared, err := ReadDeclared(filepath.Join(i.root, ProjectFile))
	if err != nil {
		return report, &InstallError{Op: "read", Group: group, Err: err}
	}

	var specs []string
	for _, d := range decls {
		if err := d.Validate(); err != nil {
			return report, &InstallError{Op: "validate", Group: group, Err: err}
		}
		if existing, ok := declared.Lookup(group, d.Name); ok && (d.Constraint == "" || sameConstraint(existing, d.Constraint)) {
			report.Skipped = append(report.Skipped, d.Name)
			continue
		}
		specs = append(specs, d.Spec())
		report.Added = append(report.Added, d.Name)
	}
	if len(specs) == 0 {
		i.logger.Debug("All dependencies already declared", "group", group)
		return report, nil
	}

	args := []string{"add"}
	if group != GroupMain {
		args = append(args, "--group", string(group))
	}
	args = append(args, specs...)

	i.logger.Info("Declaring dependencies", "group", group, "packages", report.Added)
	if err := i.run(ctx, "add", group, args...); err != nil {
		report.Added = nil
		return report, err
	}
	return report, nil
}

// Sync installs everything declared into the project environment.
func (i *Installer) Sync(ctx context.Context) error {
	i.logger.Info("Installing declared dependencies")
	return i.run(ctx, "install", "", "install", "--no-interaction", "--no-root")
}

func (i *Installer) run(ctx context.Context, op string, group Group, args ...string) error {
	if i.tc == nil || !i.tc.DependencyManager.Found() {
		return &InstallError{Op: op, Group: group, Err: ErrNoDependencyManager}
	}
	_, err := i.pm.Run(ctx, i.tc.DependencyManager.Path, args, process.RunOptions{
		Dir: i.root,
		Env: i.tc.Env(),
	})
	if err != nil {
		return &InstallError{Op: op, Group: group, Stderr: process.ExtractStderr(err), Err: err}
	}
	return nil
}

var invalidProjectChars = regexp.MustCompile(`[^a-z0-9]+`)

// ProjectName derives a valid package name from the root directory name.
func ProjectName(root string) string {
	name := invalidProjectChars.ReplaceAllString(strings.ToLower(filepath.Base(root)), "-")
	name = strings.Trim(name, "-")
	if name == "" {
		return "project"
	}
	return name
}
