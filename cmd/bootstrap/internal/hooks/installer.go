// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hooks writes the commit hook configuration and registers the hook
// runner with git.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/process"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/toolchain"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/util"
)

// ErrNoDependencyManager indicates the hook runner cannot be reached because
// the toolchain has no dependency manager.
var ErrNoDependencyManager = errors.New("dependency manager not resolved")

// RegisterError reports a failed hook registration, e.g. when the project
// root is not inside a git repository.
type RegisterError struct {
	Stderr string
	Err    error
}

// Error implements the error interface.
func (e *RegisterError) Error() string {
	if e.Stderr != "" {
		return "registering hooks: " + e.Stderr
	}
	return fmt.Sprintf("registering hooks: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RegisterError) Unwrap() error {
	return e.Err
}

// Installer writes the policy file and registers it.
type Installer struct {
	pm     process.ProcessManager
	tc     *toolchain.Toolchain
	root   string
	logger *slog.Logger
}

// NewInstaller creates a hook installer for root. A nil logger uses slog.Default().
func NewInstaller(pm process.ProcessManager, tc *toolchain.Toolchain, root string, logger *slog.Logger) *Installer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Installer{pm: pm, tc: tc, root: root, logger: logger.With("component", "hooks")}
}

// ConfigPath returns the location of the hook configuration file.
func (i *Installer) ConfigPath() string {
	return filepath.Join(i.root, ConfigFileName)
}

// Install overwrites the configuration file with policy and runs the hook
// runner's install through the dependency manager.
//
// # Description
//
// The file is rewritten in full on every call, discarding local edits. A
// registration failure is returned as *RegisterError; the written file is
// kept.
//
// # Outputs
//
//   - string: Path of the written configuration file.
//   - error: Render, write or registration failure.
func (i *Installer) Install(ctx context.Context, policy Policy) (string, error) {
	data, err := Render(policy)
	if err != nil {
		return "", err
	}
	path := i.ConfigPath()
	if err := util.WriteFileAtomic(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", ConfigFileName, err)
	}
	i.logger.Debug("Hook configuration written", "path", path, "repos", len(policy.Repos))

	if i.tc == nil || !i.tc.DependencyManager.Found() {
		return path, &RegisterError{Err: ErrNoDependencyManager}
	}
	_, err = i.pm.Run(ctx, i.tc.DependencyManager.Path, []string{"run", "pre-commit", "install"}, process.RunOptions{
		Dir: i.root,
		Env: i.tc.Env(),
	})
	if err != nil {
		return path, &RegisterError{Stderr: process.ExtractStderr(err), Err: err}
	}
	i.logger.Info("Commit hooks registered", "path", path)
	return path, nil
}
