// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package initializer

import (
	"fmt"
	"path/filepath"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/deps"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/hooks"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/scaffold"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/secrets"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/toolchain"
)

// APIVersion is the JSON output API version.
const APIVersion = "1.0"

// Step names one stage of a run.
type Step string

const (
	StepToolchain    Step = "toolchain"
	StepScaffold     Step = "scaffold"
	StepDependencies Step = "dependencies"
	StepHooks        Step = "hooks"
	StepSecrets      Step = "secrets"
)

// Steps returns every step in execution order.
func Steps() []Step {
	return []Step{StepToolchain, StepScaffold, StepDependencies, StepHooks, StepSecrets}
}

// Phase is the state a progress update reports.
type Phase string

const (
	PhaseStarted Phase = "started"
	PhaseDone    Phase = "done"
	PhaseFailed  Phase = "failed"
)

// Progress represents one step transition.
type Progress struct {
	Step   Step
	Phase  Phase
	Index  int // 1-based position of Step
	Total  int
	Detail string
}

// ProgressCallback is called as each step starts and finishes.
type ProgressCallback func(Progress)

// Config holds everything a run needs.
//
// # Fields
//
//   - ProjectRoot: Absolute path of the project. Must exist and be a directory.
//   - ExpectedDirName: If set, the base name ProjectRoot must have.
//   - Toolchain: Which runtime and dependency manager to resolve.
//   - Manifest: Directories and files the scaffold guarantees.
//   - RequiredIgnores: Paths an existing .gitignore should cover.
//   - RuntimeDeps, DevDeps: Declarations for the main and dev groups.
//   - Hooks: The commit hook policy written on every run.
//   - EnvelopeName, PlaintextName: Secrets file names inside ProjectRoot.
//   - KeyFile: Decryption key. Empty resolves SOPS_AGE_KEY_FILE or the
//     per-user default.
type Config struct {
	ProjectRoot     string
	ExpectedDirName string
	Toolchain       toolchain.Config
	Manifest        scaffold.Manifest
	RequiredIgnores []string
	RuntimeDeps     []deps.Declaration
	DevDeps         []deps.Declaration
	Hooks           hooks.Policy
	EnvelopeName    string
	PlaintextName   string
	KeyFile         string
}

// DefaultConfig returns the standard bootstrap for projectRoot.
func DefaultConfig(projectRoot string) Config {
	return Config{
		ProjectRoot:     projectRoot,
		Toolchain:       toolchain.DefaultConfig(),
		Manifest:        scaffold.DefaultManifest(),
		RequiredIgnores: secrets.RequiredIgnores(secrets.DefaultPlaintextName),
		RuntimeDeps:     deps.DefaultRuntime(),
		DevDeps:         deps.DefaultDev(),
		Hooks:           hooks.DefaultPolicy(),
		EnvelopeName:    secrets.DefaultEnvelopeName,
		PlaintextName:   secrets.DefaultPlaintextName,
	}
}

// Validate checks that the Config has valid field values. It does not touch
// the filesystem; see ValidateRoot.
func (c Config) Validate() error {
	if c.ProjectRoot == "" {
		return ErrEmptyProjectRoot
	}
	if !filepath.IsAbs(c.ProjectRoot) {
		return fmt.Errorf("%w: %s", ErrRelativeProjectRoot, c.ProjectRoot)
	}
	return c.Manifest.Validate()
}

// Result holds the outcome of a run.
type Result struct {
	APIVersion         string           `json:"api_version"`
	RunID              string           `json:"run_id"`
	TraceID            string           `json:"trace_id,omitempty"`
	ProjectRoot        string           `json:"project_root"`
	Runtime            toolchain.Binary `json:"runtime"`
	DependencyManager  toolchain.Binary `json:"dependency_manager"`
	DirsCreated        int              `json:"dirs_created"`
	FilesCreated       int              `json:"files_created"`
	EntriesPresent     int              `json:"entries_present"`
	ProjectFileCreated bool             `json:"project_file_created"`
	DependenciesAdded  []string         `json:"dependencies_added"`
	HooksConfig        string           `json:"hooks_config,omitempty"`
	Secrets            *secrets.Outcome `json:"secrets,omitempty"`
	CompletedSteps     []Step           `json:"completed_steps"`
	Warnings           []string         `json:"warnings,omitempty"`
	DurationMs         int64            `json:"duration_ms"`
	NextCommand        string           `json:"next_command,omitempty"`
}

// NewResult creates a new Result with the API version set.
func NewResult() *Result {
	return &Result{
		APIVersion:        APIVersion,
		DependenciesAdded: make([]string, 0),
		CompletedSteps:    make([]Step, 0),
		Warnings:          make([]string, 0),
	}
}

// CheckReport is the read-only view of how far a project is from being
// bootstrapped.
type CheckReport struct {
	APIVersion        string           `json:"api_version"`
	ProjectRoot       string           `json:"project_root"`
	Runtime           toolchain.Binary `json:"runtime"`
	RuntimeUsable     bool             `json:"runtime_usable"`
	DependencyManager toolchain.Binary `json:"dependency_manager"`
	Decrypter         toolchain.Binary `json:"decrypter"`
	Scaffold          *scaffold.Report `json:"scaffold"`
	ProjectFile       bool             `json:"project_file"`
	HooksConfig       bool             `json:"hooks_config"`
	Secrets           secrets.State    `json:"secrets"`
	SecretsAction     secrets.Action   `json:"secrets_action"`
	Warnings          []string         `json:"warnings,omitempty"`
}

// Ready reports whether a run would find nothing left to create.
func (r *CheckReport) Ready() bool {
	return r.RuntimeUsable &&
		r.DependencyManager.Found() &&
		r.Scaffold != nil && r.Scaffold.Complete() &&
		r.ProjectFile &&
		r.HooksConfig &&
		r.Secrets.Plaintext
}

// NextCommand returns the command that activates the project environment
// for the given dependency manager version. Poetry 2 dropped "shell".
func NextCommand(dependencyManagerVersion string) string {
	switch toolchain.Major(dependencyManagerVersion) {
	case "0", "1":
		return "poetry shell"
	default:
		return "eval $(poetry env activate)"
	}
}
