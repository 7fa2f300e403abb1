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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/deps"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/diagnostics"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/hooks"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/process"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/scaffold"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/secrets"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/toolchain"
)

// Bootstrapper defines the interface for bootstrapping a project.
type Bootstrapper interface {
	// Run executes every step against cfg.ProjectRoot.
	Run(ctx context.Context, cfg Config, progress ProgressCallback) (*Result, error)

	// Check reports what Run would still have to do, without doing it.
	Check(ctx context.Context, cfg Config) (*CheckReport, error)
}

// Initializer runs the bootstrap steps.
type Initializer struct {
	pm      process.ProcessManager
	logger  *slog.Logger
	tracer  diagnostics.Tracer
	metrics diagnostics.Metrics
	getenv  func(string) string
}

// Compile-time interface verification.
var _ Bootstrapper = (*Initializer)(nil)

// NewInitializer creates a new Initializer.
//
// # Inputs
//
//   - pm: Runs every external command. Must not be nil.
//   - logger: Structured logger. Nil uses slog.Default().
//   - tracer: Receives one span per step. Nil records nothing.
//   - metrics: Receives one duration per step. Nil records nothing.
func NewInitializer(pm process.ProcessManager, logger *slog.Logger, tracer diagnostics.Tracer, metrics diagnostics.Metrics) *Initializer {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = diagnostics.NewNoOpTracer()
	}
	if metrics == nil {
		metrics = diagnostics.NewNoOpMetrics()
	}
	return &Initializer{pm: pm, logger: logger, tracer: tracer, metrics: metrics, getenv: os.Getenv}
}

// ValidateRoot checks that root exists, is a directory and, when expected
// is set, has that base name.
func ValidateRoot(root, expected string) error {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrPathNotExist, root)
	}
	if err != nil {
		return fmt.Errorf("stat project root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrPathNotDirectory, root)
	}
	if expected != "" && filepath.Base(root) != expected {
		return fmt.Errorf("%w: %s is not %s", ErrUnexpectedLocation, root, expected)
	}
	return nil
}

// run carries the state steps hand to one another.
type run struct {
	cfg       Config
	logger    *slog.Logger
	result    *Result
	toolchain *toolchain.Toolchain
}

// Run bootstraps the project.
//
// # Description
//
// Validates the root, then runs toolchain, scaffold, dependencies, hooks and
// secrets in that order. Nothing is created when the root is invalid.
//
// # Inputs
//
//   - ctx: Cancelling it aborts the running subprocess and the run.
//   - cfg: Must pass cfg.Validate().
//   - progress: Called as each step starts and ends. May be nil.
//
// # Outputs
//
//   - *Result: Filled in as far as the run got. Nil only for an invalid
//     config or root.
//   - error: *StepError naming the failed step, or a root/config error.
func (i *Initializer) Run(ctx context.Context, cfg Config, progress ProgressCallback) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := ValidateRoot(cfg.ProjectRoot, cfg.ExpectedDirName); err != nil {
		return nil, err
	}

	start := time.Now()
	r := &run{cfg: cfg, result: NewResult()}
	r.result.RunID = uuid.NewString()
	r.result.ProjectRoot = cfg.ProjectRoot
	r.logger = i.logger.With("run_id", r.result.RunID)

	ctx, finishRun := i.tracer.StartSpan(ctx, "bootstrap.run", map[string]string{
		"run_id":       r.result.RunID,
		"project_root": cfg.ProjectRoot,
	})
	r.result.TraceID = i.tracer.TraceID(ctx)
	r.logger.Info("Bootstrap started", "project_root", cfg.ProjectRoot)

	steps := []struct {
		step Step
		fn   func(context.Context, *run) (string, error)
	}{
		{StepToolchain, i.stepToolchain},
		{StepScaffold, i.stepScaffold},
		{StepDependencies, i.stepDependencies},
		{StepHooks, i.stepHooks},
		{StepSecrets, i.stepSecrets},
	}

	for idx, s := range steps {
		report := func(phase Phase, detail string) {
			if progress != nil {
				progress(Progress{Step: s.step, Phase: phase, Index: idx + 1, Total: len(steps), Detail: detail})
			}
		}

		if err := ctx.Err(); err != nil {
			finishRun(err)
			return r.result, &StepError{Step: s.step, Err: err}
		}

		report(PhaseStarted, "")
		stepCtx, finish := i.tracer.StartSpan(ctx, "bootstrap."+string(s.step), map[string]string{
			"run_id": r.result.RunID,
			"step":   string(s.step),
		})
		stepStart := time.Now()
		detail, err := s.fn(stepCtx, r)
		finish(err)
		i.metrics.RecordStep(ctx, string(s.step), time.Since(stepStart), err)

		if err != nil {
			report(PhaseFailed, err.Error())
			r.logger.Error("Bootstrap step failed", "step", s.step, "error", err)
			r.result.DurationMs = time.Since(start).Milliseconds()
			finishRun(err)
			return r.result, &StepError{Step: s.step, Err: err}
		}
		r.result.CompletedSteps = append(r.result.CompletedSteps, s.step)
		report(PhaseDone, detail)
	}

	r.result.NextCommand = NextCommand(r.result.DependencyManager.Version)
	r.result.DurationMs = time.Since(start).Milliseconds()
	finishRun(nil)
	r.logger.Info("Bootstrap complete", "duration_ms", r.result.DurationMs, "warnings", len(r.result.Warnings))
	return r.result, nil
}

func (i *Initializer) stepToolchain(ctx context.Context, r *run) (string, error) {
	tc, err := toolchain.NewResolver(i.pm, r.cfg.Toolchain, r.logger).Resolve(ctx)
	if err != nil {
		return "", err
	}
	r.toolchain = tc
	r.result.Runtime = tc.Runtime
	r.result.DependencyManager = tc.DependencyManager
	return fmt.Sprintf("%s %s, %s %s",
		tc.Runtime.Name, displayVersion(tc.Runtime.Version),
		tc.DependencyManager.Name, displayVersion(tc.DependencyManager.Version)), nil
}

func (i *Initializer) stepScaffold(_ context.Context, r *run) (string, error) {
	report, err := scaffold.NewBuilder(r.cfg.ProjectRoot, r.logger, r.cfg.RequiredIgnores...).Ensure(r.cfg.Manifest)
	if err != nil {
		return "", err
	}
	r.result.DirsCreated = report.Count(scaffold.KindDir, scaffold.StatusCreated)
	r.result.FilesCreated = report.Count(scaffold.KindFile, scaffold.StatusCreated)
	r.result.EntriesPresent = len(report.Paths(scaffold.StatusPresent))
	r.result.Warnings = append(r.result.Warnings, report.Warnings...)
	return fmt.Sprintf("%d created, %d already present",
		r.result.DirsCreated+r.result.FilesCreated, r.result.EntriesPresent), nil
}

func (i *Initializer) stepDependencies(ctx context.Context, r *run) (string, error) {
	inst := deps.NewInstaller(i.pm, r.toolchain, r.cfg.ProjectRoot, r.logger)

	created, err := inst.EnsureProject(ctx)
	if err != nil {
		return "", err
	}
	r.result.ProjectFileCreated = created

	for _, g := range []struct {
		group deps.Group
		decls []deps.Declaration
	}{
		{deps.GroupMain, r.cfg.RuntimeDeps},
		{deps.GroupDev, r.cfg.DevDeps},
	} {
		report, err := inst.Install(ctx, g.group, g.decls)
		if err != nil {
			return "", err
		}
		r.result.DependenciesAdded = append(r.result.DependenciesAdded, report.Added...)
	}

	if err := inst.Sync(ctx); err != nil {
		return "", err
	}
	if len(r.result.DependenciesAdded) == 0 {
		return "all declared", nil
	}
	return fmt.Sprintf("%d added", len(r.result.DependenciesAdded)), nil
}

func (i *Initializer) stepHooks(ctx context.Context, r *run) (string, error) {
	path, err := hooks.NewInstaller(i.pm, r.toolchain, r.cfg.ProjectRoot, r.logger).Install(ctx, r.cfg.Hooks)
	if err != nil {
		return "", err
	}
	r.result.HooksConfig = path
	return hooks.ConfigFileName, nil
}

func (i *Initializer) stepSecrets(ctx context.Context, r *run) (string, error) {
	paths := i.secretPaths(r.cfg)
	if w := keyFileWarning(r.cfg.ProjectRoot, paths.KeyFile); w != "" {
		r.logger.Warn("Key file inside project", "key_file", paths.KeyFile)
		r.result.Warnings = append(r.result.Warnings, w)
	}
	dec := secrets.NewSopsDecrypter(i.pm, r.toolchain, r.cfg.ProjectRoot)
	out, err := secrets.NewProvisioner(paths, dec, r.logger).Provision(ctx)
	if err != nil {
		return "", err
	}
	r.result.Secrets = out
	return string(out.Action), nil
}

// secretPaths resolves the key file when the config leaves it empty.
func (i *Initializer) secretPaths(cfg Config) secrets.Paths {
	keyFile := cfg.KeyFile
	if keyFile == "" {
		home := cfg.Toolchain.HomeDir
		if home == "" {
			home, _ = os.UserHomeDir()
		}
		goos := cfg.Toolchain.GOOS
		if goos == "" {
			goos = runtime.GOOS
		}
		keyFile = secrets.DefaultKeyFile(i.getenv, home, goos)
	}
	return secrets.ProjectPaths(cfg.ProjectRoot, cfg.EnvelopeName, cfg.PlaintextName, keyFile)
}

// Check inspects the project without installing, creating or decrypting
// anything.
func (i *Initializer) Check(ctx context.Context, cfg Config) (*CheckReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := ValidateRoot(cfg.ProjectRoot, cfg.ExpectedDirName); err != nil {
		return nil, err
	}
	report := &CheckReport{APIVersion: APIVersion, ProjectRoot: cfg.ProjectRoot}

	resolver := toolchain.NewResolver(i.pm, cfg.Toolchain, i.logger)
	report.Runtime, report.RuntimeUsable = resolver.ProbeRuntime(ctx)
	report.DependencyManager = resolver.Probe(ctx, cfg.Toolchain.DependencyManagerName)
	report.Decrypter = resolver.Probe(ctx, secrets.DecryptToolName)
	if report.Runtime.Found() && !report.RuntimeUsable {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s %s is older than %s",
			report.Runtime.Name, displayVersion(report.Runtime.Version), cfg.Toolchain.MinRuntimeVersion))
	}

	plan, err := scaffold.NewBuilder(cfg.ProjectRoot, i.logger, cfg.RequiredIgnores...).Plan(cfg.Manifest)
	if err != nil {
		return nil, err
	}
	report.Scaffold = plan
	report.Warnings = append(report.Warnings, plan.Warnings...)

	report.ProjectFile = fileExists(filepath.Join(cfg.ProjectRoot, deps.ProjectFile))
	report.HooksConfig = fileExists(filepath.Join(cfg.ProjectRoot, hooks.ConfigFileName))

	paths := i.secretPaths(cfg)
	state, err := secrets.NewProvisioner(paths, nil, i.logger).Inspect()
	if err != nil {
		return nil, err
	}
	report.Secrets = state
	report.SecretsAction = secrets.Decide(state)
	if state.Envelope && !report.Decrypter.Found() {
		report.Warnings = append(report.Warnings, fmt.Sprintf("%s not found on the search path; %s cannot be decrypted",
			secrets.DecryptToolName, filepath.Base(paths.Envelope)))
	}
	if w := keyFileWarning(cfg.ProjectRoot, paths.KeyFile); w != "" {
		report.Warnings = append(report.Warnings, w)
	}
	return report, nil
}

func keyFileWarning(root, keyFile string) string {
	if !secrets.InsideRoot(root, keyFile) {
		return ""
	}
	return fmt.Sprintf("key file %s is inside the project; move it out and point %s at it",
		keyFile, secrets.KeyFileEnv)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// displayVersion strips the semver "v" for human output.
func displayVersion(v string) string {
	if v == "" {
		return "(unknown version)"
	}
	return strings.TrimPrefix(v, "v")
}
