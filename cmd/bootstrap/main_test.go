// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/config"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/initializer"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/process"
)

// testHost is a project directory plus fake python3 and poetry binaries.
type testHost struct {
	root   string
	binDir string
	home   string
	mock   *process.MockProcessManager
	stdout bytes.Buffer
	stderr bytes.Buffer
	env    map[string]string

	// declared mirrors what "poetry add" has written, by group.
	declared map[string][]string

	// failAdd makes "poetry add" fail with this stderr.
	failAdd string
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	base := t.TempDir()
	h := &testHost{
		root:     filepath.Join(base, "maplejuris"),
		binDir:   filepath.Join(base, "bin"),
		home:     filepath.Join(base, "home"),
		env:      map[string]string{},
		declared: map[string][]string{},
	}
	for _, d := range []string{h.root, h.binDir, h.home} {
		require.NoError(t, os.MkdirAll(d, 0755))
	}
	for _, name := range []string{"python3", "poetry"} {
		require.NoError(t, os.WriteFile(filepath.Join(h.binDir, name), []byte("#!/bin/sh\n"), 0755))
	}

	h.mock = &process.MockProcessManager{
		RunFunc: func(ctx context.Context, name string, args []string, opts process.RunOptions) (*process.Result, error) {
			switch {
			case len(args) == 1 && args[0] == "--version" && filepath.Base(name) == "python3":
				return &process.Result{Stdout: []byte("Python 3.11.9\n")}, nil
			case len(args) == 1 && args[0] == "--version":
				return &process.Result{Stdout: []byte("Poetry (version 2.1.2)\n")}, nil
			case args[0] == "init":
				return &process.Result{}, h.writePyproject()
			case args[0] == "add" && h.failAdd != "":
				return nil, &process.CommandError{Command: "poetry add", ExitCode: 1, Stderr: h.failAdd}
			case args[0] == "add":
				group, names := "main", args[1:]
				if len(names) > 1 && names[0] == "--group" {
					group, names = names[1], names[2:]
				}
				h.declared[group] = append(h.declared[group], names...)
				return &process.Result{}, h.writePyproject()
			}
			return &process.Result{}, nil
		},
	}
	return h
}

// writePyproject renders the standard project and dependency-groups layout
// a current dependency manager writes.
func (h *testHost) writePyproject() error {
	quoted := func(names []string) string {
		q := make([]string, len(names))
		for i, n := range names {
			q[i] = fmt.Sprintf("%q", n)
		}
		return "[" + strings.Join(q, ", ") + "]"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[project]\nname = \"maplejuris\"\ndependencies = %s\n", quoted(h.declared["main"]))
	fmt.Fprintf(&b, "\n[dependency-groups]\ndev = %s\n", quoted(h.declared["dev"]))
	return os.WriteFile(filepath.Join(h.root, "pyproject.toml"), []byte(b.String()), 0644)
}

func (h *testHost) run(args ...string) int {
	h.stdout.Reset()
	h.stderr.Reset()
	a := &app{
		stdout:     &h.stdout,
		stderr:     &h.stderr,
		getenv:     func(k string) string { return h.env[k] },
		pm:         h.mock,
		searchPath: h.binDir,
		homeDir:    h.home,
	}
	return a.execute(context.Background(), append([]string{"--root", h.root}, args...))
}

// =============================================================================
// Bootstrap Command Tests
// =============================================================================

func TestBootstrap_FreshDirectoryJSON(t *testing.T) {
	h := newTestHost(t)

	code := h.run("--json")
	require.Equal(t, initializer.ExitSuccess, code, "stderr: %s", h.stderr.String())

	var out struct {
		Success bool               `json:"success"`
		Result  initializer.Result `json:"result"`
	}
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Equal(t, 13, out.Result.DirsCreated)
	assert.Equal(t, 10, out.Result.FilesCreated)
	assert.Equal(t, "eval $(poetry env activate)", out.Result.NextCommand)
	assert.Equal(t, h.root, out.Result.ProjectRoot)

	assert.DirExists(t, filepath.Join(h.root, "tests", "load_tests"))
	assert.FileExists(t, filepath.Join(h.root, ".env"))
}

func TestBootstrap_MachineTextOutput(t *testing.T) {
	h := newTestHost(t)

	require.Equal(t, initializer.ExitSuccess, h.run())
	out := h.stdout.String()
	for _, step := range initializer.Steps() {
		assert.Contains(t, out, "\t"+string(step)+"\tok\t")
	}
	assert.Contains(t, out, "SUMMARY: created=23 present=0 warnings=0")
	assert.Contains(t, out, "NEXT: eval $(poetry env activate)")
}

func TestBootstrap_SecondRunCreatesNothing(t *testing.T) {
	h := newTestHost(t)
	require.Equal(t, initializer.ExitSuccess, h.run())
	h.mock.Reset()

	require.Equal(t, initializer.ExitSuccess, h.run())
	assert.Contains(t, h.stdout.String(), "SUMMARY: created=0 present=23")
	assert.NotContains(t, h.stdout.String(), "DECLARED:")
	for _, c := range h.mock.GetCalls() {
		assert.NotEqual(t, "add", c.Args[0], "already declared packages are not added again")
	}
}

func TestBootstrap_MissingRoot(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, os.RemoveAll(h.root))

	code := h.run()
	assert.Equal(t, initializer.ExitBadArgs, code)
	assert.True(t, strings.HasPrefix(h.stderr.String(), "Error: "), h.stderr.String())
	assert.Empty(t, h.mock.GetCalls())
	assert.NoDirExists(t, h.root)
}

func TestBootstrap_StepFailure(t *testing.T) {
	h := newTestHost(t)
	h.failAdd = "Because maplejuris depends on fastapi (^99) which doesn't match any versions, version solving failed."

	code := h.run()
	assert.Equal(t, initializer.ExitFailure, code)
	assert.Contains(t, h.stderr.String(), "Error: step dependencies failed: ")
	assert.Contains(t, h.stderr.String(), "version solving failed")
	assert.NoFileExists(t, filepath.Join(h.root, ".pre-commit-config.yaml"))
}

func TestBootstrap_StepFailureJSON(t *testing.T) {
	h := newTestHost(t)
	h.failAdd = "Could not find a matching version of package sopsy"

	code := h.run("--json")
	assert.Equal(t, initializer.ExitFailure, code)

	var out runOutput
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
	assert.False(t, out.Success)
	assert.Equal(t, initializer.ExitFailure, out.ExitCode)
	assert.Equal(t, initializer.StepDependencies, out.FailedStep)
	assert.Equal(t, h.failAdd, out.Stderr)
	require.NotNil(t, out.Result)
	assert.Equal(t, []initializer.Step{initializer.StepToolchain, initializer.StepScaffold}, out.Result.CompletedSteps)
	assert.Contains(t, h.stderr.String(), "Error: step dependencies failed")
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.root, config.FileName), []byte("scaffold:\n  dirs: [/etc]\n"), 0644))

	assert.Equal(t, initializer.ExitBadArgs, h.run())
	assert.Contains(t, h.stderr.String(), "invalid config")
	assert.Empty(t, h.mock.GetCalls())
}

func TestBootstrap_ExplicitConfigMustExist(t *testing.T) {
	h := newTestHost(t)
	assert.Equal(t, initializer.ExitBadArgs, h.run("--config", filepath.Join(h.home, "nope.yaml")))
}

func TestBootstrap_ConfigOverridesScaffold(t *testing.T) {
	h := newTestHost(t)
	cfg := "scaffold:\n  dirs: [app, tests]\n  files:\n    - path: app/__init__.py\n"
	require.NoError(t, os.WriteFile(filepath.Join(h.root, config.FileName), []byte(cfg), 0644))

	require.Equal(t, initializer.ExitSuccess, h.run())
	assert.FileExists(t, filepath.Join(h.root, "app", "__init__.py"))
	assert.NoDirExists(t, filepath.Join(h.root, "agents"))
}

func TestBootstrap_UnknownFlag(t *testing.T) {
	h := newTestHost(t)
	assert.Equal(t, initializer.ExitBadArgs, h.run("--frobnicate"))
	assert.Contains(t, h.stderr.String(), "Error: unknown flag")
}

func TestBootstrap_DiagnosticsFiles(t *testing.T) {
	h := newTestHost(t)
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "trace.json")
	metricsPath := filepath.Join(dir, "metrics.json")
	logDir := filepath.Join(dir, "logs")

	require.Equal(t, initializer.ExitSuccess, h.run("--trace-file", tracePath, "--metrics-file", metricsPath, "--log-dir", logDir, "--verbose"))

	trace, err := os.ReadFile(tracePath)
	require.NoError(t, err)
	assert.Contains(t, string(trace), "bootstrap.scaffold")

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "bootstrap.step.duration")

	logs, err := os.ReadDir(logDir)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, strings.HasPrefix(logs[0].Name(), "bootstrap_"))
	assert.Contains(t, h.stdout.String(), "TRACE_ID: ")
}

func TestBootstrap_PersonalityFromEnv(t *testing.T) {
	h := newTestHost(t)
	h.env["BOOTSTRAP_PERSONALITY"] = "minimal"

	require.Equal(t, initializer.ExitSuccess, h.run())
	assert.Contains(t, h.stdout.String(), "[1/5] ✓ toolchain")
	assert.Contains(t, h.stdout.String(), "Project bootstrapped")
}

// =============================================================================
// Check Command Tests
// =============================================================================

func TestCheck_BeforeAndAfter(t *testing.T) {
	h := newTestHost(t)

	assert.Equal(t, initializer.ExitFailure, h.run("check"))
	entries, err := os.ReadDir(h.root)
	require.NoError(t, err)
	assert.Empty(t, entries, "check must not create anything")

	require.Equal(t, initializer.ExitSuccess, h.run())

	code := h.run("check", "--json")
	require.Equal(t, initializer.ExitSuccess, code, h.stdout.String())
	var out checkOutput
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
	assert.True(t, out.Ready)
}

func TestCheck_TextListsMissing(t *testing.T) {
	h := newTestHost(t)
	h.env["BOOTSTRAP_PERSONALITY"] = "standard"

	assert.Equal(t, initializer.ExitFailure, h.run("check"))
	assert.Contains(t, h.stdout.String(), "23 missing")
	assert.Contains(t, h.stdout.String(), "decryption tool")
	assert.Contains(t, h.stdout.String(), "not fully bootstrapped")
}

// =============================================================================
// Config and Version Command Tests
// =============================================================================

func TestConfigShow(t *testing.T) {
	h := newTestHost(t)
	require.NoError(t, os.WriteFile(filepath.Join(h.root, config.FileName), []byte("expected_dir_name: maplejuris\n"), 0644))

	require.Equal(t, initializer.ExitSuccess, h.run("config"))
	assert.Contains(t, h.stdout.String(), "expected_dir_name: maplejuris")
	assert.Contains(t, h.stdout.String(), "runtime_name: python3")
}

func TestConfigInit(t *testing.T) {
	h := newTestHost(t)

	require.Equal(t, initializer.ExitSuccess, h.run("config", "init"))
	path := filepath.Join(h.root, config.FileName)
	assert.FileExists(t, path)

	_, err := config.Load(path, true)
	assert.NoError(t, err, "the generated file must load")

	require.Equal(t, initializer.ExitSuccess, h.run("config", "init"))
	assert.Contains(t, h.stdout.String(), "already exists")
}

func TestVersion(t *testing.T) {
	h := newTestHost(t)

	require.Equal(t, initializer.ExitSuccess, h.run("version"))
	assert.True(t, strings.HasPrefix(h.stdout.String(), "bootstrap dev ("))

	require.Equal(t, initializer.ExitSuccess, h.run("version", "--json"))
	var out map[string]string
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
	assert.Equal(t, "dev", out["version"])
}
