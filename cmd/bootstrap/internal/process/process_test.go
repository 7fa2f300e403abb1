// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

// =============================================================================
// LookPath Tests
// =============================================================================

func TestLookPath_FindsFirstExecutable(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeExecutable(t, second, "tool", "exit 0")
	want := writeExecutable(t, first, "tool", "exit 0")

	got, err := LookPath("tool", JoinSearchPath(first, second))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLookPath_SkipsNonExecutable(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tool"), []byte("data"), 0644))

	_, err := LookPath("tool", dir)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookPath_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "tool"), 0755))

	_, err := LookPath("tool", dir)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookPath_AbsoluteName(t *testing.T) {
	dir := t.TempDir()
	path := writeExecutable(t, dir, "tool", "exit 0")

	got, err := LookPath(path, "")
	require.NoError(t, err)
	assert.Equal(t, path, got)

	_, err = LookPath(filepath.Join(dir, "missing"), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestJoinSearchPath_DropsEmptyAndDuplicates(t *testing.T) {
	sep := string(os.PathListSeparator)
	got := JoinSearchPath("/a", "", "/b", "/a", "/c")
	assert.Equal(t, strings.Join([]string{"/a", "/b", "/c"}, sep), got)
}

// =============================================================================
// DefaultProcessManager Tests
// =============================================================================

func TestDefaultProcessManager_CapturesStdout(t *testing.T) {
	dir := t.TempDir()
	writeExecutable(t, dir, "hello", `echo "hello $GREETING_TARGET"`)

	pm := NewDefaultProcessManager()
	res, err := pm.Run(context.Background(), "hello", nil, RunOptions{
		Env: map[string]string{"PATH": dir + string(os.PathListSeparator) + "/bin:/usr/bin", "GREETING_TARGET": "world"},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", string(res.Stdout))
	assert.Equal(t, 0, res.ExitCode)
}

func TestDefaultProcessManager_NonZeroExitKeepsStderr(t *testing.T) {
	dir := t.TempDir()
	script := writeExecutable(t, dir, "fail", `echo "resolution failed" 1>&2; exit 3`)

	pm := NewDefaultProcessManager()
	res, err := pm.Run(context.Background(), script, []string{"add", "fastapi"}, RunOptions{})
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, 3, cmdErr.ExitCode)
	assert.Equal(t, "resolution failed", cmdErr.Stderr)
	assert.Contains(t, cmdErr.Error(), "add fastapi")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "resolution failed", ExtractStderr(err))
}

func TestDefaultProcessManager_ReasonOnStdoutOnly(t *testing.T) {
	dir := t.TempDir()
	script := writeExecutable(t, dir, "poetry",
		`echo "An error has occurred: FatalError: git failed. Is it installed, and are you in a Git repository directory?"; exit 1`)

	pm := NewDefaultProcessManager()
	_, err := pm.Run(context.Background(), script, []string{"run", "pre-commit", "install"}, RunOptions{})
	require.Error(t, err)

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Empty(t, cmdErr.Stderr)
	assert.Contains(t, cmdErr.Stdout, "are you in a Git repository directory?")
	assert.Contains(t, err.Error(), "(exit 1): An error has occurred")
	assert.Contains(t, ExtractStderr(fmt.Errorf("registering hooks: %w", err)), "Git repository")
}

func TestCommandError_PrefersStderr(t *testing.T) {
	err := &CommandError{Command: "poetry add x", ExitCode: 1, Stderr: "solver failed", Stdout: "Updating dependencies"}
	assert.Equal(t, "solver failed", err.Reason())
	assert.Equal(t, "poetry add x (exit 1): solver failed", err.Error())

	bare := &CommandError{Command: "poetry add x", ExitCode: 2}
	assert.Equal(t, "poetry add x (exit 2)", bare.Error())
}

func TestDefaultProcessManager_MissingOnSearchPath(t *testing.T) {
	pm := NewDefaultProcessManager()
	_, err := pm.Run(context.Background(), "definitely-not-installed", nil, RunOptions{
		Env: map[string]string{"PATH": t.TempDir()},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDefaultProcessManager_WorkingDirAndStdin(t *testing.T) {
	dir := t.TempDir()
	script := writeExecutable(t, dir, "catpwd", `pwd -P; cat`)

	pm := NewDefaultProcessManager()
	res, err := pm.Run(context.Background(), script, nil, RunOptions{Dir: dir, Stdin: []byte("piped")})
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, resolved+"\npiped", string(res.Stdout))
}

// =============================================================================
// MockProcessManager Tests
// =============================================================================

func TestMockProcessManager_RecordsCalls(t *testing.T) {
	mock := &MockProcessManager{}
	_, err := mock.Run(context.Background(), "poetry", []string{"install"}, RunOptions{Dir: "/project"})
	require.NoError(t, err)

	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "poetry install", calls[0].CommandLine())
	assert.Equal(t, "/project", calls[0].Opts.Dir)

	mock.Reset()
	assert.Empty(t, mock.GetCalls())
}

func TestMockProcessManager_DelegatesToRunFunc(t *testing.T) {
	want := errors.New("boom")
	mock := &MockProcessManager{
		RunFunc: func(ctx context.Context, name string, args []string, opts RunOptions) (*Result, error) {
			return nil, want
		},
	}
	_, err := mock.Run(context.Background(), "x", nil, RunOptions{})
	assert.ErrorIs(t, err, want)
}
