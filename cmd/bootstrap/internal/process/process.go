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
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// RunOptions holds optional parameters for a command execution.
type RunOptions struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is overlaid on the inherited environment. A "PATH" entry is also
	// used to resolve bare command names.
	Env map[string]string

	// Stdin is piped to the process when non-nil.
	Stdin []byte
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ProcessManager runs external commands to completion.
//
// # Description
//
// Every bootstrap step that shells out depends on this interface rather than
// on os/exec, so the whole run can be exercised with MockProcessManager.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ProcessManager interface {
	// Run executes name with args and blocks until it exits.
	//
	// # Outputs
	//
	//   - *Result: Captured output. Non-nil whenever the process started.
	//   - error: *CommandError for a non-zero exit; a wrapped ErrNotFound or
	//     start error when the process never ran; ctx.Err() on cancellation.
	Run(ctx context.Context, name string, args []string, opts RunOptions) (*Result, error)
}

// -----------------------------------------------------------------------------
// Production Implementation
// -----------------------------------------------------------------------------

// DefaultProcessManager implements ProcessManager using os/exec.
type DefaultProcessManager struct{}

// NewDefaultProcessManager creates a ProcessManager that executes real processes.
func NewDefaultProcessManager() *DefaultProcessManager {
	return &DefaultProcessManager{}
}

// Run executes a command synchronously and captures stdout and stderr.
func (pm *DefaultProcessManager) Run(ctx context.Context, name string, args []string, opts RunOptions) (*Result, error) {
	path := name
	if searchPath, ok := opts.Env["PATH"]; ok && !strings.ContainsRune(name, filepath.Separator) {
		resolved, err := LookPath(name, searchPath)
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		// exec keeps the last value for duplicate keys, so appending overrides.
		cmd.Env = append(cmd.Environ(), envSlice(opts.Env)...)
	}
	if opts.Stdin != nil {
		cmd.Stdin = bytes.NewReader(opts.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}
	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s: %w", commandLine(name, args), ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, &CommandError{
			Command:  commandLine(name, args),
			ExitCode: result.ExitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Stdout:   strings.TrimSpace(stdout.String()),
		}
	}
	return nil, fmt.Errorf("starting %s: %w", name, err)
}

// envSlice renders an overlay map as KEY=VALUE entries in a stable order.
func envSlice(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockProcessManager is a test double for ProcessManager.
//
// Configure RunFunc before use. If RunFunc is nil every call succeeds with
// empty output.
//
// # Examples
//
//	mock := &MockProcessManager{
//	    RunFunc: func(ctx context.Context, name string, args []string, opts RunOptions) (*Result, error) {
//	        if filepath.Base(name) == "python3" {
//	            return &Result{Stdout: []byte("Python 3.12.4\n")}, nil
//	        }
//	        return &Result{}, nil
//	    },
//	}
type MockProcessManager struct {
	// RunFunc is called when Run is invoked.
	RunFunc func(ctx context.Context, name string, args []string, opts RunOptions) (*Result, error)

	// Calls records all invocations for verification.
	Calls []Call

	mu sync.Mutex
}

// Call records a single Run invocation.
type Call struct {
	Name string
	Args []string
	Opts RunOptions
}

// CommandLine returns the call as a single space-joined string.
func (c Call) CommandLine() string {
	return commandLine(c.Name, c.Args)
}

// Run records the call and delegates to RunFunc.
func (m *MockProcessManager) Run(ctx context.Context, name string, args []string, opts RunOptions) (*Result, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, Call{Name: name, Args: append([]string(nil), args...), Opts: opts})
	fn := m.RunFunc
	m.mu.Unlock()

	if fn == nil {
		return &Result{}, nil
	}
	return fn(ctx, name, args, opts)
}

// Reset clears all recorded calls.
func (m *MockProcessManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockProcessManager) GetCalls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Call, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ ProcessManager = (*DefaultProcessManager)(nil)
	_ ProcessManager = (*MockProcessManager)(nil)
)
