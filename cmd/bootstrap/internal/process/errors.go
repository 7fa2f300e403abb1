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
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when an executable cannot be located on a search path.
var ErrNotFound = errors.New("executable not found")

// CommandError describes a command that ran but exited with a non-zero status.
//
// # Description
//
// Carries the command line, exit code and the tool's stderr so the operator
// sees the underlying diagnostic verbatim. Supports errors.As.
//
// # Example
//
//	var cmdErr *CommandError
//	if errors.As(err, &cmdErr) {
//	    fmt.Println(cmdErr.Stderr)
//	}
type CommandError struct {
	// Command is the command line that was executed.
	Command string

	// ExitCode is the process exit code (-1 if unknown).
	ExitCode int

	// Stderr contains the trimmed standard error output.
	Stderr string

	// Stdout contains the trimmed standard output. Some tools, pre-commit
	// among them, print their failure reason there.
	Stdout string
}

// Reason returns the tool's own diagnostic: stderr, or stdout when stderr
// is empty.
func (e *CommandError) Reason() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return e.Stdout
}

// Error returns "<command> (exit N): <reason>".
func (e *CommandError) Error() string {
	reason := e.Reason()
	if reason == "" {
		return fmt.Sprintf("%s (exit %d)", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s (exit %d): %s", e.Command, e.ExitCode, reason)
}

// ExtractStderr returns the diagnostic text of a *CommandError anywhere in
// the chain (stderr, or stdout when stderr was empty), or "" if there is none.
func ExtractStderr(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Reason()
	}
	return ""
}

// commandLine joins a command name and its arguments for messages and logs.
func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
