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
	"errors"
	"fmt"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/scaffold"
)

// Exit codes for the bootstrap command.
const (
	ExitSuccess = 0 // All steps completed
	ExitFailure = 1 // A step failed
	ExitBadArgs = 2 // Invalid arguments, project root or configuration
)

// Sentinel errors for root validation.
var (
	ErrEmptyProjectRoot    = errors.New("project root must not be empty")
	ErrRelativeProjectRoot = errors.New("project root must be an absolute path")
	ErrPathNotExist        = errors.New("path does not exist")
	ErrPathNotDirectory    = errors.New("path is not a directory")
	ErrUnexpectedLocation  = errors.New("project root is not the expected directory")
)

// StepError reports the step that aborted a run.
type StepError struct {
	Step Step
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by Run or Check to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return ExitFailure
	}
	for _, bad := range []error{
		ErrEmptyProjectRoot,
		ErrRelativeProjectRoot,
		ErrPathNotExist,
		ErrPathNotDirectory,
		ErrUnexpectedLocation,
		scaffold.ErrInvalidManifest,
	} {
		if errors.Is(err, bad) {
			return ExitBadArgs
		}
	}
	return ExitFailure
}
