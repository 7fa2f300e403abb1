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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/initializer"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/process"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/toolchain"
)

// runOutput is the --json document for a bootstrap run. Result is present
// whenever the run got past validation, including failed runs.
type runOutput struct {
	APIVersion string              `json:"api_version"`
	Success    bool                `json:"success"`
	ExitCode   int                 `json:"exit_code"`
	Error      string              `json:"error,omitempty"`
	FailedStep initializer.Step    `json:"failed_step,omitempty"`
	Stderr     string              `json:"stderr,omitempty"`
	Fix        string              `json:"fix,omitempty"`
	Result     *initializer.Result `json:"result,omitempty"`
}

// writeJSON encodes v to stdout with two-space indentation.
func (a *app) writeJSON(v any) {
	encoder := json.NewEncoder(a.stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(a.stderr, "Error: failed to encode JSON: %v\n", err)
	}
}

// reportError prints a failure. The message always goes to stderr as
// "Error: ..."; with --json a failure document also goes to stdout.
func (a *app) reportError(opts *options, result *initializer.Result, err error) {
	printer := a.newPrinter(opts.jsonOutput)
	printer.Error(err.Error())

	var fix string
	var toolErr *toolchain.ToolError
	if errors.As(err, &toolErr) {
		fix = toolErr.Remediation
	}
	if fix != "" && !opts.jsonOutput {
		printer.Info("To fix: " + fix)
	}

	if opts.jsonOutput {
		out := runOutput{
			APIVersion: initializer.APIVersion,
			ExitCode:   exitCodeFor(err),
			Error:      err.Error(),
			Stderr:     process.ExtractStderr(err),
			Fix:        fix,
			Result:     result,
		}
		var stepErr *initializer.StepError
		if errors.As(err, &stepErr) {
			out.FailedStep = stepErr.Step
		}
		a.writeJSON(out)
	}
}
