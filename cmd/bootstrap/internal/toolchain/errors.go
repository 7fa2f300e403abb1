// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package toolchain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrToolNotFound indicates a tool is still missing after its installer ran.
	ErrToolNotFound = errors.New("tool not found")

	// ErrVersionTooOld indicates the only runtime available is below the minimum.
	ErrVersionTooOld = errors.New("version below required minimum")
)

// ToolError describes a tool that could not be made available.
type ToolError struct {
	// Tool is the executable name, e.g. "python3".
	Tool string

	// Op is the stage that failed: "probe", "install" or "resolve".
	Op string

	// Err is the underlying cause.
	Err error

	// Remediation suggests how to fix the issue by hand.
	Remediation string
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Tool, e.Err)
}

// Unwrap returns the underlying error.
func (e *ToolError) Unwrap() error {
	return e.Err
}

// FullError returns the message followed by the remediation, if any.
func (e *ToolError) FullError() string {
	var b strings.Builder
	b.WriteString(e.Error())
	if e.Remediation != "" {
		b.WriteString("\n\nTo fix:\n")
		b.WriteString(e.Remediation)
	}
	return b.String()
}
