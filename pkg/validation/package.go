// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for values that are
// passed to subprocesses.
//
// Package names and version constraints from config files end up as
// arguments to the dependency manager. Validating them first keeps a value
// such as "--source=evil" from being read as a flag.
package validation

import (
	"fmt"
	"regexp"
)

// packageNamePattern matches a distribution name with optional extras.
// Allows: letters, digits, and ".", "_", "-" between them, e.g. "uvicorn[standard]"
var packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9._-]*[A-Za-z0-9])?(\[[A-Za-z0-9._-]+(,[A-Za-z0-9._-]+)*\])?$`)

// constraintPattern matches the version constraint syntax dependency
// managers accept: "^1.2", "~=3.1", ">=2,<3", "1.0.0-beta.1", "*".
// Max length: 64 characters
var constraintPattern = regexp.MustCompile(`^[A-Za-z0-9.*^~<>=!,+ ][A-Za-z0-9.*^~<>=!,+ -]{0,63}$`)

// ValidatePackageName validates a package name before it is used as a
// dependency manager argument.
//
// Valid names:
//   - Start and end with a letter or digit
//   - Letters, digits, dots, underscores and hyphens in between
//   - An optional extras list such as [standard] or [postgres,async]
//
// Example:
//
//	if err := validation.ValidatePackageName(decl.Name); err != nil {
//	    return fmt.Errorf("invalid dependency: %w", err)
//	}
func ValidatePackageName(name string) error {
	if name == "" {
		return fmt.Errorf("package name cannot be empty")
	}

	if !packageNamePattern.MatchString(name) {
		return fmt.Errorf("invalid package name: %q (must start and end with a letter or digit)", name)
	}

	return nil
}

// ValidatePackageNames validates multiple package names.
// Returns an error listing all invalid names if any fail validation.
func ValidatePackageNames(names []string) error {
	var invalid []string
	for _, n := range names {
		if err := ValidatePackageName(n); err != nil {
			invalid = append(invalid, n)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid package names: %q", invalid)
	}
	return nil
}

// ValidateConstraint validates a version constraint. An empty constraint is
// valid and means "latest compatible".
func ValidateConstraint(constraint string) error {
	if constraint == "" {
		return nil
	}

	if !constraintPattern.MatchString(constraint) {
		return fmt.Errorf("invalid version constraint: %q", constraint)
	}

	return nil
}
