// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// PersonalityEnv overrides terminal detection.
const PersonalityEnv = "BOOTSTRAP_PERSONALITY"

// PersonalityLevel defines the verbosity and richness of CLI output
type PersonalityLevel string

const (
	// PersonalityFull enables colors, icons, boxes and the closing banner
	PersonalityFull PersonalityLevel = "full"

	// PersonalityStandard enables colors and icons without boxes
	PersonalityStandard PersonalityLevel = "standard"

	// PersonalityMinimal uses icons and no color
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine outputs plain "KEY: value" lines for scripts
	PersonalityMachine PersonalityLevel = "machine"
)

// ParsePersonalityLevel converts a string to PersonalityLevel. Unknown
// values fall back to standard.
func ParsePersonalityLevel(s string) PersonalityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "f":
		return PersonalityFull
	case "standard", "std", "s":
		return PersonalityStandard
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "quiet", "q":
		return PersonalityMachine
	default:
		return PersonalityStandard
	}
}

// DetectPersonality picks the level for output written to out.
//
// BOOTSTRAP_PERSONALITY wins when set. Otherwise a non-terminal gets
// machine output and a terminal gets full output, reduced to minimal when
// NO_COLOR is set.
func DetectPersonality(getenv func(string) string, out *os.File) PersonalityLevel {
	if v := getenv(PersonalityEnv); v != "" {
		return ParsePersonalityLevel(v)
	}
	if out == nil || !IsTerminal(out) {
		return PersonalityMachine
	}
	if getenv("NO_COLOR") != "" {
		return PersonalityMinimal
	}
	return PersonalityFull
}

// IsTerminal reports whether f is a terminal, including Cygwin/MSYS ptys.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ShowsProgress reports whether in-flight progress, such as a step starting,
// is printed.
func (l PersonalityLevel) ShowsProgress() bool {
	return l != PersonalityMachine
}

// UsesColor reports whether styles carry color.
func (l PersonalityLevel) UsesColor() bool {
	return l == PersonalityFull || l == PersonalityStandard
}
