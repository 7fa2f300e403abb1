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
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseVersion extracts the first dotted version number from a tool's
// --version output and returns it in canonical semver form.
//
// "Python 3.12.4" yields "v3.12.4" and "Poetry (version 1.8.3)" yields
// "v1.8.3". A two-part version gains a ".0" patch. The boolean is false when
// no version number is present.
func ParseVersion(output string) (string, bool) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	v := "v" + m[1] + "." + m[2] + "." + patch
	if !semver.IsValid(v) {
		return "", false
	}
	return v, true
}

// Canonical normalizes "3.10", "v3.10" or "3.10.2" into semver form.
// It returns "" for anything semver rejects.
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return semver.Canonical(v)
}

// MeetsMinimum reports whether version is at least minimum. An empty minimum
// accepts any version; an unparseable version never meets a non-empty one.
func MeetsMinimum(version, minimum string) bool {
	floor := Canonical(minimum)
	if floor == "" {
		return true
	}
	v := Canonical(version)
	if v == "" {
		return false
	}
	return semver.Compare(v, floor) >= 0
}

// Major returns the major component of version without the "v", or "".
func Major(version string) string {
	return strings.TrimPrefix(semver.Major(Canonical(version)), "v")
}

// MajorMinor returns "X.Y" for version, or "".
func MajorMinor(version string) string {
	return strings.TrimPrefix(semver.MajorMinor(Canonical(version)), "v")
}
