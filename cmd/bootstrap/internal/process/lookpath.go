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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// LookPath searches searchPath (a list separated by os.PathListSeparator)
// for an executable named file.
//
// # Description
//
// Unlike exec.LookPath it never reads the PATH of the running process, so
// the resolver can probe a search path it has extended without mutating
// global state. Names containing a separator are checked directly. Empty
// list elements are skipped rather than treated as ".".
//
// # Outputs
//
//   - string: Absolute or as-given path to the executable.
//   - error: Wraps ErrNotFound when no candidate is executable.
func LookPath(file, searchPath string) (string, error) {
	if strings.ContainsRune(file, filepath.Separator) {
		if IsExecutable(file) {
			return file, nil
		}
		return "", fmt.Errorf("%w: %s", ErrNotFound, file)
	}
	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, file)
		if IsExecutable(candidate) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, file)
}

// IsExecutable reports whether path is a regular file the caller may execute.
func IsExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}

// JoinSearchPath joins directories into a search path, dropping empty and
// duplicate entries while keeping the first occurrence.
func JoinSearchPath(dirs ...string) string {
	seen := make(map[string]bool, len(dirs))
	kept := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		kept = append(kept, d)
	}
	return strings.Join(kept, string(os.PathListSeparator))
}
