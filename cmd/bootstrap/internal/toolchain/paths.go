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

import "path/filepath"

// UserBinDir returns the directory a user-scoped package install places
// console scripts in.
//
// On macOS the framework build of Python uses
// ~/Library/Python/<major.minor>/bin; everywhere else it is ~/.local/bin.
// runtimeVersion is only consulted on macOS, and an unparseable version
// falls back to ~/.local/bin.
func UserBinDir(goos, home, runtimeVersion string) string {
	if goos == "darwin" {
		if mm := MajorMinor(runtimeVersion); mm != "" {
			return filepath.Join(home, "Library", "Python", mm, "bin")
		}
	}
	return filepath.Join(home, ".local", "bin")
}

// VersionManagerRoot returns the pyenv root: the configured value, else
// $PYENV_ROOT, else ~/.pyenv.
func VersionManagerRoot(configured, envRoot, home string) string {
	if configured != "" {
		return configured
	}
	if envRoot != "" {
		return envRoot
	}
	return filepath.Join(home, ".pyenv")
}
