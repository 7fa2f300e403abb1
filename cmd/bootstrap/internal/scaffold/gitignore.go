// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scaffold

import (
	"os"
	"path"
	"strings"
)

// missingIgnores returns the entries in required that no pattern in the
// .gitignore at path covers. A missing file covers nothing.
func missingIgnores(gitignorePath string, required []string) ([]string, error) {
	content, err := os.ReadFile(gitignorePath)
	if err != nil {
		if os.IsNotExist(err) {
			return required, nil
		}
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, strings.TrimSuffix(strings.TrimPrefix(line, "/"), "/"))
	}

	var missing []string
	for _, entry := range required {
		if !ignored(patterns, entry) {
			missing = append(missing, entry)
		}
	}
	return missing, nil
}

func ignored(patterns []string, entry string) bool {
	for _, p := range patterns {
		if p == entry {
			return true
		}
		if ok, err := path.Match(p, entry); err == nil && ok {
			return true
		}
	}
	return false
}
