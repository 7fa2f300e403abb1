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
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidManifest indicates a manifest entry that would escape the
// project root or collide with another entry.
var ErrInvalidManifest = errors.New("invalid scaffold manifest")

// GitignoreFile is the manifest entry checked for required ignore patterns.
const GitignoreFile = ".gitignore"

// FileEntry is a file the scaffold guarantees exists.
type FileEntry struct {
	// Path is relative to the project root, slash separated.
	Path string `yaml:"path" json:"path" validate:"required"`

	// Seed is written only when the file is created. Empty creates an empty file.
	Seed string `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// Manifest is the set of directories and files a bootstrapped project must
// contain. Entries are created only if absent and are never modified.
type Manifest struct {
	Dirs  []string    `yaml:"dirs" json:"dirs"`
	Files []FileEntry `yaml:"files" json:"files" validate:"dive"`
}

// DefaultGitignoreSeed keeps local secrets and build output out of version
// control while allowing the encrypted envelope.
const DefaultGitignoreSeed = `.env
.env.*
!.env.enc
.venv/
__pycache__/
`

// DefaultManifest returns the standard project layout: the application
// packages, the four test tiers, placeholder data directories and a
// seeded .gitignore.
func DefaultManifest() Manifest {
	packages := []string{"agents", "clients", "graphs", "schemas", "prompt_templates", "tests"}
	tests := []string{"tests/unit_tests", "tests/integration_tests", "tests/end_to_end_tests", "tests/load_tests"}
	placeholders := []string{"examples", "database", "artifacts"}

	m := Manifest{}
	m.Dirs = append(m.Dirs, packages...)
	m.Dirs = append(m.Dirs, tests...)
	m.Dirs = append(m.Dirs, placeholders...)

	for _, d := range packages {
		m.Files = append(m.Files, FileEntry{Path: d + "/__init__.py"})
	}
	for _, d := range placeholders {
		m.Files = append(m.Files, FileEntry{Path: d + "/.gitkeep"})
	}
	m.Files = append(m.Files, FileEntry{Path: GitignoreFile, Seed: DefaultGitignoreSeed})
	return m
}

// Validate checks that every entry is a relative path inside the root and
// that no path is listed twice.
func (m Manifest) Validate() error {
	seen := make(map[string]string)
	check := func(kind, p string) error {
		clean, err := cleanRelative(p)
		if err != nil {
			return err
		}
		if prev, ok := seen[clean]; ok {
			return fmt.Errorf("%w: %q listed as both %s and %s", ErrInvalidManifest, p, prev, kind)
		}
		seen[clean] = kind
		return nil
	}
	for _, d := range m.Dirs {
		if err := check("dir", d); err != nil {
			return err
		}
	}
	for _, f := range m.Files {
		if err := check("file", f.Path); err != nil {
			return err
		}
	}
	return nil
}

func cleanRelative(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidManifest)
	}
	native := filepath.FromSlash(p)
	if filepath.IsAbs(native) {
		return "", fmt.Errorf("%w: %q is absolute", ErrInvalidManifest, p)
	}
	clean := filepath.Clean(native)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q is outside the project root", ErrInvalidManifest, p)
	}
	return clean, nil
}
