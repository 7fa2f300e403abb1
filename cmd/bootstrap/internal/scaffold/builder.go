// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scaffold creates the standard directory layout and placeholder
// files of a project without ever touching what is already there.
package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrKindMismatch indicates an entry exists but as the wrong kind, e.g. a
// regular file where the manifest expects a directory.
var ErrKindMismatch = errors.New("path exists with a different type")

// Kind distinguishes directory entries from file entries.
type Kind string

const (
	KindDir  Kind = "dir"
	KindFile Kind = "file"
)

// Status is the outcome for one manifest entry.
type Status string

const (
	// StatusCreated means Ensure created the entry.
	StatusCreated Status = "created"
	// StatusPresent means the entry already existed and was left alone.
	StatusPresent Status = "present"
	// StatusMissing means Plan found the entry absent.
	StatusMissing Status = "missing"
)

// Entry is the outcome for one manifest path.
type Entry struct {
	Path   string `json:"path"`
	Kind   Kind   `json:"kind"`
	Status Status `json:"status"`
}

// Report summarizes an Ensure or Plan pass.
type Report struct {
	Entries  []Entry  `json:"entries"`
	Warnings []string `json:"warnings,omitempty"`
}

// Count returns how many entries of kind have status.
func (r *Report) Count(kind Kind, status Status) int {
	n := 0
	for _, e := range r.Entries {
		if e.Kind == kind && e.Status == status {
			n++
		}
	}
	return n
}

// Paths returns the paths with the given status, in manifest order.
func (r *Report) Paths(status Status) []string {
	var out []string
	for _, e := range r.Entries {
		if e.Status == status {
			out = append(out, e.Path)
		}
	}
	return out
}

// Complete reports whether nothing is missing.
func (r *Report) Complete() bool {
	for _, e := range r.Entries {
		if e.Status == StatusMissing {
			return false
		}
	}
	return true
}

// Builder materializes a Manifest under a project root.
type Builder struct {
	root            string
	logger          *slog.Logger
	requiredIgnores []string
}

// NewBuilder creates a builder for root. requiredIgnores lists paths that a
// pre-existing .gitignore should cover; each uncovered one produces a
// warning, never an edit. A nil logger uses slog.Default().
func NewBuilder(root string, logger *slog.Logger, requiredIgnores ...string) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		root:            root,
		logger:          logger.With("component", "scaffold"),
		requiredIgnores: requiredIgnores,
	}
}

// Ensure creates every manifest entry that does not yet exist.
//
// # Description
//
// Directories are created with their parents. Files are opened with
// O_CREATE|O_EXCL so an existing file is never opened for writing, and seed
// content is written only into a file this call created. Running Ensure
// twice yields the same tree as running it once.
//
// # Outputs
//
//   - *Report: Per-entry outcome plus warnings about an existing .gitignore.
//   - error: ErrInvalidManifest, ErrKindMismatch or a filesystem error. Entries
//     created before the failure are kept.
func (b *Builder) Ensure(m Manifest) (*Report, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	report := &Report{}
	gitignoreCreated := false

	for _, d := range m.Dirs {
		status, err := b.ensureDir(d)
		if err != nil {
			return report, err
		}
		report.Entries = append(report.Entries, Entry{Path: d, Kind: KindDir, Status: status})
	}

	for _, f := range m.Files {
		status, err := b.ensureFile(f)
		if err != nil {
			return report, err
		}
		if f.Path == GitignoreFile && status == StatusCreated {
			gitignoreCreated = true
		}
		report.Entries = append(report.Entries, Entry{Path: f.Path, Kind: KindFile, Status: status})
	}

	if !gitignoreCreated {
		report.Warnings = append(report.Warnings, b.gitignoreWarnings()...)
	}

	b.logger.Info("Scaffold ensured",
		"dirs_created", report.Count(KindDir, StatusCreated),
		"files_created", report.Count(KindFile, StatusCreated),
		"present", len(report.Paths(StatusPresent)))
	return report, nil
}

// Plan reports which manifest entries are missing without creating any.
func (b *Builder) Plan(m Manifest) (*Report, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	report := &Report{}
	probe := func(p string, kind Kind) error {
		info, err := os.Stat(b.abs(p))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			report.Entries = append(report.Entries, Entry{Path: p, Kind: kind, Status: StatusMissing})
			return nil
		case err != nil:
			return fmt.Errorf("checking %s: %w", p, err)
		case info.IsDir() != (kind == KindDir):
			return fmt.Errorf("%w: %s", ErrKindMismatch, p)
		}
		report.Entries = append(report.Entries, Entry{Path: p, Kind: kind, Status: StatusPresent})
		return nil
	}
	for _, d := range m.Dirs {
		if err := probe(d, KindDir); err != nil {
			return report, err
		}
	}
	for _, f := range m.Files {
		if err := probe(f.Path, KindFile); err != nil {
			return report, err
		}
	}
	report.Warnings = b.gitignoreWarnings()
	return report, nil
}

func (b *Builder) abs(p string) string {
	return filepath.Join(b.root, filepath.FromSlash(p))
}

func (b *Builder) ensureDir(p string) (Status, error) {
	target := b.abs(p)
	info, err := os.Stat(target)
	if err == nil {
		if !info.IsDir() {
			return "", fmt.Errorf("%w: %s is not a directory", ErrKindMismatch, p)
		}
		return StatusPresent, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("checking %s: %w", p, err)
	}
	if err := os.MkdirAll(target, 0755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", p, err)
	}
	b.logger.Debug("Created directory", "path", p)
	return StatusCreated, nil
}

func (b *Builder) ensureFile(entry FileEntry) (Status, error) {
	target := b.abs(entry.Path)
	if info, err := os.Stat(target); err == nil {
		if info.IsDir() {
			return "", fmt.Errorf("%w: %s is a directory", ErrKindMismatch, entry.Path)
		}
		return StatusPresent, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("creating parent of %s: %w", entry.Path, err)
	}
	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return StatusPresent, nil
		}
		return "", fmt.Errorf("creating %s: %w", entry.Path, err)
	}

	if entry.Seed != "" {
		if _, err := f.WriteString(entry.Seed); err != nil {
			_ = f.Close()
			_ = os.Remove(target)
			return "", fmt.Errorf("seeding %s: %w", entry.Path, err)
		}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("closing %s: %w", entry.Path, err)
	}
	b.logger.Debug("Created file", "path", entry.Path, "seeded", entry.Seed != "")
	return StatusCreated, nil
}

func (b *Builder) gitignoreWarnings() []string {
	if len(b.requiredIgnores) == 0 {
		return nil
	}
	gitignorePath := filepath.Join(b.root, GitignoreFile)
	if _, err := os.Stat(gitignorePath); err != nil {
		return nil
	}
	missing, err := missingIgnores(gitignorePath, b.requiredIgnores)
	if err != nil {
		b.logger.Warn("Could not read .gitignore", "error", err)
		return nil
	}
	if len(missing) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("%s does not ignore %s; add it to keep local secrets out of version control",
		GitignoreFile, strings.Join(missing, ", "))}
}
