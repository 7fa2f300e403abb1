// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package deps

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ProjectFile is the manifest the dependency manager reads and writes.
const ProjectFile = "pyproject.toml"

var (
	nameSeparators = regexp.MustCompile(`[-_.]+`)
	requirementRe  = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)\s*(\[[^\]]*\])?\s*(.*)$`)
)

// NormalizeName folds a package name the way package indexes compare them:
// lower case with runs of "-", "_" and "." collapsed to "-".
func NormalizeName(name string) string {
	return nameSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// pyproject is the subset of pyproject.toml that records dependencies.
type pyproject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	DependencyGroups map[string][]any `toml:"dependency-groups"`
	Tool             struct {
		Poetry struct {
			Dependencies    map[string]any `toml:"dependencies"`
			DevDependencies map[string]any `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// Declared maps each group to its declared packages (normalized name to
// constraint, "" when unconstrained).
type Declared map[Group]map[string]string

// Lookup finds name in group, falling back to any other group.
func (d Declared) Lookup(group Group, name string) (string, bool) {
	key := NormalizeName(name)
	if c, ok := d[group][key]; ok {
		return c, true
	}
	for _, deps := range d {
		if c, ok := deps[key]; ok {
			return c, true
		}
	}
	return "", false
}

func (d Declared) add(group Group, name, constraint string) {
	key := NormalizeName(name)
	if key == "python" {
		return
	}
	if d[group] == nil {
		d[group] = map[string]string{}
	}
	d[group][key] = strings.TrimSpace(constraint)
}

// ReadDeclared parses the project file at path. A missing file yields an
// empty result and no error.
func ReadDeclared(path string) (Declared, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Declared{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseDeclared(data)
}

// ParseDeclared extracts dependency declarations from pyproject.toml
// content. Both the tool.poetry tables and the standard project and
// dependency-groups arrays are understood.
func ParseDeclared(data []byte) (Declared, error) {
	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ProjectFile, err)
	}

	out := Declared{}
	for _, req := range doc.Project.Dependencies {
		if name, c, ok := parseRequirement(req); ok {
			out.add(GroupMain, name, c)
		}
	}
	for name, v := range doc.Tool.Poetry.Dependencies {
		out.add(GroupMain, name, poetryConstraint(v))
	}
	for name, v := range doc.Tool.Poetry.DevDependencies {
		out.add(GroupDev, name, poetryConstraint(v))
	}
	for g, tbl := range doc.Tool.Poetry.Group {
		for name, v := range tbl.Dependencies {
			out.add(Group(g), name, poetryConstraint(v))
		}
	}
	for g, items := range doc.DependencyGroups {
		for _, item := range items {
			// Entries may also be {include-group = "..."} tables.
			if req, ok := item.(string); ok {
				if name, c, ok := parseRequirement(req); ok {
					out.add(Group(g), name, c)
				}
			}
		}
	}
	return out, nil
}

// poetryConstraint reads either `name = "^1.0"` or `name = {version = "^1.0", ...}`.
func poetryConstraint(v any) string {
	switch val := v.(type) {
	case string:
		if val == "*" {
			return ""
		}
		return val
	case map[string]any:
		if s, ok := val["version"].(string); ok && s != "*" {
			return s
		}
	}
	return ""
}

// parseRequirement splits "fastapi[all] (>=0.110,<0.111) ; python_version > '3.9'"
// into its name and version constraint.
func parseRequirement(req string) (name, constraint string, ok bool) {
	if i := strings.Index(req, ";"); i >= 0 {
		req = req[:i]
	}
	m := requirementRe.FindStringSubmatch(req)
	if m == nil {
		return "", "", false
	}
	constraint = strings.TrimSpace(m[3])
	constraint = strings.TrimSuffix(strings.TrimPrefix(constraint, "("), ")")
	return m[1], strings.TrimSpace(constraint), true
}
