// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hooks

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the hook runner's configuration file in the project root.
const ConfigFileName = ".pre-commit-config.yaml"

// header marks the file as generated so edits are not expected to survive.
const header = "# Generated by bootstrap. Changes are overwritten on every run;\n# edit the hooks section of bootstrap.yaml instead.\n"

// Hook is a single hook within a repository.
type Hook struct {
	ID   string   `yaml:"id" json:"id" validate:"required"`
	Args []string `yaml:"args,omitempty" json:"args,omitempty"`
}

// Repo is a hook source pinned to a revision.
type Repo struct {
	URL   string `yaml:"repo" json:"repo" validate:"required"`
	Rev   string `yaml:"rev" json:"rev" validate:"required"`
	Hooks []Hook `yaml:"hooks" json:"hooks" validate:"required,min=1,dive"`
}

// Policy is the complete hook configuration.
type Policy struct {
	Repos []Repo `yaml:"repos" json:"repos" validate:"dive"`
}

// DefaultPolicy removes unused imports, sorts imports, formats and type
// checks every commit.
func DefaultPolicy() Policy {
	return Policy{Repos: []Repo{
		{
			URL: "https://github.com/PyCQA/autoflake",
			Rev: "v2.3.1",
			Hooks: []Hook{{
				ID:   "autoflake",
				Args: []string{"--in-place", "--remove-all-unused-imports", "--remove-unused-variables"},
			}},
		},
		{
			URL:   "https://github.com/pycqa/isort",
			Rev:   "5.13.2",
			Hooks: []Hook{{ID: "isort", Args: []string{"--profile=black"}}},
		},
		{
			URL:   "https://github.com/psf/black",
			Rev:   "24.4.2",
			Hooks: []Hook{{ID: "black"}},
		},
		{
			URL:   "https://github.com/pre-commit/mirrors-mypy",
			Rev:   "v1.10.0",
			Hooks: []Hook{{ID: "mypy"}},
		},
	}}
}

// Render produces the YAML document for p. The output is deterministic.
func Render(p Policy) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encoding hook policy: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding hook policy: %w", err)
	}
	return buf.Bytes(), nil
}
