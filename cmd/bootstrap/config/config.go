// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads bootstrap.yaml, the optional per-project file that
// overrides the built-in bootstrap.
package config

import (
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/deps"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/hooks"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/initializer"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/scaffold"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/secrets"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/toolchain"
)

// FileName is the config file looked up in the project root.
const FileName = "bootstrap.yaml"

// CurrentConfigVersion is written into generated config files.
const CurrentConfigVersion = "1"

type BootstrapConfig struct {
	// Meta: file format version
	Meta MetaConfig `yaml:"meta"`

	// ExpectedDirName: refuse to run unless the root has this base name
	ExpectedDirName string `yaml:"expected_dir_name,omitempty"`

	// Toolchain: runtime and dependency manager to resolve or install
	Toolchain toolchain.Config `yaml:"toolchain"`

	// Scaffold: directories and marker files the project must have
	Scaffold ScaffoldConfig `yaml:"scaffold"`

	// Dependencies: packages declared in the main and dev groups
	Dependencies DependenciesConfig `yaml:"dependencies"`

	// Hooks: the commit hook policy, rewritten on every run
	Hooks hooks.Policy `yaml:"hooks"`

	// Secrets: envelope, plaintext and key locations
	Secrets SecretsConfig `yaml:"secrets"`
}

type MetaConfig struct {
	Version string `yaml:"version" validate:"required,oneof=1"`
}

type ScaffoldConfig struct {
	Dirs            []string             `yaml:"dirs" validate:"dive,required,relpath"`
	Files           []scaffold.FileEntry `yaml:"files" validate:"dive"`
	RequiredIgnores []string             `yaml:"required_ignores" validate:"dive,required"`
}

type DependenciesConfig struct {
	Runtime []deps.Declaration `yaml:"runtime" validate:"dive"`
	Dev     []deps.Declaration `yaml:"dev" validate:"dive"`
}

type SecretsConfig struct {
	Envelope  string `yaml:"envelope" validate:"required,excludesall=/"`                   // e.g. .env.enc
	Plaintext string `yaml:"plaintext" validate:"required,excludesall=/,nefield=Envelope"` // e.g. .env
	KeyFile   string `yaml:"key_file,omitempty"`                                           // empty: $SOPS_AGE_KEY_FILE or the per-user default
}

// DefaultConfig returns the built-in bootstrap.
func DefaultConfig() BootstrapConfig {
	manifest := scaffold.DefaultManifest()
	return BootstrapConfig{
		Meta:      MetaConfig{Version: CurrentConfigVersion},
		Toolchain: toolchain.DefaultConfig(),
		Scaffold: ScaffoldConfig{
			Dirs:            manifest.Dirs,
			Files:           manifest.Files,
			RequiredIgnores: secrets.RequiredIgnores(secrets.DefaultPlaintextName),
		},
		Dependencies: DependenciesConfig{
			Runtime: deps.DefaultRuntime(),
			Dev:     deps.DefaultDev(),
		},
		Hooks: hooks.DefaultPolicy(),
		Secrets: SecretsConfig{
			Envelope:  secrets.DefaultEnvelopeName,
			Plaintext: secrets.DefaultPlaintextName,
		},
	}
}

// Initializer converts the file form into a run config for projectRoot.
func (c BootstrapConfig) Initializer(projectRoot string) initializer.Config {
	return initializer.Config{
		ProjectRoot:     projectRoot,
		ExpectedDirName: c.ExpectedDirName,
		Toolchain:       c.Toolchain,
		Manifest:        scaffold.Manifest{Dirs: c.Scaffold.Dirs, Files: c.Scaffold.Files},
		RequiredIgnores: c.Scaffold.RequiredIgnores,
		RuntimeDeps:     withGroup(c.Dependencies.Runtime, deps.GroupMain),
		DevDeps:         withGroup(c.Dependencies.Dev, deps.GroupDev),
		Hooks:           c.Hooks,
		EnvelopeName:    c.Secrets.Envelope,
		PlaintextName:   c.Secrets.Plaintext,
		KeyFile:         c.Secrets.KeyFile,
	}
}

// withGroup stamps the group the yaml layout implies onto each entry.
func withGroup(decls []deps.Declaration, g deps.Group) []deps.Declaration {
	if decls == nil {
		return nil
	}
	out := make([]deps.Declaration, len(decls))
	for i, d := range decls {
		d.Group = g
		out[i] = d
	}
	return out
}
