// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/deps"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

// TestLoad_MissingOptionalFile verifies defaults are used when no file exists.
func TestLoad_MissingOptionalFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName), false)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

// TestLoad_MissingRequiredFile verifies an explicit path must exist.
func TestLoad_MissingRequiredFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// TestLoad_OverridesDefaults verifies only keys present in the file change.
func TestLoad_OverridesDefaults(t *testing.T) {
	p := writeConfig(t, `
expected_dir_name: MapleJuris
toolchain:
  min_runtime_version: "3.11"
dependencies:
  runtime:
    - name: fastapi
      constraint: ^0.110
    - name: httpx
secrets:
  key_file: ~/keys/age.txt
`)
	cfg, err := Load(p, true)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, "MapleJuris", cfg.ExpectedDirName)
	assert.Equal(t, "3.11", cfg.Toolchain.MinRuntimeVersion)
	assert.Equal(t, def.Toolchain.DependencyManagerName, cfg.Toolchain.DependencyManagerName)
	assert.Equal(t, []deps.Declaration{
		{Name: "fastapi", Constraint: "^0.110", Group: deps.GroupMain},
		{Name: "httpx", Group: deps.GroupMain},
	}, cfg.Dependencies.Runtime)
	assert.Equal(t, def.Dependencies.Dev, cfg.Dependencies.Dev)
	assert.Equal(t, def.Scaffold, cfg.Scaffold)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "keys", "age.txt"), cfg.Secrets.KeyFile)
	assert.Equal(t, def.Secrets.Envelope, cfg.Secrets.Envelope)
}

// TestLoad_EmptyFile verifies an empty file is the default config.
func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""), true)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

// TestLoad_Invalid verifies malformed and invalid files are rejected.
func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"malformed yaml", "toolchain: [", ""},
		{"unknown key", "toolchian:\n  runtime_name: python3\n", "toolchian"},
		{"absolute dir", "scaffold:\n  dirs: [/etc]\n", "scaffold.dirs[0]"},
		{"escaping dir", "scaffold:\n  dirs: [../outside]\n", "relpath"},
		{"empty runtime", "toolchain:\n  runtime_name: \"\"\n", "toolchain.runtime_name"},
		{"nameless dependency", "dependencies:\n  dev:\n    - constraint: ^1\n", "dependencies.dev[0].name"},
		{"bad minimum", "toolchain:\n  min_runtime_version: latest\n", "min_runtime_version"},
		{"plaintext equals envelope", "secrets:\n  envelope: .env\n  plaintext: .env\n", "nefield"},
		{"nested plaintext", "secrets:\n  plaintext: config/.env\n", "secrets.plaintext"},
		{"hook without id", "hooks:\n  repos:\n    - repo: https://github.com/psf/black\n      rev: 24.4.2\n      hooks: [{args: [-q]}]\n", "hooks.repos[0].hooks[0].id"},
		{"file collides with dir", "scaffold:\n  dirs: [agents]\n  files: [{path: agents}]\n", ""},
		{"flag as package", "dependencies:\n  runtime:\n    - name: --index-url=http://evil\n", "dependencies.runtime[0]"},
		{"shell in constraint", "dependencies:\n  dev:\n    - name: black\n      constraint: \"^24; curl x\"\n", "dependencies.dev[0]"},
		{"unsupported version", "meta:\n  version: \"2\"\n", "meta.version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), true)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			if tt.errText != "" {
				assert.Contains(t, err.Error(), tt.errText)
			}
		})
	}
}

// TestLoad_StampsGroups verifies entries read from the file carry the group
// their yaml key implies, like the defaults do.
func TestLoad_StampsGroups(t *testing.T) {
	cfg, err := Load(writeConfig(t, "dependencies:\n  dev:\n    - name: ruff\n"), true)
	require.NoError(t, err)
	assert.Equal(t, []deps.Declaration{{Name: "ruff", Group: deps.GroupDev}}, cfg.Dependencies.Dev)
	for _, d := range cfg.Dependencies.Runtime {
		assert.Equal(t, deps.GroupMain, d.Group)
	}
}

// TestInitializer_StampsGroups verifies the yaml layout decides the group.
func TestInitializer_StampsGroups(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Secrets.KeyFile = "/keys/age.txt"

	ic := cfg.Initializer("/src/maplejuris")
	assert.Equal(t, "/src/maplejuris", ic.ProjectRoot)
	assert.Equal(t, "/keys/age.txt", ic.KeyFile)
	require.NotEmpty(t, ic.RuntimeDeps)
	require.NotEmpty(t, ic.DevDeps)
	for _, d := range ic.RuntimeDeps {
		assert.Equal(t, deps.GroupMain, d.Group)
	}
	for _, d := range ic.DevDeps {
		assert.Equal(t, deps.GroupDev, d.Group)
	}
	assert.NoError(t, ic.Validate())
}

// TestMarshal_RoundTrip verifies a generated file loads back to the defaults.
func TestMarshal_RoundTrip(t *testing.T) {
	data, err := Marshal(DefaultConfig())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "homedir", "host-derived fields are never written")

	cfg, err := Load(writeConfig(t, string(data)), true)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

// TestWriteDefault verifies creation and that existing files are kept.
func TestWriteDefault(t *testing.T) {
	p := filepath.Join(t.TempDir(), "deep", "nested", FileName)

	created, err := WriteDefault(p)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, os.WriteFile(p, []byte("expected_dir_name: custom\n"), 0644))
	created, err = WriteDefault(p)
	require.NoError(t, err)
	assert.False(t, created)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "expected_dir_name: custom\n", string(data))
}

func TestExpandHome(t *testing.T) {
	assert.Equal(t, "/home/u", expandHome("~", "/home/u"))
	assert.Equal(t, "/home/u/k.txt", expandHome("~/k.txt", "/home/u"))
	assert.Equal(t, "/abs/k.txt", expandHome("/abs/k.txt", "/home/u"))
	assert.Equal(t, "", expandHome("", "/home/u"))
}
