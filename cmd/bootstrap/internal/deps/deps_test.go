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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/process"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/toolchain"
)

const poetryProject = `
[tool.poetry]
name = "maplejuris"
version = "0.1.0"

[tool.poetry.dependencies]
python = "^3.11"
FastAPI = "^0.110"
uvicorn = { version = "^0.29", extras = ["standard"] }
pydantic = "*"

[tool.poetry.group.dev.dependencies]
black = "^24.4"
pre_commit = "^3.7"

[tool.poetry.dev-dependencies]
flake8 = "^7.0"
`

const pep621Project = `
[project]
name = "maplejuris"
requires-python = ">=3.10"
dependencies = [
  "fastapi (>=0.110,<0.111)",
  "SQLAlchemy[asyncio]>=2.0 ; python_version >= '3.10'",
  "uvicorn",
]

[dependency-groups]
dev = ["mypy>=1.10", { include-group = "lint" }]
lint = ["isort"]
`

func testToolchain() *toolchain.Toolchain {
	return &toolchain.Toolchain{
		Runtime:           toolchain.Binary{Name: "python3", Path: "/opt/py/bin/python3", Version: "v3.12.4"},
		DependencyManager: toolchain.Binary{Name: "poetry", Path: "/opt/py/bin/poetry", Version: "v1.8.3"},
		SearchPath:        "/opt/py/bin:/usr/bin",
	}
}

func writeProject(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectFile), []byte(content), 0644))
	return root
}

// =============================================================================
// pyproject.toml Parsing Tests
// =============================================================================

func TestParseDeclared_PoetryTables(t *testing.T) {
	d, err := ParseDeclared([]byte(poetryProject))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"fastapi": "^0.110", "uvicorn": "^0.29", "pydantic": ""}, d[GroupMain])
	assert.Equal(t, map[string]string{"black": "^24.4", "pre-commit": "^3.7", "flake8": "^7.0"}, d[GroupDev])
}

func TestParseDeclared_StandardTables(t *testing.T) {
	d, err := ParseDeclared([]byte(pep621Project))
	require.NoError(t, err)

	assert.Equal(t, ">=0.110,<0.111", d[GroupMain]["fastapi"])
	assert.Equal(t, ">=2.0", d[GroupMain]["sqlalchemy"])
	assert.Equal(t, "", d[GroupMain]["uvicorn"])
	assert.Equal(t, ">=1.10", d[GroupDev]["mypy"])
	assert.Contains(t, d[Group("lint")], "isort")
}

func TestParseDeclared_Invalid(t *testing.T) {
	_, err := ParseDeclared([]byte("[tool.poetry\nname = "))
	assert.Error(t, err)
}

func TestReadDeclared_MissingFile(t *testing.T) {
	d, err := ReadDeclared(filepath.Join(t.TempDir(), ProjectFile))
	require.NoError(t, err)
	assert.Empty(t, d)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "pre-commit", NormalizeName("Pre_Commit"))
	assert.Equal(t, "zope-interface", NormalizeName("zope.interface"))
	assert.Equal(t, "sqlalchemy", NormalizeName(" SQLAlchemy "))
}

func TestProjectName(t *testing.T) {
	assert.Equal(t, "maplejuris", ProjectName("/src/MapleJuris"))
	assert.Equal(t, "legal-api-v2", ProjectName("/src/legal_api v2"))
	assert.Equal(t, "project", ProjectName("/"))
}

// =============================================================================
// Installer Tests
// =============================================================================

func TestInstall_AddsOnlyMissing(t *testing.T) {
	root := writeProject(t, poetryProject)
	mock := &process.MockProcessManager{}

	report, err := NewInstaller(mock, testToolchain(), root, nil).Install(context.Background(), GroupMain, DefaultRuntime())
	require.NoError(t, err)

	assert.Equal(t, []string{"fastapi", "uvicorn", "pydantic"}, report.Skipped)
	assert.Equal(t, []string{"sqlalchemy"}, report.Added)

	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/opt/py/bin/poetry add sqlalchemy", calls[0].CommandLine())
	assert.Equal(t, root, calls[0].Opts.Dir)
	assert.Equal(t, "/opt/py/bin:/usr/bin", calls[0].Opts.Env["PATH"])
}

func TestInstall_DevGroupFlag(t *testing.T) {
	root := writeProject(t, poetryProject)
	mock := &process.MockProcessManager{}

	report, err := NewInstaller(mock, testToolchain(), root, nil).Install(context.Background(), GroupDev, DefaultDev())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"black", "flake8", "pre-commit"}, report.Skipped)
	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"add", "--group", "dev", "isort", "autoflake", "mypy", "sopsy", "pyrage"}, calls[0].Args)
}

func TestInstall_NothingToDoMakesNoCall(t *testing.T) {
	root := writeProject(t, poetryProject)
	mock := &process.MockProcessManager{}

	decls := []Declaration{{Name: "fastapi", Constraint: "^0.110", Group: GroupMain}, {Name: "PYDANTIC", Group: GroupMain}}
	report, err := NewInstaller(mock, testToolchain(), root, nil).Install(context.Background(), GroupMain, decls)
	require.NoError(t, err)

	assert.Empty(t, report.Added)
	assert.Empty(t, mock.GetCalls())
}

func TestInstall_ChangedConstraintIsRedeclared(t *testing.T) {
	root := writeProject(t, poetryProject)
	mock := &process.MockProcessManager{}

	decls := []Declaration{{Name: "fastapi", Constraint: "^0.111", Group: GroupMain}}
	_, err := NewInstaller(mock, testToolchain(), root, nil).Install(context.Background(), GroupMain, decls)
	require.NoError(t, err)

	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"add", "fastapi@^0.111"}, calls[0].Args)
}

func TestInstall_RewrittenConstraintIsNotRedeclared(t *testing.T) {
	root := writeProject(t, pep621Project)
	mock := &process.MockProcessManager{}

	decls := []Declaration{{Name: "fastapi", Constraint: "^0.110", Group: GroupMain}, {Name: "sqlalchemy", Constraint: "^2.0", Group: GroupMain}}
	report, err := NewInstaller(mock, testToolchain(), root, nil).Install(context.Background(), GroupMain, decls)
	require.NoError(t, err)

	assert.Equal(t, []string{"fastapi"}, report.Skipped)
	calls := mock.GetCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"add", "sqlalchemy@^2.0"}, calls[0].Args)
}

func TestSameConstraint(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"^0.110", ">=0.110,<0.111", true},
		{"^1.2", ">=1.2,<2.0", true},
		{"^1.2.3", ">=1.2.3,<2.0.0", true},
		{"^0.0.3", ">=0.0.3,<0.0.4", true},
		{"~1.2.3", ">=1.2.3,<1.3.0", true},
		{"~1", ">=1,<2", true},
		{"~=1.2", ">=1.2,<2", true},
		{"~=1.2.3", ">=1.2.3,<1.3", true},
		{"1.2.3", "==1.2.3", true},
		{"1.2.*", ">=1.2,<1.3", true},
		{">= 1.0, < 2.0", "<2,>=1", true},
		{"^1.0b1", "^1.0b1", true},
		{"*", "", true},
		{"^0.110", ">=0.110,<1.0", false},
		{"^1.2", "^1.3", false},
		{"~1.2", "^1.2", false},
		{"1.2.3", ">=1.2.3", false},
	}

	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, sameConstraint(tt.a, tt.b))
			assert.Equal(t, tt.want, sameConstraint(tt.b, tt.a))
		})
	}
}

func TestInstall_FailureCarriesStderr(t *testing.T) {
	root := writeProject(t, "")
	mock := &process.MockProcessManager{
		RunFunc: func(ctx context.Context, name string, args []string, opts process.RunOptions) (*process.Result, error) {
			return nil, &process.CommandError{Command: "poetry add", ExitCode: 1, Stderr: "Because fastapi depends on pydantic (<2.0)..."}
		},
	}

	report, err := NewInstaller(mock, testToolchain(), root, nil).Install(context.Background(), GroupMain, DefaultRuntime())
	require.Error(t, err)

	var ie *InstallError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "add", ie.Op)
	assert.Equal(t, "Because fastapi depends on pydantic (<2.0)...", ie.Stderr)
	assert.Contains(t, err.Error(), "Because fastapi depends on pydantic")
	assert.Empty(t, report.Added)
}

func TestInstall_RejectsFlagLikeNames(t *testing.T) {
	root := writeProject(t, "")
	mock := &process.MockProcessManager{}

	decls := []Declaration{{Name: "black", Group: GroupDev}, {Name: "--source=mirror", Group: GroupDev}}
	_, err := NewInstaller(mock, testToolchain(), root, nil).Install(context.Background(), GroupDev, decls)
	require.Error(t, err)

	var ie *InstallError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "validate", ie.Op)
	assert.Empty(t, mock.GetCalls(), "nothing runs when any entry is invalid")
}

func TestInstall_RequiresDependencyManager(t *testing.T) {
	root := writeProject(t, "")
	_, err := NewInstaller(&process.MockProcessManager{}, &toolchain.Toolchain{}, root, nil).
		Install(context.Background(), GroupMain, DefaultRuntime())
	assert.ErrorIs(t, err, ErrNoDependencyManager)
}

func TestEnsureProject(t *testing.T) {
	t.Run("creates when missing", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "MapleJuris")
		require.NoError(t, os.Mkdir(root, 0755))
		mock := &process.MockProcessManager{}

		created, err := NewInstaller(mock, testToolchain(), root, nil).EnsureProject(context.Background())
		require.NoError(t, err)
		assert.True(t, created)
		require.Len(t, mock.GetCalls(), 1)
		assert.Equal(t, []string{"init", "--no-interaction", "--name", "maplejuris"}, mock.GetCalls()[0].Args)
	})

	t.Run("leaves existing alone", func(t *testing.T) {
		root := writeProject(t, poetryProject)
		mock := &process.MockProcessManager{}

		created, err := NewInstaller(mock, testToolchain(), root, nil).EnsureProject(context.Background())
		require.NoError(t, err)
		assert.False(t, created)
		assert.Empty(t, mock.GetCalls())
	})
}

func TestSync(t *testing.T) {
	mock := &process.MockProcessManager{}
	require.NoError(t, NewInstaller(mock, testToolchain(), t.TempDir(), nil).Sync(context.Background()))
	require.Len(t, mock.GetCalls(), 1)
	assert.Equal(t, []string{"install", "--no-interaction", "--no-root"}, mock.GetCalls()[0].Args)
}

func TestDeclarationValidate(t *testing.T) {
	assert.NoError(t, Declaration{Name: "uvicorn[standard]", Constraint: ">=0.29,<1"}.Validate())
	assert.Error(t, Declaration{Name: ""}.Validate())
	assert.Error(t, Declaration{Name: "black", Constraint: "--pre"}.Validate())
}

func TestDeclarationSpec(t *testing.T) {
	assert.Equal(t, "fastapi", Declaration{Name: "fastapi"}.Spec())
	assert.Equal(t, "fastapi@^0.110", Declaration{Name: "fastapi", Constraint: "^0.110"}.Spec())
}
