// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/initializer"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/process"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// options holds the persistent flags.
type options struct {
	root        string // --root, default: current directory
	configPath  string // --config, default: <root>/bootstrap.yaml if present
	jsonOutput  bool   // --json
	verbose     bool   // --verbose
	logDir      string // --log-dir
	traceFile   string // --trace-file
	metricsFile string // --metrics-file
}

// app carries the process-wide dependencies commands run against. Tests
// build one with buffers and a mock process manager.
type app struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	pm     process.ProcessManager

	// searchPath and homeDir override host detection when set.
	searchPath string
	homeDir    string

	// code is the exit code the last command settled on.
	code int
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		getenv: os.Getenv,
		pm:     process.NewDefaultProcessManager(),
	}
}

// execute runs the command line and returns the process exit code.
func (a *app) execute(ctx context.Context, args []string) int {
	a.code = initializer.ExitSuccess
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		// Only flag and argument errors reach here. Commands report their
		// own failures and set a.code.
		a.code = initializer.ExitBadArgs
		a.newPrinter(false).Error(err.Error())
	}
	return a.code
}

func (a *app) newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Prepare this repository for development",
		Long: `Bootstrap prepares a Python service repository for development.

Steps, in order:
  1. toolchain     find python3 >= 3.10 and poetry, installing them if missing
  2. scaffold      create missing package and test directories and markers
  3. dependencies  declare runtime and dev packages, then install them
  4. hooks         write .pre-commit-config.yaml and register the git hook
  5. secrets       decrypt .env.enc into .env when a key is available

Every step is idempotent. Existing files are never overwritten, except the
hook config, which is regenerated, and .env, which is replaced by the
decrypted envelope when both the envelope and the key exist.

Examples:
  bootstrap                          # Bootstrap the current directory
  bootstrap --root ~/src/maplejuris  # Bootstrap another directory
  bootstrap --json                   # JSON output for scripting
  bootstrap check                    # Report what is missing, change nothing

Exit codes:
  0  success
  1  a step failed
  2  invalid arguments, project root or config`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.code = a.executeBootstrap(cmd.Context(), opts)
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.root, "root", "",
		"Project root (default: current directory)")
	pf.StringVar(&opts.configPath, "config", "",
		"Config file (default: <root>/bootstrap.yaml if present)")
	pf.BoolVar(&opts.jsonOutput, "json", false,
		"Output as JSON for scripting")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Log every command and decision to stderr")
	pf.StringVar(&opts.logDir, "log-dir", "",
		"Also write a JSON log file to this directory")
	pf.StringVar(&opts.traceFile, "trace-file", "",
		"Write one trace span per step to this file")
	pf.StringVar(&opts.metricsFile, "metrics-file", "",
		"Write step duration and failure metrics to this file")

	rootCmd.AddCommand(
		a.newCheckCmd(opts),
		a.newConfigCmd(opts),
		a.newVersionCmd(opts),
	)
	return rootCmd
}
