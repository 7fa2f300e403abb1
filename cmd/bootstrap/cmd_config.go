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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/config"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/initializer"
)

func (a *app) newConfigCmd(opts *options) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective config as YAML",
		Long: `Config prints the built-in defaults with <root>/bootstrap.yaml (or
--config) applied, in the same format the file uses. The output is YAML even with --json.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.code = a.executeConfigShow(opts)
			return nil
		},
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default bootstrap.yaml into the project root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.code = a.executeConfigInit(opts)
			return nil
		},
	})
	return configCmd
}

func (a *app) executeConfigShow(opts *options) int {
	root, err := resolveRoot(opts.root)
	if err != nil {
		a.reportError(opts, nil, err)
		return initializer.ExitBadArgs
	}
	cfg, err := loadConfig(root, opts.configPath)
	if err != nil {
		a.reportError(opts, nil, err)
		return exitCodeFor(err)
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		a.reportError(opts, nil, err)
		return initializer.ExitFailure
	}
	_, _ = a.stdout.Write(data)
	return initializer.ExitSuccess
}

func (a *app) executeConfigInit(opts *options) int {
	root, err := resolveRoot(opts.root)
	if err == nil {
		err = initializer.ValidateRoot(root, "")
	}
	if err != nil {
		a.reportError(opts, nil, err)
		return exitCodeFor(err)
	}

	target := filepath.Join(root, config.FileName)
	if opts.configPath != "" {
		target = opts.configPath
	}
	created, err := config.WriteDefault(target)
	if err != nil {
		a.reportError(opts, nil, err)
		return initializer.ExitFailure
	}

	printer := a.newPrinter(opts.jsonOutput)
	switch {
	case opts.jsonOutput:
		a.writeJSON(map[string]any{"path": target, "created": created})
	case created:
		printer.Success("Wrote " + target)
	default:
		printer.Info(target + " already exists, left unchanged")
	}
	return initializer.ExitSuccess
}
