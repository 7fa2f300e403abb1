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
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/initializer"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/scaffold"
	"github.com/maplejuris/bootstrap/pkg/ux"
)

func (a *app) newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report what bootstrap would still do, without changing anything",
		Long: `Check inspects the project and the toolchain without installing,
creating or decrypting anything.

Exit codes:
  0  the project is fully bootstrapped
  1  something is missing; run bootstrap
  2  invalid arguments, project root or config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.code = a.executeCheck(cmd.Context(), opts)
			return nil
		},
	}
}

// checkOutput is the --json document for check.
type checkOutput struct {
	Ready  bool                     `json:"ready"`
	Report *initializer.CheckReport `json:"report"`
}

func (a *app) executeCheck(ctx context.Context, opts *options) int {
	s, err := a.openSession(ctx, opts)
	if err != nil {
		a.reportError(opts, nil, err)
		return exitCodeFor(err)
	}
	defer s.close()

	boot := initializer.NewInitializer(a.pm, s.logger.Slog(), s.tracer, s.metrics)
	report, err := boot.Check(ctx, s.cfg)
	if err != nil {
		a.reportError(opts, nil, err)
		return exitCodeFor(err)
	}

	if opts.jsonOutput {
		a.writeJSON(checkOutput{Ready: report.Ready(), Report: report})
	} else {
		printCheck(s.printer, report)
	}
	if !report.Ready() {
		return initializer.ExitFailure
	}
	return initializer.ExitSuccess
}

// printCheck prints one line per area, then the verdict.
func printCheck(p *ux.Printer, r *initializer.CheckReport) {
	p.Title("Checking " + r.ProjectRoot)

	runtime := binaryLine(r.Runtime.Path, r.Runtime.Version)
	if r.Runtime.Found() && !r.RuntimeUsable {
		runtime += " (too old)"
	}
	p.KeyValue("runtime", runtime)
	p.KeyValue("dependency manager", binaryLine(r.DependencyManager.Path, r.DependencyManager.Version))

	missing := r.Scaffold.Paths(scaffold.StatusMissing)
	if len(missing) == 0 {
		p.KeyValue("scaffold", "complete")
	} else {
		p.KeyValue("scaffold", fmt.Sprintf("%d missing: %s", len(missing), strings.Join(missing, ", ")))
	}
	p.KeyValue("project file", presence(r.ProjectFile))
	p.KeyValue("hook config", presence(r.HooksConfig))
	p.KeyValue("local secrets", presence(r.Secrets.Plaintext)+", "+secretsLine(r.SecretsAction))
	p.KeyValue("decryption tool", binaryLine(r.Decrypter.Path, r.Decrypter.Version))

	for _, w := range r.Warnings {
		p.Warning(w)
	}
	if r.Ready() {
		p.Success("Project is bootstrapped")
		return
	}
	p.Warning("Project is not fully bootstrapped; run bootstrap")
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "missing"
}
