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

	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/initializer"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/secrets"
	"github.com/maplejuris/bootstrap/pkg/ux"
)

// executeBootstrap runs every step against the project root.
//
// # Description
//
// Opens the session, runs the initializer with live progress and prints
// the result as text or JSON. An interrupt cancels ctx, which stops the
// running subprocess and fails the current step.
//
// # Outputs
//
// The exit code:
//
//	0 - Success (including warnings)
//	1 - A step failed
//	2 - Invalid arguments, project root or config
func (a *app) executeBootstrap(ctx context.Context, opts *options) int {
	s, err := a.openSession(ctx, opts)
	if err != nil {
		a.reportError(opts, nil, err)
		return exitCodeFor(err)
	}
	defer s.close()

	var progress initializer.ProgressCallback
	if !opts.jsonOutput {
		s.printer.Title("Bootstrapping " + s.cfg.ProjectRoot)
		live := s.printer.Level().ShowsProgress()
		progress = func(p initializer.Progress) {
			// Machine output gets one line per finished step.
			if p.Phase == initializer.PhaseStarted && !live {
				return
			}
			s.printer.Step(p.Index, p.Total, string(p.Step), phaseIcon(p.Phase), p.Detail)
		}
	}

	boot := initializer.NewInitializer(a.pm, s.logger.Slog(), s.tracer, s.metrics)
	result, err := boot.Run(ctx, s.cfg, progress)
	if err != nil {
		a.reportError(opts, result, err)
		return exitCodeFor(err)
	}

	if opts.jsonOutput {
		a.writeJSON(runOutput{APIVersion: initializer.APIVersion, Success: true, Result: result})
	} else {
		printResult(s.printer, result, s.logger.FilePath())
	}
	return initializer.ExitSuccess
}

// phaseIcon maps a progress phase to its status icon.
func phaseIcon(p initializer.Phase) ux.Icon {
	switch p {
	case initializer.PhaseDone:
		return ux.IconSuccess
	case initializer.PhaseFailed:
		return ux.IconError
	default:
		return ux.IconPending
	}
}

// printResult prints the summary of a successful run.
func printResult(p *ux.Printer, r *initializer.Result, logFile string) {
	p.Summary(r.DirsCreated+r.FilesCreated, r.EntriesPresent, len(r.Warnings))
	for _, w := range r.Warnings {
		p.Warning(w)
	}

	p.KeyValue("runtime", binaryLine(r.Runtime.Path, r.Runtime.Version))
	p.KeyValue("dependency manager", binaryLine(r.DependencyManager.Path, r.DependencyManager.Version))
	if len(r.DependenciesAdded) > 0 {
		p.KeyValue("declared", fmt.Sprintf("%d packages", len(r.DependenciesAdded)))
	}
	if r.Secrets != nil {
		p.KeyValue("secrets", secretsLine(r.Secrets.Action))
	}
	if logFile != "" {
		p.KeyValue("log file", logFile)
	}
	if r.TraceID != "" {
		p.KeyValue("trace id", r.TraceID)
	}

	p.Success("Project bootstrapped")
	if p.Level() == ux.PersonalityFull {
		p.Box("Next", "cd "+r.ProjectRoot+"\n"+r.NextCommand)
		return
	}
	p.Command("Activate the environment with", r.NextCommand)
}

func binaryLine(path, version string) string {
	if path == "" {
		return "not found"
	}
	if version == "" {
		return path + " (unknown version)"
	}
	return path + " " + version
}

func secretsLine(action secrets.Action) string {
	switch action {
	case secrets.ActionDecrypted:
		return "decrypted from the envelope"
	case secrets.ActionKeyMissing:
		return "no decryption key, local file left as is"
	default:
		return "no envelope, local file left as is"
	}
}
