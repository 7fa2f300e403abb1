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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/maplejuris/bootstrap/cmd/bootstrap/config"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/diagnostics"
	"github.com/maplejuris/bootstrap/cmd/bootstrap/internal/initializer"
	"github.com/maplejuris/bootstrap/pkg/logging"
	"github.com/maplejuris/bootstrap/pkg/ux"
)

const serviceName = "bootstrap"

// session holds what one command invocation opens and must close.
type session struct {
	cfg     initializer.Config
	logger  *logging.Logger
	tracer  diagnostics.Tracer
	metrics diagnostics.Metrics
	printer *ux.Printer
}

// resolveRoot makes the --root flag absolute. Empty means the working
// directory.
func resolveRoot(root string) (string, error) {
	if root == "" {
		return os.Getwd()
	}
	return filepath.Abs(root)
}

// loadConfig reads --config, or <root>/bootstrap.yaml when it exists.
func loadConfig(root, configPath string) (config.BootstrapConfig, error) {
	if configPath == "" {
		return config.Load(filepath.Join(root, config.FileName), false)
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return config.BootstrapConfig{}, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	return config.Load(abs, true)
}

// newPrinter picks the personality for the command's stdout. JSON output
// keeps the printer for errors only.
func (a *app) newPrinter(jsonOutput bool) *ux.Printer {
	level := ux.PersonalityMachine
	if !jsonOutput {
		f, _ := a.stdout.(*os.File)
		level = ux.DetectPersonality(a.getenv, f)
	}
	return ux.NewPrinter(a.stdout, a.stderr, level)
}

// openSession resolves the root and config and opens the logger and
// diagnostics sinks. An error here is an argument problem and maps to
// exit code 2.
func (a *app) openSession(ctx context.Context, opts *options) (*session, error) {
	s := &session{printer: a.newPrinter(opts.jsonOutput)}

	root, err := resolveRoot(opts.root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", initializer.ErrPathNotExist, err)
	}
	fileCfg, err := loadConfig(root, opts.configPath)
	if err != nil {
		return nil, err
	}
	s.cfg = fileCfg.Initializer(root)
	if a.searchPath != "" {
		s.cfg.Toolchain.SearchPath = a.searchPath
	}
	if a.homeDir != "" {
		s.cfg.Toolchain.HomeDir = a.homeDir
	}

	level := logging.LevelWarn
	if opts.verbose {
		level = logging.LevelDebug
	}
	s.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  opts.logDir,
		Service: serviceName,
		Output:  a.stderr,
	})
	if opts.logDir != "" && s.logger.FilePath() == "" {
		s.printer.Warning(fmt.Sprintf("could not open a log file in %s, logging to stderr only", opts.logDir))
	}

	s.tracer = diagnostics.NewNoOpTracer()
	if opts.traceFile != "" {
		t, err := diagnostics.NewFileTracer(ctx, opts.traceFile, serviceName, version)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("%w: --trace-file: %v", errBadFlag, err)
		}
		s.tracer = t
	}

	s.metrics = diagnostics.NewNoOpMetrics()
	if opts.metricsFile != "" {
		m, err := diagnostics.NewFileMetrics(ctx, opts.metricsFile, serviceName, version)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("%w: --metrics-file: %v", errBadFlag, err)
		}
		s.metrics = m
	}
	return s, nil
}

// errBadFlag marks flag values that cannot be used.
var errBadFlag = errors.New("invalid flag value")

// close flushes the diagnostics sinks and the log file. It uses its own
// deadline so an interrupted run still writes its spans.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.metrics != nil {
		if err := s.metrics.Shutdown(ctx); err != nil {
			s.printer.Warning("writing metrics: " + err.Error())
		}
	}
	if s.tracer != nil {
		if err := s.tracer.Shutdown(ctx); err != nil {
			s.printer.Warning("writing trace: " + err.Error())
		}
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

// exitCodeFor extends initializer.ExitCode with the session's own
// argument errors.
func exitCodeFor(err error) int {
	if errors.Is(err, config.ErrInvalidConfig) || errors.Is(err, errBadFlag) {
		return initializer.ExitBadArgs
	}
	return initializer.ExitCode(err)
}
