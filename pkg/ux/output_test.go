// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"
)

func newTestPrinter(level PersonalityLevel) (*Printer, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return NewPrinter(&out, &errOut, level), &out, &errOut
}

// =============================================================================
// Machine Output Tests
// =============================================================================

func TestPrinter_Machine(t *testing.T) {
	p, out, errOut := newTestPrinter(PersonalityMachine)

	p.Title("Bootstrapping maplejuris")
	p.Step(2, 5, "scaffold", IconSuccess, "13 created")
	p.Success("done")
	p.Warning(".gitignore does not cover .env")
	p.Info("plain")
	p.KeyValue("log file", "/tmp/b.log")
	p.Command("Activate with", "poetry shell")
	p.Summary(23, 0, 1)

	wantOut := strings.Join([]string{
		"STEP\t2/5\tscaffold\tok\t13 created",
		"OK: done",
		"plain",
		"LOG_FILE: /tmp/b.log",
		"NEXT: poetry shell",
		"SUMMARY: created=23 present=0 warnings=1",
		"",
	}, "\n")
	if out.String() != wantOut {
		t.Errorf("stdout =\n%q\nwant\n%q", out.String(), wantOut)
	}
	if errOut.String() != "WARN: .gitignore does not cover .env\n" {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestPrinter_ErrorAlwaysOnErrOut(t *testing.T) {
	for _, level := range []PersonalityLevel{PersonalityFull, PersonalityStandard, PersonalityMinimal, PersonalityMachine} {
		t.Run(string(level), func(t *testing.T) {
			p, out, errOut := newTestPrinter(level)
			p.Error("step dependencies failed: Could not find a matching version of package fastapi")

			if out.Len() != 0 {
				t.Errorf("stdout got %q", out.String())
			}
			if !strings.Contains(errOut.String(), "Error: step dependencies failed: Could not find a matching version") {
				t.Errorf("stderr = %q", errOut.String())
			}
		})
	}
}

func TestPrinter_ErrorBox_CarriesDiagnostic(t *testing.T) {
	for _, level := range []PersonalityLevel{PersonalityFull, PersonalityMachine} {
		t.Run(string(level), func(t *testing.T) {
			p, _, errOut := newTestPrinter(level)
			p.ErrorBox("step hooks failed", "An error has occurred: FatalError: git failed. Is it installed, and are you in a Git repository directory?")

			for _, want := range []string{"step hooks failed", "git failed"} {
				if !strings.Contains(errOut.String(), want) {
					t.Errorf("stderr %q lacks %q", errOut.String(), want)
				}
			}
		})
	}
}

// =============================================================================
// Human Output Tests
// =============================================================================

func TestPrinter_NoColorWithoutTerminal(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityFull)
	p.Success("done")
	p.Step(1, 5, "toolchain", IconPending, "")

	if strings.Contains(out.String(), "\x1b[") {
		t.Errorf("output to a buffer must not contain ANSI codes: %q", out.String())
	}
}

func TestPrinter_Step(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityMinimal)
	p.Step(3, 5, "dependencies", IconSuccess, "12 added")
	p.Step(4, 5, "hooks", IconPending, "")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), out.String())
	}
	if lines[0] != "[3/5] ✓ dependencies  12 added" {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "[4/5] ○ hooks" {
		t.Errorf("line 1 = %q", lines[1])
	}
}

func TestPrinter_TitleSkippedForMachine(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityMachine)
	p.Title("ignored")
	if out.Len() != 0 {
		t.Errorf("machine title wrote %q", out.String())
	}

	p, out, _ = newTestPrinter(PersonalityStandard)
	p.Title("Bootstrapping")
	if !strings.Contains(out.String(), "Bootstrapping") {
		t.Errorf("title missing: %q", out.String())
	}
}

func TestPrinter_Box(t *testing.T) {
	p, out, _ := newTestPrinter(PersonalityFull)
	p.Box("Next", "eval $(poetry env activate)")
	if !strings.Contains(out.String(), "╭") || !strings.Contains(out.String(), "eval $(poetry env activate)") {
		t.Errorf("full box output = %q", out.String())
	}

	p, out, _ = newTestPrinter(PersonalityMinimal)
	p.Box("Next", "poetry shell")
	if out.String() != "Next\npoetry shell\n" {
		t.Errorf("minimal box output = %q", out.String())
	}
}

func TestPrinter_Level(t *testing.T) {
	p, _, _ := newTestPrinter(PersonalityStandard)
	if p.Level() != PersonalityStandard {
		t.Errorf("Level() = %v", p.Level())
	}
}

func TestIcon_Word(t *testing.T) {
	tests := map[Icon]string{
		IconSuccess: "ok",
		IconWarning: "warn",
		IconError:   "fail",
		IconPending: "start",
		IconArrow:   "info",
	}
	for icon, want := range tests {
		if got := icon.word(); got != want {
			t.Errorf("%s.word() = %q, want %q", icon, got, want)
		}
	}
}
