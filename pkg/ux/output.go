// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the bootstrap CLI.
package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Maple palette
var (
	ColorLeaf    = lipgloss.Color("#D9481C") // Maple red - titles, highlights
	ColorAmber   = lipgloss.Color("#F2A23A") // Autumn amber - accents
	ColorBark    = lipgloss.Color("#6B4F3A") // Bark - borders
	ColorSuccess = lipgloss.Color("#4CAF50")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#7F8C8D")
)

// Icon provides status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
	IconLeaf    Icon = "🍁"
)

// word is the plain-text form of an icon in machine output.
func (i Icon) word() string {
	switch i {
	case IconSuccess:
		return "ok"
	case IconWarning:
		return "warn"
	case IconError:
		return "fail"
	case IconPending:
		return "start"
	default:
		return "info"
	}
}

// styles are bound to one renderer so color follows the destination, not
// the process's stdout.
type styles struct {
	title   lipgloss.Style
	bold    lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	accent  lipgloss.Style
	box     lipgloss.Style
	errBox  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(ColorLeaf),
		bold:    r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(ColorMuted),
		success: r.NewStyle().Foreground(ColorSuccess),
		warning: r.NewStyle().Foreground(ColorWarning),
		failure: r.NewStyle().Foreground(ColorError),
		accent:  r.NewStyle().Foreground(ColorAmber).Bold(true),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBark).
			Padding(0, 1),
		errBox: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorError).
			Padding(0, 1),
	}
}

func (s styles) icon(i Icon) string {
	switch i {
	case IconSuccess:
		return s.success.Render(string(i))
	case IconWarning:
		return s.warning.Render(string(i))
	case IconError:
		return s.failure.Render(string(i))
	case IconPending:
		return s.muted.Render(string(i))
	default:
		return string(i)
	}
}

// Printer writes human output to out and problems to errOut at one
// personality level.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	level  PersonalityLevel
	s      styles
}

// NewPrinter creates a Printer. Levels without color strip ANSI codes even
// when out is a terminal.
func NewPrinter(out, errOut io.Writer, level PersonalityLevel) *Printer {
	r := lipgloss.NewRenderer(out)
	if !level.UsesColor() {
		r.SetColorProfile(termenv.Ascii)
	}
	return &Printer{out: out, errOut: errOut, level: level, s: newStyles(r)}
}

// Level returns the personality level.
func (p *Printer) Level() PersonalityLevel {
	return p.level
}

// Title prints a styled title. Machine output has no titles.
func (p *Printer) Title(text string) {
	if p.level == PersonalityMachine {
		return
	}
	fmt.Fprintln(p.out, p.s.title.Render(text))
}

// Step prints one progress line: "[2/5] ✓ scaffold  13 created".
func (p *Printer) Step(index, total int, name string, status Icon, detail string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.out, "STEP\t%d/%d\t%s\t%s\t%s\n", index, total, name, status.word(), detail)
	default:
		line := fmt.Sprintf("%s %s %s", p.s.muted.Render(fmt.Sprintf("[%d/%d]", index, total)), p.s.icon(status), p.s.bold.Render(name))
		if detail != "" {
			line += "  " + p.s.muted.Render(detail)
		}
		fmt.Fprintln(p.out, line)
	}
}

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.out, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(p.out, "%s %s\n", p.s.icon(IconSuccess), text)
	default:
		fmt.Fprintf(p.out, "%s %s\n", p.s.icon(IconSuccess), p.s.success.Render(text))
	}
}

// Warning prints a warning message. Machine output sends it to errOut.
func (p *Printer) Warning(text string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.errOut, "WARN: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(p.out, "%s %s\n", p.s.icon(IconWarning), text)
	default:
		fmt.Fprintf(p.out, "%s %s\n", p.s.icon(IconWarning), p.s.warning.Render(text))
	}
}

// Error prints "Error: text" to errOut at every level.
func (p *Printer) Error(text string) {
	switch p.level {
	case PersonalityMachine, PersonalityMinimal:
		fmt.Fprintf(p.errOut, "Error: %s\n", text)
	default:
		fmt.Fprintf(p.errOut, "%s %s\n", p.s.icon(IconError), p.s.failure.Render("Error: "+text))
	}
}

// Info prints an informational message
func (p *Printer) Info(text string) {
	if p.level == PersonalityMachine {
		fmt.Fprintln(p.out, text)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", p.s.muted.Render("│"), text)
}

// KeyValue prints an aligned "key: value" line.
func (p *Printer) KeyValue(key, value string) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.out, "%s: %s\n", strings.ToUpper(strings.ReplaceAll(key, " ", "_")), value)
		return
	}
	fmt.Fprintf(p.out, "  %s %s\n", p.s.muted.Render(fmt.Sprintf("%-18s", key+":")), value)
}

// Box prints content in a rounded box at full level. Other levels print
// the title and content as plain lines.
func (p *Printer) Box(title, content string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.out, "%s: %s\n", strings.ToUpper(title), strings.ReplaceAll(content, "\n", " "))
	case PersonalityFull:
		fmt.Fprintln(p.out, p.s.box.Render(p.s.title.Render(title)+"\n"+content))
	default:
		fmt.Fprintf(p.out, "%s\n%s\n", p.s.bold.Render(title), content)
	}
}

// ErrorBox prints a failure with the tool's own diagnostic to errOut.
func (p *Printer) ErrorBox(title, content string) {
	if p.level != PersonalityFull {
		p.Error(title)
		if content != "" {
			fmt.Fprintln(p.errOut, content)
		}
		return
	}
	fmt.Fprintln(p.errOut, p.s.errBox.Render(p.s.failure.Bold(true).Render("Error: "+title)+"\n"+content))
}

// Command highlights a command the user should run next.
func (p *Printer) Command(label, command string) {
	switch p.level {
	case PersonalityMachine:
		fmt.Fprintf(p.out, "NEXT: %s\n", command)
	default:
		fmt.Fprintf(p.out, "%s %s %s\n", label, p.s.muted.Render(string(IconArrow)), p.s.accent.Render(command))
	}
}

// Summary prints created/present/warning counts.
func (p *Printer) Summary(created, present, warnings int) {
	if p.level == PersonalityMachine {
		fmt.Fprintf(p.out, "SUMMARY: created=%d present=%d warnings=%d\n", created, present, warnings)
		return
	}
	fmt.Fprintf(p.out, "\n%s %s  %s %s  %s %s\n",
		p.s.success.Render(fmt.Sprint(created)), p.s.muted.Render("created"),
		p.s.bold.Render(fmt.Sprint(present)), p.s.muted.Render("already present"),
		p.s.warning.Render(fmt.Sprint(warnings)), p.s.muted.Render("warnings"),
	)
}
