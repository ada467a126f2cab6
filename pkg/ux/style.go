// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux renders terminal output for the octo-journey CLI.
package ux

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Tide pool palette
var (
	ColorInkBright = lipgloss.Color("#C77DFF") // octopus ink, titles
	ColorInk       = lipgloss.Color("#9D4EDD") // borders
	ColorReef      = lipgloss.Color("#2CD7C7") // success, highlights
	ColorSand      = lipgloss.Color("#F4D03F") // warnings
	ColorCoral     = lipgloss.Color("#E74C3C") // errors
	ColorSlate     = lipgloss.Color("#5C6B73") // muted text
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title   lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Method  lipgloss.Style
	Box     lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorInkBright),
	Bold:    lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorSlate),
	Success: lipgloss.NewStyle().Foreground(ColorReef),
	Warning: lipgloss.NewStyle().Foreground(ColorSand),
	Method:  lipgloss.NewStyle().Bold(true).Foreground(ColorReef).Width(5),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorInk).
		Padding(0, 1),
}

// Mode controls how rich the CLI output is.
type Mode string

const (
	// ModeFull draws boxes and colours.
	ModeFull Mode = "full"

	// ModeMinimal prints plain lines without boxes.
	ModeMinimal Mode = "minimal"

	// ModeMachine prints key=value lines suitable for scripts.
	ModeMachine Mode = "machine"
)

// EnvMode overrides DetectMode.
const EnvMode = "OCTO_UX"

// ParseMode converts a string to a Mode. Unknown values are ModeMinimal.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "f":
		return ModeFull
	case "machine", "quiet", "q":
		return ModeMachine
	default:
		return ModeMinimal
	}
}

// DetectMode picks a Mode for output written to f: the OCTO_UX value if set,
// ModeMachine when f is not a terminal, otherwise ModeFull.
func DetectMode(f *os.File) Mode {
	if env := os.Getenv(EnvMode); env != "" {
		return ParseMode(env)
	}
	if f == nil {
		return ModeMachine
	}
	fd := f.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return ModeMachine
	}
	return ModeFull
}
