// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Endpoint is one route listed in the banner.
type Endpoint struct {
	Method string
	Path   string
}

// BannerInfo is what the startup banner shows.
type BannerInfo struct {
	Name      string
	Version   string
	Address   string
	LogLevel  string
	Endpoints []Endpoint
}

// RenderBanner formats the startup banner for mode.
//
// # Description
//
// ModeFull draws a rounded box with the server name, version, listen
// address and routes. ModeMinimal prints the same content without the box.
// ModeMachine prints a single key=value line.
//
// Endpoints are sorted by path, then method.
func RenderBanner(info BannerInfo, mode Mode) string {
	endpoints := append([]Endpoint(nil), info.Endpoints...)
	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].Path != endpoints[j].Path {
			return endpoints[i].Path < endpoints[j].Path
		}
		return endpoints[i].Method < endpoints[j].Method
	})

	if mode == ModeMachine {
		return fmt.Sprintf("name=%s version=%s address=%s log_level=%s endpoints=%d\n",
			info.Name, info.Version, info.Address, info.LogLevel, len(endpoints))
	}

	var b strings.Builder
	b.WriteString(Styles.Title.Render(strings.ToUpper(info.Name)))
	b.WriteString(" " + Styles.Muted.Render(info.Version) + "\n\n")
	fmt.Fprintf(&b, "%s %s\n", Styles.Bold.Render("Listening:"), Styles.Success.Render("http://"+info.Address))
	fmt.Fprintf(&b, "%s %s\n", Styles.Bold.Render("Log level:"), info.LogLevel)

	if len(endpoints) > 0 {
		b.WriteString("\n" + Styles.Bold.Render("Endpoints:") + "\n")
		for _, e := range endpoints {
			fmt.Fprintf(&b, "  %s %s\n", Styles.Method.Render(e.Method), e.Path)
		}
	}
	b.WriteString("\n" + Styles.Muted.Render("Press Ctrl+C to stop"))

	if mode == ModeMinimal {
		return b.String() + "\n"
	}
	return Styles.Box.Render(b.String()) + "\n"
}

// PrintBanner writes RenderBanner's output to w.
func PrintBanner(w io.Writer, info BannerInfo, mode Mode) error {
	_, err := io.WriteString(w, RenderBanner(info, mode))
	return err
}
