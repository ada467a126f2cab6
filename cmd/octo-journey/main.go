// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command octo-journey runs the octopus capture/tag test server.
//
// Usage:
//
//	go run ./cmd/octo-journey
//	go run ./cmd/octo-journey -p 9090 -vv
//	go run ./cmd/octo-journey --config octo.yaml --tag-delay 50ms
//	go run ./cmd/octo-journey openapi --format yaml
//
// Example requests:
//
//	# Look at both sacks
//	curl http://localhost:8080/v1/spot-check | jq
//
//	# Try to capture an octopus (201 on success, 200 when nothing was found)
//	curl -X POST http://localhost:8080/v1/capture
//
//	# Force a find with a pinned roll
//	curl -X POST http://localhost:8080/v1/capture -d '{"roll": 7}'
//
//	# Tag everything captured so far
//	curl -X POST http://localhost:8080/v1/tag | jq
//
//	# Stream capture/tag events
//	websocat ws://localhost:8080/v1/watch
package main

import (
	"fmt"
	"os"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
