// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import (
	"fmt"
	"math"
	"sync"
)

// originalName is handed out for the very first tagging.
const originalName = "Original Barry"

// NameSequencer hands out deterministic octopus names.
//
// # Description
//
// The first call to Next returns "Original Barry"; every later call returns
// "Barry N" where N is the counter value before the increment. Reading the
// counter and incrementing it happen under one lock, so no two callers can
// observe the same value.
//
// # Thread Safety
//
// Safe for concurrent use. The lock is independent of the registry's
// collection lock.
type NameSequencer struct {
	mu    sync.Mutex
	count uint64
}

// NewNameSequencer returns a sequencer whose counter starts at zero.
func NewNameSequencer() *NameSequencer {
	return &NameSequencer{}
}

// Next returns the next name and advances the counter by exactly one.
//
// Next panics once the counter is exhausted rather than wrap around and hand
// out "Original Barry" a second time.
func (s *NameSequencer) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count == math.MaxUint64 {
		panic("registry: name sequencer exhausted")
	}
	n := s.count
	s.count++

	if n == 0 {
		return originalName
	}
	return fmt.Sprintf("Barry %d", n)
}

// Issued reports how many names have been handed out so far.
func (s *NameSequencer) Issued() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
