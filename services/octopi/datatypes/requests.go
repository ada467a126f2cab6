// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// NoOctopusMessage is returned when a capture roll finds nothing.
const NoOctopusMessage = "No octopus analyzed!"

// requestValidate is the validator instance for request bodies.
var requestValidate = validator.New()

// =============================================================================
// Request Types
// =============================================================================

// CaptureRequest is the optional body of POST /v1/capture.
//
// # Fields
//
//   - Roll: Pins the capture roll to a value in [1, 100). Omitted means a
//     random roll. Rolls of 50 or less find an octopus.
type CaptureRequest struct {
	Roll *uint `json:"roll,omitempty" validate:"omitempty,gte=1,lt=100"`
}

// Validate checks the roll bounds.
func (r *CaptureRequest) Validate() error {
	return requestValidate.Struct(r)
}

// =============================================================================
// Response Types
// =============================================================================

// MessageResponse carries a human readable status.
type MessageResponse struct {
	Message string `json:"message"`
}

// TagResponse is the body of POST /v1/tag.
type TagResponse struct {
	Tagged map[OctopusID]TaggedOctopus `json:"tagged"`
	Count  int                         `json:"count"`
}

// NewTagResponse indexes a tagged batch by ID. A nil batch yields an empty,
// non-nil map so the JSON is always an object.
func NewTagResponse(batch []TaggedEntry) TagResponse {
	resp := TagResponse{
		Tagged: make(map[OctopusID]TaggedOctopus, len(batch)),
		Count:  len(batch),
	}
	for _, e := range batch {
		resp.Tagged[e.ID] = e.Octopus
	}
	return resp
}

// ErrorResponse is returned for rejected requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
