// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"fmt"
	"net/http"

	"github.com/AleutianAI/OctoJourney/services/octopi/datatypes"
	"github.com/gin-gonic/gin"
)

// =============================================================================
// OpenAPI Document Types
// =============================================================================

// OpenAPIDocument is a minimal OpenAPI 3.0 document.
type OpenAPIDocument struct {
	OpenAPI    string              `json:"openapi" yaml:"openapi"`
	Info       InfoObject          `json:"info" yaml:"info"`
	Paths      map[string]PathItem `json:"paths" yaml:"paths"`
	Components ComponentsObject    `json:"components" yaml:"components"`
	Tags       []TagObject         `json:"tags" yaml:"tags"`
}

// InfoObject contains API metadata.
type InfoObject struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Version     string `json:"version" yaml:"version"`
}

// ComponentsObject holds reusable schemas.
type ComponentsObject struct {
	Schemas map[string]any `json:"schemas" yaml:"schemas"`
}

// TagObject defines an API tag.
type TagObject struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// PathItem describes operations available on a path.
type PathItem struct {
	Get  *Operation `json:"get,omitempty" yaml:"get,omitempty"`
	Post *Operation `json:"post,omitempty" yaml:"post,omitempty"`
}

// Operation describes a single API operation.
type Operation struct {
	Summary     string              `json:"summary" yaml:"summary"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	OperationID string              `json:"operationId" yaml:"operationId"`
	Tags        []string            `json:"tags,omitempty" yaml:"tags,omitempty"`
	RequestBody *RequestBody        `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]Response `json:"responses" yaml:"responses"`
}

// RequestBody describes an operation's body.
type RequestBody struct {
	Required bool                 `json:"required" yaml:"required"`
	Content  map[string]MediaType `json:"content" yaml:"content"`
}

// Response describes an operation response.
type Response struct {
	Description string               `json:"description" yaml:"description"`
	Content     map[string]MediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

// MediaType describes a media type and schema.
type MediaType struct {
	Schema SchemaRef `json:"schema" yaml:"schema"`
}

// SchemaRef references a schema.
type SchemaRef struct {
	Ref  string `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// =============================================================================
// Document
// =============================================================================

const octopiTag = "octopi"

func ref(name string) SchemaRef {
	return SchemaRef{Ref: "#/components/schemas/" + name}
}

func jsonContent(name string) map[string]MediaType {
	return map[string]MediaType{"application/json": {Schema: ref(name)}}
}

// BuildOpenAPIDocument describes the v1 routes and their schemas.
func BuildOpenAPIDocument(version string) OpenAPIDocument {
	return OpenAPIDocument{
		OpenAPI: "3.0.3",
		Info: InfoObject{
			Title:       "OctoJourney API",
			Description: "Capture untagged octopi and give them names.",
			Version:     version,
		},
		Paths: map[string]PathItem{
			"/v1/spot-check": {
				Get: &Operation{
					Summary:     "Snapshot of every octopus",
					OperationID: "spotCheck",
					Tags:        []string{octopiTag},
					Responses: map[string]Response{
						"200": {Description: "Both sacks, keyed by octopus ID", Content: jsonContent("OctopiSnapshot")},
					},
				},
			},
			"/v1/capture": {
				Post: &Operation{
					Summary:     "Try to capture an octopus",
					Description: "Rolls in [1, 100); a roll of 50 or less finds an octopus.",
					OperationID: "capture",
					Tags:        []string{octopiTag},
					RequestBody: &RequestBody{Required: false, Content: jsonContent("CaptureRequest")},
					Responses: map[string]Response{
						"201": {Description: "Octopus captured", Content: jsonContent("CapturedOctopus")},
						"200": {Description: "Nothing found", Content: jsonContent("MessageResponse")},
						"400": {Description: "Malformed body or roll out of range", Content: jsonContent("ErrorResponse")},
					},
				},
			},
			"/v1/tag": {
				Post: &Operation{
					Summary:     "Name every untagged octopus",
					OperationID: "tag",
					Tags:        []string{octopiTag},
					Responses: map[string]Response{
						"200": {Description: "The batch tagged by this call", Content: jsonContent("TagResponse")},
					},
				},
			},
		},
		Components: ComponentsObject{Schemas: schemas()},
		Tags: []TagObject{
			{Name: octopiTag, Description: "Octopus capture and tagging"},
		},
	}
}

func schemas() map[string]any {
	feature := map[string]any{"$ref": "#/components/schemas/IdentifyingFeature"}
	id := map[string]any{"type": "string", "format": "uuid"}

	return map[string]any{
		"IdentifyingFeature": map[string]any{
			"type": "string",
			"enum": datatypes.FeatureNames(),
		},
		"UntaggedOctopus": map[string]any{
			"type":       "object",
			"required":   []string{"identifying_feature"},
			"properties": map[string]any{"identifying_feature": feature},
		},
		"TaggedOctopus": map[string]any{
			"type":     "object",
			"required": []string{"name", "identifying_feature"},
			"properties": map[string]any{
				"name":                map[string]any{"type": "string", "example": "Original Barry"},
				"identifying_feature": feature,
			},
		},
		"OctopiSnapshot": map[string]any{
			"type":     "object",
			"required": []string{"untagged_octopi", "tagged_octopi"},
			"properties": map[string]any{
				"untagged_octopi": map[string]any{
					"type":                 "object",
					"additionalProperties": map[string]any{"$ref": "#/components/schemas/UntaggedOctopus"},
				},
				"tagged_octopi": map[string]any{
					"type":                 "object",
					"additionalProperties": map[string]any{"$ref": "#/components/schemas/TaggedOctopus"},
				},
			},
		},
		"CapturedOctopus": map[string]any{
			"type":     "object",
			"required": []string{"id", "octopus"},
			"properties": map[string]any{
				"id":      id,
				"octopus": map[string]any{"$ref": "#/components/schemas/UntaggedOctopus"},
			},
		},
		"CaptureRequest": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"roll": map[string]any{"type": "integer", "minimum": 1, "maximum": 99},
			},
		},
		"TagResponse": map[string]any{
			"type":     "object",
			"required": []string{"tagged", "count"},
			"properties": map[string]any{
				"tagged": map[string]any{
					"type":                 "object",
					"additionalProperties": map[string]any{"$ref": "#/components/schemas/TaggedOctopus"},
				},
				"count": map[string]any{"type": "integer", "minimum": 0},
			},
		},
		"MessageResponse": map[string]any{
			"type":       "object",
			"properties": map[string]any{"message": map[string]any{"type": "string"}},
		},
		"ErrorResponse": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"error":   map[string]any{"type": "string"},
				"details": map[string]any{"type": "string"},
			},
		},
	}
}

// HandleOpenAPI serves the document built once at startup.
func HandleOpenAPI(version string) gin.HandlerFunc {
	doc := BuildOpenAPIDocument(version)
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, doc)
	}
}

// OpenAPIPath is where HandleOpenAPI is mounted.
const OpenAPIPath = "/api-docs/openapi.json"

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Octo-journey API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = () => {
      window.ui = SwaggerUIBundle({ url: %q, dom_id: "#swagger-ui" });
    };
  </script>
</body>
</html>
`

// HandleSwaggerUI serves a Swagger UI page that loads the document at specURL.
func HandleSwaggerUI(specURL string) gin.HandlerFunc {
	page := []byte(fmt.Sprintf(swaggerUIPage, specURL))
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	}
}
