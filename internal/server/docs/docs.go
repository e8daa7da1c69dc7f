// Package docs registers the OpenAPI document served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "a11ylens maintainers",
            "url": "https://github.com/raysh454/a11ylens"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/state": {
            "get": {
                "produces": ["application/json"],
                "tags": ["scan"],
                "summary": "Current scan state",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/scan.State"}}}
            }
        },
        "/scan": {
            "post": {
                "produces": ["application/json"],
                "tags": ["scan"],
                "summary": "Start a scan of the current page",
                "description": "No-op while a scan is already running.",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/scan.State"}},
                    "403": {"description": "Hidden in this environment", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["scan"],
                "summary": "Clear the scan state",
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/navigate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["page"],
                "summary": "Load a URL in the browser",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/server.NavigateRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.NavigateRequest"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "502": {"description": "Navigation failed", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/highlight": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["page"],
                "summary": "Highlight an element from a scan result",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/server.HighlightRequest"}}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Element not found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}},
                    "422": {"description": "Element not eligible", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/environment": {
            "get": {
                "produces": ["application/json"],
                "tags": ["environment"],
                "summary": "Resolve the environment and visibility",
                "parameters": [
                    {"type": "string", "name": "override", "in": "query"},
                    {"type": "boolean", "name": "force", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/server.EnvironmentResponse"}}}
            }
        },
        "/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "List stored scans",
                "parameters": [
                    {"type": "string", "name": "url", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/history/compare": {
            "get": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Compare the two newest scans of a page",
                "parameters": [{"type": "string", "name": "url", "in": "query", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "No scans", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        },
        "/history/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["history"],
                "summary": "Get one stored scan",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/server.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "scan.State": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["idle", "scanning", "succeeded", "failed"]},
                "attempt": {"type": "integer"},
                "updated_at": {"type": "string"},
                "result": {"type": "object"},
                "error": {"type": "object", "properties": {"kind": {"type": "string"}, "message": {"type": "string"}}}
            }
        },
        "server.NavigateRequest": {
            "type": "object",
            "properties": {"url": {"type": "string", "example": "http://localhost:9999/broken"}}
        },
        "server.HighlightRequest": {
            "type": "object",
            "properties": {
                "selector_path": {"type": "array", "items": {"type": "string"}, "example": ["img.hero"]},
                "duration_ms": {"type": "integer", "example": 4000}
            }
        },
        "server.EnvironmentResponse": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "is_development_like": {"type": "boolean"},
                "source": {"type": "string"},
                "key": {"type": "string"},
                "should_show": {"type": "boolean"},
                "message": {"type": "string"}
            }
        },
        "server.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "element not found"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "a11ylens API",
	Description:      "Drive accessibility scans of a live page, highlight flagged elements and browse scan history.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
