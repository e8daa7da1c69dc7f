package server

import "github.com/raysh454/a11ylens/internal/env"

// NavigateRequest loads a URL in the controlled browser.
type NavigateRequest struct {
	URL string `json:"url" example:"http://localhost:9999/broken"`
}

// HighlightRequest asks for a flagged element to be emphasized. DurationMS of
// zero uses the configured default.
type HighlightRequest struct {
	SelectorPath []string `json:"selector_path" example:"[\"img.hero\"]"`
	DurationMS   int      `json:"duration_ms" example:"4000"`
}

// EnvironmentResponse is the resolved environment plus the visibility gate.
type EnvironmentResponse struct {
	env.Decision
	ShouldShow bool   `json:"should_show"`
	Message    string `json:"message,omitempty"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"element not found"`
}
