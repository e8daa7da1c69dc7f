// Package mcp exposes the lens as Model Context Protocol tools so coding
// assistants can scan the page they are working on.
package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/raysh454/a11ylens/internal/env"
	"github.com/raysh454/a11ylens/internal/history"
	"github.com/raysh454/a11ylens/internal/scan"
)

// Lens is the subset of app.Lens the tools drive.
type Lens interface {
	State() scan.State
	Start()
	Clear()
	Subscribe(buffer int) (<-chan scan.State, func())

	Navigate(ctx context.Context, url string) error
	Highlight(ctx context.Context, path []string, d time.Duration) error

	Environment(override string) env.Decision
	Enabled() bool

	ListScans(ctx context.Context, url string, limit int) ([]history.Record, error)
}

// NewServer creates an MCP server with every a11ylens tool and resource
// registered.
func NewServer(lens Lens, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"a11ylens",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	registerTools(s, lens)
	registerResources(s, lens)

	return s
}
