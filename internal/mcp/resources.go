package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/raysh454/a11ylens/internal/render"
)

const (
	stateURI  = "a11ylens://state"
	reportURI = "a11ylens://report"
)

func registerResources(s *server.MCPServer, lens Lens) {
	s.AddResource(
		mcplib.NewResource(
			stateURI,
			"Scan State",
			mcplib.WithResourceDescription("Latest scan state as JSON"),
			mcplib.WithMIMEType("application/json"),
		),
		handleStateResource(lens),
	)

	s.AddResource(
		mcplib.NewResource(
			reportURI,
			"Scan Report",
			mcplib.WithResourceDescription("Latest scan state rendered as a text report"),
			mcplib.WithMIMEType("text/plain"),
		),
		handleReportResource(lens),
	)
}

func handleStateResource(lens Lens) server.ResourceHandlerFunc {
	return func(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		data, err := json.MarshalIndent(lens.State(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling state: %w", err)
		}
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      stateURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	}
}

func handleReportResource(lens Lens) server.ResourceHandlerFunc {
	return func(_ context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
		return []mcplib.ResourceContents{
			mcplib.TextResourceContents{
				URI:      reportURI,
				MIMEType: "text/plain",
				Text:     render.State(lens.State(), lens.Environment("")),
			},
		}, nil
	}
}
