package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/raysh454/a11ylens/internal/env"
	"github.com/raysh454/a11ylens/internal/render"
	"github.com/raysh454/a11ylens/internal/scan"
)

const defaultScanTimeout = 2 * time.Minute

func registerTools(s *server.MCPServer, lens Lens) {
	s.AddTool(
		mcplib.NewTool("a11y_scan",
			mcplib.WithDescription("Run an accessibility scan of the current page, or of url after navigating to it, and return the result as JSON"),
			mcplib.WithString("url", mcplib.Description("Page to load before scanning")),
			mcplib.WithString("env", mcplib.Description("Explicit environment name, overriding detection")),
			mcplib.WithBoolean("force", mcplib.Description("Scan even when the environment is not development-like")),
			mcplib.WithNumber("timeout_seconds", mcplib.Description("How long to wait for the scan (default 120)")),
		),
		handleScan(lens),
	)

	s.AddTool(
		mcplib.NewTool("a11y_state",
			mcplib.WithDescription("Returns the current scan state without starting a scan"),
		),
		handleState(lens),
	)

	s.AddTool(
		mcplib.NewTool("a11y_highlight",
			mcplib.WithDescription("Scroll a flagged element into view and outline it for a few seconds"),
			mcplib.WithArray("selector_path",
				mcplib.Required(),
				mcplib.Description("Selector path of the node, one selector per frame or shadow root"),
				mcplib.WithStringItems(),
			),
			mcplib.WithNumber("duration_ms", mcplib.Description("Highlight duration in milliseconds")),
		),
		handleHighlight(lens),
	)

	s.AddTool(
		mcplib.NewTool("a11y_environment",
			mcplib.WithDescription("Returns the resolved environment and whether the overlay would be shown"),
			mcplib.WithString("env", mcplib.Description("Explicit environment name")),
			mcplib.WithBoolean("force", mcplib.Description("Force visibility")),
		),
		handleEnvironment(lens),
	)

	s.AddTool(
		mcplib.NewTool("a11y_clear",
			mcplib.WithDescription("Discard the current scan result and stop any pending retry"),
		),
		handleClear(lens),
	)

	s.AddTool(
		mcplib.NewTool("a11y_history",
			mcplib.WithDescription("Lists stored scans, newest first"),
			mcplib.WithString("url", mcplib.Description("Only scans of this page")),
			mcplib.WithNumber("limit", mcplib.Description("Maximum records (default 20)")),
		),
		handleHistory(lens),
	)
}

type environmentResult struct {
	env.Decision
	ShouldShow bool   `json:"should_show"`
	Message    string `json:"message,omitempty"`
}

func visibility(lens Lens, req mcplib.CallToolRequest) environmentResult {
	d := lens.Environment(req.GetString("env", ""))
	show := env.ShouldShow(lens.Enabled(), d.Name, req.GetBool("force", false))
	res := environmentResult{Decision: d, ShouldShow: show}
	if !show {
		res.Message = render.DisabledMessage(d)
	}
	return res
}

func handleScan(lens Lens) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		timeout := defaultScanTimeout
		if secs := req.GetFloat("timeout_seconds", 0); secs > 0 {
			timeout = time.Duration(secs * float64(time.Second))
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		// Subscribed before navigating so an auto-started scan is observed.
		states, unsubscribe := lens.Subscribe(16)
		defer unsubscribe()
		run := lens.State().Run

		if url := req.GetString("url", ""); url != "" {
			if err := lens.Navigate(ctx, url); err != nil {
				return errorResult(fmt.Sprintf("navigation failed: %v", err)), nil
			}
		}

		// The page just loaded may declare its own environment.
		vis := visibility(lens, req)
		if !vis.ShouldShow {
			lens.Clear()
			return errorResult(vis.Message), nil
		}
		if lens.State().Run == run {
			lens.Start()
		}

		st, err := scan.Await(ctx, states, run)
		if err != nil {
			return errorResult(fmt.Sprintf("scan did not finish: %v", err)), nil
		}
		if st.Status == scan.StatusFailed {
			return errorResult(fmt.Sprintf("scan failed (%s): %s", st.Err.Kind, st.Err.Message)), nil
		}
		return jsonResult(st.Result)
	}
}

func handleState(lens Lens) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		return jsonResult(lens.State())
	}
}

func handleHighlight(lens Lens) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		path := req.GetStringSlice("selector_path", nil)
		if len(path) == 0 {
			return errorResult("selector_path is required"), nil
		}
		d := time.Duration(req.GetFloat("duration_ms", 0)) * time.Millisecond
		if err := lens.Highlight(ctx, path, d); err != nil {
			return errorResult(err.Error()), nil
		}
		return textResult("highlighted " + path[len(path)-1]), nil
	}
}

func handleEnvironment(lens Lens) server.ToolHandlerFunc {
	return func(_ context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		return jsonResult(visibility(lens, req))
	}
}

func handleClear(lens Lens) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		lens.Clear()
		return textResult("cleared"), nil
	}
}

func handleHistory(lens Lens) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		limit := int(req.GetFloat("limit", 20))
		recs, err := lens.ListScans(ctx, req.GetString("url", ""), limit)
		if err != nil {
			return errorResult(fmt.Sprintf("listing history failed: %v", err)), nil
		}
		return jsonResult(recs)
	}
}

// jsonResult marshals v into a text content result.
func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(text)},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
