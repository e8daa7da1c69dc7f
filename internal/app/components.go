package app

import (
	"context"
	"fmt"

	"github.com/raysh454/a11ylens/internal/audit"
	"github.com/raysh454/a11ylens/internal/browser"
	"github.com/raysh454/a11ylens/internal/env"
	"github.com/raysh454/a11ylens/internal/highlight"
	"github.com/raysh454/a11ylens/internal/history"
	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/webclient"
)

// Page is the browser tab the lens drives. *browser.Session implements it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	Location(ctx context.Context) (string, error)
	EnsureStyleSheets(ctx context.Context) (int, error)
	Close() error
}

// Components are the collaborators a Lens is assembled from. Page, Document
// and Engine are required; Window and Store are optional.
type Components struct {
	Page     Page
	Document highlight.Document
	Engine   audit.Engine

	// Window reads variables the page itself publishes.
	Window env.Lookup

	Store *history.Store

	// closers run on Lens.Close after the page is closed.
	closers []func() error
}

func init() {
	browser.RegisterStyleSheet(highlight.StyleSheetID, highlight.StyleSheet)
}

// Open starts Chrome and wires the real components: a browser session, the
// axe engine fed by a webclient-backed script loader, and, when enabled, the
// history store.
func Open(ctx context.Context, cfg *Config, logger logging.Logger) (*Lens, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	client := webclient.NewClient(cfg.WebClient, logger, nil)

	var store *history.Store
	if cfg.History.Enabled {
		path, err := ExpandPath(cfg.History.Path)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("expanding history path: %w", err)
		}
		if store, err = history.Open(path, logger); err != nil {
			client.Close()
			return nil, fmt.Errorf("opening history: %w", err)
		}
	}

	session, err := browser.NewSession(ctx, cfg.Browser, logger)
	if err != nil {
		client.Close()
		if store != nil {
			store.Close()
		}
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	loader := audit.NewLoader(cfg.Audit, client, logger)
	engine := audit.NewAxeEngine(session, loader, cfg.Audit, logger)

	return NewLens(cfg, Components{
		Page:     session,
		Document: session,
		Engine:   engine,
		Window:   session.WindowVars(cfg.WindowEnvTimeout),
		Store:    store,
		closers:  []func() error{client.Close},
	}, logger), nil
}
