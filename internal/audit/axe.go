package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/raysh454/a11ylens/internal/clock"
	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/model"
)

const axePresentExpr = `typeof window.axe !== 'undefined' && typeof window.axe.run === 'function'`

// AxeEngine runs axe-core inside the page reachable through an Evaluator.
type AxeEngine struct {
	page    Evaluator
	loader  *Loader
	options RunOptions
	cfg     Config
	logger  logging.Logger
	clock   clock.Clock

	running atomic.Bool
}

// NewAxeEngine builds an engine. The loader is consulted only when the page
// does not already define window.axe.
func NewAxeEngine(page Evaluator, loader *Loader, cfg Config, logger logging.Logger) *AxeEngine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &AxeEngine{
		page:    page,
		loader:  loader,
		options: cfg.Options,
		cfg:     cfg,
		logger:  logger.With(logging.Field{Key: "component", Value: "axe"}),
		clock:   clock.Real{},
	}
}

// WithClock replaces the clock used to stamp results that lack a timestamp.
func (e *AxeEngine) WithClock(c clock.Clock) *AxeEngine {
	e.clock = c
	return e
}

// Run executes one audit. A call made while another is in flight fails with
// ErrEngineBusy without touching the page.
func (e *AxeEngine) Run(ctx context.Context) (*model.ScanResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrEngineBusy
	}
	defer e.running.Store(false)

	if e.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RunTimeout)
		defer cancel()
	}

	if err := e.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	expr, err := runExpr(e.options)
	if err != nil {
		return nil, err
	}

	var out axeOutcome
	if err := e.page.Evaluate(ctx, expr, &out); err != nil {
		return nil, fmt.Errorf("evaluate axe.run: %w", err)
	}
	if out.Error != "" {
		busy := strings.Contains(strings.ToLower(out.Error), busyPhrase)
		e.logger.Warn("axe run rejected",
			logging.Field{Key: "error", Value: out.Error},
			logging.Field{Key: "busy", Value: busy})
		return nil, &EngineError{Message: out.Error, Busy: busy}
	}
	if out.Results == nil {
		return nil, &EngineError{Message: "engine returned no results"}
	}

	res := out.Results.toScanResult(e.clock.Now())
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scan result: %w", err)
	}
	e.logger.Info("axe run complete",
		logging.Field{Key: "url", Value: res.URL},
		logging.Field{Key: "violations", Value: len(res.Violations)},
		logging.Field{Key: "passes", Value: len(res.Passes)},
		logging.Field{Key: "incomplete", Value: len(res.Incomplete)})
	return res, nil
}

func (e *AxeEngine) ensureLoaded(ctx context.Context) error {
	var present bool
	if err := e.page.Evaluate(ctx, axePresentExpr, &present); err != nil {
		return fmt.Errorf("checking for axe: %w", err)
	}
	if present {
		return nil
	}
	if e.loader == nil {
		return fmt.Errorf("axe is not loaded in the page and no loader is configured")
	}

	src, err := e.loader.Script(ctx)
	if err != nil {
		return err
	}
	if err := e.page.Evaluate(ctx, injectExpr(src), &present); err != nil {
		return fmt.Errorf("inject axe: %w", err)
	}
	if !present {
		return fmt.Errorf("inject axe: window.axe still undefined")
	}
	e.logger.Debug("injected axe into page")
	return nil
}

// injectExpr hides AMD and CommonJS globals so the UMD bundle always
// assigns window.axe.
func injectExpr(src string) string {
	return "(function(){var define, module, exports;\n" + src + "\n})();\n" + axePresentExpr
}

func runExpr(opts RunOptions) (string, error) {
	b, err := json.Marshal(opts.axeOptions())
	if err != nil {
		return "", fmt.Errorf("encode axe options: %w", err)
	}
	return `(async () => {
  try {
    const results = await window.axe.run(document, ` + string(b) + `);
    return { results: JSON.parse(JSON.stringify(results)) };
  } catch (err) {
    return { error: String((err && err.message) || err) };
  }
})()`, nil
}
