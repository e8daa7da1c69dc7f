package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/raysh454/a11ylens/internal/env"
	"github.com/raysh454/a11ylens/internal/highlight"
	"github.com/raysh454/a11ylens/internal/history"
	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/model"
	"github.com/raysh454/a11ylens/internal/scan"
	"github.com/raysh454/a11ylens/internal/utils"
)

// ErrHistoryDisabled is returned by the history accessors when no store is
// configured.
var ErrHistoryDisabled = errors.New("history disabled")

// Lens is one overlay instance bound to one browser page: a scan controller,
// a highlighter, an environment resolver and, optionally, a history store
// that records every successful scan.
type Lens struct {
	cfg      *Config
	logger   logging.Logger
	page     Page
	ctl      *scan.Controller
	hl       *highlight.Highlighter
	resolver *env.Resolver
	store    *history.Store
	closers  []func() error

	recorded chan struct{}

	mu        sync.Mutex
	override  string
	navigated bool
	closed    bool
}

// NewLens assembles a Lens from c. Successful scans are saved to c.Store in
// the background until Close.
func NewLens(cfg *Config, c Components, logger logging.Logger) *Lens {
	if logger == nil {
		logger = logging.Nop()
	}

	lookups := []env.Lookup{env.BuildVars(), env.ProcessEnv(), env.Vars(cfg.Env.Vars)}
	if c.Window != nil {
		lookups = append(lookups, c.Window)
	}

	l := &Lens{
		cfg:      cfg,
		logger:   logger.With(logging.Field{Key: "component", Value: "lens"}),
		page:     c.Page,
		ctl:      scan.NewController(c.Engine, cfg.Scan, logger),
		hl:       highlight.New(c.Document, cfg.Highlight, logger),
		resolver: env.NewResolver(cfg.Env, logger, lookups...),
		store:    c.Store,
		closers:  c.closers,
		recorded: make(chan struct{}),
	}

	if l.store != nil {
		states, _ := l.ctl.Subscribe(16)
		go l.record(states)
	} else {
		close(l.recorded)
	}
	return l
}

// SetOverride fixes the environment name used when Environment is called
// without one, as the CLI --env flag does.
func (l *Lens) SetOverride(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.override = name
}

func (l *Lens) State() scan.State                                 { return l.ctl.State() }
func (l *Lens) Start()                                            { l.ctl.Start() }
func (l *Lens) Clear()                                            { l.ctl.Clear() }
func (l *Lens) Subscribe(buffer int) (<-chan scan.State, func()) { return l.ctl.Subscribe(buffer) }

// Enabled is the host switch from the config.
func (l *Lens) Enabled() bool { return l.cfg.Enabled }

// Environment resolves the environment. An empty override falls back to the
// one set with SetOverride.
func (l *Lens) Environment(override string) env.Decision {
	if override == "" {
		l.mu.Lock()
		override = l.override
		l.mu.Unlock()
	}
	return l.resolver.Resolve(override)
}

// Visible reports whether the overlay should show for the current environment.
func (l *Lens) Visible(force bool) (env.Decision, bool) {
	d := l.Environment("")
	return d, env.ShouldShow(l.cfg.Enabled, d.Name, force)
}

// Navigate loads url and prepares the page. The previous page's scan state is
// cleared. The first navigation mounts the controller, which auto-starts per
// config; later navigations start a fresh scan when auto-start is on. No scan
// is started while the overlay is hidden.
func (l *Lens) Navigate(ctx context.Context, url string) error {
	target, err := utils.NormalizeTarget(url)
	if err != nil {
		return err
	}

	l.ctl.Clear()
	if err := l.page.Navigate(ctx, target); err != nil {
		return fmt.Errorf("navigate %s: %w", target, err)
	}
	if n, err := l.page.EnsureStyleSheets(ctx); err != nil {
		l.logger.Warn("injecting style sheets", logging.Field{Key: "error", Value: err})
	} else if n > 0 {
		l.logger.Debug("injected style sheets", logging.Field{Key: "count", Value: n})
	}

	l.mu.Lock()
	first := !l.navigated
	l.navigated = true
	l.mu.Unlock()

	d, show := l.Visible(false)
	l.logger.Info("navigated",
		logging.Field{Key: "url", Value: target},
		logging.Field{Key: "env", Value: d.Name},
		logging.Field{Key: "visible", Value: show})
	if !show {
		return nil
	}
	if first {
		l.ctl.Mount()
	} else if l.cfg.Scan.AutoStart {
		l.ctl.Start()
	}
	return nil
}

// Location is the URL currently loaded in the page.
func (l *Lens) Location(ctx context.Context) (string, error) {
	return l.page.Location(ctx)
}

// Highlight emphasizes the element at path. d <= 0 uses the configured
// duration.
func (l *Lens) Highlight(ctx context.Context, path []string, d time.Duration) error {
	return l.hl.Highlight(ctx, path, d)
}

func (l *Lens) ListScans(ctx context.Context, url string, limit int) ([]history.Record, error) {
	if l.store == nil {
		return nil, ErrHistoryDisabled
	}
	return l.store.List(ctx, url, limit)
}

func (l *Lens) CompareLatest(ctx context.Context, url string) (*history.Comparison, error) {
	if l.store == nil {
		return nil, ErrHistoryDisabled
	}
	return l.store.CompareLatest(ctx, url)
}

func (l *Lens) GetScan(ctx context.Context, id string) (*model.ScanResult, error) {
	if l.store == nil {
		return nil, ErrHistoryDisabled
	}
	return l.store.Get(ctx, id)
}

// record saves each new successful result. It returns once the controller
// closes the channel on Dispose, after draining what was already published.
func (l *Lens) record(states <-chan scan.State) {
	defer close(l.recorded)
	var last string
	for st := range states {
		if st.Status != scan.StatusSucceeded || st.Result == nil || st.Result.ID == last {
			continue
		}
		last = st.Result.ID
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rec, err := l.store.Save(ctx, st.Result, l.Environment("").Name)
		cancel()
		if err != nil {
			l.logger.Warn("saving scan", logging.Field{Key: "id", Value: st.Result.ID}, logging.Field{Key: "error", Value: err})
			continue
		}
		l.logger.Info("saved scan",
			logging.Field{Key: "id", Value: rec.ID},
			logging.Field{Key: "violations", Value: rec.Violations})
	}
}

// Close restores highlighted elements, disposes the controller, waits for
// pending history writes and releases the page and store.
func (l *Lens) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	var errs []error
	if err := l.hl.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("closing highlighter: %w", err))
	}
	l.ctl.Dispose()
	select {
	case <-l.recorded:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("waiting for history writes: %w", ctx.Err()))
	}
	if err := l.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing page: %w", err))
	}
	for _, c := range l.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if l.store != nil {
		if err := l.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing history: %w", err))
		}
	}
	l.logger.Info("lens closed")
	return errors.Join(errs...)
}
