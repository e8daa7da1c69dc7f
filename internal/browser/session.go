// Package browser drives a Chrome page through chromedp. A Session is the
// page the overlay attaches to: the audit engine evaluates scripts in it, the
// highlighter resolves and restyles its elements, and the environment
// resolver reads its window globals.
package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/raysh454/a11ylens/internal/logging"
)

type Session struct {
	cfg    Config
	logger logging.Logger

	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	mu      sync.Mutex
	objects map[runtime.RemoteObjectID]struct{}
	closed  bool
}

// NewSession launches Chrome and opens a blank tab. The browser lives until
// Close or until parent is canceled.
func NewSession(parent context.Context, cfg Config, logger logging.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", cfg.Headless))
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// The first Run starts the browser.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	s := &Session{
		cfg:         cfg,
		logger:      logger.With(logging.Field{Key: "component", Value: "browser"}),
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		objects:     make(map[runtime.RemoteObjectID]struct{}),
	}
	s.logger.Info("browser started", logging.Field{Key: "headless", Value: cfg.Headless})
	return s, nil
}

// scoped derives a context that runs against the session's tab and is also
// canceled with ctx.
func (s *Session) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.ctx)
	if ctx == nil {
		return runCtx, cancel
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.isClosed() {
		return fmt.Errorf("browser session closed")
	}
	runCtx, cancel := s.scoped(ctx)
	defer cancel()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate loads url and waits for the network to go idle, or for
// NavigateTimeout, whichever comes first. Remote objects held for the previous
// document are released.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.releaseObjects(ctx)

	if err := s.run(ctx, network.Enable()); err != nil {
		return fmt.Errorf("enable network events: %w", err)
	}

	runCtx, cancel := s.scoped(ctx)
	defer cancel()

	idleAfter := s.cfg.IdleAfter
	if idleAfter <= 0 {
		idleAfter = 500 * time.Millisecond
	}
	idle := waitNetworkIdle(runCtx, idleAfter)

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	timeout := s.cfg.NavigateTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	select {
	case <-idle:
	case <-time.After(timeout):
		s.logger.Warn("network never went idle",
			logging.Field{Key: "url", Value: url},
			logging.Field{Key: "timeout", Value: timeout.String()})
	case <-runCtx.Done():
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return runCtx.Err()
	}

	s.logger.Info("navigated", logging.Field{Key: "url", Value: url})
	return nil
}

// Location returns the current document URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	if err := s.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Evaluate runs expr in the page, awaiting a returned promise, and decodes the
// JSON value into res.
func (s *Session) Evaluate(ctx context.Context, expr string, res any) error {
	return s.run(ctx, chromedp.Evaluate(expr, res, awaitPromise))
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// Close releases the tab and the browser process.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.objects = nil
	s.mu.Unlock()

	s.cancel()
	s.allocCancel()
	s.logger.Info("browser closed")
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) track(id runtime.RemoteObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.objects[id] = struct{}{}
	}
}

func (s *Session) releaseObjects(ctx context.Context) {
	s.mu.Lock()
	ids := make([]runtime.RemoteObjectID, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	s.objects = make(map[runtime.RemoteObjectID]struct{})
	s.mu.Unlock()

	for _, id := range ids {
		// The document may already be gone, which also frees the object.
		_ = s.run(ctx, runtime.ReleaseObject(id))
	}
}

// waitNetworkIdle signals once no request has been in flight for idleAfter.
// A page that issues no requests at all after navigation is idle idleAfter
// after the deadline timer is first armed by a finished request.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) <-chan struct{} {
	idleChan := make(chan struct{})
	var activeReqs int32
	var timer *time.Timer
	var timerMutex sync.Mutex
	var once sync.Once

	startTimer := func() {
		timerMutex.Lock()
		defer timerMutex.Unlock()

		if timer != nil {
			timer.Stop()
		}

		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&activeReqs) == 0 {
				once.Do(func() {
					close(idleChan)
				})
			}
		})
	}

	chromedp.ListenTarget(ctx,
		func(ev any) {
			switch ev.(type) {
			case *network.EventRequestWillBeSent:
				atomic.AddInt32(&activeReqs, 1)
			case *network.EventLoadingFinished, *network.EventLoadingFailed:
				if atomic.AddInt32(&activeReqs, -1) <= 0 {
					atomic.StoreInt32(&activeReqs, 0)
					startTimer()
				}
			}
		})

	return idleChan
}
