// Package scan drives audit runs for one page and publishes their lifecycle
// as State snapshots.
package scan

import (
	"context"
	"fmt"
	"sync"

	"github.com/raysh454/a11ylens/internal/audit"
	"github.com/raysh454/a11ylens/internal/clock"
	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/model"
)

// Controller runs at most one scan at a time. All state writes happen under
// mu and only when the writer's generation is current and the controller is
// still live.
type Controller struct {
	engine audit.Engine
	cfg    Config
	logger logging.Logger
	clock  clock.Clock

	// ctx is the liveness token; it is canceled by Dispose.
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	gen       uint64
	runs      uint64
	runCancel context.CancelFunc
	retry     clock.Timer
	delayed   clock.Timer
	mounted   bool
	disposed  bool
	subs      map[int]chan State
	nextSub   int
}

type Option func(*Controller)

// WithClock replaces the wall clock used for retries and the initial delay.
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

func NewController(engine audit.Engine, cfg Config, logger logging.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		engine: engine,
		cfg:    cfg,
		logger: logger.With(logging.Field{Key: "component", Value: "scan"}),
		clock:  clock.Real{},
		ctx:    ctx,
		cancel: cancel,
		subs:   make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state = State{Status: StatusIdle, UpdatedAt: c.clock.Now()}
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start begins a scan. It is a no-op while a scan is running or after Dispose.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || c.state.Status == StatusScanning {
		return
	}
	c.stopTimersLocked()
	c.gen++
	c.runs++
	c.setLocked(State{Status: StatusScanning, Result: c.state.Result})
	c.logger.Debug("scan started", logging.Field{Key: "generation", Value: c.gen})
	c.launchLocked(c.gen, 0)
}

// Clear resets to Idle, dropping the held result and error. An in-flight
// attempt or pending retry is abandoned and will not write state.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.gen++
	c.stopTimersLocked()
	if c.runCancel != nil {
		c.runCancel()
		c.runCancel = nil
	}
	c.setLocked(State{Status: StatusIdle})
}

// Mount performs the configured auto-start once.
func (c *Controller) Mount() {
	c.mu.Lock()
	if c.disposed || c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = true
	if !c.cfg.AutoStart {
		c.mu.Unlock()
		return
	}
	if d := c.cfg.InitialDelay; d > 0 {
		gen := c.gen
		c.delayed = c.clock.AfterFunc(d, func() { c.delayedStart(gen) })
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.Start()
}

// Dispose detaches the controller from its host. Any outstanding engine call
// is discarded when it returns, subscribers are closed, and later calls are
// no-ops.
func (c *Controller) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}
	c.disposed = true
	c.gen++
	c.stopTimersLocked()
	c.cancel()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.logger.Debug("controller disposed")
}

// Subscribe returns a channel of snapshots, starting with the current one.
// Sends never block: when the buffer is full the oldest queued snapshot is
// dropped, so the latest state always reaches a slow reader. The returned
// func unsubscribes and closes the channel.
func (c *Controller) Subscribe(buffer int) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan State, buffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.state

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			close(sub)
			delete(c.subs, id)
		}
	}
}

func (c *Controller) delayedStart(gen uint64) {
	c.mu.Lock()
	stale := c.disposed || gen != c.gen
	c.delayed = nil
	c.mu.Unlock()
	if !stale {
		c.Start()
	}
}

func (c *Controller) launchLocked(gen uint64, attempt int) {
	runCtx, cancel := context.WithCancel(c.ctx)
	c.runCancel = cancel
	go c.run(runCtx, cancel, gen, attempt)
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, gen uint64, attempt int) {
	defer cancel()
	res, err := c.invoke(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || gen != c.gen {
		c.logger.Debug("discarding superseded scan outcome",
			logging.Field{Key: "generation", Value: gen},
			logging.Field{Key: "attempt", Value: attempt})
		return
	}
	c.runCancel = nil

	if err == nil {
		if res == nil {
			err = fmt.Errorf("engine returned no result")
		} else {
			c.setLocked(State{Status: StatusSucceeded, Result: res, Attempt: attempt})
			c.logger.Info("scan succeeded",
				logging.Field{Key: "url", Value: res.URL},
				logging.Field{Key: "violations", Value: len(res.Violations)},
				logging.Field{Key: "passes", Value: len(res.Passes)},
				logging.Field{Key: "attempt", Value: attempt})
			return
		}
	}

	if audit.IsEngineBusy(err) {
		if c.cfg.MaxRetries >= 0 && attempt >= c.cfg.MaxRetries {
			c.failLocked(model.ErrorKindEngineBusy, err, attempt)
			return
		}
		c.logger.Debug("engine busy, retrying",
			logging.Field{Key: "attempt", Value: attempt},
			logging.Field{Key: "delay", Value: c.cfg.RetryDelay.String()})
		c.retry = c.clock.AfterFunc(c.cfg.RetryDelay, func() { c.retryAttempt(gen, attempt+1) })
		return
	}

	c.failLocked(model.ErrorKindEngineFailure, err, attempt)
}

// invoke calls the engine, turning a panic into an error.
func (c *Controller) invoke(ctx context.Context) (res *model.ScanResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, fmt.Errorf("engine panicked: %v", p)
		}
	}()
	return c.engine.Run(ctx)
}

func (c *Controller) retryAttempt(gen uint64, attempt int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || gen != c.gen {
		return
	}
	c.retry = nil
	next := c.state
	next.Attempt = attempt
	c.setLocked(next)
	c.launchLocked(gen, attempt)
}

func (c *Controller) failLocked(kind model.ErrorKind, err error, attempt int) {
	info := &model.ErrorInfo{Kind: kind, Message: err.Error()}
	c.setLocked(State{Status: StatusFailed, Result: c.state.Result, Err: info, Attempt: attempt})
	c.logger.Warn("scan failed",
		logging.Field{Key: "kind", Value: string(kind)},
		logging.Field{Key: "error", Value: err},
		logging.Field{Key: "attempt", Value: attempt})
}

func (c *Controller) stopTimersLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	if c.delayed != nil {
		c.delayed.Stop()
		c.delayed = nil
	}
}

func (c *Controller) setLocked(s State) {
	s.UpdatedAt = c.clock.Now()
	s.Run = c.runs
	c.state = s
	for _, ch := range c.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		// Full: drop the oldest. Only this goroutine sends, under mu, so
		// the slot freed here stays free.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
