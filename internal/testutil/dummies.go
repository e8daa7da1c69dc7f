// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/model"
	"github.com/raysh454/a11ylens/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// DebugCount returns how many debug lines were recorded.
func (l *DummyLogger) DebugCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Debugs)
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements webclient.WebClient.
// By default it returns body "ok:<url>". A non-nil Body replaces it.
// Set FailURLs[url] = true to force an error for a specific URL.
type DummyWebClient struct {
	ResponseDelay time.Duration
	FailURLs      map[string]bool
	Body          []byte
	mu            sync.Mutex
	Requests      []string
}

func (d *DummyWebClient) Fetch(ctx context.Context, url string) (*webclient.Script, error) {
	if d.ResponseDelay > 0 {
		select {
		case <-time.After(d.ResponseDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	d.mu.Lock()
	d.Requests = append(d.Requests, url)
	d.mu.Unlock()

	if d.FailURLs != nil && d.FailURLs[url] {
		return nil, &errString{"dummy fetch fail for " + url}
	}

	body := d.Body
	if body == nil {
		body = []byte("ok:" + url)
	}
	return &webclient.Script{URL: url, Body: body, FetchedAt: time.Now()}, nil
}

func (d *DummyWebClient) Close() error { return nil }

// RequestCount returns how many requests were made.
func (d *DummyWebClient) RequestCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Requests)
}

// ─── Engine ────────────────────────────────────────────────────────────

// Step is one scripted engine outcome.
type Step struct {
	Result *model.ScanResult
	Err    error
	// Gate, when non-nil, blocks the run until it is closed or ctx ends.
	Gate chan struct{}
}

// ScriptedEngine implements audit.Engine by replaying Steps in order. Once
// the script is exhausted the last step repeats. It records how many runs
// overlapped.
type ScriptedEngine struct {
	mu          sync.Mutex
	Steps       []Step
	calls       int
	inFlight    int
	maxInFlight int
	started     chan struct{}
}

func NewScriptedEngine(steps ...Step) *ScriptedEngine {
	return &ScriptedEngine{Steps: steps, started: make(chan struct{}, 64)}
}

func (e *ScriptedEngine) Run(ctx context.Context) (*model.ScanResult, error) {
	e.mu.Lock()
	if len(e.Steps) == 0 {
		e.mu.Unlock()
		return nil, fmt.Errorf("scripted engine has no steps")
	}
	idx := e.calls
	if idx >= len(e.Steps) {
		idx = len(e.Steps) - 1
	}
	step := e.Steps[idx]
	e.calls++
	e.inFlight++
	if e.inFlight > e.maxInFlight {
		e.maxInFlight = e.inFlight
	}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inFlight--
		e.mu.Unlock()
	}()

	select {
	case e.started <- struct{}{}:
	default:
	}

	if step.Gate != nil {
		select {
		case <-step.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return step.Result, step.Err
}

// Calls returns how many times Run was invoked.
func (e *ScriptedEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// MaxInFlight returns the largest number of concurrent runs observed.
func (e *ScriptedEngine) MaxInFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxInFlight
}

// Started receives once per Run, as soon as the run begins.
func (e *ScriptedEngine) Started() <-chan struct{} { return e.started }

// ScanResult builds a result with the given number of violations and passes.
// Each violation gets one node so the result validates.
func ScanResult(url string, violations, passes int) *model.ScanResult {
	res := &model.ScanResult{
		ID:        fmt.Sprintf("scan-%s-%d-%d", url, violations, passes),
		URL:       url,
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	impacts := model.Impacts
	for i := 0; i < violations; i++ {
		res.Violations = append(res.Violations, model.Violation{CheckResult: model.CheckResult{
			ID:     fmt.Sprintf("rule-%d", i),
			Impact: impacts[i%len(impacts)],
			Nodes: []model.ElementRef{{
				SelectorPath: []string{fmt.Sprintf("#el-%d", i)},
				HTMLSnippet:  fmt.Sprintf(`<div id="el-%d"></div>`, i),
			}},
		}})
	}
	for i := 0; i < passes; i++ {
		res.Passes = append(res.Passes, model.CheckResult{ID: fmt.Sprintf("pass-%d", i)})
	}
	return res
}

// ─── helpers ───────────────────────────────────────────────────────────

type errString struct{ s string }

func (e *errString) Error() string { return e.s }
