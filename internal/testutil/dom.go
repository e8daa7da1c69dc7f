package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/raysh454/a11ylens/internal/env"
	"github.com/raysh454/a11ylens/internal/highlight"
)

// ─── Document ──────────────────────────────────────────────────────────

// FakeDocument implements highlight.Document over a fixed set of elements
// keyed by their joined selector path.
type FakeDocument struct {
	mu       sync.Mutex
	elements map[string]highlight.Element
	Resolves int
}

func NewFakeDocument() *FakeDocument {
	return &FakeDocument{elements: make(map[string]highlight.Element)}
}

// Add registers el under path. Several paths may share one element.
func (d *FakeDocument) Add(path []string, el *FakeElement) *FakeElement {
	d.AddElement(path, el)
	return el
}

// AddElement registers any highlight.Element, e.g. a FakeElement wrapper.
func (d *FakeDocument) AddElement(path []string, el highlight.Element) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.elements[strings.Join(path, "\x00")] = el
}

func (d *FakeDocument) Resolve(ctx context.Context, path []string) (highlight.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Resolves++
	el, ok := d.elements[strings.Join(path, "\x00")]
	if !ok || !el.Connected(ctx) {
		return nil, errors.New("no element matches")
	}
	return el, nil
}

// ─── Element ───────────────────────────────────────────────────────────

// FakeElement implements highlight.Element with an in-memory inline style.
type FakeElement struct {
	mu       sync.Mutex
	key      string
	style    map[string]string
	detached bool

	ScrollErr error
	// FailNextSet makes the next SetStyle call fail without changing anything.
	FailNextSet bool

	Scrolls  int
	SetCalls int
	History  []map[string]string
}

func NewFakeElement(key string, style map[string]string) *FakeElement {
	s := make(map[string]string, len(style))
	for k, v := range style {
		s[k] = v
	}
	return &FakeElement{key: key, style: s}
}

func (e *FakeElement) Key() string { return e.key }

func (e *FakeElement) ScrollIntoView(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Scrolls++
	return e.ScrollErr
}

func (e *FakeElement) Style(_ context.Context, props []string) (map[string]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached {
		return nil, errors.New("detached")
	}
	out := make(map[string]string, len(props))
	for _, p := range props {
		out[p] = e.style[p]
	}
	return out, nil
}

func (e *FakeElement) SetStyle(_ context.Context, values map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.SetCalls++
	if e.FailNextSet {
		e.FailNextSet = false
		return errors.New("set style failed")
	}
	snap := make(map[string]string, len(values))
	for k, v := range values {
		snap[k] = v
		if v == "" {
			delete(e.style, k)
		} else {
			e.style[k] = v
		}
	}
	e.History = append(e.History, snap)
	return nil
}

func (e *FakeElement) Connected(context.Context) bool {
	return !e.Detached()
}

// Detach simulates the element being removed from the DOM.
func (e *FakeElement) Detach() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.detached = true
}

func (e *FakeElement) Detached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detached
}

// Inline returns a copy of the current inline style.
func (e *FakeElement) Inline() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.style))
	for k, v := range e.style {
		out[k] = v
	}
	return out
}

// Sets returns how many SetStyle calls were made.
func (e *FakeElement) Sets() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.SetCalls
}

// FakePage records navigations in place of a browser tab.
type FakePage struct {
	mu          sync.Mutex
	NavigateErr error

	// Globals maps a URL to the window variables that page publishes.
	Globals map[string]map[string]string

	urls       []string
	styleCalls int
	closed     int
}

func (p *FakePage) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.urls = append(p.urls, url)
	return nil
}

func (p *FakePage) Location(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.urls) == 0 {
		return "about:blank", nil
	}
	return p.urls[len(p.urls)-1], nil
}

// EnsureStyleSheets counts calls and always reports one injected sheet.
func (p *FakePage) EnsureStyleSheets(context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.styleCalls++
	return 1, nil
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

// WindowVars looks keys up in the globals of the page loaded last.
func (p *FakePage) WindowVars() env.Lookup {
	return env.LookupFunc(func(key string) (string, bool, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if len(p.urls) == 0 {
			return "", false, nil
		}
		v, ok := p.Globals[p.urls[len(p.urls)-1]][key]
		return v, ok, nil
	})
}

// URLs returns the navigated URLs in order.
func (p *FakePage) URLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.urls...)
}

func (p *FakePage) StyleCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.styleCalls
}

func (p *FakePage) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
