// Package highlight temporarily emphasizes page elements referenced by scan
// results and restores their exact previous inline styles afterwards.
package highlight

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/raysh454/a11ylens/internal/clock"
	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/model"
)

// ErrClosed is returned by Highlight after Close.
var ErrClosed = errors.New("highlighter closed")

const restoreTimeout = 5 * time.Second

// SessionInfo describes one live highlight.
type SessionInfo struct {
	Key     string    `json:"key"`
	Path    []string  `json:"path"`
	Expires time.Time `json:"expires"`
}

type session struct {
	key      string
	path     []string
	el       Element
	original map[string]string
	timer    clock.Timer
	gen      uint64
	expires  time.Time
}

type Highlighter struct {
	doc      Document
	duration time.Duration
	emphasis map[string]string
	props    []string
	logger   logging.Logger
	clock    clock.Clock

	mu       sync.Mutex
	sessions map[string]*session
	gen      uint64
	closed   bool
}

type Option func(*Highlighter)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(h *Highlighter) { h.clock = c }
}

func New(doc Document, cfg Config, logger logging.Logger, opts ...Option) *Highlighter {
	if logger == nil {
		logger = logging.Nop()
	}
	emphasis := cfg.Emphasis
	if len(emphasis) == 0 {
		emphasis = DefaultEmphasis()
	}
	props := make([]string, 0, len(emphasis))
	for p := range emphasis {
		props = append(props, p)
	}
	sort.Strings(props)

	duration := cfg.Duration
	if duration <= 0 {
		duration = DefaultDuration
	}

	h := &Highlighter{
		doc:      doc,
		duration: duration,
		emphasis: emphasis,
		props:    props,
		logger:   logger.With(logging.Field{Key: "component", Value: "highlighter"}),
		clock:    clock.Real{},
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Highlight scrolls the element at path into view and emphasizes it for d, or
// for the configured duration when d <= 0. Failures are *Error values.
func (h *Highlighter) Highlight(ctx context.Context, path []string, d time.Duration) error {
	if !IsEligible(path) {
		return &Error{Kind: model.ErrorKindNotEligible, Path: path}
	}
	if d <= 0 {
		d = h.duration
	}
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return ErrClosed
	}

	el, err := h.doc.Resolve(ctx, path)
	if err != nil {
		return notFound(path, err)
	}
	if el == nil || !el.Connected(ctx) {
		return notFound(path, nil)
	}

	if err := el.ScrollIntoView(ctx); err != nil {
		if !el.Connected(ctx) {
			return notFound(path, err)
		}
		h.logger.Warn("scroll into view failed",
			logging.Field{Key: "selector", Value: model.FormatSelector(path)},
			logging.Field{Key: "error", Value: err})
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}

	key := el.Key()
	prev := h.sessions[key]

	var original map[string]string
	if prev != nil {
		original = prev.original
	} else {
		original, err = el.Style(ctx, h.props)
		if err != nil {
			return notFound(path, err)
		}
	}

	if err := el.SetStyle(ctx, h.emphasis); err != nil {
		h.restoreLocked(ctx, el, original)
		if prev != nil {
			prev.timer.Stop()
			delete(h.sessions, key)
		}
		return notFound(path, err)
	}

	if prev != nil {
		prev.timer.Stop()
	}
	h.gen++
	gen := h.gen
	s := &session{
		key:      key,
		path:     append([]string(nil), path...),
		el:       el,
		original: original,
		gen:      gen,
		expires:  h.clock.Now().Add(d),
	}
	s.timer = h.clock.AfterFunc(d, func() { h.expire(key, gen) })
	h.sessions[key] = s

	h.logger.Debug("highlighted element",
		logging.Field{Key: "selector", Value: model.FormatSelector(path)},
		logging.Field{Key: "key", Value: key},
		logging.Field{Key: "duration", Value: d.String()},
		logging.Field{Key: "extended", Value: prev != nil})
	return nil
}

// Cancel restores the element at path immediately. It is a no-op when the
// element has no live session.
func (h *Highlighter) Cancel(ctx context.Context, path []string) error {
	h.mu.Lock()
	key := h.keyForPathLocked(path)
	h.mu.Unlock()

	if key == "" {
		el, err := h.doc.Resolve(ctx, path)
		if err != nil || el == nil {
			return nil
		}
		key = el.Key()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.sessions[key]
	if s == nil {
		return nil
	}
	s.timer.Stop()
	delete(h.sessions, key)
	h.restoreLocked(ctx, s.el, s.original)
	return nil
}

// Close restores every live session. Later Highlight calls fail with ErrClosed.
func (h *Highlighter) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for key, s := range h.sessions {
		s.timer.Stop()
		h.restoreLocked(ctx, s.el, s.original)
		delete(h.sessions, key)
	}
	return nil
}

// Sessions lists live highlights ordered by key.
func (h *Highlighter) Sessions() []SessionInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]SessionInfo, 0, len(h.sessions))
	for _, s := range h.sessions {
		out = append(out, SessionInfo{
			Key:     s.key,
			Path:    append([]string(nil), s.path...),
			Expires: s.expires,
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Key < out[b].Key })
	return out
}

func (h *Highlighter) expire(key string, gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.sessions[key]
	if s == nil || s.gen != gen {
		return
	}
	delete(h.sessions, key)

	ctx, cancel := context.WithTimeout(context.Background(), restoreTimeout)
	defer cancel()
	h.restoreLocked(ctx, s.el, s.original)
}

func (h *Highlighter) restoreLocked(ctx context.Context, el Element, original map[string]string) {
	values := make(map[string]string, len(h.props))
	for _, p := range h.props {
		values[p] = original[p]
	}
	if err := el.SetStyle(ctx, values); err != nil {
		// A detached element has nothing left to restore.
		h.logger.Debug("restore failed",
			logging.Field{Key: "key", Value: el.Key()},
			logging.Field{Key: "error", Value: err})
	}
}

func (h *Highlighter) keyForPathLocked(path []string) string {
	want := strings.Join(path, "\x00")
	for key, s := range h.sessions {
		if strings.Join(s.path, "\x00") == want {
			return key
		}
	}
	return ""
}
