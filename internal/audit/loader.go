package audit

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/raysh454/a11ylens/internal/logging"
	"github.com/raysh454/a11ylens/internal/webclient"
)

// Loader supplies the axe-core source. A local ScriptPath wins; otherwise the
// script is downloaded from ScriptURL. Only successful loads are cached so a
// transient download failure is retried on the next scan.
type Loader struct {
	path   string
	url    string
	client webclient.WebClient
	logger logging.Logger

	mu     sync.Mutex
	script string
}

// NewLoader builds a loader. client may be nil when cfg.ScriptPath is set.
func NewLoader(cfg Config, client webclient.WebClient, logger logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Loader{
		path:   cfg.ScriptPath,
		url:    cfg.ScriptURL,
		client: client,
		logger: logger.With(logging.Field{Key: "component", Value: "audit-loader"}),
	}
}

// Script returns the engine source.
func (l *Loader) Script(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.script != "" {
		return l.script, nil
	}

	var (
		src string
		err error
	)
	switch {
	case l.path != "":
		src, err = l.readFile()
	case l.url != "":
		src, err = l.download(ctx)
	default:
		err = fmt.Errorf("no audit script configured")
	}
	if err != nil {
		return "", err
	}
	if src == "" {
		return "", fmt.Errorf("audit script is empty")
	}
	l.script = src
	return src, nil
}

func (l *Loader) readFile() (string, error) {
	b, err := os.ReadFile(l.path)
	if err != nil {
		return "", fmt.Errorf("read audit script: %w", err)
	}
	l.logger.Debug("loaded audit script from disk",
		logging.Field{Key: "path", Value: l.path},
		logging.Field{Key: "bytes", Value: len(b)})
	return string(b), nil
}

func (l *Loader) download(ctx context.Context) (string, error) {
	if l.client == nil {
		return "", fmt.Errorf("download audit script: no web client")
	}
	s, err := l.client.Fetch(ctx, l.url)
	if err != nil {
		return "", fmt.Errorf("download audit script: %w", err)
	}
	l.logger.Info("downloaded audit script",
		logging.Field{Key: "url", Value: s.URL},
		logging.Field{Key: "bytes", Value: len(s.Body)})
	return string(s.Body), nil
}
