package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/raysh454/a11ylens/internal/logging"
)

// Application is the process-wide state container the CLI commands share: the
// effective config, the logger and the lens, opened on first use so commands
// that never touch a browser never start one.
type Application struct {
	Config *Config
	Logger logging.Logger

	open func(ctx context.Context, cfg *Config, logger logging.Logger) (*Lens, error)

	mu   sync.Mutex
	lens *Lens
}

// NewApplication constructs an Application from the provided parts.
func NewApplication(cfg *Config, logger logging.Logger) *Application {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Application{Config: cfg, Logger: logger, open: Open}
}

// Lens opens the lens on first call and returns the same instance afterwards.
func (a *Application) Lens(ctx context.Context) (*Lens, error) {
	if a == nil {
		return nil, errors.New("application is nil")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lens != nil {
		return a.lens, nil
	}
	l, err := a.open(ctx, a.Config, a.Logger)
	if err != nil {
		return nil, err
	}
	a.lens = l
	return l, nil
}

// Shutdown closes the lens, if one was opened, within a bounded timeout.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.mu.Lock()
	l := a.lens
	a.lens = nil
	a.mu.Unlock()
	if l == nil {
		return nil
	}

	a.Logger.Info("application shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	err := l.Close(shutdownCtx)
	if err != nil {
		a.Logger.Warn("application shutdown", logging.Field{Key: "error", Value: err})
	}
	return err
}
