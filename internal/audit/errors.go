package audit

import (
	"errors"
	"strings"

	"github.com/raysh454/a11ylens/internal/model"
)

// ErrEngineBusy is returned by engines asked to run while a run is in progress.
var ErrEngineBusy = errors.New("audit engine already running")

// busySignal is implemented by engine errors that know whether they mean
// "already running" without relying on message text.
type busySignal interface {
	EngineBusy() bool
}

// busyPhrase is what axe-core says when a second run starts too early.
const busyPhrase = "already running"

// IsEngineBusy reports whether err means the engine is already running.
// Structured signals win; the message is only inspected when err carries none.
func IsEngineBusy(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEngineBusy) {
		return true
	}
	var sig busySignal
	if errors.As(err, &sig) {
		return sig.EngineBusy()
	}
	return strings.Contains(strings.ToLower(err.Error()), busyPhrase)
}

// Classify maps an engine error onto the surfaced taxonomy.
func Classify(err error) model.ErrorKind {
	if IsEngineBusy(err) {
		return model.ErrorKindEngineBusy
	}
	return model.ErrorKindEngineFailure
}

// EngineError is a failure reported by code running inside the page.
type EngineError struct {
	Message string
	Busy    bool
}

func (e *EngineError) Error() string {
	return "accessibility scan failed: " + e.Message
}

func (e *EngineError) EngineBusy() bool { return e.Busy }

// Is lets errors.Is(err, ErrEngineBusy) match busy EngineErrors.
func (e *EngineError) Is(target error) bool {
	return target == ErrEngineBusy && e.Busy
}
