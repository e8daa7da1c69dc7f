package highlight

import (
	"errors"
	"strings"

	"github.com/raysh454/a11ylens/internal/model"
)

var (
	ErrElementNotFound = errors.New("element not found")
	ErrNotEligible     = errors.New("element not eligible for highlighting")
)

// Error is returned by Highlight and Cancel.
type Error struct {
	Kind model.ErrorKind
	Path []string
	Err  error
}

func (e *Error) Error() string {
	msg := string(e.Kind) + " " + strings.Join(e.Path, " ")
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrElementNotFound:
		return e.Kind == model.ErrorKindElementNotFound
	case ErrNotEligible:
		return e.Kind == model.ErrorKindNotEligible
	}
	return false
}

func notFound(path []string, err error) *Error {
	return &Error{Kind: model.ErrorKindElementNotFound, Path: path, Err: err}
}
