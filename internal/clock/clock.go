// Package clock abstracts the two time operations the scan controller and the
// highlighter need, so tests can drive deferred callbacks deterministically.
package clock

import "time"

// Timer is the subset of *time.Timer callers use.
type Timer interface {
	Stop() bool
}

// Clock provides the current time and deferred callbacks.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is the wall clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
