// Package webclient downloads the audit engine script over HTTP.
package webclient

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type WebClient interface {
	// Fetch downloads a script. Non-2xx responses, HTML bodies and bodies over
	// the size cap are errors.
	Fetch(ctx context.Context, url string) (*Script, error)

	Close() error
}

// Script is a downloaded script body.
type Script struct {
	// URL is where the body came from, after redirects.
	URL         string
	Body        []byte
	ContentType string
	FetchedAt   time.Time
}

var (
	ErrTooLarge         = errors.New("script exceeds size limit")
	ErrNotScript        = errors.New("response is not a script")
	ErrTooManyRedirects = errors.New("too many redirects")
)

// StatusError is a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.StatusCode)
}
