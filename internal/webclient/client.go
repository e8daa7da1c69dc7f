package webclient

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/raysh454/a11ylens/internal/logging"
)

// Client fetches scripts with net/http.
type Client struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	logger    logging.Logger
}

// NewClient builds a client. A nil httpClient gets one with cfg.Timeout; the
// redirect limit is applied either way.
func NewClient(cfg Config, logger logging.Logger, httpClient *http.Client) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = def.MaxBytes
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = def.MaxRedirects
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	} else {
		cp := *httpClient
		httpClient = &cp
	}
	maxRedirects := cfg.MaxRedirects
	httpClient.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) > maxRedirects {
			return ErrTooManyRedirects
		}
		return nil
	}

	return &Client{
		client:    httpClient,
		userAgent: cfg.UserAgent,
		maxBytes:  cfg.MaxBytes,
		logger:    logger.With(logging.Field{Key: "component", Value: "webclient"}),
	}
}

func (c *Client) Fetch(ctx context.Context, url string) (*Script, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/javascript, text/javascript;q=0.9, */*;q=0.1")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("script request failed",
			logging.Field{Key: "url", Value: url},
			logging.Field{Key: "error", Value: err.Error()})
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: final, StatusCode: resp.StatusCode}
	}
	ct := resp.Header.Get("Content-Type")
	if !scriptType(ct) {
		return nil, fmt.Errorf("%s: %w (content type %q)", final, ErrNotScript, ct)
	}
	if resp.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("%s: %w (%d bytes)", final, ErrTooLarge, resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", final, err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%s: %w (over %d bytes)", final, ErrTooLarge, c.maxBytes)
	}

	c.logger.Debug("fetched script",
		logging.Field{Key: "url", Value: final},
		logging.Field{Key: "bytes", Value: len(body)})
	return &Script{URL: final, Body: body, ContentType: ct, FetchedAt: time.Now()}, nil
}

func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// scriptType rejects markup, which is what captive portals and error pages
// serve with a 200. A missing type is accepted.
func scriptType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case strings.HasSuffix(mt, "javascript"), strings.HasSuffix(mt, "ecmascript"):
		return true
	case mt == "text/plain", mt == "application/octet-stream":
		return true
	}
	return false
}
