// Package utils normalizes the page URLs a user types and the keys scans are
// stored under.
package utils

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrEmptyURL    = errors.New("empty url")
	ErrMissingHost = errors.New("missing host")
	ErrBadScheme   = errors.New("unsupported scheme")
)

// NormalizeTarget turns user input into a URL the browser can load.
// Schemeless input gets http:// for loopback hosts and https:// otherwise.
// The host is lowercased and IDN hosts are converted to punycode. Path, query
// and fragment are kept as given.
func NormalizeTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}
	if raw == "about:blank" {
		return raw, nil
	}
	if !strings.Contains(raw, "://") {
		scheme := "https"
		if isLoopback(hostOf(raw)) {
			scheme = "http"
		}
		raw = scheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("couldn't parse url %s: %w", raw, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	switch u.Scheme {
	case "http", "https":
	case "file":
		return u.String(), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrBadScheme, u.Scheme)
	}
	if u.Host == "" {
		return "", ErrMissingHost
	}
	u.Host = normalizeHost(u.Scheme, u.Hostname(), u.Port())
	return u.String(), nil
}

// PageKey is the canonical form scans of a page are grouped under, so
// http://Example.com/a/ and http://example.com/a#top share history. Tracking
// parameters are dropped and remaining query parameters sorted. Input that
// cannot be canonicalized is returned unchanged.
func PageKey(raw string) string {
	key, err := Canonicalize(raw, CanonicalizeOptions{DropTrackingParams: true, StripTrailingSlash: true})
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return key
}

// CanonicalizeOptions controls optional canonicalization policies.
type CanonicalizeOptions struct {
	DropTrackingParams bool   // remove utm_*, gclid, fbclid and similar
	StripTrailingSlash bool   // /a and /a/ are the same page; root stays "/"
	DefaultScheme      string // prepended to schemeless input; empty requires a scheme
}

var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {}, "utm_content": {},
	"gclid": {}, "fbclid": {}, "mc_cid": {}, "mc_eid": {},
}

// Canonicalize returns a deterministic URL string: lowercased scheme and
// host, punycode host, default port and credentials removed, cleaned path, no
// fragment, sorted query.
func Canonicalize(raw string, opts CanonicalizeOptions) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrEmptyURL
	}
	if opts.DefaultScheme != "" && !strings.Contains(raw, "://") {
		raw = opts.DefaultScheme + "://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", ErrMissingHost
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = normalizeHost(u.Scheme, u.Hostname(), u.Port())
	u.User = nil
	u.Fragment = ""

	p := path.Clean(u.Path)
	if p == "." {
		p = "/"
	}
	if opts.StripTrailingSlash && len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	u.Path = p

	q := u.Query()
	if opts.DropTrackingParams {
		for k := range q {
			if _, ok := trackingParams[strings.ToLower(k)]; ok {
				q.Del(k)
			}
		}
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := url.Values{}
	for _, k := range keys {
		values := q[k]
		sort.Strings(values)
		for _, v := range values {
			ordered.Add(k, v)
		}
	}
	u.RawQuery = ordered.Encode()

	return u.String(), nil
}

func normalizeHost(scheme, host, port string) string {
	host = strings.ToLower(host)
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		host = puny
	}
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		return net.JoinHostPort(host, port)
	}
	if strings.Contains(host, ":") {
		return "[" + host + "]"
	}
	return host
}

// hostOf extracts the host from schemeless input such as "localhost:3000/a".
func hostOf(s string) string {
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return s
}

func isLoopback(host string) bool {
	host = strings.ToLower(strings.Trim(host, "[]"))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
