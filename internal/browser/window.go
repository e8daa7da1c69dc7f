package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// WindowEnvGlobal is the page global consulted as the last variable source.
const WindowEnvGlobal = "__A11Y_LENS_ENV__"

// WindowVars reads keys from window.__A11Y_LENS_ENV__ in the live page. It
// satisfies env.Lookup.
type WindowVars struct {
	session *Session
	timeout time.Duration
}

func (s *Session) WindowVars(timeout time.Duration) *WindowVars {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &WindowVars{session: s, timeout: timeout}
}

type windowValue struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

// Lookup returns the value stored under key. Non-string values are
// stringified; null and undefined count as absent.
func (w *WindowVars) Lookup(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	k, err := json.Marshal(key)
	if err != nil {
		return "", false, err
	}
	expr := fmt.Sprintf(`(function(k) {
  const o = window[%q];
  if (!o || typeof o !== 'object') return { found: false, value: '' };
  const v = o[k];
  if (v === undefined || v === null) return { found: false, value: '' };
  return { found: true, value: String(v) };
})(%s)`, WindowEnvGlobal, k)

	var out windowValue
	if err := w.session.Evaluate(ctx, expr, &out); err != nil {
		return "", false, fmt.Errorf("read window env %s: %w", key, err)
	}
	return out.Value, out.Found, nil
}
