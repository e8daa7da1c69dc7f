package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

var (
	styleMu     sync.Mutex
	styleSheets = map[string]string{}
)

// RegisterStyleSheet records css under id for injection into every page. The
// first registration of an id wins; it reports whether css was stored.
func RegisterStyleSheet(id, css string) bool {
	styleMu.Lock()
	defer styleMu.Unlock()
	if _, ok := styleSheets[id]; ok {
		return false
	}
	styleSheets[id] = css
	return true
}

func registeredStyleSheets() [][2]string {
	styleMu.Lock()
	defer styleMu.Unlock()
	ids := make([]string, 0, len(styleSheets))
	for id := range styleSheets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([][2]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, [2]string{id, styleSheets[id]})
	}
	return out
}

const ensureStyleFn = `(function(id, css) {
  if (document.getElementById(id)) return false;
  const el = document.createElement('style');
  el.id = id;
  el.textContent = css;
  (document.head || document.documentElement).appendChild(el);
  return true;
})`

// EnsureStyleSheets injects each registered sheet into the current document
// unless an element with its id already exists. It returns how many sheets
// were added.
func (s *Session) EnsureStyleSheets(ctx context.Context) (int, error) {
	added := 0
	for _, sheet := range registeredStyleSheets() {
		args, err := json.Marshal(sheet)
		if err != nil {
			return added, err
		}
		// Marshal of [2]string yields ["id","css"]; spread it as call arguments.
		expr := ensureStyleFn + ".apply(null, " + string(args) + ")"
		var inserted bool
		if err := s.Evaluate(ctx, expr, &inserted); err != nil {
			return added, fmt.Errorf("inject stylesheet %s: %w", sheet[0], err)
		}
		if inserted {
			added++
		}
	}
	return added, nil
}
