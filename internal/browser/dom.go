package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/raysh454/a11ylens/internal/highlight"
)

// resolveFn walks a selector path, descending into shadow roots and
// same-origin frame documents between segments.
const resolveFn = `(function(path) {
  let root = document;
  for (let i = 0; i < path.length; i++) {
    let el = null;
    try { el = root.querySelector(path[i]); } catch (e) { return null; }
    if (!el) return null;
    if (i === path.length - 1) return el;
    root = el.shadowRoot || el.contentDocument || null;
    if (!root) return null;
  }
  return null;
})`

const keyFn = `function() {
  const w = window;
  if (!w.__a11yLensKeys) { w.__a11yLensKeys = new WeakMap(); w.__a11yLensSeq = 0; }
  let k = w.__a11yLensKeys.get(this);
  if (!k) { k = 'el-' + (++w.__a11yLensSeq); w.__a11yLensKeys.set(this, k); }
  return k;
}`

const scrollFn = `function() {
  if (!this.isConnected) throw new Error('element detached');
  this.scrollIntoView({ behavior: 'smooth', block: 'center', inline: 'nearest' });
  return true;
}`

const styleFn = `function(props) {
  const out = {};
  for (const p of props) out[p] = this.style.getPropertyValue(p);
  return out;
}`

const setStyleFn = `function(values) {
  for (const [p, v] of Object.entries(values)) {
    if (v === '') this.style.removeProperty(p); else this.style.setProperty(p, v);
  }
  return true;
}`

const connectedFn = `function() { return this.isConnected; }`

// Resolve implements highlight.Document against the live page.
func (s *Session) Resolve(ctx context.Context, path []string) (highlight.Element, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty selector path")
	}
	arg, err := json.Marshal(path)
	if err != nil {
		return nil, fmt.Errorf("encode selector path: %w", err)
	}

	var obj *runtime.RemoteObject
	if err := s.run(ctx, chromedp.Evaluate(resolveFn+"("+string(arg)+")", &obj)); err != nil {
		return nil, fmt.Errorf("resolve %v: %w", path, err)
	}
	if obj == nil || obj.ObjectID == "" {
		return nil, fmt.Errorf("no element matches %v", path)
	}
	s.track(obj.ObjectID)

	el := &Element{session: s, id: obj.ObjectID}
	if err := el.call(ctx, keyFn, &el.key); err != nil {
		return nil, fmt.Errorf("element key: %w", err)
	}
	return el, nil
}

// Element is a RemoteObject handle on a DOM element. It is valid until the
// next navigation.
type Element struct {
	session *Session
	id      runtime.RemoteObjectID
	key     string
}

func (e *Element) Key() string { return e.key }

func (e *Element) ScrollIntoView(ctx context.Context) error {
	var ok bool
	return e.call(ctx, scrollFn, &ok)
}

func (e *Element) Style(ctx context.Context, props []string) (map[string]string, error) {
	out := map[string]string{}
	if err := e.call(ctx, styleFn, &out, props); err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Element) SetStyle(ctx context.Context, values map[string]string) error {
	var ok bool
	return e.call(ctx, setStyleFn, &ok, values)
}

func (e *Element) Connected(ctx context.Context) bool {
	var ok bool
	if err := e.call(ctx, connectedFn, &ok); err != nil {
		return false
	}
	return ok
}

func (e *Element) call(ctx context.Context, fn string, res any, args ...any) error {
	return e.session.run(ctx, chromedp.CallFunctionOn(fn, res,
		func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(e.id)
		}, args...))
}
