package highlight

import "context"

// Document resolves selector paths against the live page.
type Document interface {
	// Resolve walks path one segment per frame or shadow boundary and returns
	// the element it ends at. Any error means no live element matched.
	Resolve(ctx context.Context, path []string) (Element, error)
}

// Element is a handle on one live DOM element.
type Element interface {
	// Key identifies the underlying DOM node. Two handles on the same node
	// share a key.
	Key() string

	ScrollIntoView(ctx context.Context) error

	// Style reads the inline values of props. Unset properties map to "".
	Style(ctx context.Context, props []string) (map[string]string, error)

	// SetStyle writes inline values. An empty value removes the property.
	SetStyle(ctx context.Context, values map[string]string) error

	// Connected reports whether the element is still attached to a document.
	Connected(ctx context.Context) bool
}
