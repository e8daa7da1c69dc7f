package model

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// FormatSelector renders a selector path for humans, e.g.
// ["div > button.btn"] -> "div → button.btn".
func FormatSelector(path []string) string {
	if len(path) == 0 {
		return "Unknown element"
	}
	joined := strings.Join(path, " ")
	joined = strings.ReplaceAll(joined, ">", " → ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(joined, " "))
}

// DescribeElement summarizes the first element of an HTML snippet as
// "<tag> #id .class1.class2 [type]". It returns "" when the snippet does not
// start with an element.
func DescribeElement(snippet string) string {
	snippet = strings.TrimSpace(snippet)
	if !strings.HasPrefix(snippet, "<") || strings.HasPrefix(snippet, "</") || strings.HasPrefix(snippet, "<!") {
		return ""
	}

	// Wrap in a template so fragments like <td> or <html> keep their tag
	// instead of being rewritten by the parser's insertion modes.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<template>" + snippet + "</template>"))
	if err != nil {
		return ""
	}
	tag, attrs, ok := firstTag(snippet)
	if !ok {
		return ""
	}

	// goquery resolves attributes for the common case; fall back to the
	// raw attribute scan for tags the parser drops (html, head, body).
	sel := doc.Find("template").Contents().Filter(tag).First()
	get := func(name string) string {
		if sel.Length() > 0 {
			if v, ok := sel.Attr(name); ok {
				return v
			}
			return ""
		}
		return attrs[name]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<%s>", tag)
	if id := get("id"); id != "" {
		fmt.Fprintf(&b, " #%s", id)
	}
	if class := strings.Fields(get("class")); len(class) > 0 {
		if len(class) > 2 {
			class = class[:2]
		}
		fmt.Fprintf(&b, " .%s", strings.Join(class, "."))
	}
	if typ := get("type"); typ != "" {
		fmt.Fprintf(&b, " [%s]", typ)
	}
	return b.String()
}

var (
	openTag   = regexp.MustCompile(`^<([A-Za-z][A-Za-z0-9-]*)([^>]*)>?`)
	attribute = regexp.MustCompile(`([A-Za-z_:][-A-Za-z0-9_:.]*)\s*=\s*"([^"]*)"`)
)

func firstTag(snippet string) (string, map[string]string, bool) {
	m := openTag.FindStringSubmatch(snippet)
	if m == nil {
		return "", nil, false
	}
	attrs := make(map[string]string)
	for _, a := range attribute.FindAllStringSubmatch(m[2], -1) {
		attrs[strings.ToLower(a[1])] = a[2]
	}
	return strings.ToLower(m[1]), attrs, true
}
