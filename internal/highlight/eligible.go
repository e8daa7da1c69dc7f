package highlight

import (
	"strings"

	"github.com/andybalholm/cascadia"
)

// nonVisualTags never render a box that could be outlined.
var nonVisualTags = map[string]bool{
	"html":     true,
	"head":     true,
	"meta":     true,
	"title":    true,
	"link":     true,
	"script":   true,
	"style":    true,
	"base":     true,
	"noscript": true,
}

// IsEligible reports whether path can be highlighted. The leading tag of the
// first segment decides; empty or unparseable paths are never eligible.
func IsEligible(path []string) bool {
	if len(path) == 0 {
		return false
	}
	for _, seg := range path {
		if strings.TrimSpace(seg) == "" {
			return false
		}
		if _, err := cascadia.ParseGroup(seg); err != nil {
			return false
		}
	}
	return !nonVisualTags[leadingTag(path[0])]
}

// leadingTag returns the lowercased type selector at the start of sel, or ""
// when sel starts with a class, id, attribute or universal selector.
func leadingTag(sel string) string {
	sel = strings.TrimSpace(sel)
	end := 0
	for end < len(sel) {
		c := sel[end]
		if c == '-' || c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (end > 0 && c >= '0' && c <= '9') {
			end++
			continue
		}
		break
	}
	return strings.ToLower(sel[:end])
}
