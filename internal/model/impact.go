package model

import (
	"sort"
	"strings"
)

// Impact is the severity an audit engine assigns to a rule.
type Impact string

const (
	ImpactMinor    Impact = "minor"
	ImpactModerate Impact = "moderate"
	ImpactSerious  Impact = "serious"
	ImpactCritical Impact = "critical"
	ImpactUnknown  Impact = "unknown"
)

// Impacts lists the known levels from most to least severe.
var Impacts = []Impact{ImpactCritical, ImpactSerious, ImpactModerate, ImpactMinor}

// ParseImpact maps an engine string to an Impact, ImpactUnknown for anything
// unrecognized, including the empty string.
func ParseImpact(s string) Impact {
	switch Impact(strings.ToLower(strings.TrimSpace(s))) {
	case ImpactMinor:
		return ImpactMinor
	case ImpactModerate:
		return ImpactModerate
	case ImpactSerious:
		return ImpactSerious
	case ImpactCritical:
		return ImpactCritical
	default:
		return ImpactUnknown
	}
}

// Priority returns the display priority, 1 being most urgent.
func (i Impact) Priority() int {
	switch i {
	case ImpactCritical:
		return 1
	case ImpactSerious:
		return 2
	case ImpactModerate:
		return 3
	case ImpactMinor:
		return 4
	default:
		return 5
	}
}

// SortViolations returns a copy of vs ordered by impact priority. Violations
// with equal impact keep their original order.
func SortViolations(vs []Violation) []Violation {
	out := append([]Violation(nil), vs...)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Impact.Priority() < out[b].Impact.Priority()
	})
	return out
}
