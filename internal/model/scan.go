package model

import (
	"fmt"
	"time"
)

// ElementRef points at one page element an audit rule evaluated.
// It is captured at scan time and may go stale if the DOM changes afterwards.
type ElementRef struct {
	// SelectorPath holds one CSS selector per frame or shadow boundary,
	// ordered from the outermost document to the element itself.
	SelectorPath []string `json:"selector_path"`

	// HTMLSnippet is the element's outer HTML as the engine saw it.
	HTMLSnippet string `json:"html_snippet"`

	// FailureSummary is the engine's explanation of what failed, if any.
	FailureSummary string `json:"failure_summary,omitempty"`
}

// CheckResult is one rule outcome together with the nodes it applies to.
type CheckResult struct {
	// ID is the rule identifier, unique within one ScanResult bucket.
	ID string `json:"id"`

	// Description is the human-readable rule description.
	Description string `json:"description"`

	// Help is a short remediation hint.
	Help string `json:"help,omitempty"`

	// HelpURL links to the rule documentation.
	HelpURL string `json:"help_url"`

	// Impact is the severity of the rule; ImpactUnknown when the engine gave none.
	Impact Impact `json:"impact"`

	// Tags are the standard tags the rule maps to (e.g. "wcag2aa").
	Tags []string `json:"tags,omitempty"`

	// Nodes are the affected elements in document order.
	Nodes []ElementRef `json:"nodes"`
}

// Violation is a failed rule. Its Nodes are never empty.
type Violation struct {
	CheckResult
}

// ScanResult is the immutable outcome of one completed audit. A newer scan
// supersedes it; nothing modifies it after it is produced.
type ScanResult struct {
	// ID uniquely identifies this scan.
	ID string `json:"id"`

	// URL is the page the audit ran against.
	URL string `json:"url"`

	// Violations are the failed rules.
	Violations []Violation `json:"violations"`

	// Passes are the rules that passed.
	Passes []CheckResult `json:"passes"`

	// Incomplete are the rules that need manual review.
	Incomplete []CheckResult `json:"incomplete"`

	// Inapplicable is how many rules did not apply to the page.
	Inapplicable int `json:"inapplicable"`

	// EngineVersion is the audit engine's reported version.
	EngineVersion string `json:"engine_version,omitempty"`

	// Timestamp is when the engine produced the result.
	Timestamp time.Time `json:"timestamp"`
}

// Summary aggregates counts for display.
type Summary struct {
	Violations int            `json:"violations"`
	Passes     int            `json:"passes"`
	Incomplete int            `json:"incomplete"`
	ByImpact   map[Impact]int `json:"by_impact"`
}

// Summary counts results by bucket and violations by impact.
func (r *ScanResult) Summary() Summary {
	s := Summary{ByImpact: make(map[Impact]int)}
	if r == nil {
		return s
	}
	s.Violations = len(r.Violations)
	s.Passes = len(r.Passes)
	s.Incomplete = len(r.Incomplete)
	for _, v := range r.Violations {
		s.ByImpact[v.Impact]++
	}
	return s
}

// Validate checks that every violation lists at least one node and that rule
// ids are unique within each bucket.
func (r *ScanResult) Validate() error {
	if r == nil {
		return fmt.Errorf("nil scan result")
	}
	seen := make(map[string]bool, len(r.Violations))
	for i, v := range r.Violations {
		if v.ID == "" {
			return fmt.Errorf("violation %d: empty rule id", i)
		}
		if seen[v.ID] {
			return fmt.Errorf("violation %q: duplicate rule id", v.ID)
		}
		seen[v.ID] = true
		if len(v.Nodes) == 0 {
			return fmt.Errorf("violation %q: no nodes", v.ID)
		}
	}
	if err := uniqueIDs("pass", r.Passes); err != nil {
		return err
	}
	return uniqueIDs("incomplete", r.Incomplete)
}

func uniqueIDs(bucket string, checks []CheckResult) error {
	seen := make(map[string]bool, len(checks))
	for _, c := range checks {
		if seen[c.ID] {
			return fmt.Errorf("%s %q: duplicate rule id", bucket, c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}
