package audit

import (
	"context"

	"github.com/raysh454/a11ylens/internal/model"
)

// Engine runs one accessibility audit of the current page. Implementations
// reject with an error satisfying IsEngineBusy when asked to run while a
// previous run has not finished; nothing else about their concurrency is
// assumed.
type Engine interface {
	Run(ctx context.Context) (*model.ScanResult, error)
}

// Evaluator executes JavaScript in the page, awaiting promises, and decodes
// the JSON result into res.
type Evaluator interface {
	Evaluate(ctx context.Context, expr string, res any) error
}

// RunOptions narrows which rules a run evaluates.
type RunOptions struct {
	// Rules are force-enabled rule ids.
	Rules []string `mapstructure:"rules" yaml:"rules"`

	// ExcludeRules are disabled rule ids.
	ExcludeRules []string `mapstructure:"exclude_rules" yaml:"exclude_rules"`

	// RunOnlyTags restricts the run to rules carrying one of these tags.
	RunOnlyTags []string `mapstructure:"run_only_tags" yaml:"run_only_tags"`
}

// axeOptions renders the options object passed to axe.run.
func (o RunOptions) axeOptions() map[string]any {
	opts := map[string]any{}
	if len(o.RunOnlyTags) > 0 {
		opts["runOnly"] = map[string]any{"type": "tag", "values": o.RunOnlyTags}
	}
	if len(o.Rules) > 0 || len(o.ExcludeRules) > 0 {
		rules := map[string]any{}
		for _, id := range o.Rules {
			rules[id] = map[string]bool{"enabled": true}
		}
		// Exclusions are applied last so they win over an id listed twice.
		for _, id := range o.ExcludeRules {
			rules[id] = map[string]bool{"enabled": false}
		}
		opts["rules"] = rules
	}
	return opts
}
