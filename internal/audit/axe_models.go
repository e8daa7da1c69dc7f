package audit

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/raysh454/a11ylens/internal/model"
)

// axeOutcome is what the in-page runner script returns.
type axeOutcome struct {
	Results *axeResults `json:"results"`
	Error   string      `json:"error"`
}

type axeResults struct {
	TestEngine struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"testEngine"`
	URL          string       `json:"url"`
	Timestamp    string       `json:"timestamp"`
	Violations   []axeRule    `json:"violations"`
	Passes       []axeRule    `json:"passes"`
	Incomplete   []axeRule    `json:"incomplete"`
	Inapplicable []axeRuleRef `json:"inapplicable"`
}

type axeRuleRef struct {
	ID string `json:"id"`
}

type axeRule struct {
	ID          string    `json:"id"`
	Impact      string    `json:"impact"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description"`
	Help        string    `json:"help"`
	HelpURL     string    `json:"helpUrl"`
	Nodes       []axeNode `json:"nodes"`
}

type axeNode struct {
	HTML           string    `json:"html"`
	Target         axeTarget `json:"target"`
	FailureSummary string    `json:"failureSummary"`
}

// axeTarget is a node's selector path. Inside shadow DOM axe nests an array
// of selectors in place of a single string; those are flattened in order.
type axeTarget []string

func (t *axeTarget) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		var nested []string
		if err := json.Unmarshal(r, &nested); err != nil {
			return err
		}
		out = append(out, nested...)
	}
	*t = out
	return nil
}

func (r axeRule) checkResult() model.CheckResult {
	nodes := make([]model.ElementRef, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		nodes = append(nodes, model.ElementRef{
			SelectorPath:   append([]string(nil), n.Target...),
			HTMLSnippet:    n.HTML,
			FailureSummary: strings.TrimSpace(n.FailureSummary),
		})
	}
	return model.CheckResult{
		ID:          r.ID,
		Description: r.Description,
		Help:        r.Help,
		HelpURL:     r.HelpURL,
		Impact:      model.ParseImpact(r.Impact),
		Tags:        append([]string(nil), r.Tags...),
		Nodes:       nodes,
	}
}

// toScanResult converts raw axe output. Violations without nodes carry nothing
// a user could act on and are dropped.
func (r *axeResults) toScanResult(now time.Time) *model.ScanResult {
	res := &model.ScanResult{
		ID:            uuid.NewString(),
		URL:           r.URL,
		Violations:    make([]model.Violation, 0, len(r.Violations)),
		Passes:        make([]model.CheckResult, 0, len(r.Passes)),
		Incomplete:    make([]model.CheckResult, 0, len(r.Incomplete)),
		Inapplicable:  len(r.Inapplicable),
		EngineVersion: r.TestEngine.Version,
		Timestamp:     now,
	}
	if ts, err := time.Parse(time.RFC3339Nano, r.Timestamp); err == nil {
		res.Timestamp = ts
	}
	for _, v := range r.Violations {
		if len(v.Nodes) == 0 {
			continue
		}
		res.Violations = append(res.Violations, model.Violation{CheckResult: v.checkResult()})
	}
	for _, p := range r.Passes {
		res.Passes = append(res.Passes, p.checkResult())
	}
	for _, i := range r.Incomplete {
		res.Incomplete = append(res.Incomplete, i.checkResult())
	}
	return res
}
