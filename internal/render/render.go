// Package render formats scan state for the terminal.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/raysh454/a11ylens/internal/env"
	"github.com/raysh454/a11ylens/internal/history"
	"github.com/raysh454/a11ylens/internal/model"
	"github.com/raysh454/a11ylens/internal/scan"
)

var (
	accent  = lipgloss.Color("#00C7E6") // cyan, matches the highlight outline
	fg      = lipgloss.Color("#E8E6E3")
	dim     = lipgloss.Color("#6B7280")
	faint   = lipgloss.Color("#3F3F46")
	success = lipgloss.Color("#22C55E")
	danger  = lipgloss.Color("#EF4444")
	warning = lipgloss.Color("#F59E0B")
)

var impactColors = map[model.Impact]lipgloss.Color{
	model.ImpactCritical: danger,
	model.ImpactSerious:  lipgloss.Color("#FB923C"),
	model.ImpactModerate: warning,
	model.ImpactMinor:    lipgloss.Color("#A3E635"),
	model.ImpactUnknown:  dim,
}

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 2)

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	sectionStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

func impactStyle(i model.Impact) lipgloss.Style {
	c, ok := impactColors[i]
	if !ok {
		c = dim
	}
	return lipgloss.NewStyle().Bold(true).Foreground(c)
}

// DisabledMessage is the unstyled form of Disabled.
func DisabledMessage(d env.Decision) string {
	return fmt.Sprintf("a11y lens disabled in %s mode (source: %s)", d.Name, describeSource(d))
}

// Disabled is the diagnostic shown when the visibility gate hides the overlay.
func Disabled(d env.Decision) string {
	return warnStyle.Render(fmt.Sprintf("a11y lens disabled in %s mode", d.Name)) + "  " +
		dimStyle.Render(fmt.Sprintf("(source: %s)", describeSource(d)))
}

func describeSource(d env.Decision) string {
	if d.Key != "" {
		return fmt.Sprintf("%s via %s", d.Source, d.Key)
	}
	return string(d.Source)
}

// State renders a scan snapshot with the environment that allowed it.
func State(st scan.State, d env.Decision) string {
	var b strings.Builder

	header := titleStyle.Render("a11y lens") + "  " + dimStyle.Render(d.Name+" · "+describeSource(d))
	b.WriteString(boxStyle.Render(header + "\n" + statusLine(st)))
	b.WriteString("\n")

	if st.Err != nil {
		b.WriteString("\n  " + failStyle.Render(string(st.Err.Kind)) + "  " + st.Err.Message + "\n")
	}
	if st.Result == nil {
		return b.String()
	}

	res := st.Result
	sum := res.Summary()
	b.WriteString("\n  " + dimStyle.Render(res.URL) + "\n")
	b.WriteString(fmt.Sprintf("  %s  %s  %s\n",
		failStyle.Render(fmt.Sprintf("%d violations", sum.Violations)),
		passStyle.Render(fmt.Sprintf("%d passes", sum.Passes)),
		warnStyle.Render(fmt.Sprintf("%d incomplete", sum.Incomplete)),
	))

	var counts []string
	for _, i := range model.Impacts {
		if n := sum.ByImpact[i]; n > 0 {
			counts = append(counts, impactStyle(i).Render(fmt.Sprintf("%d %s", n, i)))
		}
	}
	if n := sum.ByImpact[model.ImpactUnknown]; n > 0 {
		counts = append(counts, impactStyle(model.ImpactUnknown).Render(fmt.Sprintf("%d unknown", n)))
	}
	if len(counts) > 0 {
		b.WriteString("  " + strings.Join(counts, dimStyle.Render(" · ")) + "\n")
	}

	if len(res.Violations) == 0 {
		b.WriteString("\n  " + passStyle.Render("No violations found.") + "\n")
		return b.String()
	}

	b.WriteString("\n" + separatorLine + "\n")
	for _, v := range model.SortViolations(res.Violations) {
		renderViolation(&b, v)
	}
	return b.String()
}

func renderViolation(b *strings.Builder, v model.Violation) {
	b.WriteString(fmt.Sprintf("\n  %s %s  %s\n",
		impactStyle(v.Impact).Render(fmt.Sprintf("%-8s", v.Impact)),
		sectionStyle.Render(v.ID),
		dimStyle.Render(fmt.Sprintf("(%d)", len(v.Nodes))),
	))
	desc := v.Help
	if desc == "" {
		desc = v.Description
	}
	if desc != "" {
		b.WriteString("    " + desc + "\n")
	}
	for _, n := range v.Nodes {
		line := "    " + failStyle.Render("●") + " " + model.FormatSelector(n.SelectorPath)
		if el := model.DescribeElement(n.HTMLSnippet); el != "" {
			line += "  " + faintStyle.Render(el)
		}
		b.WriteString(line + "\n")
	}
	if v.HelpURL != "" {
		b.WriteString("    " + dimStyle.Render(v.HelpURL) + "\n")
	}
}

func statusLine(st scan.State) string {
	switch st.Status {
	case scan.StatusScanning:
		s := warnStyle.Render("scanning")
		if st.Attempt > 0 {
			s += dimStyle.Render(fmt.Sprintf(" (retry %d)", st.Attempt))
		}
		return s
	case scan.StatusSucceeded:
		return passStyle.Render("succeeded")
	case scan.StatusFailed:
		return failStyle.Render("failed")
	default:
		return dimStyle.Render("idle")
	}
}

// History renders stored scan records, newest first.
func History(recs []history.Record) string {
	if len(recs) == 0 {
		return dimStyle.Render("No scans recorded.") + "\n"
	}
	var b strings.Builder
	for _, r := range recs {
		b.WriteString(fmt.Sprintf("%s  %s  %s %s %s\n",
			dimStyle.Render(r.CreatedAt.Local().Format(time.DateTime)),
			titleStyle.Render(r.URL),
			failStyle.Render(fmt.Sprintf("%d violations", r.Violations)),
			passStyle.Render(fmt.Sprintf("%d passes", r.Passes)),
			faintStyle.Render(r.ID),
		))
	}
	return b.String()
}

// Comparison renders the change between two scans of a page.
func Comparison(c history.Comparison) string {
	var b strings.Builder
	if c.PreviousID == "" {
		b.WriteString(dimStyle.Render("First recorded scan for "+c.URL) + "\n")
	}
	section := func(title string, style lipgloss.Style, list []history.RuleChange) {
		if len(list) == 0 {
			return
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", sectionStyle.Render(title), dimStyle.Render(fmt.Sprintf("(%d)", len(list)))))
		for _, rc := range list {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", style.Render("●"), rc.ID, impactStyle(rc.Impact).Render(string(rc.Impact))))
		}
	}
	section("New", failStyle, c.New)
	section("Resolved", passStyle, c.Resolved)
	section("Persisting", warnStyle, c.Persisting)
	if len(c.New)+len(c.Resolved)+len(c.Persisting) == 0 {
		b.WriteString("  " + passStyle.Render("No violations in either scan.") + "\n")
	}
	return b.String()
}
