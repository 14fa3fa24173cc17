package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/meta"
)

// Markdown renders an AnalysisResult as a human-readable markdown summary:
// per-study table, pooled estimate with Knapp-Hartung CI, heterogeneity block
// and the Baujat pairs. Numbers only; plotting stays with external renderers.
func Markdown(result *meta.AnalysisResult) string {
	var b strings.Builder
	m := result.Model

	fmt.Fprintf(&b, "# Meta-Analysis Summary\n\n")
	fmt.Fprintf(&b, "Run `%s`, %d studies.\n\n", result.RunID, m.K)

	b.WriteString("## Studies\n\n")
	b.WriteString("| Study | g | 95% CI | Weight |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, s := range result.Studies {
		fmt.Fprintf(&b, "| %s | %.3f | [%.3f, %.3f] | %.1f%% |\n",
			s.Label, s.Effect, s.CILow, s.CIHigh, s.WeightPercent)
	}
	b.WriteString("\n")

	b.WriteString("## Pooled Effect (random effects, REML + Knapp-Hartung)\n\n")
	fmt.Fprintf(&b, "- Hedges' g: **%.3f** (95%% CI [%.3f, %.3f])\n", m.PooledEffect, m.CILow, m.CIHigh)
	fmt.Fprintf(&b, "- t = %.3f (df = %d), p = %.4g\n", m.TestStatistic, m.DF, m.PValue)
	if m.HasPI {
		fmt.Fprintf(&b, "- 95%% prediction interval: [%.3f, %.3f]\n", m.PILow, m.PIHigh)
	}
	if !m.Converged {
		fmt.Fprintf(&b, "- WARNING: REML stopped at the iteration cap (%d); tau2 is the last iterate\n", m.Iterations)
	}
	b.WriteString("\n")

	b.WriteString("## Heterogeneity\n\n")
	fmt.Fprintf(&b, "- tau2 = %.4f\n", m.Tau2)
	fmt.Fprintf(&b, "- Q = %.3f (df = %d), p = %.4g\n", m.Q, m.DF, m.QPValue)
	fmt.Fprintf(&b, "- I2 = %.1f%%\n\n", m.I2)

	if len(result.Influence) > 0 {
		b.WriteString("## Influence (Baujat pairs)\n\n")
		b.WriteString("| Study | Q contribution | LOO influence |\n")
		b.WriteString("|---|---|---|\n")
		for _, r := range result.Influence {
			fmt.Fprintf(&b, "| %s | %.3f | %.3f |\n",
				r.Label, r.HeterogeneityContribution, r.LeaveOneOutInfluence)
		}
		b.WriteString("\n")
	} else if result.InfluenceUnavailable {
		b.WriteString("## Influence\n\nUnavailable: fewer than 3 studies.\n\n")
	}

	if len(result.Excluded) > 0 {
		b.WriteString("## Excluded Studies\n\n")
		for _, issue := range result.Excluded {
			fmt.Fprintf(&b, "- %s: %s\n", issue.Label, issue.Cause)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// HTML renders the markdown summary to HTML for the API surface.
func HTML(result *meta.AnalysisResult) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.CompletePage})
	return markdown.ToHTML([]byte(Markdown(result)), p, renderer)
}
