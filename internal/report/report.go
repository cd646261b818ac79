// Package report renders planning and analysis outcomes as Markdown and HTML
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"goabtest/domain/experiment"
	"goabtest/internal/dataset"
	"goabtest/internal/inference"
)

// Analysis is everything an analysis report shows
type Analysis struct {
	Title          string
	Metric         experiment.MetricType
	Dataset        *dataset.Summary
	Test           experiment.TestResult
	Interpretation inference.Interpretation
	Validations    []experiment.ValidationResult
}

// Plan is everything a planning report shows
type Plan struct {
	Title      string
	Parameters experiment.ParameterSummary
	SampleSize experiment.SampleSizeResult
	Duration   experiment.DurationResult
	PowerCurve *experiment.PowerCurve
}

// AnalysisMarkdown renders an analysis report
func AnalysisMarkdown(a Analysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", titleOr(a.Title, "Experiment Analysis"))

	if a.Dataset != nil {
		b.WriteString("## Dataset\n\n")
		fmt.Fprintf(&b, "- Rows: %d (control %d, treatment %d)\n", a.Dataset.RowCount, a.Dataset.ControlSize, a.Dataset.TreatmentSize)
		if a.Dataset.DateMin != nil && a.Dataset.DateMax != nil {
			fmt.Fprintf(&b, "- Dates: %s to %s\n", a.Dataset.DateMin.Format("2006-01-02"), a.Dataset.DateMax.Format("2006-01-02"))
		}
		fmt.Fprintf(&b, "- Overall rate: %s\n\n", percent(a.Dataset.ConversionRate))
	}

	t := a.Test
	b.WriteString("## Test Result\n\n")
	fmt.Fprintf(&b, "**%s**\n\n", a.Interpretation.Decision)
	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Method | %s |\n", t.Method)
	fmt.Fprintf(&b, "| Control | %s |\n", metric(a.Metric, t.ControlMetric))
	fmt.Fprintf(&b, "| Treatment | %s |\n", metric(a.Metric, t.TreatmentMetric))
	fmt.Fprintf(&b, "| Difference | %.6f |\n", t.Difference)
	fmt.Fprintf(&b, "| Relative difference | %s |\n", relative(t.RelativeDifference))
	fmt.Fprintf(&b, "| Statistic | %s |\n", number(t.Statistic, 4))
	fmt.Fprintf(&b, "| p-value | %s |\n", number(t.PValue, 4))
	fmt.Fprintf(&b, "| %.0f%% CI | %s |\n", (1-t.Alpha)*100, inference.FormatInterval(t.ConfidenceInterval, 4))
	fmt.Fprintf(&b, "| Significant | %s |\n\n", yesNo(t.Significant))

	fmt.Fprintf(&b, "%s\n\n", a.Interpretation.IntervalSummary)
	fmt.Fprintf(&b, "**Recommendation:** %s\n\n", a.Interpretation.Recommendation)

	if len(a.Validations) > 0 {
		b.WriteString("## Validity Checks\n\n")
		b.WriteString("| Check | Statistic | p-value | Verdict |\n|---|---|---|---|\n")
		for _, v := range a.Validations {
			verdict := "passed"
			if !v.Passed {
				verdict = "**failed**"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", v.TestType, number(v.Statistic, 4), number(v.PValue, 4), verdict)
		}
		b.WriteString("\n")
		for _, v := range a.Validations {
			if v.WarningMessage != "" {
				fmt.Fprintf(&b, "> %s\n\n", v.WarningMessage)
			}
		}
	}
	return b.String()
}

// PlanMarkdown renders a planning report
func PlanMarkdown(p Plan) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", titleOr(p.Title, "Experiment Plan"))

	b.WriteString("## Parameters\n\n")
	b.WriteString("| Parameter | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Significance level | %.2f |\n", p.Parameters.Alpha)
	fmt.Fprintf(&b, "| Power | %.2f |\n", p.Parameters.Power)
	fmt.Fprintf(&b, "| Minimum detectable effect | %s |\n", percent(p.Parameters.MDE))
	fmt.Fprintf(&b, "| Baseline rate | %s |\n", percent(p.Parameters.BaselineRate))
	fmt.Fprintf(&b, "| Treatment rate | %s |\n\n", percent(p.Parameters.TreatmentRate))

	b.WriteString("## Sample Size\n\n")
	fmt.Fprintf(&b, "- Effect size: %.4f\n", p.SampleSize.EffectSize)
	fmt.Fprintf(&b, "- Per group (rounded to thousands): %d\n", p.SampleSize.SampleSizePerGroup)
	fmt.Fprintf(&b, "- Total: %d\n\n", p.SampleSize.TotalSampleSize)

	d := p.Duration
	b.WriteString("## Duration\n\n")
	fmt.Fprintf(&b, "- Per variant: %d\n", d.SampleSizePerVariant)
	fmt.Fprintf(&b, "- Total: %d (control %d, treatment %d)\n", d.TotalSampleSize, d.ControlSampleSize, d.TreatmentSampleSize)
	fmt.Fprintf(&b, "- Daily experiment traffic: %.0f\n", d.DailyExperimentTraffic)
	if d.Completable() {
		fmt.Fprintf(&b, "- Days required: %.1f\n\n", d.DaysRequired)
	} else {
		b.WriteString("- Days required: never, no traffic reaches the experiment\n\n")
	}

	if c := p.PowerCurve; c != nil && len(c.SampleSizes) > 0 {
		b.WriteString("## Power Curve\n\n")
		b.WriteString("| Per group | Power |\n|---|---|\n")
		for i, n := range c.SampleSizes {
			fmt.Fprintf(&b, "| %d | %s |\n", n, percent(c.PowerValues[i]))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// HTML renders Markdown produced by this package as a standalone HTML fragment
func HTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.ToHTML([]byte(md), p, renderer)
}

func titleOr(title, fallback string) string {
	if strings.TrimSpace(title) == "" {
		return fallback
	}
	return title
}

func metric(m experiment.MetricType, v float64) string {
	if m == experiment.Binary {
		return percent(v)
	}
	return number(v, 4)
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func relative(v float64) string {
	if math.IsInf(v, 1) {
		return "undefined (control is zero)"
	}
	return fmt.Sprintf("%.2f%%", v)
}

func number(v float64, decimals int) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
