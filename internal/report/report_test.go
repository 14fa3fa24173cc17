package report

import (
	"context"
	"strings"
	"testing"

	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/app"
	"github.com/yi-wen-tung/Shift-Work-Psychosis-meta-analysis/domain/meta"
)

func sampleResult(t *testing.T) *meta.AnalysisResult {
	t.Helper()

	studies := []meta.StudyRecord{
		{Label: "Tanaka 2014", Measure: meta.MeasureSMD, Mean1: 10, Mean2: 8, SD1: 2, SD2: 2, N1: 30, N2: 30},
		{Label: "Osei 2016", Measure: meta.MeasureSMD, Mean1: 5.5, Mean2: 5.0, SD1: 1.5, SD2: 1.4, N1: 45, N2: 40},
		{Label: "Berg 2018", Measure: meta.MeasureOR, A: 20, B: 30, C: 12, D: 38},
		{Label: "Broken 2020", Measure: "RR"},
	}

	result, err := app.NewAnalysisService().Run(context.Background(), app.AnalysisRequest{Studies: studies})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return result
}

func TestMarkdown_ContainsAllSections(t *testing.T) {
	md := Markdown(sampleResult(t))

	for _, want := range []string{
		"# Meta-Analysis Summary",
		"## Studies",
		"Tanaka 2014",
		"## Pooled Effect",
		"Knapp-Hartung",
		"## Heterogeneity",
		"tau2",
		"I2",
		"## Influence",
		"## Excluded Studies",
		"Broken 2020",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdown_TwoStudiesReportsInfluenceUnavailable(t *testing.T) {
	studies := []meta.StudyRecord{
		{Label: "Tanaka 2014", Measure: meta.MeasureSMD, Mean1: 10, Mean2: 8, SD1: 2, SD2: 2, N1: 30, N2: 30},
		{Label: "Osei 2016", Measure: meta.MeasureSMD, Mean1: 5.5, Mean2: 5.0, SD1: 1.5, SD2: 1.4, N1: 45, N2: 40},
	}

	result, err := app.NewAnalysisService().Run(context.Background(), app.AnalysisRequest{Studies: studies})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	md := Markdown(result)
	if !strings.Contains(md, "fewer than 3 studies") {
		t.Error("expected influence-unavailable note for k = 2")
	}
}

func TestHTML_RendersMarkdown(t *testing.T) {
	html := string(HTML(sampleResult(t)))

	if !strings.Contains(html, "<h1") {
		t.Error("expected rendered HTML headings")
	}
	if !strings.Contains(html, "Tanaka 2014") {
		t.Error("expected study labels in HTML output")
	}
}
