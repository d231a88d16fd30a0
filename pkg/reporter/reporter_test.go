package reporter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/phishsmith/internal/models"
	"github.com/amosWeiskopf/phishsmith/pkg/analyzer"
)

func testOutcomes() []models.Outcome {
	return []models.Outcome{
		{URL: "https://onlinesbi-secure.xyz", Result: &models.AnalysisResult{
			URL:            "https://onlinesbi-secure.xyz",
			Confidence:     0.86,
			IsPhishing:     true,
			TargetBank:     "sbi",
			TargetBankName: "State Bank of India",
			BrandScores:    []models.BrandFusionScore{{Brand: "sbi", DomainScore: 0.7, Overall: 0.86}},
		}},
		{URL: "https://hdfc-offers.top", Result: &models.AnalysisResult{
			URL: "https://hdfc-offers.top", Confidence: 0.45, TargetBank: "hdfc", TargetBankName: "HDFC Bank",
		}},
		{URL: "https://example.org", Result: &models.AnalysisResult{URL: "https://example.org", Confidence: 0.1}},
		{URL: "https://down.example/<script>", Error: "capture render: timeout"},
	}
}

func newTestReporter() *Reporter {
	r := New(0.3)
	r.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestBuild(t *testing.T) {
	report := newTestReporter().Build(testOutcomes())

	assert.Equal(t, models.Summary{Total: 4, Phishing: 1, Suspicious: 1, Legitimate: 1, Failed: 1}, report.Summary)
	require.Len(t, report.Entries, 4)
	assert.Equal(t, analyzer.ClassPhishing, report.Entries[0].Classification)
	assert.Equal(t, analyzer.ClassSuspicious, report.Entries[1].Classification)
	assert.Equal(t, analyzer.ClassLegitimate, report.Entries[2].Classification)
	assert.Equal(t, analyzer.ClassFailed, report.Entries[3].Classification)
	assert.NotEmpty(t, report.Entries[0].Findings)
	assert.Empty(t, report.Entries[3].Findings)
}

func TestGenerateJSON(t *testing.T) {
	out, err := newTestReporter().GenerateReport(testOutcomes(), "json")
	require.NoError(t, err)

	var decoded struct {
		Summary models.Summary `json:"summary"`
		Results []struct {
			URL            string `json:"url"`
			Classification string `json:"classification"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 1, decoded.Summary.Phishing)
	require.Len(t, decoded.Results, 4)
	assert.Equal(t, "PHISHING", decoded.Results[0].Classification)
}

func TestGenerateHTML(t *testing.T) {
	out, err := newTestReporter().GenerateReport(testOutcomes(), "html")
	require.NoError(t, err)

	assert.Contains(t, out, "Phishing Detection Report")
	assert.Contains(t, out, "March 1, 2024 12:00")
	assert.Contains(t, out, `class="badge phishing"`)
	assert.Contains(t, out, "State Bank of India (sbi)")
	assert.Contains(t, out, "86%")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestGenerateMarkdown(t *testing.T) {
	out, err := newTestReporter().GenerateReport(testOutcomes(), "markdown")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "# Phishing Detection Report"))
	assert.Contains(t, out, "| **Total** | **4** |")
	assert.Contains(t, out, "### https://onlinesbi-secure.xyz")
	assert.Contains(t, out, "- **Target Bank:** State Bank of India (sbi)")
	assert.Contains(t, out, "- **Error:** capture render: timeout")
	assert.Contains(t, out, "[critical] Target:")
}

func TestGenerateText(t *testing.T) {
	out, err := newTestReporter().GenerateReport(testOutcomes(), "text")
	require.NoError(t, err)

	assert.Contains(t, out, "URL: https://onlinesbi-secure.xyz\nStatus: PHISHING\nConfidence: 0.86\nTarget Bank: State Bank of India\n")
	assert.Contains(t, out, "Status: Failed (capture render: timeout)")
	assert.True(t, strings.HasSuffix(out, "Analyzed 4 URLs: 1 phishing, 1 suspicious, 1 legitimate, 1 failed\n"))
}

func TestGenerateUnsupported(t *testing.T) {
	_, err := newTestReporter().GenerateReport(nil, "pdf")
	assert.ErrorContains(t, err, "unsupported format: pdf")
}
