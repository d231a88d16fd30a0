package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/amosWeiskopf/phishsmith/internal/models"
	"github.com/amosWeiskopf/phishsmith/pkg/analyzer"
	"github.com/amosWeiskopf/phishsmith/pkg/utils"
)

// maxConsoleURL bounds URLs printed in the text summary.
const maxConsoleURL = 120

// Report is the rendered view of one run's outcomes
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Summary     models.Summary `json:"summary"`
	Entries     []Entry        `json:"results"`
}

// Entry is one analyzed URL with its classification and findings
type Entry struct {
	URL            string                   `json:"url"`
	Classification analyzer.Classification `json:"classification"`
	Result         *models.AnalysisResult   `json:"result,omitempty"`
	Error          string                   `json:"error,omitempty"`
	Findings       []models.Finding         `json:"findings,omitempty"`
}

// Reporter handles report generation in various formats
type Reporter struct {
	suspiciousConfidence float64
	now                  func() time.Time
}

// New creates a new Reporter instance
func New(suspiciousConfidence float64) *Reporter {
	return &Reporter{
		suspiciousConfidence: suspiciousConfidence,
		now:                  time.Now,
	}
}

// Build classifies outcomes and collects their findings
func (r *Reporter) Build(outcomes []models.Outcome) *Report {
	report := &Report{
		GeneratedAt: r.now(),
		Summary:     analyzer.Summarize(outcomes, r.suspiciousConfidence),
		Entries:     make([]Entry, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		entry := Entry{
			URL:            o.URL,
			Classification: analyzer.Classify(o, r.suspiciousConfidence),
			Result:         o.Result,
			Error:          o.Error,
		}
		if o.Result != nil {
			entry.Findings = analyzer.Findings(*o.Result, r.suspiciousConfidence)
		}
		report.Entries = append(report.Entries, entry)
	}
	return report
}

// GenerateReport creates a report in the specified format
func (r *Reporter) GenerateReport(outcomes []models.Outcome, format string) (string, error) {
	report := r.Build(outcomes)

	switch format {
	case "json":
		return r.generateJSON(report)
	case "html":
		return r.generateHTML(report)
	case "markdown", "md":
		return r.generateMarkdown(report)
	case "text":
		return r.generateText(report), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// generateJSON creates a JSON formatted report
func (r *Reporter) generateJSON(report *Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data), nil
}

var htmlFuncs = template.FuncMap{
	"lower": func(c analyzer.Classification) string { return strings.ToLower(string(c)) },
	"pct":   func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Phishing Detection Report</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 1200px;
            margin: 0 auto;
            padding: 20px;
            background: #f5f5f5;
        }
        .header {
            background: linear-gradient(135deg, #1e3c72 0%, #2a5298 100%);
            color: white;
            padding: 2rem;
            border-radius: 10px;
            margin-bottom: 2rem;
        }
        .card {
            background: white;
            border-radius: 10px;
            padding: 1.5rem;
            margin-bottom: 1.5rem;
            box-shadow: 0 2px 10px rgba(0,0,0,0.1);
        }
        .summary-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(160px, 1fr));
            gap: 1rem;
        }
        .summary-item { text-align: center; padding: 1rem; background: #f8f9fa; border-radius: 8px; }
        .summary-value { font-size: 2rem; font-weight: bold; }
        .badge { display: inline-block; padding: 0.25rem 0.75rem; border-radius: 4px; font-weight: bold; color: white; }
        .badge.phishing { background: #dc3545; }
        .badge.suspicious { background: #fd7e14; }
        .badge.legitimate { background: #28a745; }
        .badge.failed { background: #6c757d; }
        .finding { border-left: 4px solid #ffc107; padding: 0.5rem 1rem; margin: 0.5rem 0; }
        .finding.critical { border-left-color: #dc3545; }
        .finding.high { border-left-color: #fd7e14; }
        .finding.low { border-left-color: #28a745; }
        table { border-collapse: collapse; width: 100%; }
        td, th { padding: 0.4rem; border-bottom: 1px solid #eee; text-align: left; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Phishing Detection Report</h1>
        <p>Generated on {{.GeneratedAt.Format "January 2, 2006 15:04"}}</p>
    </div>

    <div class="card">
        <h2>Summary</h2>
        <div class="summary-grid">
            <div class="summary-item"><div class="summary-value">{{.Summary.Total}}</div>Analyzed</div>
            <div class="summary-item"><div class="summary-value">{{.Summary.Phishing}}</div>Phishing</div>
            <div class="summary-item"><div class="summary-value">{{.Summary.Suspicious}}</div>Suspicious</div>
            <div class="summary-item"><div class="summary-value">{{.Summary.Legitimate}}</div>Legitimate</div>
            <div class="summary-item"><div class="summary-value">{{.Summary.Failed}}</div>Failed</div>
        </div>
    </div>

    {{range .Entries}}
    <div class="card">
        <h3>{{.URL}} <span class="badge {{lower .Classification}}">{{.Classification}}</span></h3>
        {{if .Error}}<p>Error: {{.Error}}</p>{{end}}
        {{with .Result}}
        <p>Confidence: <strong>{{pct .Confidence}}</strong>{{if .TargetBank}} | Target: {{.TargetBankName}} ({{.TargetBank}}){{end}}</p>
        <table>
            <tr><th>Brand</th><th>Domain</th><th>Features</th><th>Structure</th><th>Overall</th></tr>
            {{range .BrandScores}}
            <tr><td>{{.Brand}}</td><td>{{pct .DomainScore}}</td><td>{{pct .FeatureSimilarity}}</td><td>{{pct .StructuralSimilarity}}</td><td>{{pct .Overall}}</td></tr>
            {{end}}
        </table>
        {{end}}
        {{range .Findings}}
        <div class="finding {{.Severity}}"><strong>{{.Category}}:</strong> {{.Description}}</div>
        {{end}}
    </div>
    {{end}}
</body>
</html>
`

// generateHTML creates an HTML formatted report
func (r *Reporter) generateHTML(report *Report) (string, error) {
	t, err := template.New("report").Funcs(htmlFuncs).Parse(htmlTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// generateMarkdown creates a Markdown formatted report
func (r *Reporter) generateMarkdown(report *Report) (string, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Phishing Detection Report\n\n")
	fmt.Fprintf(&buf, "*Generated on %s*\n\n", report.GeneratedAt.Format("January 2, 2006 15:04"))

	fmt.Fprintf(&buf, "## Summary\n\n")
	fmt.Fprintf(&buf, "| Classification | Count |\n")
	fmt.Fprintf(&buf, "|----------------|-------|\n")
	fmt.Fprintf(&buf, "| Phishing | %d |\n", report.Summary.Phishing)
	fmt.Fprintf(&buf, "| Suspicious | %d |\n", report.Summary.Suspicious)
	fmt.Fprintf(&buf, "| Legitimate | %d |\n", report.Summary.Legitimate)
	fmt.Fprintf(&buf, "| Failed | %d |\n", report.Summary.Failed)
	fmt.Fprintf(&buf, "| **Total** | **%d** |\n\n", report.Summary.Total)

	if len(report.Entries) > 0 {
		fmt.Fprintf(&buf, "## Results\n\n")
	}
	for _, e := range report.Entries {
		fmt.Fprintf(&buf, "### %s\n\n", e.URL)
		fmt.Fprintf(&buf, "- **Classification:** %s\n", e.Classification)
		if e.Error != "" {
			fmt.Fprintf(&buf, "- **Error:** %s\n", e.Error)
		}
		if e.Result != nil {
			fmt.Fprintf(&buf, "- **Confidence:** %.2f\n", e.Result.Confidence)
			if e.Result.TargetBank != "" {
				fmt.Fprintf(&buf, "- **Target Bank:** %s (%s)\n", e.Result.TargetBankName, e.Result.TargetBank)
			}
		}
		for _, f := range e.Findings {
			fmt.Fprintf(&buf, "- [%s] %s: %s\n", f.Severity, f.Category, f.Description)
		}
		fmt.Fprintf(&buf, "\n")
	}

	return buf.String(), nil
}

// generateText creates the console summary printed after a run
func (r *Reporter) generateText(report *Report) string {
	var buf bytes.Buffer
	for _, e := range report.Entries {
		fmt.Fprintf(&buf, "URL: %s\n", utils.TruncateText(e.URL, maxConsoleURL))
		if e.Result == nil {
			fmt.Fprintf(&buf, "Status: %s (%s)\n\n", e.Classification, e.Error)
			continue
		}
		fmt.Fprintf(&buf, "Status: %s\n", e.Classification)
		fmt.Fprintf(&buf, "Confidence: %.2f\n", e.Result.Confidence)
		if e.Result.TargetBank != "" {
			fmt.Fprintf(&buf, "Target Bank: %s\n", e.Result.TargetBankName)
		}
		fmt.Fprintf(&buf, "\n")
	}
	s := report.Summary
	fmt.Fprintf(&buf, "Analyzed %d URLs: %d phishing, %d suspicious, %d legitimate, %d failed\n",
		s.Total, s.Phishing, s.Suspicious, s.Legitimate, s.Failed)
	return buf.String()
}
