package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/amosWeiskopf/phishsmith/internal/models"
)

// Weights are the fusion weights. They are applied as given and are not
// re-normalized; callers are expected to supply values that sum to 1.
type Weights struct {
	Domain     float64 `mapstructure:"domain_similarity_weight" json:"domain_similarity_weight" validate:"gte=0,lte=1"`
	Feature    float64 `mapstructure:"image_similarity_weight" json:"image_similarity_weight" validate:"gte=0,lte=1"`
	Structural float64 `mapstructure:"structural_similarity_weight" json:"structural_similarity_weight" validate:"gte=0,lte=1"`
}

// Config holds fusion configuration
type Config struct {
	Weights   Weights
	Threshold float64
}

// DefaultConfig returns the stock weights and threshold.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Domain:     0.4,
			Feature:    0.35,
			Structural: 0.25,
		},
		Threshold: 0.7,
	}
}

// Analyzer fuses domain and visual evidence into a verdict. It performs no
// I/O and is safe for concurrent use.
type Analyzer struct {
	config Config
}

// New creates an Analyzer with the default configuration
func New() *Analyzer {
	return &Analyzer{config: DefaultConfig()}
}

// NewWithConfig creates an Analyzer with custom configuration
func NewWithConfig(config Config) *Analyzer {
	return &Analyzer{config: config}
}

// Config returns the fusion configuration in use.
func (a *Analyzer) Config() Config {
	return a.config
}

// Fuse combines per-brand domain and visual scores into one AnalysisResult.
// Each brand's visual contribution comes from its single best variant. The
// first brand in registry order reaching the highest score above zero is
// reported as the target.
func (a *Analyzer) Fuse(url string, capturedAt time.Time, domain models.DomainAnalysis, visual models.VisualAnalysis, brands []models.BrandProfile) models.AnalysisResult {
	result := models.AnalysisResult{
		URL:         url,
		Timestamp:   capturedAt,
		Domain:      domain,
		Visual:      visual,
		BrandScores: make([]models.BrandFusionScore, 0, len(brands)),
	}

	for _, brand := range brands {
		score := a.brandScore(brand.ShortName, domain, visual)
		result.BrandScores = append(result.BrandScores, score)
		if score.Overall > result.Confidence {
			result.Confidence = score.Overall
			result.TargetBank = brand.ShortName
		}
	}

	if result.TargetBank != "" {
		result.TargetBankName = models.BrandName(brands, result.TargetBank)
	}
	result.IsPhishing = result.Confidence > a.config.Threshold
	return result
}

// brandScore computes the weighted score for one brand
func (a *Analyzer) brandScore(brand string, domain models.DomainAnalysis, visual models.VisualAnalysis) models.BrandFusionScore {
	score := models.BrandFusionScore{Brand: brand}
	if d, ok := domain.ScoreFor(brand); ok {
		score.DomainScore = d.Overall
	}
	if v, ok := visual.ScoreFor(brand); ok {
		best := v.Best()
		score.FeatureSimilarity = best.FeatureSimilarity
		score.StructuralSimilarity = best.StructuralSimilarity
	}

	w := a.config.Weights
	score.Overall = w.Domain*score.DomainScore +
		w.Feature*score.FeatureSimilarity +
		w.Structural*score.StructuralSimilarity
	return score
}

// Classification buckets a result for reporting.
type Classification string

const (
	ClassPhishing   Classification = "PHISHING"
	ClassSuspicious Classification = "Suspicious"
	ClassLegitimate Classification = "Legitimate"
	ClassFailed     Classification = "Failed"
)

// Classify places an outcome in a reporting bucket. Suspicious is a
// reporting band only: confidence above suspiciousConfidence without
// crossing the phishing threshold.
func Classify(o models.Outcome, suspiciousConfidence float64) Classification {
	switch {
	case o.Failed():
		return ClassFailed
	case o.Result.IsPhishing:
		return ClassPhishing
	case o.Result.Confidence > suspiciousConfidence:
		return ClassSuspicious
	default:
		return ClassLegitimate
	}
}

// Summarize tallies outcomes by classification.
func Summarize(outcomes []models.Outcome, suspiciousConfidence float64) models.Summary {
	s := models.Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch Classify(o, suspiciousConfidence) {
		case ClassFailed:
			s.Failed++
		case ClassPhishing:
			s.Phishing++
		case ClassSuspicious:
			s.Suspicious++
		default:
			s.Legitimate++
		}
	}
	return s
}

// strongVisualMatch is the best-variant similarity above which a visual
// resemblance is called out in findings.
const strongVisualMatch = 0.8

// Findings explains a result in plain language, most severe first.
func Findings(result models.AnalysisResult, suspiciousConfidence float64) []models.Finding {
	findings := []models.Finding{}

	if result.TargetBank != "" {
		severity := "low"
		switch {
		case result.IsPhishing:
			severity = "critical"
		case result.Confidence > suspiciousConfidence:
			severity = "medium"
		}
		findings = append(findings, models.Finding{
			Category:    "Target",
			Description: fmt.Sprintf("Closest brand is %s (%s) with confidence %.2f", result.TargetBankName, result.TargetBank, result.Confidence),
			Severity:    severity,
		})
	}

	for _, w := range result.Domain.Patterns.Warnings {
		findings = append(findings, models.Finding{
			Category:    "Domain",
			Description: w.Message,
			Severity:    "medium",
		})
	}

	h := result.Domain.Homograph
	if h.ConfusableWith != "" {
		findings = append(findings, models.Finding{
			Category:    "Domain",
			Description: fmt.Sprintf("Domain name is a character-substitution lookalike of %s", h.ConfusableWith),
			Severity:    "high",
		})
	}
	if h.Punycode {
		findings = append(findings, models.Finding{
			Category:    "Domain",
			Description: fmt.Sprintf("Host uses punycode labels (%s renders as %s)", h.ASCIIHost, h.UnicodeHost),
			Severity:    "high",
		})
	}
	if h.MixedScript {
		findings = append(findings, models.Finding{
			Category:    "Domain",
			Description: "Host mixes characters from several scripts",
			Severity:    "high",
		})
	}

	for _, v := range result.Visual.Brands {
		if v.BestSimilarity >= strongVisualMatch {
			findings = append(findings, models.Finding{
				Category:    "Visual",
				Description: fmt.Sprintf("Page closely resembles the %s %s screenshot (%.2f)", v.Brand, v.BestType, v.BestSimilarity),
				Severity:    "high",
			})
		}
	}
	if result.Visual.Error != "" {
		findings = append(findings, models.Finding{
			Category:    "Visual",
			Description: fmt.Sprintf("Visual analysis degraded: %s", result.Visual.Error),
			Severity:    "low",
		})
	}

	severityOrder := map[string]int{"critical": 0, "high": 1, "medium": 2, "low": 3}
	sort.SliceStable(findings, func(i, j int) bool {
		return severityOrder[findings[i].Severity] < severityOrder[findings[j].Severity]
	})
	return findings
}
