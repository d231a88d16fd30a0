package models

import "time"

// DomainComponents holds the structural parts of a URL's network location.
type DomainComponents struct {
	FullDomain string `json:"full_domain"`
	Subdomain  string `json:"subdomain"`
	DomainName string `json:"domain_name"`
	TLD        string `json:"tld"`
	Path       string `json:"path"`
}

// DomainSimilarityScore is the resemblance of a candidate to one brand domain.
type DomainSimilarityScore struct {
	FullDomain      float64 `json:"full_domain"`
	DomainName      float64 `json:"domain_name"`
	Subdomain       float64 `json:"subdomain"`
	CommonSubstring float64 `json:"common_substring"`
	Overall         float64 `json:"overall"`
}

// BrandDomainScore pairs a brand with its domain similarity score.
type BrandDomainScore struct {
	Brand string                `json:"brand"`
	Score DomainSimilarityScore `json:"score"`
}

// WarningKind identifies a suspicious domain pattern.
type WarningKind string

const (
	WarningSuspiciousTLD   WarningKind = "suspicious_tld"
	WarningHyphen          WarningKind = "hyphen"
	WarningDigitSequence   WarningKind = "digit_sequence"
	WarningExcessiveLength WarningKind = "excessive_length"
)

// Warning is one named suspicious-pattern match.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

// SuspiciousPatternReport lists pattern warnings in check order. Score is
// 0.1 per warning and is not capped at 1.0.
type SuspiciousPatternReport struct {
	Warnings []Warning `json:"warnings"`
	Score    float64   `json:"suspicious_score"`
}

// Has reports whether a warning of the given kind was raised.
func (r SuspiciousPatternReport) Has(kind WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

// HomographReport carries IDN red flags. It is informational and does not
// contribute to the suspicious score.
type HomographReport struct {
	ASCIIHost      string `json:"ascii_host,omitempty"`
	UnicodeHost    string `json:"unicode_host,omitempty"`
	Punycode       bool   `json:"punycode"`
	MixedScript    bool   `json:"mixed_script"`
	ConfusableWith string `json:"confusable_with,omitempty"`
}

// DomainAnalysis is the full output of the domain similarity analyzer.
type DomainAnalysis struct {
	TestDomain    string                  `json:"test_domain"`
	Components    DomainComponents        `json:"domain_components"`
	Similarities  []BrandDomainScore      `json:"similarities"`
	MostSimilar   string                  `json:"most_similar,omitempty"`
	MaxSimilarity float64                 `json:"max_similarity"`
	Patterns      SuspiciousPatternReport `json:"patterns"`
	Homograph     HomographReport         `json:"homograph"`
}

// ScoreFor returns the domain score computed for a brand.
func (d DomainAnalysis) ScoreFor(brand string) (DomainSimilarityScore, bool) {
	for _, s := range d.Similarities {
		if s.Brand == brand {
			return s.Score, true
		}
	}
	return DomainSimilarityScore{}, false
}

// VisualSimilarityScore compares the candidate with one reference variant.
// Available is false when the brand has no reference for the variant; Error
// annotates both missing references and failed computations.
type VisualSimilarityScore struct {
	Variant              Variant `json:"variant"`
	Available            bool    `json:"available"`
	FeatureSimilarity    float64 `json:"feature_similarity"`
	StructuralSimilarity float64 `json:"structural_similarity"`
	OverallSimilarity    float64 `json:"overall_similarity"`
	Error                string  `json:"error,omitempty"`
}

// BrandVisualScore summarizes all variant comparisons for one brand.
// BestType is empty when no variant scored above zero.
type BrandVisualScore struct {
	Brand          string                  `json:"brand"`
	BestSimilarity float64                 `json:"best_similarity"`
	BestType       Variant                 `json:"best_type,omitempty"`
	Variants       []VisualSimilarityScore `json:"all_similarities"`
}

// Best returns the score of the best-matching variant, or a zero score.
func (b BrandVisualScore) Best() VisualSimilarityScore {
	if b.BestType == "" {
		return VisualSimilarityScore{}
	}
	for _, v := range b.Variants {
		if v.Variant == b.BestType {
			return v
		}
	}
	return VisualSimilarityScore{}
}

// VisualAnalysis is the full output of the visual similarity analyzer.
type VisualAnalysis struct {
	Brands            []BrandVisualScore `json:"similarities"`
	FeaturesExtracted bool               `json:"features_extracted"`
	Error             string             `json:"error,omitempty"`
}

// ScoreFor returns the visual summary computed for a brand.
func (v VisualAnalysis) ScoreFor(brand string) (BrandVisualScore, bool) {
	for _, b := range v.Brands {
		if b.Brand == brand {
			return b, true
		}
	}
	return BrandVisualScore{}, false
}

// BrandFusionScore is the weighted per-brand score computed by fusion.
type BrandFusionScore struct {
	Brand                string  `json:"brand"`
	DomainScore          float64 `json:"domain_score"`
	FeatureSimilarity    float64 `json:"feature_similarity"`
	StructuralSimilarity float64 `json:"structural_similarity"`
	Overall              float64 `json:"overall"`
}

// AnalysisResult is the terminal artifact for one analyzed URL. It is never
// mutated after construction.
type AnalysisResult struct {
	URL            string             `json:"url"`
	Timestamp      time.Time          `json:"timestamp"`
	Domain         DomainAnalysis     `json:"domain_analysis"`
	Visual         VisualAnalysis     `json:"image_analysis"`
	BrandScores    []BrandFusionScore `json:"brand_scores"`
	Confidence     float64            `json:"confidence"`
	IsPhishing     bool               `json:"is_phishing"`
	TargetBank     string             `json:"target_bank,omitempty"`
	TargetBankName string             `json:"target_bank_name,omitempty"`
}

// Outcome is what the pipeline reports for one URL: either a result or an
// explicit failure such as a capture error. A failure never carries scores.
type Outcome struct {
	URL    string          `json:"url"`
	Result *AnalysisResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Failed reports whether the URL could not be analyzed.
func (o Outcome) Failed() bool {
	return o.Result == nil
}

// Finding is one human-readable observation about an analyzed URL.
type Finding struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}
