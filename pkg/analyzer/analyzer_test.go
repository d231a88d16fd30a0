package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/phishsmith/internal/models"
	"github.com/amosWeiskopf/phishsmith/pkg/domain"
)

var capturedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func registry() []models.BrandProfile {
	return []models.BrandProfile{
		{ShortName: "sbi", Name: "State Bank of India", URL: "https://www.onlinesbi.sbi"},
		{ShortName: "hdfc", Name: "HDFC Bank", URL: "https://www.hdfcbank.com"},
	}
}

func domainScores(scores map[string]float64) models.DomainAnalysis {
	d := models.DomainAnalysis{}
	for _, b := range registry() {
		d.Similarities = append(d.Similarities, models.BrandDomainScore{
			Brand: b.ShortName,
			Score: models.DomainSimilarityScore{Overall: scores[b.ShortName]},
		})
	}
	return d
}

func visualBest(brand string, variant models.Variant, feature, structural float64) models.BrandVisualScore {
	overall := (feature + structural) / 2
	return models.BrandVisualScore{
		Brand:          brand,
		BestSimilarity: overall,
		BestType:       variant,
		Variants: []models.VisualSimilarityScore{
			{Variant: models.VariantMain, Available: true, FeatureSimilarity: 0.1, StructuralSimilarity: 0.1, OverallSimilarity: 0.1},
			{Variant: variant, Available: true, FeatureSimilarity: feature, StructuralSimilarity: structural, OverallSimilarity: overall},
		},
	}
}

func TestFuseWeightedBestVariant(t *testing.T) {
	a := New()
	visual := models.VisualAnalysis{
		FeaturesExtracted: true,
		Brands: []models.BrandVisualScore{
			visualBest("sbi", models.VariantLogin, 0.9, 0.8),
			{Brand: "hdfc"},
		},
	}

	result := a.Fuse("https://sbi-login.example", capturedAt, domainScores(map[string]float64{"sbi": 0.5, "hdfc": 0.2}), visual, registry())

	require.Len(t, result.BrandScores, 2)
	sbi := result.BrandScores[0]
	assert.Equal(t, 0.9, sbi.FeatureSimilarity)
	assert.Equal(t, 0.8, sbi.StructuralSimilarity)
	assert.InDelta(t, 0.4*0.5+0.35*0.9+0.25*0.8, sbi.Overall, 1e-12)
	assert.InDelta(t, 0.4*0.2, result.BrandScores[1].Overall, 1e-12)

	assert.Equal(t, sbi.Overall, result.Confidence)
	assert.Equal(t, "sbi", result.TargetBank)
	assert.Equal(t, "State Bank of India", result.TargetBankName)
	assert.True(t, result.IsPhishing)
	assert.Equal(t, capturedAt, result.Timestamp)
}

func TestFuseThresholdIsStrict(t *testing.T) {
	a := NewWithConfig(Config{Weights: Weights{Domain: 1}, Threshold: 0.5})

	at := a.Fuse("u", capturedAt, domainScores(map[string]float64{"sbi": 0.5}), models.VisualAnalysis{}, registry())
	assert.Equal(t, 0.5, at.Confidence)
	assert.False(t, at.IsPhishing)

	above := a.Fuse("u", capturedAt, domainScores(map[string]float64{"sbi": 0.51}), models.VisualAnalysis{}, registry())
	assert.True(t, above.IsPhishing)
}

func TestFuseTieGoesToFirstBrand(t *testing.T) {
	a := New()
	result := a.Fuse("u", capturedAt, domainScores(map[string]float64{"sbi": 0.3, "hdfc": 0.3}), models.VisualAnalysis{}, registry())
	assert.Equal(t, "sbi", result.TargetBank)
}

func TestFuseNoTargetWhenAllZero(t *testing.T) {
	a := New()
	result := a.Fuse("u", capturedAt, domainScores(nil), models.VisualAnalysis{}, registry())
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.TargetBank)
	assert.Empty(t, result.TargetBankName)
	assert.False(t, result.IsPhishing)
}

func TestFuseUnrelatedDomainStaysLegitimate(t *testing.T) {
	brands := []models.BrandProfile{
		{ShortName: "sbi", Name: "State Bank of India", URL: "https://www.onlinesbi.sbi"},
		{ShortName: "hdfc", Name: "HDFC Bank", URL: "https://www.hdfcbank.com"},
		{ShortName: "icici", Name: "ICICI Bank", URL: "https://www.icicibank.com"},
	}
	url := "https://random-unrelated-xyz.top"
	d := domain.New(brands).Analyze(url)
	require.True(t, d.Patterns.Has(models.WarningSuspiciousTLD))

	visual := models.VisualAnalysis{FeaturesExtracted: true}
	for _, b := range brands {
		visual.Brands = append(visual.Brands, visualBest(b.ShortName, models.VariantMain, 0.02, 0.01))
	}

	result := New().Fuse(url, capturedAt, d, visual, brands)
	assert.Less(t, result.Confidence, 0.3)
	assert.False(t, result.IsPhishing)
	assert.Equal(t, ClassLegitimate, Classify(models.Outcome{URL: url, Result: &result}, 0.3))
}

func TestFuseIsDeterministic(t *testing.T) {
	a := New()
	d := domainScores(map[string]float64{"sbi": 0.42, "hdfc": 0.17})
	v := models.VisualAnalysis{Brands: []models.BrandVisualScore{visualBest("hdfc", models.VariantElements, 0.6, 0.3)}}
	assert.Equal(t, a.Fuse("u", capturedAt, d, v, registry()), a.Fuse("u", capturedAt, d, v, registry()))
}

func TestSummarize(t *testing.T) {
	phish := &models.AnalysisResult{Confidence: 0.9, IsPhishing: true}
	suspicious := &models.AnalysisResult{Confidence: 0.45}
	legit := &models.AnalysisResult{Confidence: 0.3}

	outcomes := []models.Outcome{
		{URL: "a", Result: phish},
		{URL: "b", Result: suspicious},
		{URL: "c", Result: legit},
		{URL: "d", Error: "capture failed"},
	}

	assert.Equal(t, models.Summary{Total: 4, Phishing: 1, Suspicious: 1, Legitimate: 1, Failed: 1}, Summarize(outcomes, 0.3))
	assert.Equal(t, ClassFailed, Classify(outcomes[3], 0.3))
}

func TestFindingsOrderedBySeverity(t *testing.T) {
	result := models.AnalysisResult{
		Confidence:     0.85,
		IsPhishing:     true,
		TargetBank:     "sbi",
		TargetBankName: "State Bank of India",
		Domain: models.DomainAnalysis{
			Patterns: models.SuspiciousPatternReport{Warnings: []models.Warning{
				{Kind: models.WarningHyphen, Message: "Contains hyphens (potential hyphen attack)"},
			}},
			Homograph: models.HomographReport{ConfusableWith: "sbi"},
		},
		Visual: models.VisualAnalysis{
			Brands: []models.BrandVisualScore{{Brand: "sbi", BestType: models.VariantLogin, BestSimilarity: 0.92}},
			Error:  "decode image: unknown format",
		},
	}

	findings := Findings(result, 0.3)
	require.Len(t, findings, 5)
	assert.Equal(t, "critical", findings[0].Severity)
	assert.Contains(t, findings[0].Description, "State Bank of India")
	assert.Equal(t, "high", findings[1].Severity)
	assert.Equal(t, "high", findings[2].Severity)
	assert.Equal(t, "medium", findings[3].Severity)
	assert.Equal(t, "low", findings[4].Severity)
}
