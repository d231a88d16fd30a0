package domain

import (
	"github.com/amosWeiskopf/phishsmith/internal/models"
)

type brandDomain struct {
	shortName  string
	components models.DomainComponents
}

// Analyzer scores candidate URLs against the domains of a brand registry.
// It holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	brands         []brandDomain
	weights        SubMetricWeights
	suspiciousTLDs map[string]struct{}
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWeights overrides the sub-metric weight set.
func WithWeights(w SubMetricWeights) Option {
	return func(a *Analyzer) { a.weights = w }
}

// WithSuspiciousTLDs overrides the suspicious TLD list.
func WithSuspiciousTLDs(tlds []string) Option {
	return func(a *Analyzer) { a.suspiciousTLDs = tldSet(tlds) }
}

// New creates an Analyzer for the given registry. Brand order is preserved
// and decides ties.
func New(brands []models.BrandProfile, opts ...Option) *Analyzer {
	a := &Analyzer{
		brands:         make([]brandDomain, 0, len(brands)),
		weights:        DefaultWeights,
		suspiciousTLDs: tldSet(DefaultSuspiciousTLDs),
	}
	for _, opt := range opts {
		opt(a)
	}
	for _, b := range brands {
		a.brands = append(a.brands, brandDomain{
			shortName:  b.ShortName,
			components: ExtractComponents(b.URL),
		})
	}
	return a
}

// Weights returns the sub-metric weights in use.
func (a *Analyzer) Weights() SubMetricWeights {
	return a.weights
}

// Analyze parses the URL, scores it against every brand and checks it for
// suspicious patterns. MostSimilar is the first brand reaching the highest
// score above zero.
func (a *Analyzer) Analyze(rawURL string) models.DomainAnalysis {
	c := ExtractComponents(rawURL)
	analysis := models.DomainAnalysis{
		TestDomain:   c.FullDomain,
		Components:   c,
		Similarities: make([]models.BrandDomainScore, 0, len(a.brands)),
		Patterns:     CheckPatterns(c, a.suspiciousTLDs),
	}

	for _, b := range a.brands {
		score := Compare(c, b.components, a.weights)
		analysis.Similarities = append(analysis.Similarities, models.BrandDomainScore{
			Brand: b.shortName,
			Score: score,
		})
		if score.Overall > analysis.MaxSimilarity {
			analysis.MaxSimilarity = score.Overall
			analysis.MostSimilar = b.shortName
		}
	}

	host := c.FullDomain
	if c.DomainName != "" || c.TLD != "" {
		host = joinHost(c)
	}
	analysis.Homograph = inspectHomograph(c, host, a.brands)
	return analysis
}

// AnalyzeBatch runs Analyze over each URL, preserving input order.
func (a *Analyzer) AnalyzeBatch(urls []string) []models.DomainAnalysis {
	results := make([]models.DomainAnalysis, 0, len(urls))
	for _, u := range urls {
		results = append(results, a.Analyze(u))
	}
	return results
}

func joinHost(c models.DomainComponents) string {
	host := c.DomainName
	if c.Subdomain != "" {
		host = c.Subdomain + "." + host
	}
	if c.TLD != "" {
		if host == "" {
			return c.TLD
		}
		host += "." + c.TLD
	}
	return host
}
