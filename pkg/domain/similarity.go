package domain

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/amosWeiskopf/phishsmith/internal/models"
)

// SubMetricWeights is the named weight set used to combine the four domain
// sub-metrics into one score. The weights must sum to 1.0.
type SubMetricWeights struct {
	DomainName      float64 `mapstructure:"domain_name" json:"domain_name"`
	FullDomain      float64 `mapstructure:"full_domain" json:"full_domain"`
	CommonSubstring float64 `mapstructure:"common_substring" json:"common_substring"`
	Subdomain       float64 `mapstructure:"subdomain" json:"subdomain"`
}

// DefaultWeights favours the registrable label; subdomains and paths are
// attacker controlled and only carry a small share.
var DefaultWeights = SubMetricWeights{
	DomainName:      0.6,
	FullDomain:      0.2,
	CommonSubstring: 0.15,
	Subdomain:       0.05,
}

const weightTolerance = 1e-9

// Sum returns the total of all four weights.
func (w SubMetricWeights) Sum() float64 {
	return w.DomainName + w.FullDomain + w.CommonSubstring + w.Subdomain
}

// Validate checks that every weight is non-negative and that they sum to 1.0.
func (w SubMetricWeights) Validate() error {
	for name, v := range map[string]float64{
		"domain_name":      w.DomainName,
		"full_domain":      w.FullDomain,
		"common_substring": w.CommonSubstring,
		"subdomain":        w.Subdomain,
	} {
		if v < 0 {
			return fmt.Errorf("domain weight %s must be non-negative, got %g", name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("domain weights must sum to 1.0, got %g", sum)
	}
	return nil
}

// StringSimilarity returns 1 - editDistance(a, b) / max(len(a), len(b)),
// measured in runes. Two empty strings have similarity 0.
func StringSimilarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 0
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(maxLen)
}

// LongestCommonSubstring returns the longest contiguous run shared by a and b.
// When several runs share the maximum length the one ending first in a wins.
func LongestCommonSubstring(a, b string) string {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return ""
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	longest, endA := 0, 0
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > longest {
					longest = curr[j]
					endA = i
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return string(ra[endA-longest : endA])
}

// CommonSubstringRatio is the longest common substring length over the
// longer input's length, or 0 when nothing is shared.
func CommonSubstringRatio(a, b string) float64 {
	lcs := LongestCommonSubstring(a, b)
	if lcs == "" {
		return 0
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	return float64(utf8.RuneCountInString(lcs)) / float64(maxLen)
}

// Compare scores a candidate's components against a brand's components.
func Compare(candidate, brand models.DomainComponents, w SubMetricWeights) models.DomainSimilarityScore {
	score := models.DomainSimilarityScore{
		FullDomain:      StringSimilarity(candidate.FullDomain, brand.FullDomain),
		DomainName:      StringSimilarity(candidate.DomainName, brand.DomainName),
		CommonSubstring: CommonSubstringRatio(candidate.DomainName, brand.DomainName),
	}
	if candidate.Subdomain != "" && brand.Subdomain != "" {
		score.Subdomain = StringSimilarity(candidate.Subdomain, brand.Subdomain)
	}

	overall := w.DomainName*score.DomainName +
		w.FullDomain*score.FullDomain +
		w.CommonSubstring*score.CommonSubstring +
		w.Subdomain*score.Subdomain
	score.Overall = math.Max(0, math.Min(1, overall))
	return score
}
