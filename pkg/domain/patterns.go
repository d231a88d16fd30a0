package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/amosWeiskopf/phishsmith/internal/models"
)

// DefaultSuspiciousTLDs are suffixes commonly registered for throwaway sites.
var DefaultSuspiciousTLDs = []string{"tk", "ml", "ga", "cf", "gq", "xyz", "top", "club", "site", "online"}

const (
	maxDomainNameLength = 20
	warningWeight       = 0.1
)

var digitRun = regexp.MustCompile(`\d{3,}`)

// CheckPatterns evaluates the brand-independent red flags for a candidate.
func CheckPatterns(c models.DomainComponents, suspiciousTLDs map[string]struct{}) models.SuspiciousPatternReport {
	warnings := []models.Warning{}

	if _, ok := suspiciousTLDs[c.TLD]; ok && c.TLD != "" {
		warnings = append(warnings, models.Warning{
			Kind:    models.WarningSuspiciousTLD,
			Message: fmt.Sprintf("Suspicious TLD: %s", c.TLD),
		})
	}
	if strings.Contains(c.DomainName, "-") {
		warnings = append(warnings, models.Warning{
			Kind:    models.WarningHyphen,
			Message: "Contains hyphens (potential hyphen attack)",
		})
	}
	if digitRun.MatchString(c.DomainName) {
		warnings = append(warnings, models.Warning{
			Kind:    models.WarningDigitSequence,
			Message: "Contains number sequence",
		})
	}
	if utf8.RuneCountInString(c.DomainName) > maxDomainNameLength {
		warnings = append(warnings, models.Warning{
			Kind:    models.WarningExcessiveLength,
			Message: "Unusually long domain name",
		})
	}

	return models.SuspiciousPatternReport{
		Warnings: warnings,
		Score:    float64(len(warnings)) * warningWeight,
	}
}

func tldSet(tlds []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tlds))
	for _, t := range tlds {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "."))
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}
