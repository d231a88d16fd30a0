package domain

import (
	"strings"
	"unicode"

	"golang.org/x/net/idna"

	"github.com/amosWeiskopf/phishsmith/internal/models"
)

// lookalikes folds characters commonly swapped in typosquats onto the letter
// they imitate.
var lookalikes = strings.NewReplacer(
	"1", "i", "l", "i", "!", "i",
	"0", "o",
	"5", "s", "$", "s",
	"4", "a", "@", "a",
	"3", "e",
)

// skeleton reduces a label to a form where lookalike characters compare equal.
func skeleton(label string) string {
	return lookalikes.Replace(strings.ToLower(label))
}

// inspectHomograph reports punycode, mixed-script and lookalike red flags for
// the candidate against the brand registry.
func inspectHomograph(c models.DomainComponents, host string, brands []brandDomain) models.HomographReport {
	report := models.HomographReport{}
	if host == "" {
		return report
	}

	report.ASCIIHost = host
	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		report.ASCIIHost = ascii
	}
	report.UnicodeHost = host
	if uni, err := idna.Lookup.ToUnicode(host); err == nil && uni != "" {
		report.UnicodeHost = uni
	}

	for _, label := range strings.Split(report.ASCIIHost, ".") {
		if strings.HasPrefix(label, "xn--") {
			report.Punycode = true
			break
		}
	}
	report.MixedScript = hasMixedScript(report.UnicodeHost)

	name := c.DomainName
	if name == "" {
		return report
	}
	for _, b := range brands {
		if b.components.DomainName == "" || b.components.DomainName == name {
			continue
		}
		if skeleton(b.components.DomainName) == skeleton(name) {
			report.ConfusableWith = b.shortName
			break
		}
	}
	return report
}

func hasMixedScript(host string) bool {
	scripts := make(map[string]struct{})
	for _, r := range host {
		s := scriptOf(r)
		if s == "" {
			continue
		}
		scripts[s] = struct{}{}
		if len(scripts) > 1 {
			return true
		}
	}
	return false
}

func scriptOf(r rune) string {
	switch {
	case unicode.In(r, unicode.Latin):
		return "latin"
	case unicode.In(r, unicode.Cyrillic):
		return "cyrillic"
	case unicode.In(r, unicode.Greek):
		return "greek"
	case unicode.In(r, unicode.Armenian):
		return "armenian"
	case unicode.In(r, unicode.Han):
		return "han"
	default:
		return ""
	}
}
