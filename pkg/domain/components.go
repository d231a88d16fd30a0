// Package domain scores how closely a URL's domain resembles known brand
// domains and flags suspicious naming patterns.
package domain

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/amosWeiskopf/phishsmith/internal/models"
)

// ExtractComponents splits a URL into its domain components. Parsing is best
// effort: input that cannot be parsed yields empty components. A bare host
// such as "example.co.uk" is accepted and treated as an http URL.
func ExtractComponents(rawURL string) models.DomainComponents {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return models.DomainComponents{}
	}
	switch {
	case strings.HasPrefix(raw, "//"):
		raw = "http:" + raw
	case !strings.Contains(raw, "://"):
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return models.DomainComponents{}
	}

	sub, name, suffix := splitHost(strings.ToLower(u.Hostname()))
	return models.DomainComponents{
		FullDomain: strings.ToLower(u.Host),
		Subdomain:  sub,
		DomainName: name,
		TLD:        suffix,
		Path:       u.Path,
	}
}

// splitHost separates a hostname into subdomain, registrable label and public
// suffix. Multi-label suffixes such as "co.uk" stay intact, and private
// hosting suffixes such as "blogspot.com" count as suffixes too, so the
// tenant label becomes the domain name.
func splitHost(host string) (sub, name, suffix string) {
	host = strings.TrimSuffix(host, ".")
	if host == "" {
		return "", "", ""
	}
	if net.ParseIP(host) != nil {
		return "", host, ""
	}

	suffix, _ = publicsuffix.PublicSuffix(host)
	if suffix == host {
		return "", "", suffix
	}

	rest := strings.TrimSuffix(host, "."+suffix)
	if i := strings.LastIndexByte(rest, '.'); i >= 0 {
		return rest[:i], rest[i+1:], suffix
	}
	return "", rest, suffix
}
