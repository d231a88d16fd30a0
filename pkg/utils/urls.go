package utils

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// NormalizeURL normalizes a URL for consistent comparison: lowercase scheme
// and host, no fragment, no trailing slash.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return strings.TrimSuffix(u.String(), "/")
}

// GetDomainFromURL extracts the lowercase hostname from a URL
func GetDomainFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if u.Host == "" && !strings.Contains(raw, "://") {
		if u, err = url.Parse("http://" + strings.TrimSpace(raw)); err != nil {
			return ""
		}
	}
	return strings.ToLower(u.Hostname())
}

// ReadURLList reads one URL per line, skipping blank lines and # comments.
func ReadURLList(r io.Reader) ([]string, error) {
	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}
