package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amosWeiskopf/phishsmith/internal/models"
)

// Fetcher retrieves and parses a single page
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (models.Page, error)
}

// AnalyzeFunc analyzes one discovered URL. It reports failures inside the
// outcome rather than as an error so the crawl can continue.
type AnalyzeFunc func(ctx context.Context, pageURL string) models.Outcome

// Options contains configuration for the crawler
type Options struct {
	MaxPages          int           // Maximum number of analyzed pages
	MaxDepth          int           // Link hops followed from a seed
	RequestsPerSec    float64       // Fetch rate limit
	UserAgent         string        // Empty rotates through browser agents
	Timeout           time.Duration // Per-request timeout
	FollowRobotsTxt   bool          // Respect robots.txt
	IrrelevantDomains []string      // Hosts never worth analyzing
	RelevantKeywords  []string      // A link must mention one of these
}

// DefaultIrrelevantDomains are large platforms that never host a bank
// impersonation worth analyzing.
var DefaultIrrelevantDomains = []string{
	"facebook.com", "twitter.com", "linkedin.com",
	"google.com", "youtube.com", "instagram.com",
	"wikipedia.org", "amazon.com", "flipkart.com",
}

// DefaultRelevantKeywords mark links that may lead to a banking lure.
var DefaultRelevantKeywords = []string{
	"login", "signin", "bank", "secure", "verify",
	"account", "online", "netbanking", "sbi", "idfc",
	"hdfc", "icici", "axis",
}

// DefaultOptions returns the stock crawl settings
func DefaultOptions() Options {
	return Options{
		MaxPages:          50,
		MaxDepth:          1,
		RequestsPerSec:    2,
		Timeout:           20 * time.Second,
		FollowRobotsTxt:   true,
		IrrelevantDomains: DefaultIrrelevantDomains,
		RelevantKeywords:  DefaultRelevantKeywords,
	}
}

var (
	ErrDisallowed = errors.New("disallowed by robots.txt")
	ErrNotHTML    = errors.New("not an html page")
	ErrBlocked    = errors.New("anti-bot protection")
	ErrStatus     = errors.New("unexpected status")
)

// Error describes a failed fetch
type Error struct {
	URL string
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("crawl %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
