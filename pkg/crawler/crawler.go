package crawler

import (
	"bytes"
	"container/list"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"

	"github.com/amosWeiskopf/phishsmith/internal/models"
	"github.com/amosWeiskopf/phishsmith/pkg/extractor"
	"github.com/amosWeiskopf/phishsmith/pkg/utils"
)

const (
	robotsAgent  = "phishsmith"
	maxRetries   = 3
	maxBodyBytes = 5 << 20
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/115.0",
}

func getRandomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}

var _ Fetcher = (*Crawler)(nil)

type queueEntry struct {
	URL   string
	Depth int
	Seed  bool
}

// Crawler discovers candidate pages breadth-first from seed URLs and hands
// each relevant one to an AnalyzeFunc.
type Crawler struct {
	opts      Options
	client    *http.Client
	limiter   *rate.Limiter
	extractor *extractor.Extractor

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

// New creates a Crawler. Zero-valued options fall back to DefaultOptions.
func New(opts Options) *Crawler {
	defaults := DefaultOptions()
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaults.MaxPages
	}
	if opts.MaxDepth < 0 {
		opts.MaxDepth = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}

	jar, _ := cookiejar.New(nil)
	transport := &http.Transport{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
	}

	c := &Crawler{
		opts:      opts,
		client:    &http.Client{Transport: transport, Timeout: opts.Timeout, Jar: jar},
		limiter:   rate.NewLimiter(rate.Inf, 1),
		extractor: extractor.New(),
		robots:    make(map[string]*robotstxt.RobotsData),
	}
	c.SetRateLimit(opts.RequestsPerSec)
	return c
}

// SetRateLimit sets the requests per second limit. Non-positive values
// disable limiting.
func (c *Crawler) SetRateLimit(requestsPerSecond float64) {
	if requestsPerSecond <= 0 {
		c.limiter.SetLimit(rate.Inf)
		return
	}
	c.limiter.SetLimit(rate.Limit(requestsPerSecond))
}

// IsRelevant reports whether a link may lead to a banking lure: its host is
// not an irrelevant platform and its URL or anchor text carries a keyword.
func (c *Crawler) IsRelevant(link models.Link) bool {
	host := utils.GetDomainFromURL(link.ToURL)
	for _, d := range c.opts.IrrelevantDomains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return false
		}
	}
	if _, ok := utils.ContainsAnyKeyword(link.ToURL, c.opts.RelevantKeywords); ok {
		return true
	}
	_, ok := utils.ContainsAnyKeyword(link.AnchorText, c.opts.RelevantKeywords)
	return ok
}

// pageIsRelevant decides whether links out of a fetched page are worth
// following.
func (c *Crawler) pageIsRelevant(page models.Page) bool {
	if page.HasPasswordField {
		return true
	}
	for _, s := range []string{page.URL, page.Title, page.Text} {
		if _, ok := utils.ContainsAnyKeyword(s, c.opts.RelevantKeywords); ok {
			return true
		}
	}
	return false
}

// Crawl analyzes each seed and then follows relevant links breadth-first
// until MaxPages URLs have been analyzed or the frontier is exhausted.
// Per-link failures are counted and skipped; only cancellation stops the
// crawl early, in which case the partial result is returned with the error.
func (c *Crawler) Crawl(ctx context.Context, seeds []string, analyze AnalyzeFunc) (*models.CrawlResult, error) {
	logger := zerolog.Ctx(ctx)
	result := &models.CrawlResult{
		Seeds:     seeds,
		Outcomes:  []models.Outcome{},
		StartedAt: time.Now(),
	}
	defer func() { result.FinishedAt = time.Now() }()

	queue := list.New()
	for _, s := range seeds {
		queue.PushBack(queueEntry{URL: s, Seed: true})
	}
	visited := make(map[string]bool)

	for queue.Len() > 0 && len(result.Outcomes) < c.opts.MaxPages {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("crawl interrupted: %w", err)
		}

		entry := queue.Remove(queue.Front()).(queueEntry)
		key := utils.NormalizeURL(entry.URL)
		if visited[key] {
			continue
		}
		visited[key] = true

		if !entry.Seed && c.opts.FollowRobotsTxt && !c.allowedByRobots(ctx, entry.URL) {
			logger.Debug().Str("url", entry.URL).Msg("skipped (disallowed by robots.txt)")
			result.Skipped++
			continue
		}

		logger.Info().Str("url", entry.URL).Int("depth", entry.Depth).Msg("analyzing")
		outcome := analyze(ctx, entry.URL)
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Failed() {
			result.ErrorCount++
		}

		if entry.Depth >= c.opts.MaxDepth {
			continue
		}

		fetch := c.Fetch
		if entry.Seed {
			fetch = c.fetch
		}
		page, err := fetch(ctx, entry.URL)
		if err != nil {
			logger.Warn().Err(err).Str("url", entry.URL).Msg("fetch failed")
			result.ErrorCount++
			continue
		}
		result.Visited++

		if !entry.Seed && !c.pageIsRelevant(page) {
			continue
		}
		for _, link := range page.Links {
			if visited[utils.NormalizeURL(link.ToURL)] || !isWebpageURL(link.ToURL) {
				continue
			}
			if !c.IsRelevant(link) {
				result.Skipped++
				continue
			}
			queue.PushBack(queueEntry{URL: link.ToURL, Depth: entry.Depth + 1})
		}
	}
	return result, nil
}

// Fetch downloads and parses one page, honoring robots.txt, the rate limit
// and a bounded retry policy for transient failures.
func (c *Crawler) Fetch(ctx context.Context, pageURL string) (models.Page, error) {
	if c.opts.FollowRobotsTxt && !c.allowedByRobots(ctx, pageURL) {
		return models.Page{}, &Error{URL: pageURL, Op: "robots", Err: ErrDisallowed}
	}
	return c.fetch(ctx, pageURL)
}

// fetch is Fetch without the robots.txt check. Seeds go through it.
func (c *Crawler) fetch(ctx context.Context, pageURL string) (models.Page, error) {
	var lastErr error
	for retries := 0; retries < maxRetries; retries++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return models.Page{}, &Error{URL: pageURL, Op: "fetch", Err: err}
		}
		page, retry, err := c.fetchOnce(ctx, pageURL)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !retry || retries == maxRetries-1 {
			break
		}
		zerolog.Ctx(ctx).Debug().Err(err).Int("retry", retries+1).Msg("fetch retry")
		select {
		case <-ctx.Done():
			return models.Page{}, &Error{URL: pageURL, Op: "fetch", Err: ctx.Err()}
		case <-time.After(time.Duration(100*(1<<retries)) * time.Millisecond):
		}
	}
	return models.Page{}, lastErr
}

// fetchOnce performs a single request. The boolean reports whether the
// failure is worth retrying.
func (c *Crawler) fetchOnce(ctx context.Context, pageURL string) (models.Page, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return models.Page{}, false, &Error{URL: pageURL, Op: "request", Err: err}
	}
	ua := c.opts.UserAgent
	if ua == "" {
		ua = getRandomUserAgent()
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Page{}, true, &Error{URL: pageURL, Op: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Page{}, resp.StatusCode >= 500,
			&Error{URL: pageURL, Op: "fetch", Err: fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)}
	}
	if ct := resp.Header.Get("Content-Type"); !isWebpageMIME(ct) {
		return models.Page{}, false, &Error{URL: pageURL, Op: "fetch", Err: fmt.Errorf("%w: %s", ErrNotHTML, ct)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return models.Page{}, true, &Error{URL: pageURL, Op: "read", Err: err}
	}
	if bytes.Contains(body, []byte("cf-browser-verification")) {
		return models.Page{}, false, &Error{URL: pageURL, Op: "fetch", Err: ErrBlocked}
	}

	page, err := c.extractor.Extract(body, pageURL)
	if err != nil {
		return models.Page{}, false, &Error{URL: pageURL, Op: "parse", Err: err}
	}
	page.StatusCode = resp.StatusCode
	page.FetchedAt = time.Now()
	return page, false, nil
}

// allowedByRobots consults the cached robots.txt of the page's origin.
// Unreachable or missing robots files allow everything.
func (c *Crawler) allowedByRobots(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return true
	}
	origin := u.Scheme + "://" + u.Host

	c.mu.Lock()
	robots, cached := c.robots[origin]
	c.mu.Unlock()
	if !cached {
		robots = c.loadRobots(ctx, origin)
		c.mu.Lock()
		c.robots[origin] = robots
		c.mu.Unlock()
	}
	if robots == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return robots.TestAgent(path, robotsAgent)
}

func (c *Crawler) loadRobots(ctx context.Context, origin string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return robots
}

func isWebpageURL(pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	lowercasePath := strings.ToLower(u.Path)
	nonWebExts := []string{".jpg", ".jpeg", ".png", ".gif", ".svg", ".pdf", ".zip", ".mp4", ".mp3", ".css", ".js"}
	for _, ext := range nonWebExts {
		if strings.HasSuffix(lowercasePath, ext) {
			return false
		}
	}
	return true
}

func isWebpageMIME(contentType string) bool {
	mimeType := strings.TrimSpace(strings.Split(strings.ToLower(contentType), ";")[0])
	webpageMIMEs := []string{"text/html", "application/xhtml+xml", "application/xhtml"}
	for _, mime := range webpageMIMEs {
		if mime == mimeType {
			return true
		}
	}
	return false
}
