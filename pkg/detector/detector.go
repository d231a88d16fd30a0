// Package detector runs the full pipeline for a candidate URL: capture,
// domain and visual analysis in parallel, then fusion into a verdict.
package detector

import (
	"context"
	"image"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/amosWeiskopf/phishsmith/internal/models"
	"github.com/amosWeiskopf/phishsmith/pkg/analyzer"
	"github.com/amosWeiskopf/phishsmith/pkg/capture"
	"github.com/amosWeiskopf/phishsmith/pkg/crawler"
	"github.com/amosWeiskopf/phishsmith/pkg/domain"
	"github.com/amosWeiskopf/phishsmith/pkg/visual"
)

// Detector wires the analyzers to a screenshot source.
type Detector struct {
	capturer   capture.Capturer
	brands     []models.BrandProfile
	domain     *domain.Analyzer
	visual     *visual.Analyzer
	fusion     *analyzer.Analyzer
	maxWorkers int
}

// Option configures a Detector.
type Option func(*Detector)

// WithDomainAnalyzer replaces the default domain analyzer.
func WithDomainAnalyzer(a *domain.Analyzer) Option {
	return func(d *Detector) { d.domain = a }
}

// WithVisualAnalyzer replaces the default visual analyzer.
func WithVisualAnalyzer(a *visual.Analyzer) Option {
	return func(d *Detector) { d.visual = a }
}

// WithFusion replaces the default fusion weights and threshold.
func WithFusion(a *analyzer.Analyzer) Option {
	return func(d *Detector) { d.fusion = a }
}

// WithMaxWorkers bounds how many URLs a batch analyzes at once.
func WithMaxWorkers(n int) Option {
	return func(d *Detector) { d.maxWorkers = n }
}

// New creates a Detector over a fixed brand registry. Brands must already
// carry their reference images.
func New(capturer capture.Capturer, brands []models.BrandProfile, opts ...Option) *Detector {
	d := &Detector{capturer: capturer, brands: brands}
	for _, opt := range opts {
		opt(d)
	}
	if d.domain == nil {
		d.domain = domain.New(brands)
	}
	if d.visual == nil {
		d.visual = visual.New(visual.DefaultExtractor())
	}
	if d.fusion == nil {
		d.fusion = analyzer.New()
	}
	if d.maxWorkers < 1 {
		d.maxWorkers = runtime.GOMAXPROCS(0)
	}
	return d
}

// Brands returns the registry the detector scores against.
func (d *Detector) Brands() []models.BrandProfile {
	return d.brands
}

// AnalyzeURL captures pageURL and analyzes the screenshot. A capture
// failure is reported on the outcome and never scored.
func (d *Detector) AnalyzeURL(ctx context.Context, pageURL string) models.Outcome {
	logger := zerolog.Ctx(ctx)

	shot, err := d.capturer.Capture(ctx, pageURL)
	if err != nil {
		logger.Warn().Err(err).Str("url", pageURL).Msg("capture failed")
		return models.Outcome{URL: pageURL, Error: err.Error()}
	}

	result := d.AnalyzeImage(ctx, pageURL, shot.Image, shot.CapturedAt)
	logger.Info().
		Str("url", pageURL).
		Float64("confidence", result.Confidence).
		Bool("is_phishing", result.IsPhishing).
		Str("target_bank", result.TargetBank).
		Msg("analysis complete")
	return models.Outcome{URL: pageURL, Result: &result}
}

// AnalyzeImage scores an already captured screenshot. The domain and visual
// analyzers run concurrently and are joined before fusion.
func (d *Detector) AnalyzeImage(ctx context.Context, pageURL string, img image.Image, capturedAt time.Time) models.AnalysisResult {
	var (
		domainResult models.DomainAnalysis
		visualResult models.VisualAnalysis
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		domainResult = d.domain.Analyze(pageURL)
		return nil
	})
	g.Go(func() error {
		visualResult = d.visual.Analyze(gctx, img, d.brands)
		return nil
	})
	_ = g.Wait()

	return d.fusion.Fuse(pageURL, capturedAt, domainResult, visualResult, d.brands)
}

// AnalyzeBatch analyzes urls on a bounded pool. Outcomes keep input order;
// URLs not started before cancellation are reported as failed.
func (d *Detector) AnalyzeBatch(ctx context.Context, urls []string) []models.Outcome {
	outcomes := make([]models.Outcome, len(urls))

	g := new(errgroup.Group)
	g.SetLimit(d.maxWorkers)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i] = models.Outcome{URL: u, Error: err.Error()}
				return nil
			}
			outcomes[i] = d.AnalyzeURL(ctx, u)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// Crawl discovers candidate pages from seeds and analyzes each one.
func (d *Detector) Crawl(ctx context.Context, c *crawler.Crawler, seeds []string) (*models.CrawlResult, error) {
	return c.Crawl(ctx, seeds, d.AnalyzeURL)
}
