package visual

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/amosWeiskopf/phishsmith/internal/models"
)

// ErrNotAvailable annotates variants the brand has no reference for.
const ErrNotAvailable = "Screenshot not available"

// Analyzer scores a candidate screenshot against every reference variant of
// every brand. Reference comparisons are the unit of work and run on a
// bounded pool.
type Analyzer struct {
	extractor  FeatureExtractor
	maxWorkers int
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithMaxWorkers bounds the number of concurrent reference comparisons.
// Values below 1 fall back to GOMAXPROCS.
func WithMaxWorkers(n int) Option {
	return func(a *Analyzer) { a.maxWorkers = n }
}

// New creates an Analyzer using the injected feature extractor.
func New(extractor FeatureExtractor, opts ...Option) *Analyzer {
	a := &Analyzer{extractor: extractor}
	for _, opt := range opts {
		opt(a)
	}
	if a.maxWorkers < 1 {
		a.maxWorkers = runtime.GOMAXPROCS(0)
	}
	return a
}

type candidateImage struct {
	img      image.Image
	features []float64
	err      error
}

// Analyze never fails: decode, extraction and SSIM problems are recorded on
// the affected variant and the remaining comparisons proceed.
func (a *Analyzer) Analyze(ctx context.Context, candidate image.Image, brands []models.BrandProfile) models.VisualAnalysis {
	logger := zerolog.Ctx(ctx)

	cand := candidateImage{img: candidate}
	if candidate == nil {
		cand.err = fmt.Errorf("no candidate image")
	} else {
		cand.features, cand.err = a.extractor.Extract(candidate)
	}

	analysis := models.VisualAnalysis{
		Brands:            make([]models.BrandVisualScore, len(brands)),
		FeaturesExtracted: cand.err == nil,
	}
	if cand.err != nil {
		analysis.Error = cand.err.Error()
		logger.Debug().Err(cand.err).Msg("candidate feature extraction failed")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxWorkers)

	for i, brand := range brands {
		brand := brand
		scores := make([]models.VisualSimilarityScore, len(models.Variants))
		analysis.Brands[i] = models.BrandVisualScore{Brand: brand.ShortName, Variants: scores}

		for j, variant := range models.Variants {
			variant := variant
			data, ok := brand.Reference(variant)
			if !ok {
				scores[j] = models.VisualSimilarityScore{Variant: variant, Error: ErrNotAvailable}
				continue
			}
			slot := &scores[j]
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					*slot = models.VisualSimilarityScore{Variant: variant, Available: true, Error: err.Error()}
					return nil
				}
				*slot = a.compare(cand, variant, data)
				if slot.Error != "" {
					logger.Debug().
						Str("brand", brand.ShortName).
						Str("variant", string(variant)).
						Str("error", slot.Error).
						Msg("reference comparison degraded")
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	for i := range analysis.Brands {
		pickBest(&analysis.Brands[i])
	}
	return analysis
}

// compare scores the candidate against one encoded reference image.
func (a *Analyzer) compare(cand candidateImage, variant models.Variant, data []byte) models.VisualSimilarityScore {
	score := models.VisualSimilarityScore{Variant: variant, Available: true}

	ref, err := Decode(data)
	if err != nil {
		score.Error = err.Error()
		return score
	}

	var notes []string
	if cand.err != nil {
		notes = append(notes, fmt.Sprintf("candidate features: %v", cand.err))
	} else if refFeatures, err := a.extractor.Extract(ref); err != nil {
		notes = append(notes, fmt.Sprintf("reference features: %v", err))
	} else if sim, err := CosineSimilarity(cand.features, refFeatures); err != nil {
		notes = append(notes, err.Error())
	} else {
		score.FeatureSimilarity = sim
	}

	if ssim, err := StructuralSimilarity(cand.img, ref); err != nil {
		notes = append(notes, err.Error())
	} else {
		score.StructuralSimilarity = ssim
	}

	score.OverallSimilarity = (score.FeatureSimilarity + score.StructuralSimilarity) / 2
	if len(notes) > 0 {
		score.Error = strings.Join(notes, "; ")
	}
	return score
}

// pickBest selects the variant with the highest overall similarity above
// zero; the first variant wins ties.
func pickBest(b *models.BrandVisualScore) {
	for _, s := range b.Variants {
		if s.OverallSimilarity > b.BestSimilarity {
			b.BestSimilarity = s.OverallSimilarity
			b.BestType = s.Variant
		}
	}
}
